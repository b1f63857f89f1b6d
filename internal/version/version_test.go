package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldTime := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldTime })

	Version, GitSHA, BuildTime = "v1.2.3", "abc1234", "2026-10-01T12:00:00Z"
	want := "barpath v1.2.3 (git abc1234, built 2026-10-01T12:00:00Z)"
	if got := String("barpath"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
