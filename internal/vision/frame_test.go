package vision

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameValidate(t *testing.T) {
	tests := []struct {
		name    string
		frame   *Frame
		wantErr bool
	}{
		{"nil frame", nil, true},
		{"zero width", &Frame{Width: 0, Height: 4}, true},
		{"zero height", &Frame{Width: 4, Height: 0}, true},
		{"short buffer", &Frame{Width: 2, Height: 2, Gray: make([]uint8, 3)}, true},
		{"one pixel", NewFrame(1, 1), false},
		{"regular", NewFrame(64, 48), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.frame.Validate()
			if tt.wantErr {
				var ife *InvalidFrameError
				require.Error(t, err)
				assert.True(t, errors.As(err, &ife), "want *InvalidFrameError, got %T", err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFromImage_RGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{R: 255, G: 255, B: 255, A: 255})
	img.Set(1, 0, color.RGBA{R: 255, A: 255})
	img.Set(2, 1, color.RGBA{G: 255, A: 255})

	f := FromImage(img, true)
	require.NoError(t, f.Validate())
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, 2, f.Height)
	assert.Equal(t, uint8(255), f.At(0, 0))
	assert.Equal(t, uint8(76), f.At(1, 0))
	assert.Equal(t, uint8(150), f.At(2, 1))
	assert.Equal(t, uint8(0), f.At(1, 1))

	require.NotNil(t, f.Color)
	img.Set(0, 0, color.RGBA{A: 255})
	assert.Equal(t, uint8(255), f.Color.RGBAAt(0, 0).R, "colour copy must not alias the source")
}

func TestFromImage_SubImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 10, 10))
	img.SetGray(5, 6, color.Gray{Y: 200})
	sub := img.SubImage(image.Rect(4, 4, 8, 8)).(*image.Gray)

	f := FromImage(sub, false)
	require.NoError(t, f.Validate())
	assert.Equal(t, 4, f.Width)
	assert.Equal(t, uint8(200), f.At(1, 2))
	assert.Nil(t, f.Color)
}

func TestFrameClone(t *testing.T) {
	f := NewFrame(4, 4)
	f.Gray[5] = 9
	c := f.Clone()
	c.Gray[5] = 1
	assert.Equal(t, uint8(9), f.Gray[5])
	assert.True(t, f.SameSize(c))
	assert.Nil(t, (*Frame)(nil).Clone())
}

func TestFrameAtClamps(t *testing.T) {
	f := NewFrame(2, 2)
	f.Gray[3] = 7
	assert.Equal(t, uint8(7), f.At(5, 5))
	assert.Equal(t, uint8(0), f.At(-3, -1))
}
