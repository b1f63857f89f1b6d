// Package engine defines the numeric backend a tracking session runs on
// its worker goroutine, and a registry of named backends.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/barpath/internal/vision"
	"github.com/banshee-data/barpath/internal/vision/l2features"
	"github.com/banshee-data/barpath/internal/vision/l3flow"
)

// Engine performs corner detection and frame-to-frame tracking. An
// Engine is used from a single goroutine and need not be safe for
// concurrent use.
type Engine interface {
	Name() string
	// Warmup prepares the engine and returns once it can serve requests.
	Warmup(ctx context.Context) error
	Detect(f *vision.Frame, s vision.Settings, opts l2features.Options) ([]vision.TrackedPoint, error)
	Track(prev, curr *vision.Frame, pts []vision.TrackedPoint, frame int, timestampMs float64) ([]vision.TrackedPoint, error)
	// Close releases engine resources.
	Close() error
}

// Config is passed to engine factories.
type Config struct {
	Flow l3flow.Config
}

// Factory builds an Engine.
type Factory func(cfg Config) (Engine, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes an engine available by name. It panics if the name is
// taken or f is nil.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if f == nil {
		panic("engine: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("engine: Register called twice for " + name)
	}
	registry[name] = f
}

// New builds the named engine.
func New(name string, cfg Config) (Engine, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", vision.ErrUnknownEngine, name, Names())
	}
	e, err := f(cfg)
	if err != nil {
		return nil, fmt.Errorf("create engine %q: %w", name, err)
	}
	return e, nil
}

// Names lists registered engines in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
