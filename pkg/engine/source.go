package engine

import (
	"fmt"
	"sync"

	"github.com/germanamz/camview/pkg/devices"
)

// SourceFactory creates an Enumerator from a DevicesConfig.
type SourceFactory func(cfg DevicesConfig) (devices.Enumerator, error)

var (
	sourceMu    sync.RWMutex
	sources     = map[string]SourceFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		sources[""] = newSysfs
		sources[SourceSysfs] = newSysfs
		sources[SourceFile] = newFile
		sources[SourceStatic] = newStatic
	})
}

// RegisterSource registers a custom device source under the given kind.
// It can be called before New to extend the engine with additional sources.
func RegisterSource(kind string, factory SourceFactory) {
	ensureDefaults()

	sourceMu.Lock()
	defer sourceMu.Unlock()

	sources[kind] = factory
}

// lookupSource returns the factory for the given kind.
func lookupSource(kind string) (SourceFactory, bool) {
	ensureDefaults()

	sourceMu.RLock()
	defer sourceMu.RUnlock()

	f, ok := sources[kind]
	return f, ok
}

func newSysfs(cfg DevicesConfig) (devices.Enumerator, error) {
	return devices.SysfsEnumerator{Root: cfg.Path}, nil
}

func newFile(cfg DevicesConfig) (devices.Enumerator, error) {
	return devices.FileEnumerator{Path: cfg.Path}, nil
}

func newStatic(cfg DevicesConfig) (devices.Enumerator, error) {
	return devices.Static(cfg.Static), nil
}

// buildEnumerator creates the Enumerator for cfg using the registered
// factory for its Source.
func buildEnumerator(cfg DevicesConfig) (devices.Enumerator, error) {
	factory, ok := lookupSource(cfg.Source)
	if !ok {
		return nil, fmt.Errorf("engine: unknown device source %q", cfg.Source)
	}

	e, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("engine: device source %q: %w", cfg.Source, err)
	}

	return e, nil
}
