package renderer

import (
	"sort"
	"sync"

	"github.com/maplibre/maplibre-native-go/pkg/errors"
)

// Factory constructs a backend from normalized options.
type Factory func(opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend factory available under the given name.
// Backends call this from init(). Registering the same name twice panics;
// that is a programming error, not a runtime condition.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic("renderer: Register called twice for backend " + name)
	}
	registry[name] = factory
}

// Open constructs a backend by registry name. Options are normalized
// before they reach the factory. An empty name selects the default
// backend.
func Open(name string, opts Options) (Backend, error) {
	if name == "" {
		name = DefaultBackend
	}

	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown backend %q (available: %v)", name, Backends())
	}
	return factory(opts.Normalized())
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
