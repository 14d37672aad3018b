package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/leapstack-labs/schemashift/pkg/core"
)

// Factory builds an unconnected Adapter. A nil logger discards output.
type Factory func(*slog.Logger) Adapter

// ErrNoAdapterType is returned by NewAdapter when the config names no adapter.
var ErrNoAdapterType = errors.New("adapter type not specified")

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a target adapter available under name (case-insensitive).
// Adapter packages call it from init; registering a name twice panics.
func Register(name string, factory Factory) {
	key := strings.ToLower(name)
	if key == "" || factory == nil {
		panic("adapter: Register called with empty name or nil factory")
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := factories[key]; dup {
		panic(fmt.Sprintf("adapter: %q registered twice", key))
	}
	factories[key] = factory
}

// Get returns the factory registered under name.
func Get(name string) (Factory, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := factories[strings.ToLower(name)]
	return f, ok
}

// IsRegistered reports whether an adapter is registered under name.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// ListAdapters returns the registered adapter names in sorted order.
func ListAdapters() []string {
	registryMu.RLock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	registryMu.RUnlock()

	slices.Sort(names)
	return names
}

// NewAdapter builds the adapter selected by cfg.Type. It does not connect.
func NewAdapter(cfg core.AdapterConfig, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrNoAdapterType
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// UnknownAdapterError names a target type that no adapter package registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown adapter type %q (available: %s); check target.type in schemashift.yaml",
		e.Type, strings.Join(e.Available, ", "))
}
