package dialect

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
)

// ErrDialectRequired is returned by planners and introspectors built without a dialect.
var ErrDialectRequired = errors.New("dialect is required")

var (
	registeredMu sync.RWMutex
	registered   = map[string]*Dialect{}
)

// Register publishes d under its lowercased name. The adapters' dialect
// packages call it from init so DDL can be rendered without a connection.
func Register(d *Dialect) {
	registeredMu.Lock()
	registered[strings.ToLower(d.Name)] = d
	registeredMu.Unlock()
}

// Get looks up a registered dialect by name, ignoring case.
func Get(name string) (*Dialect, bool) {
	registeredMu.RLock()
	defer registeredMu.RUnlock()
	d, ok := registered[strings.ToLower(name)]
	return d, ok
}

// List returns the registered dialect names, sorted.
func List() []string {
	registeredMu.RLock()
	defer registeredMu.RUnlock()
	return slices.Sorted(maps.Keys(registered))
}

func unregister(name string) {
	registeredMu.Lock()
	delete(registered, strings.ToLower(name))
	registeredMu.Unlock()
}
