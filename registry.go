package rhi

import (
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// DriverFactory builds a driver for one backend kind.
type DriverFactory func(desc DriverDescription) (Driver, error)

var (
	registryMu sync.RWMutex
	factories  = make(map[DriverKind]DriverFactory)
)

// Register installs the factory for kind, replacing any earlier one.
// Backend packages call it from init.
func Register(kind DriverKind, factory DriverFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[kind] = factory
}

// Unregister removes the factory for kind.
func Unregister(kind DriverKind) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, kind)
}

// Available lists the registered kinds in ascending order.
func Available() []DriverKind {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]DriverKind, 0, len(factories))
	for kind := range factories {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NewDriver creates a driver of desc.Kind through its registered factory.
func NewDriver(desc DriverDescription) (Driver, error) {
	if desc.ApplicationName == "" {
		return nil, InvalidArgumentf("NewDriver: application name is required")
	}

	registryMu.RLock()
	factory, ok := factories[desc.Kind]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrBackendNotAvailable, "NewDriver: no backend registered for %s", desc.Kind)
	}

	driver, err := factory(desc)
	if err != nil {
		return nil, err
	}
	Logger().Info("driver created", "kind", desc.Kind.String(), "application", desc.ApplicationName,
		"version", desc.ApplicationVersion.String(), "validation", desc.EnableValidation)
	return driver, nil
}
