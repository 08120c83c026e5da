package cpshadow

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DeviceFactory opens a device bound to target. The meaning of target is
// backend specific: a canvas js.Value for webgl, a gpucontext provider or
// nil for wgpu, nil for software.
type DeviceFactory func(target any) (Device, error)

// BackendInfo describes a registered device backend.
type BackendInfo struct {
	// Name is the unique identifier for this backend.
	Name string

	// Priority determines selection order (higher = preferred).
	// Standard priorities:
	//   - 100: GPU backends (wgpu, webgl)
	//   - 10: CPU backends
	Priority int

	// Available reports if the backend can open a device on this system.
	Available bool
}

type backendEntry struct {
	name      string
	priority  int
	factory   DeviceFactory
	available func() bool
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*backendEntry)
)

// RegisterBackend adds a device backend. Backend packages call it from
// init:
//
//	func init() {
//	    cpshadow.RegisterBackend("software", 10, open, nil)
//	}
//
// If available is nil, the backend is assumed always available.
// Registering a name that already exists replaces the previous entry.
func RegisterBackend(name string, priority int, factory DeviceFactory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = &backendEntry{
		name:      name,
		priority:  priority,
		factory:   factory,
		available: available,
	}
}

// UnregisterBackend removes a backend. It is intended for tests.
func UnregisterBackend(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(registry, name)
}

// Backends returns all registered backends sorted by priority (highest
// first), ties broken by name.
func Backends() []BackendInfo {
	registryMu.RLock()
	entries := make([]*backendEntry, 0, len(registry))
	for _, e := range registry {
		entries = append(entries, e)
	}
	registryMu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].priority != entries[j].priority {
			return entries[i].priority > entries[j].priority
		}
		return entries[i].name < entries[j].name
	})

	infos := make([]BackendInfo, len(entries))
	for i, e := range entries {
		infos[i] = BackendInfo{Name: e.name, Priority: e.priority, Available: e.available()}
	}
	return infos
}

// OpenDevice opens a device through the named backend.
func OpenDevice(name string, target any) (Device, error) {
	registryMu.RLock()
	entry, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, &BackendNotFoundError{Name: name}
	}
	if !entry.available() {
		return nil, &BackendUnavailableError{Name: name}
	}

	d, err := entry.factory(target)
	if err != nil {
		return nil, fmt.Errorf("cpshadow: open %s device: %w", name, err)
	}
	return d, nil
}

// OpenBestDevice tries every available backend in priority order and
// returns the first device that opens. The error matches
// ErrContextUnavailable when none does.
func OpenBestDevice(target any) (Device, error) {
	var errs []error
	for _, b := range Backends() {
		if !b.Available {
			continue
		}
		d, err := OpenDevice(b.Name, target)
		if err == nil {
			Logger().Debug("cpshadow: device opened", "backend", b.Name)
			return d, nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no backend available", ErrContextUnavailable)
	}
	return nil, fmt.Errorf("%w: %w", ErrContextUnavailable, errors.Join(errs...))
}

// BackendNotFoundError indicates a named backend is not registered.
type BackendNotFoundError struct {
	Name string
}

func (e *BackendNotFoundError) Error() string {
	return "cpshadow: backend not found: " + e.Name
}

// BackendUnavailableError indicates a backend exists but is not available.
type BackendUnavailableError struct {
	Name string
}

func (e *BackendUnavailableError) Error() string {
	return "cpshadow: backend unavailable: " + e.Name
}
