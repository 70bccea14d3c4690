package backend

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/texreg"
)

// registry holds registered engine factories.
var (
	registryMu sync.RWMutex
	engines    = make(map[string]EngineFactory)
	// Priority order for engine selection (first that constructs wins).
	// GPU > GoGPU > Software (GPU is fastest, Software is the fallback).
	enginePriority = []string{EngineGPU, EngineGoGPU, EngineSoftware}
)

// Register registers an engine factory with the given name.
// This is typically called from init() functions in engine packages.
// If an engine with the same name is already registered, it will be
// replaced.
func Register(name string, factory EngineFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	engines[name] = factory
}

// Unregister removes an engine from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(engines, name)
}

// Available returns the registered engine names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if an engine with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := engines[name]
	return ok
}

// New constructs a new engine instance by name.
// Returns ErrEngineNotAvailable if no engine with that name is
// registered.
func New(name string) (texreg.Engine, error) {
	registryMu.RLock()
	factory, ok := engines[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrEngineNotAvailable, name)
	}
	return factory()
}

// Default constructs the best available engine based on priority.
// Priority order: gpu > gogpu > software. A factory that fails (for
// example a GPU engine on a machine without a usable device) is
// skipped and the next candidate is tried.
func Default() (texreg.Engine, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	var lastErr error
	for _, name := range enginePriority {
		factory, ok := engines[name]
		if !ok {
			continue
		}
		eng, err := factory()
		if err != nil {
			lastErr = err
			continue
		}
		return eng, nil
	}

	// Fallback: any registered engine outside the priority list.
	for name, factory := range engines {
		if slices.Contains(enginePriority, name) {
			continue
		}
		eng, err := factory()
		if err != nil {
			lastErr = err
			continue
		}
		return eng, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, ErrEngineNotAvailable
}

// MustDefault returns the default engine or panics.
func MustDefault() texreg.Engine {
	eng, err := Default()
	if err != nil {
		panic("backend: no engine available: " + err.Error())
	}
	return eng
}
