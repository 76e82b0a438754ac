package core

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]DatasetSchema)
	registryMu sync.RWMutex
)

// Register adds a dataset schema to the registry.
// Panics if a dataset with the same name is already registered, or if a
// required field has no aliases.
func Register(def DatasetSchema) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Name]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Name))
	}

	for _, field := range def.Required {
		if len(def.Aliases[field]) == 0 {
			panic(fmt.Sprintf("dataset %s: required field %q has no aliases", def.Name, field))
		}
	}

	if def.Label == "" {
		def.Label = def.Name
	}

	registry[def.Name] = def
}

// Get returns a dataset schema by name.
// Returns false if not found.
func Get(name string) (DatasetSchema, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[name]
	return def, ok
}

// Lookup is Get with an error suitable for returning to callers.
func Lookup(name string) (DatasetSchema, error) {
	def, ok := Get(name)
	if !ok {
		return DatasetSchema{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return def, nil
}

// All returns all registered dataset schemas sorted by name.
func All() []DatasetSchema {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasetSchema, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result
}

// Names returns all registered dataset names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DatasetCount returns the number of registered datasets.
func DatasetCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]DatasetSchema)
}
