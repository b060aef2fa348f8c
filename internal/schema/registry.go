// Package schema declares the field mappings for every importable entity
// type and the natural key used to reconcile repeated imports. The mappings
// are what the old per-screen importers each hard-coded; here they are data
// handed to the one shared engine.
package schema

import (
	"fmt"
	"sort"
	"sync"

	"github.com/assetdesk/assetdesk/internal/importer"
)

// Definition binds an entity's field mapping to its reconciliation key and
// display metadata.
type Definition struct {
	Mapping    importer.Mapping
	NaturalKey []string
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds an entity definition to the registry.
// Panics if the entity key is already registered.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	key := def.Mapping.Entity
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("entity already registered: %s", key))
	}
	registry[key] = def
}

// Get returns an entity definition by key.
// Returns false if not found.
func Get(key string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[key]
	return def, ok
}

// All returns all registered definitions sorted by entity key.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Mapping.Entity < result[j].Mapping.Entity
	})
	return result
}

// Count returns the number of registered entities.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered entities. Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Definition)
}
