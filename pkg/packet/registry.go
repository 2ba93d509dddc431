package packet

import (
	"fmt"
	"sort"
	"sync"
)

// Constructs an empty packet ready for ReadFields
type Factory func() Packet

// Maps packet type names to factories. Safe for concurrent use so one registry can serve
// several readers.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() (registry *Registry) {
	registry = &Registry{
		factories: make(map[string]Factory),
	}
	return
}

// Registers factory under the type name of the packet it builds
func (registry *Registry) Register(factory Factory) (err error) {
	sample := factory()
	if sample == nil || sample.Definition() == nil {
		err = fmt.Errorf("factory returned a packet without definition")
		return
	}
	def := sample.Definition()
	err = def.Validate()
	if err != nil {
		err = fmt.Errorf("failed to register %s: %w", def.TypeName, err)
		return
	}
	if def.Cached {
		_, ok := sample.(Cacheable)
		if !ok {
			err = fmt.Errorf("failed to register %s: cached packets must implement ID()", def.TypeName)
			return
		}
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()
	if _, exists := registry.factories[def.TypeName]; exists {
		err = fmt.Errorf("packet type %s already registered", def.TypeName)
		return
	}
	registry.factories[def.TypeName] = factory
	return
}

func (registry *Registry) Lookup(typeName string) (factory Factory, ok bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	factory, ok = registry.factories[typeName]
	return
}

// Registered type names, sorted
func (registry *Registry) TypeNames() (names []string) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	for name := range registry.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return
}
