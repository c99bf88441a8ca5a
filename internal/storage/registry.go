package storage

import (
	"fmt"
	"sync"
)

// Registry maps backend type names to factories
type Registry struct {
	factories map[string]StoreFactory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]StoreFactory),
	}
}

func (r *Registry) Register(storeType string, factory StoreFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[storeType] = factory
}

func (r *Registry) Create(storeType string, config StoreConfig) (Store, error) {
	r.mu.RLock()
	factory, exists := r.factories[storeType]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("storage type %s not registered", storeType)
	}

	return factory.Create(config)
}

func (r *Registry) IsRegistered(storeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[storeType]
	return exists
}

var DefaultRegistry = NewRegistry()

func Register(storeType string, factory StoreFactory) {
	DefaultRegistry.Register(storeType, factory)
}

func Create(storeType string, config StoreConfig) (Store, error) {
	return DefaultRegistry.Create(storeType, config)
}
