/*
 * Copyright © 2026 Strandsoft Inc., All rights reserved.
 */

package docstore

import (
	"fmt"
	"sync"

	"github.com/strandsoft/docstore/datastore"
)

// Manager is a thread-safe collection of named clients, so an application
// can open stores for several datasets once and share them.
type Manager struct {
	mu     sync.RWMutex
	stores map[string]*datastore.DataStore
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{stores: make(map[string]*datastore.DataStore)}
}

// Register stores the client under the given key.
func (m *Manager) Register(key string, ds *datastore.DataStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stores[key]; exists {
		return fmt.Errorf("store with key %q already registered", key)
	}
	m.stores[key] = ds
	return nil
}

// Get retrieves the client registered under the given key.
func (m *Manager) Get(key string) (*datastore.DataStore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, exists := m.stores[key]
	if !exists {
		return nil, fmt.Errorf("store with key %q not found", key)
	}
	return ds, nil
}

// Remove drops the client registered under the given key.
func (m *Manager) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.stores[key]; !exists {
		return fmt.Errorf("store with key %q not found", key)
	}
	delete(m.stores, key)
	return nil
}

// Keys lists the registered keys.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.stores))
	for k := range m.stores {
		out = append(out, k)
	}
	return out
}
