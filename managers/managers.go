/*
 * Copyright 2020 Kopano and its licensors
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License, version 3,
 * as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 *
 */

package managers

import (
	"fmt"
	"sort"
	"sync"
)

// ServiceUsesManagers is an interface for service which register to managers.
type ServiceUsesManagers interface {
	RegisterManagers(mgrs *Managers) error
}

// Managers is a registry for named managers. It is safe for concurrent use.
type Managers struct {
	mutex    sync.RWMutex
	registry map[string]interface{}
}

// New creates a new Managers.
func New() *Managers {
	return &Managers{
		registry: make(map[string]interface{}),
	}
}

// Set adds the provided manager with the provided name to the accociated
// Managers, replacing any manager of the same name.
func (m *Managers) Set(name string, manager interface{}) {
	m.mutex.Lock()
	m.registry[name] = manager
	m.mutex.Unlock()
}

// Get returns the manager identified by the given name from the accociated
// managers.
func (m *Managers) Get(name string) (interface{}, bool) {
	m.mutex.RLock()
	manager, ok := m.registry[name]
	m.mutex.RUnlock()

	return manager, ok
}

// Must returns the manager indentified by the given name or panics.
func (m *Managers) Must(name string) interface{} {
	manager, ok := m.Get(name)
	if !ok {
		panic(fmt.Errorf("manager %s not found", name))
	}

	return manager
}

// Names returns the sorted names of all managers of the accociated Managers.
func (m *Managers) Names() []string {
	m.mutex.RLock()
	names := make([]string, 0, len(m.registry))
	for name := range m.registry {
		names = append(names, name)
	}
	m.mutex.RUnlock()

	sort.Strings(names)
	return names
}

// Apply lets every registered ServiceUsesManagers pick up its dependencies,
// in order of their names. The first error is returned.
func (m *Managers) Apply() error {
	for _, name := range m.Names() {
		manager, _ := m.Get(name)
		if service, ok := manager.(ServiceUsesManagers); ok {
			if err := service.RegisterManagers(m); err != nil {
				return fmt.Errorf("manager %s: %v", name, err)
			}
		}
	}

	return nil
}
