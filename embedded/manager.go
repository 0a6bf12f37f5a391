// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"fmt"
	"sort"
	"sync"
)

// Factory creates a new engine instance.
type Factory func() (Engine, error)

// Manager is a registry of engine factories, by name and alias.  It is
// safe for concurrent use.
type Manager struct {
	lock      sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string
}

// NewManager creates a manager with no engines.
func NewManager() *Manager {
	return &Manager{
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
	}
}

// DefaultManager creates a manager with the shell, template, and
// markdown engines registered.
func DefaultManager() *Manager {
	m := NewManager()
	_ = m.Register(ShellEngineName, func() (Engine, error) { return &ShellEngine{}, nil }, "sh")
	_ = m.Register(TemplateEngineName, func() (Engine, error) { return &TemplateEngine{}, nil }, "tmpl")
	_ = m.Register(MarkdownEngineName, func() (Engine, error) { return NewMarkdownEngine(), nil }, "md")
	return m
}

// Register adds an engine factory under name and any number of
// aliases.  It is an error if any of them are already taken.
func (m *Manager) Register(name string, factory Factory, aliases ...string) error {
	if name == "" {
		return fmt.Errorf("engine name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("engine %q has no factory", name)
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		if _, taken := m.aliases[n]; taken {
			return fmt.Errorf("duplicate engine name %q", n)
		}
	}
	m.factories[name] = factory
	m.aliases[name] = name
	for _, alias := range aliases {
		m.aliases[alias] = name
	}
	return nil
}

// Canonical resolves a name or alias to the engine's canonical name.
func (m *Manager) Canonical(name string) (string, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	canonical, ok := m.aliases[name]
	return canonical, ok
}

// New creates a new instance of the named engine.  Its signature fits
// scripted.EngineCache.Get.
func (m *Manager) New(name string) (interface{}, error) {
	canonical, ok := m.Canonical(name)
	if !ok {
		return nil, ErrNoSuchEngine{Name: name}
	}
	m.lock.RLock()
	factory := m.factories[canonical]
	m.lock.RUnlock()
	return factory()
}

// Names returns the sorted canonical names of all registered engines.
func (m *Manager) Names() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	names := make([]string, 0, len(m.factories))
	for name := range m.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ErrNoSuchEngine is returned when a script names an engine that has
// not been registered.
type ErrNoSuchEngine struct {
	Name string
}

func (err ErrNoSuchEngine) Error() string {
	return fmt.Sprintf("no such scripting engine %q", err.Name)
}
