// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package memory provides an in-process, in-memory script source.
// There is no persistence and no sharing between processes.  This is
// mostly intended for tests and for small applications that embed
// their scripts in the binary.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/scripted"
)

// Source is an in-memory scripted.Source.  The zero value is not
// usable; call New.
type Source struct {
	clock       clock.Clock
	lock        sync.RWMutex
	descriptors map[string]*scripted.Descriptor
}

// New creates a new empty source.
func New() *Source {
	return NewWithClock(clock.New())
}

// NewWithClock creates a new empty source, using an explicit time
// source for script modification times.
func NewWithClock(clk clock.Clock) *Source {
	return &Source{
		clock:       clk,
		descriptors: make(map[string]*scripted.Descriptor),
	}
}

// Descriptor returns the descriptor for a named script.
func (s *Source) Descriptor(ctx context.Context, name string) (*scripted.Descriptor, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	d, present := s.descriptors[name]
	if !present {
		return nil, scripted.ErrNoSuchScript{Name: name}
	}
	return d, nil
}

// Put stores a script.  If the text differs from the current script
// with the same name, the old descriptor and its compiled script are
// discarded.  This never fails; it returns an error to match other
// sources.
func (s *Source) Put(name, text string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if d, present := s.descriptors[name]; present && d.Text() == text {
		return nil
	}
	s.descriptors[name] = scripted.NewDescriptor(name, text, s.clock.Now())
	return nil
}

// Remove deletes a script.  It does nothing if there is no script
// with that name.
func (s *Source) Remove(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.descriptors, name)
}

// Names returns the sorted names of all stored scripts.
func (s *Source) Names() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	names := make([]string, 0, len(s.descriptors))
	for name := range s.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
