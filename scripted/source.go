// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"context"
	"sync"
	"time"
)

// Source resolves script names to script descriptors.
//
// Implementations must be safe for concurrent use.  A Source should
// return the same Descriptor for a given name for as long as the
// script's text is unchanged, so that the compiled Script attached to
// it can be reused.  When the text changes, returning a new
// Descriptor invalidates the compiled script.
type Source interface {
	// Descriptor returns the descriptor for a named script.  If
	// there is no such script, returns ErrNoSuchScript.
	Descriptor(ctx context.Context, name string) (*Descriptor, error)
}

// Descriptor binds a script name to its source text and, once it has
// been compiled, to its Script.
type Descriptor struct {
	name     string
	text     string
	modified time.Time

	lock   sync.Mutex
	script Script
}

// NewDescriptor creates a descriptor with no compiled script.
func NewDescriptor(name, text string, modified time.Time) *Descriptor {
	return &Descriptor{
		name:     name,
		text:     text,
		modified: modified,
	}
}

// Name returns the script name.
func (d *Descriptor) Name() string {
	return d.name
}

// Text returns the script source text.
func (d *Descriptor) Text() string {
	return d.text
}

// Modified returns the time the script source was last changed.
func (d *Descriptor) Modified() time.Time {
	return d.modified
}

// Script returns the compiled script, or nil if it has not been
// compiled yet.
func (d *Descriptor) Script() Script {
	d.lock.Lock()
	defer d.lock.Unlock()
	return d.script
}

// SetScript attaches a compiled script, replacing any existing one.
func (d *Descriptor) SetScript(script Script) {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.script = script
}

// Compile returns the attached script, calling compile to create and
// attach it if there is none.  compile runs at most once per
// descriptor unless it fails; concurrent callers wait for it.
func (d *Descriptor) Compile(compile func(text string) (Script, error)) (Script, error) {
	d.lock.Lock()
	defer d.lock.Unlock()
	if d.script != nil {
		return d.script, nil
	}
	script, err := compile(d.text)
	if err != nil {
		return nil, err
	}
	d.script = script
	return script, nil
}
