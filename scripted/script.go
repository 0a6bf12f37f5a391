// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"context"
	"io"
	"sort"
	"sync"
)

// Script is a compiled script, ready to run.  Scripts are attached to
// their Descriptor and shared between requests, so implementations
// must be safe for concurrent use.
type Script interface {
	// Trivial returns the script's output and true if the script
	// is known to produce fixed text without running any code.
	Trivial() (string, bool)

	// Run executes the script.  It returns true if the script ran
	// and wrote its output to inv.Out.  It may return false only
	// if inv.AllowCaching is set, meaning that the script decided
	// not to run because its previous output is still valid.
	// Failures of the script itself should be returned as
	// *ScriptError.
	Run(inv *Invocation) (bool, error)
}

// Invocation carries everything a Script needs for a single run.
type Invocation struct {
	// Context is the request context.
	Context context.Context

	// Name is the name the script was included under.
	Name string

	// Out receives the script's normal output.
	Out io.Writer

	// Err receives diagnostic output.  Nothing reads this back to
	// the client.
	Err io.Writer

	// Engines holds engine instances shared between runs.
	Engines *EngineCache

	// Controller sets up the values a script can see.
	Controller Controller

	// AllowCaching is true if the script may return false from
	// Run to have its cached output reused.
	AllowCaching bool
}

// Controller populates the variables visible to a running script.
type Controller interface {
	// Initialize is called before the script runs, and adds
	// values to bindings.
	Initialize(bindings map[string]interface{}) error

	// Finalize is called after the script runs, whether or not it
	// succeeded.
	Finalize(bindings map[string]interface{})
}

// Compiler creates Scripts from source text.
type Compiler interface {
	// Compile compiles text into a Script.  If engine is
	// non-empty, the entire text is treated as code for that
	// engine, rather than relying on the script to name its own
	// engine or on a default.
	Compile(name, text, engine string) (Script, error)
}

// EngineCache holds scripting engine instances, keyed by engine name,
// so that repeated runs of scripts in the same engine share the
// engine.  It is safe for concurrent use.
type EngineCache struct {
	lock    sync.RWMutex
	engines map[string]interface{}
}

// NewEngineCache creates an empty engine cache.
func NewEngineCache() *EngineCache {
	return &EngineCache{engines: make(map[string]interface{})}
}

// Get retrieves a named engine.  If it is not present, calls create,
// and if that succeeds, saves the engine and returns it.  If two
// callers race to create the same engine, the first one stored wins
// and both callers get it.
func (c *EngineCache) Get(name string, create func(string) (interface{}, error)) (interface{}, error) {
	c.lock.RLock()
	engine, present := c.engines[name]
	c.lock.RUnlock()
	if present {
		return engine, nil
	}

	engine, err := create(name)
	if err != nil {
		return nil, err
	}

	c.lock.Lock()
	defer c.lock.Unlock()
	if existing, present := c.engines[name]; present {
		return existing, nil
	}
	c.engines[name] = engine
	return engine, nil
}

// Names returns the sorted names of the engines created so far.
func (c *EngineCache) Names() []string {
	c.lock.RLock()
	defer c.lock.RUnlock()
	names := make([]string, 0, len(c.engines))
	for name := range c.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
