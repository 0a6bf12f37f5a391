// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"context"
	"errors"
	"io"

	"github.com/diffeo/go-scripted/scripted"
)

// ErrStop may be returned from Program.Run to end the script without
// running its remaining segments.  It is not an error for the script.
var ErrStop = errors.New("script stopped")

// ErrNoContainer is returned from RunContext.Container if the script
// is not running inside an execution container.
var ErrNoContainer = errors.New("script is not running in a container")

// Engine is a scripting engine.  A single engine instance is shared
// by every run of every script in a resource, so implementations
// must be safe for concurrent use; state for a single run belongs in
// RunContext.State.
type Engine interface {
	// Name returns the canonical name of the engine.
	Name() string

	// Compile prepares a code segment for running.
	Compile(code string) (Program, error)

	// Expression converts an expression into code that prints
	// its value.
	Expression(expr string) string
}

// Program is a compiled code segment.
type Program interface {
	// Run executes the program, writing its output to rc.Out.
	Run(rc *RunContext) error
}

// RunContext holds the state of one run of one script.  Every
// segment of the script sees the same RunContext.
type RunContext struct {
	// Context is the request context.
	Context context.Context

	// Name is the name of the running script.
	Name string

	// Out and Err are the script's output and diagnostic sinks.
	Out io.Writer
	Err io.Writer

	// Bindings holds the values the container's controller made
	// visible to the script.
	Bindings map[string]interface{}

	script            *Script
	containerVariable string
	state             map[string]interface{}
}

// Script returns the script being run.
func (rc *RunContext) Script() *Script {
	return rc.script
}

// Container returns the execution container running the script.
func (rc *RunContext) Container() (*scripted.Container, error) {
	container, ok := rc.Bindings[rc.containerVariable].(*scripted.Container)
	if !ok || container == nil {
		return nil, ErrNoContainer
	}
	return container, nil
}

// Include runs another script in the same container, inserting its
// output at the current position.
func (rc *RunContext) Include(name string) error {
	container, err := rc.Container()
	if err != nil {
		return err
	}
	_, err = container.Include(name)
	return err
}

// State returns a per-run value for key, calling create to make it
// the first time.  If the value implements io.Closer, it is closed
// when the run ends.
func (rc *RunContext) State(key string, create func() (interface{}, error)) (interface{}, error) {
	if value, present := rc.state[key]; present {
		return value, nil
	}
	value, err := create()
	if err != nil {
		return nil, err
	}
	if rc.state == nil {
		rc.state = make(map[string]interface{})
	}
	rc.state[key] = value
	return value, nil
}

func (rc *RunContext) close() {
	for _, value := range rc.state {
		if closer, ok := value.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	rc.state = nil
}
