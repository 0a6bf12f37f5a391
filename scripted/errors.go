// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"errors"
	"fmt"
)

// ErrNoCompiler is returned from Container.Include if a script needs
// to be compiled but the Resource has no Compiler.
var ErrNoCompiler = errors.New("No script compiler configured")

// ErrNoSuchScript is returned by Source.Descriptor() when a script
// name cannot be resolved.
type ErrNoSuchScript struct {
	Name string
}

func (err ErrNoSuchScript) Error() string {
	return fmt.Sprintf("No such script %q", err.Name)
}

// ErrStreaming is returned from the representation attribute setters
// on Container once the container is in streaming mode.  By then the
// transport layer may already have sent response headers.
type ErrStreaming struct {
	Attribute string
}

func (err ErrStreaming) Error() string {
	return fmt.Sprintf("Cannot change %s while streaming", err.Attribute)
}

// ScriptError is a failure raised while executing a script.  Scripts
// return these from Script.Run; anything else that goes wrong while
// running a script (for instance, failing to write to the output
// sink) is not a script error.
type ScriptError struct {
	// Name is the name of the script, if known.
	Name string

	// Engine is the name of the scripting engine that failed, if
	// known.
	Engine string

	// Err is the underlying error.
	Err error
}

func (err *ScriptError) Error() string {
	switch {
	case err.Name != "" && err.Engine != "":
		return fmt.Sprintf("script %q (%s): %v", err.Name, err.Engine, err.Err)
	case err.Name != "":
		return fmt.Sprintf("script %q: %v", err.Name, err.Err)
	default:
		return fmt.Sprintf("script: %v", err.Err)
	}
}

// Unwrap returns the underlying error.
func (err *ScriptError) Unwrap() error {
	return err.Err
}

// IsScriptError determines whether err is, or wraps, a *ScriptError.
func IsScriptError(err error) bool {
	var scriptErr *ScriptError
	return errors.As(err, &scriptErr)
}
