// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
)

// DefaultContainerVariable is the name under which a Container is
// visible to running scripts.
const DefaultContainerVariable = "container"

// Resource holds the configuration and shared state for one logical
// scripted resource.  Everything reachable from a Resource is shared
// between concurrent requests; Containers are not.
type Resource struct {
	// Source resolves script names.  Required.
	Source Source

	// Compiler compiles scripts that have not been compiled yet.
	Compiler Compiler

	// Cache stores script output between requests.  If nil,
	// nothing is cached.
	Cache Cache

	// Engines holds scripting engine instances shared between
	// requests.  If nil, each container gets its own.
	Engines *EngineCache

	// DefaultCharacterSet is used when the negotiated variant
	// does not specify a character set.  If empty,
	// DefaultCharacterSet (the package constant) is used.
	DefaultCharacterSet string

	// ContainerVariable is the name scripts use to reach their
	// container.  If empty, DefaultContainerVariable is used.
	ContainerVariable string

	// Clock is the time source.  If nil, uses the real clock.
	Clock clock.Clock

	// Logger receives diagnostics.  If nil, uses the logrus
	// standard logger.
	Logger logrus.FieldLogger
}

// NewResource creates a resource with a fresh engine cache and the
// default clock and logger.
func NewResource(source Source, compiler Compiler, cache Cache) *Resource {
	return &Resource{
		Source:   source,
		Compiler: compiler,
		Cache:    cache,
		Engines:  NewEngineCache(),
		Clock:    clock.New(),
		Logger:   logrus.StandardLogger(),
	}
}

// NewContainer creates a container for a single request.  variant
// gives the negotiated media type, language and character set; params
// are request parameters made visible to scripts.
func (r *Resource) NewContainer(ctx context.Context, variant Attributes, params map[string]string) *Container {
	if ctx == nil {
		ctx = context.Background()
	}
	attributes := variant
	if attributes.CharacterSet == "" {
		attributes.CharacterSet = r.DefaultCharacterSet
	}
	if attributes.CharacterSet == "" {
		attributes.CharacterSet = DefaultCharacterSet
	}
	engines := r.Engines
	if engines == nil {
		engines = NewEngineCache()
	}
	c := &Container{
		resource:   r,
		ctx:        ctx,
		variant:    variant,
		params:     params,
		attributes: attributes,
		engines:    engines,
		logger:     r.logger(),
	}
	c.controller = containerController{container: c}
	return c
}

func (r *Resource) clock() clock.Clock {
	if r.Clock == nil {
		return clock.New()
	}
	return r.Clock
}

func (r *Resource) logger() logrus.FieldLogger {
	if r.Logger == nil {
		return logrus.StandardLogger()
	}
	return r.Logger
}

func (r *Resource) containerVariable() string {
	if r.ContainerVariable == "" {
		return DefaultContainerVariable
	}
	return r.ContainerVariable
}
