// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// ErrStreamed is returned from StreamingRepresentation.WriteTo if the
// container has already streamed once.
var ErrStreamed = errors.New("Container has already streamed its output")

// Container mediates between one request and the scripts that produce
// its response.  It is created by Resource.NewContainer, used by a
// single goroutine, and discarded after the response is sent.
// Scripts reach the container they run in through the variable named
// by Resource.ContainerVariable.
type Container struct {
	resource   *Resource
	ctx        context.Context
	variant    Attributes
	params     map[string]string
	attributes Attributes
	engines    *EngineCache
	controller containerController
	logger     logrus.FieldLogger

	mode          Mode
	pendingStream bool
	streamed      bool

	// depth counts includes currently running; zero means the
	// next include is the top-level one.
	depth int

	// log is the buffer behind writer in caching mode; it is nil
	// until the first include and in streaming mode.
	log    *outputLog
	writer *bufio.Writer

	// target is the transport writer in streaming mode.
	target io.Writer

	errors bytes.Buffer
}

// runOutcome is the result of running a script once.
type runOutcome int

const (
	// runCompleted means the script ran and its output is in
	// the current sink.
	runCompleted runOutcome = iota

	// runUnchanged means the script did not run, and its cached
	// output should be used.
	runUnchanged

	// runStreamSwitch means the script asked to stream; its
	// output from this run is to be discarded.
	runStreamSwitch
)

func (o runOutcome) String() string {
	switch o {
	case runCompleted:
		return "completed"
	case runUnchanged:
		return "unchanged"
	case runStreamSwitch:
		return "stream"
	default:
		return "unknown"
	}
}

// SetLogger replaces the container's logger, typically with one that
// carries per-request fields.
func (c *Container) SetLogger(logger logrus.FieldLogger) {
	c.logger = logger
}

// Context returns the request context.
func (c *Container) Context() context.Context {
	return c.ctx
}

// Resource returns the resource this container was created from.
func (c *Container) Resource() *Resource {
	return c.resource
}

// Variant returns the variant negotiated with the client.
func (c *Container) Variant() Attributes {
	return c.variant
}

// Params returns the request parameters.
func (c *Container) Params() map[string]string {
	return c.params
}

// Mode returns the current output mode.
func (c *Container) Mode() Mode {
	return c.mode
}

// IsStreaming returns true in streaming mode.
func (c *Container) IsStreaming() bool {
	return c.mode == Streaming
}

// MediaType returns the media type that will be used for script
// output.  It defaults to the negotiated variant's.
func (c *Container) MediaType() string {
	return c.attributes.MediaType
}

// SetMediaType changes the media type of subsequent output.  Fails
// with ErrStreaming in streaming mode.
func (c *Container) SetMediaType(mediaType string) error {
	if c.mode == Streaming {
		return ErrStreaming{Attribute: "media type"}
	}
	c.attributes.MediaType = mediaType
	return nil
}

// Language returns the natural language of script output, possibly
// empty.
func (c *Container) Language() string {
	return c.attributes.Language
}

// SetLanguage changes the language of subsequent output.  Fails with
// ErrStreaming in streaming mode.
func (c *Container) SetLanguage(language string) error {
	if c.mode == Streaming {
		return ErrStreaming{Attribute: "language"}
	}
	c.attributes.Language = language
	return nil
}

// CharacterSet returns the character set of script output.  It
// defaults to the negotiated variant's, or the resource default.
func (c *Container) CharacterSet() string {
	return c.attributes.CharacterSet
}

// SetCharacterSet changes the character set of subsequent output.
// Fails with ErrStreaming in streaming mode.
func (c *Container) SetCharacterSet(characterSet string) error {
	if c.mode == Streaming {
		return ErrStreaming{Attribute: "character set"}
	}
	c.attributes.CharacterSet = characterSet
	return nil
}

// Attributes returns the current representation attributes.
func (c *Container) Attributes() Attributes {
	return c.attributes
}

// Writer returns the current output sink, or nil if no script has
// started yet.  Scripts normally write through their engine's own
// output, but may write here directly.
func (c *Container) Writer() io.Writer {
	if c.writer == nil {
		return nil
	}
	return c.writer
}

// ErrorWriter returns the diagnostic sink.  Its contents are never
// sent to the client.
func (c *Container) ErrorWriter() io.Writer {
	return &c.errors
}

// ErrorOutput returns everything written to the diagnostic sink so
// far.
func (c *Container) ErrorOutput() string {
	return c.errors.String()
}

// Flush flushes the output sink.  In streaming mode this also flushes
// the transport writer, if it can be flushed.
func (c *Container) Flush() error {
	if c.writer == nil {
		return nil
	}
	if err := c.writer.Flush(); err != nil {
		return err
	}
	if c.mode == Streaming {
		if flusher, ok := c.target.(interface{ Flush() }); ok {
			flusher.Flush()
		}
	}
	return nil
}

// Stream asks to switch from caching to streaming mode.  In caching
// mode it returns true, and once the current script returns, its
// output is discarded and Include returns a StreamingRepresentation
// that will run the top-level script again.  The script should stop
// as soon as possible after this returns true.  In streaming mode it
// does nothing and returns false.
func (c *Container) Stream() bool {
	if c.mode == Streaming {
		return false
	}
	c.pendingStream = true
	return true
}

// StreamRequested returns true if a script has called Stream in
// caching mode and the switch to streaming has not happened yet.  The
// output of the current run will be discarded.
func (c *Container) StreamRequested() bool {
	return c.pendingStream
}

// Include runs the named script and returns a representation of its
// output.  When called from within a running script, the included
// script's output is inserted in place.  Include returns a nil
// Representation if there is nothing to send: in streaming mode the
// output has already been sent, and if the script declines to run but
// there is no cached output, there is no output at all.
func (c *Container) Include(name string) (Representation, error) {
	return c.IncludeWith(name, "")
}

// IncludeWith is like Include, but the entire script text is code for
// the named scripting engine.  If engine is empty, this is the same as
// Include.
func (c *Container) IncludeWith(name, engine string) (Representation, error) {
	descriptor, err := c.resource.Source.Descriptor(c.ctx, name)
	if err != nil {
		return nil, err
	}
	script, err := descriptor.Compile(func(text string) (Script, error) {
		if c.resource.Compiler == nil {
			return nil, ErrNoCompiler
		}
		return c.resource.Compiler.Compile(name, text, engine)
	})
	if err != nil {
		return nil, err
	}

	// Trivial scripts bypass the runner and the cache
	if trivial, isTrivial := script.Trivial(); isTrivial {
		if c.writer != nil {
			if _, err := c.writer.WriteString(trivial); err != nil {
				return nil, err
			}
		}
		return NewStringRepresentation(trivial, c.attributes), nil
	}

	start := 0
	if c.mode == Caching {
		if c.writer == nil {
			c.log = &outputLog{}
			c.writer = bufio.NewWriter(c.log)
		} else {
			if err := c.writer.Flush(); err != nil {
				return nil, err
			}
			start = c.log.Mark()
		}
	}

	outcome, err := c.execute(name, script)
	if err != nil {
		return nil, err
	}
	log := c.logger.WithFields(logrus.Fields{
		"script":  name,
		"mode":    c.mode,
		"outcome": outcome,
	})

	switch outcome {
	case runStreamSwitch:
		if c.depth > 0 {
			// The stream switch belongs to the top-level
			// script, which gets to see it when it returns.
			log.Debug("Stream requested from nested include")
			return nil, nil
		}
		c.pendingStream = false
		c.discardOutput()
		log.Debug("Switching to streaming")
		return &StreamingRepresentation{
			container: c,
			script:    script,
			name:      name,
		}, nil

	case runUnchanged:
		cached, found := c.cacheGet(name)
		if !found {
			log.Debug("Script unchanged but nothing cached")
			return nil, nil
		}
		if c.writer != nil {
			if _, err := c.writer.WriteString(cached.Text()); err != nil {
				return nil, err
			}
		}
		log.Debug("Using cached output")
		return cached.Represent(), nil
	}

	if c.mode == Streaming {
		return nil, nil
	}

	// The writer was flushed when the script finished
	output := NewRepresentableString(c.log.Since(start), c.attributes, c.resource.clock().Now())
	c.cachePut(name, output)
	log.WithField("start", start).Debug("Cached script output")
	if start == 0 {
		return output.Represent(), nil
	}
	return NewStringRepresentation(c.log.String(), c.attributes), nil
}

// execute runs a script once and classifies the result.  Errors from
// a script that has asked to stream are not errors.
func (c *Container) execute(name string, script Script) (runOutcome, error) {
	c.depth++
	ran, err := c.invoke(name, script)
	c.depth--

	if c.pendingStream && (err == nil || IsScriptError(err)) {
		if err != nil {
			c.logger.WithFields(logrus.Fields{
				"script": name,
				"error":  err,
			}).Debug("Ignoring script error after stream request")
		}
		if ran || err != nil {
			return runStreamSwitch, nil
		}
	}
	if err != nil {
		return runCompleted, err
	}
	if !ran {
		return runUnchanged, nil
	}
	return runCompleted, nil
}

// invoke calls the script's runner.  The output sink is flushed
// whatever happens.
func (c *Container) invoke(name string, script Script) (ran bool, err error) {
	defer func() {
		if c.writer != nil {
			if flushErr := c.writer.Flush(); err == nil {
				err = flushErr
			}
		}
	}()

	inv := &Invocation{
		Context:      c.ctx,
		Name:         name,
		Out:          c.Writer(),
		Err:          &c.errors,
		Engines:      c.engines,
		Controller:   c.controller,
		AllowCaching: c.mode == Caching,
	}
	return script.Run(inv)
}

// discardOutput drops everything produced by an abandoned run.
func (c *Container) discardOutput() {
	c.log = nil
	c.writer = nil
	c.errors.Reset()
}

// streamTo performs the second run of a script that asked to stream,
// writing directly to w.
func (c *Container) streamTo(w io.Writer, name string, script Script) (int64, error) {
	if c.streamed {
		return 0, ErrStreamed
	}
	c.streamed = true
	c.mode = Streaming
	c.pendingStream = false
	c.discardOutput()

	counter := &countingWriter{w: w}
	c.target = w
	c.writer = bufio.NewWriter(counter)
	c.logger.WithField("script", name).Debug("Streaming script output")
	_, err := c.execute(name, script)
	if err == nil {
		err = c.Flush()
	}
	return counter.n, err
}

func (c *Container) cacheGet(name string) (RepresentableString, bool) {
	if c.resource.Cache == nil {
		return RepresentableString{}, false
	}
	return c.resource.Cache.Get(c.ctx, name)
}

func (c *Container) cachePut(name string, value RepresentableString) {
	if c.resource.Cache != nil {
		c.resource.Cache.Put(c.ctx, name, value)
	}
}

// containerController exposes a container to the scripts it runs.
type containerController struct {
	container *Container
}

func (cc containerController) Initialize(bindings map[string]interface{}) error {
	bindings[cc.container.resource.containerVariable()] = cc.container
	return nil
}

func (cc containerController) Finalize(bindings map[string]interface{}) {
	delete(bindings, cc.container.resource.containerVariable())
}
