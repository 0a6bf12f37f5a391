// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/diffeo/go-scripted/scripted"
)

// Compiler compiles embedded scripts.  The zero value uses the
// default engine manager, the shell engine, and the system clock, and
// does not keep compiled programs.
type Compiler struct {
	// Manager resolves engine names.  If nil, DefaultManager() is
	// used.
	Manager *Manager

	// DefaultEngine is the engine for code segments before any
	// segment names one.  If empty, ShellEngineName is used.
	DefaultEngine string

	// AllowCompilation keeps compiled programs on the script
	// between runs.  Otherwise every run compiles every segment
	// again.
	AllowCompilation bool

	// ContainerVariable is the binding name the container uses
	// for itself.  If empty, scripted.DefaultContainerVariable is
	// used.
	ContainerVariable string

	// Clock measures script cache durations.  If nil, the system
	// clock is used.
	Clock clock.Clock

	once    sync.Once
	manager *Manager
}

// Compile parses text into a Script.  If engine is non-empty, the
// entire text is code for that engine.
func (c *Compiler) Compile(name, text, engine string) (scripted.Script, error) {
	if engine != "" {
		text = "<%" + engine + " " + text + "%>"
	}
	manager := c.getManager()
	defaultEngine := c.DefaultEngine
	if defaultEngine == "" {
		defaultEngine = ShellEngineName
	}
	segments, err := parse(text, defaultEngine, manager.Canonical)
	if err != nil {
		return nil, &scripted.ScriptError{Name: name, Err: err}
	}
	script := &Script{
		name:              name,
		segments:          segments,
		manager:           manager,
		allowCompilation:  c.AllowCompilation,
		containerVariable: c.ContainerVariable,
		clock:             c.Clock,
		programs:          make(map[int]Program),
	}
	if script.containerVariable == "" {
		script.containerVariable = scripted.DefaultContainerVariable
	}
	if script.clock == nil {
		script.clock = clock.New()
	}
	script.trivial, script.isTrivial = trivialText(segments)
	return script, nil
}

func (c *Compiler) getManager() *Manager {
	c.once.Do(func() {
		c.manager = c.Manager
		if c.manager == nil {
			c.manager = DefaultManager()
		}
	})
	return c.manager
}

// Script is a parsed embedded script.  It is safe for concurrent use.
type Script struct {
	name              string
	segments          []segment
	trivial           string
	isTrivial         bool
	manager           *Manager
	allowCompilation  bool
	containerVariable string
	clock             clock.Clock

	lock          sync.Mutex
	programs      map[int]Program
	cacheDuration time.Duration
	lastRun       time.Time
}

// Name returns the name the script was compiled under.
func (s *Script) Name() string {
	return s.name
}

// Trivial returns the script text if it has no code segments.
func (s *Script) Trivial() (string, bool) {
	return s.trivial, s.isTrivial
}

// CacheDuration returns how long the output of a run remains valid.
func (s *Script) CacheDuration() time.Duration {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.cacheDuration
}

// SetCacheDuration changes how long the output of a run remains
// valid.  Scripts normally call this while running.
func (s *Script) SetCacheDuration(d time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.cacheDuration = d
}

// fresh determines whether the last complete run is still valid.
func (s *Script) fresh() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.cacheDuration <= 0 || s.lastRun.IsZero() {
		return false
	}
	return s.clock.Since(s.lastRun) < s.cacheDuration
}

// Run executes the script's segments in order.
func (s *Script) Run(inv *scripted.Invocation) (bool, error) {
	if inv.AllowCaching && s.fresh() {
		return false, nil
	}

	bindings := make(map[string]interface{})
	if inv.Controller != nil {
		if err := inv.Controller.Initialize(bindings); err != nil {
			return false, err
		}
		defer inv.Controller.Finalize(bindings)
	}
	engines := inv.Engines
	if engines == nil {
		engines = scripted.NewEngineCache()
	}
	out := inv.Out
	if out == nil {
		out = io.Discard
	}
	errOut := inv.Err
	if errOut == nil {
		errOut = io.Discard
	}

	rc := &RunContext{
		Context:           inv.Context,
		Name:              inv.Name,
		Out:               out,
		Err:               errOut,
		Bindings:          bindings,
		script:            s,
		containerVariable: s.containerVariable,
	}
	defer rc.close()

segments:
	for i, seg := range s.segments {
		switch seg.kind {
		case literalSegment:
			if _, err := io.WriteString(out, seg.text); err != nil {
				return false, err
			}

		case includeSegment:
			if err := rc.Include(seg.text); err != nil {
				var noSuchScript scripted.ErrNoSuchScript
				if errors.As(err, &noSuchScript) {
					return false, &scripted.ScriptError{Name: s.name, Err: err}
				}
				return false, err
			}

		default:
			program, err := s.program(i, seg, engines)
			if err == nil {
				err = program.Run(rc)
			}
			if err == ErrStop {
				break segments
			}
			if err != nil {
				if scripted.IsScriptError(err) {
					return false, err
				}
				return false, &scripted.ScriptError{Name: s.name, Engine: seg.engine, Err: err}
			}
		}
	}
	if inv.AllowCaching && !streamRequested(rc) {
		s.lock.Lock()
		s.lastRun = s.clock.Now()
		s.lock.Unlock()
	}
	return true, nil
}

// streamRequested is true if the run asked its container to stream.
// Its output never reaches the cache, so the run cannot count toward
// the cache duration.
func streamRequested(rc *RunContext) bool {
	container, err := rc.Container()
	return err == nil && container.StreamRequested()
}

// program gets the compiled program for the segment at index i.
func (s *Script) program(i int, seg segment, engines *scripted.EngineCache) (Program, error) {
	if s.allowCompilation {
		s.lock.Lock()
		program, present := s.programs[i]
		s.lock.Unlock()
		if present {
			return program, nil
		}
	}

	instance, err := engines.Get(seg.engine, s.manager.New)
	if err != nil {
		return nil, err
	}
	engine, ok := instance.(Engine)
	if !ok {
		return nil, fmt.Errorf("engine %q has unexpected type %T", seg.engine, instance)
	}
	code := seg.text
	if seg.kind == expressionSegment {
		code = engine.Expression(code)
	}
	program, err := engine.Compile(code)
	if err != nil {
		return nil, err
	}

	if s.allowCompilation {
		s.lock.Lock()
		if existing, present := s.programs[i]; present {
			program = existing
		} else {
			s.programs[i] = program
		}
		s.lock.Unlock()
	}
	return program, nil
}
