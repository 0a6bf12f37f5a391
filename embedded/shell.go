// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// ShellEngineName is the canonical name of the shell engine.
const ShellEngineName = "shell"

// ParamPrefix is prepended to request parameter names to form the
// environment variables a shell script sees.
const ParamPrefix = "PARAM_"

// ShellEngine runs POSIX shell code with an in-process interpreter.
// Each run of a script gets its own interpreter, so shell variables
// set in one segment are visible in later segments of the same run.
type ShellEngine struct {
	// Env is the base environment, as "KEY=value" strings.
	Env []string

	// Dir is the working directory for scripts.  If empty, the
	// process's working directory is used.
	Dir string

	// AllowExec permits scripts to run external programs.
	// Otherwise only shell builtins and the container and script
	// commands are available.
	AllowExec bool
}

// Name returns ShellEngineName.
func (e *ShellEngine) Name() string {
	return ShellEngineName
}

// Compile parses shell code.
func (e *ShellEngine) Compile(code string) (Program, error) {
	file, err := syntax.NewParser().Parse(strings.NewReader(code), "script")
	if err != nil {
		return nil, err
	}
	return &shellProgram{engine: e, file: file}, nil
}

// Expression prints the words of expr separated by spaces.
func (e *ShellEngine) Expression(expr string) string {
	return "echo -n " + expr
}

type shellProgram struct {
	engine *ShellEngine
	file   *syntax.File
}

func (p *shellProgram) Run(rc *RunContext) error {
	state, err := rc.State(ShellEngineName, func() (interface{}, error) {
		return p.engine.newRunner(rc)
	})
	if err != nil {
		return err
	}
	runner := state.(*interp.Runner)

	ctx := rc.Context
	if ctx == nil {
		ctx = context.Background()
	}
	err = runner.Run(ctx, p.file)
	var status interp.ExitStatus
	if errors.As(err, &status) {
		if !runner.Exited() {
			// The last command failing is not the script
			// failing
			err = nil
		} else if status != 0 {
			return fmt.Errorf("exit status %d", status)
		}
	}
	if err != nil {
		return err
	}
	if runner.Exited() {
		return ErrStop
	}
	return nil
}

func (e *ShellEngine) newRunner(rc *RunContext) (*interp.Runner, error) {
	env := append([]string(nil), e.Env...)
	if container, err := rc.Container(); err == nil {
		for name, value := range container.Params() {
			env = append(env, ParamPrefix+envName(name)+"="+value)
		}
	}
	env = append(env, "SCRIPT_NAME="+rc.Name)

	opts := []interp.RunnerOption{
		interp.StdIO(nil, rc.Out, rc.Err),
		interp.Env(expand.ListEnviron(env...)),
		interp.ExecHandlers(e.execHandler(rc)),
	}
	if e.Dir != "" {
		opts = append(opts, interp.Dir(e.Dir))
	}
	return interp.New(opts...)
}

// envName converts a parameter name to an environment variable name.
func envName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return unicode.ToUpper(r)
		}
		return '_'
	}, name)
}

// execHandler provides the container and script commands.
func (e *ShellEngine) execHandler(rc *RunContext) func(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			hc := interp.HandlerCtx(ctx)
			switch args[0] {
			case "container":
				return containerCommand(rc, hc.Stdout, hc.Stderr, args[1:])
			case "script":
				return scriptCommand(rc, hc.Stdout, hc.Stderr, args[1:])
			}
			if !e.AllowExec {
				fmt.Fprintf(hc.Stderr, "%s: command not found\n", args[0])
				return interp.ExitStatus(127)
			}
			return next(ctx, args)
		}
	}
}

const containerUsage = "usage: container include NAME [ENGINE] | stream | streaming | flush | param NAME | media-type|language|character-set [VALUE]"

// containerCommand implements the container shell command.  Failing
// includes end the script with their error; everything else reports
// failure through the exit status.
func containerCommand(rc *RunContext, stdout, stderr io.Writer, args []string) error {
	container, err := rc.Container()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		fmt.Fprintln(stderr, containerUsage)
		return interp.ExitStatus(2)
	}

	var get func() string
	var set func(string) error
	switch args[0] {
	case "include":
		if len(args) < 2 || len(args) > 3 {
			fmt.Fprintln(stderr, containerUsage)
			return interp.ExitStatus(2)
		}
		engine := ""
		if len(args) == 3 {
			engine = args[2]
		}
		_, err := container.IncludeWith(args[1], engine)
		return err

	case "stream":
		if container.Stream() {
			return nil
		}
		return interp.ExitStatus(1)

	case "streaming":
		if container.IsStreaming() {
			return nil
		}
		return interp.ExitStatus(1)

	case "flush":
		return container.Flush()

	case "param":
		if len(args) != 2 {
			fmt.Fprintln(stderr, containerUsage)
			return interp.ExitStatus(2)
		}
		value, present := container.Params()[args[1]]
		if !present {
			return interp.ExitStatus(1)
		}
		fmt.Fprintln(stdout, value)
		return nil

	case "media-type":
		get, set = container.MediaType, container.SetMediaType
	case "language":
		get, set = container.Language, container.SetLanguage
	case "character-set":
		get, set = container.CharacterSet, container.SetCharacterSet

	default:
		fmt.Fprintln(stderr, containerUsage)
		return interp.ExitStatus(2)
	}

	switch len(args) {
	case 1:
		fmt.Fprintln(stdout, get())
		return nil
	case 2:
		if err := set(args[1]); err != nil {
			fmt.Fprintf(stderr, "container %s: %v\n", args[0], err)
			return interp.ExitStatus(1)
		}
		return nil
	default:
		fmt.Fprintln(stderr, containerUsage)
		return interp.ExitStatus(2)
	}
}

// scriptCommand implements the script shell command.
func scriptCommand(rc *RunContext, stdout, stderr io.Writer, args []string) error {
	if len(args) == 0 || args[0] != "cache-duration" || len(args) > 2 {
		fmt.Fprintln(stderr, "usage: script cache-duration [DURATION]")
		return interp.ExitStatus(2)
	}
	if len(args) == 1 {
		fmt.Fprintln(stdout, rc.Script().CacheDuration())
		return nil
	}
	d, err := time.ParseDuration(args[1])
	if err != nil {
		fmt.Fprintf(stderr, "script cache-duration: %v\n", err)
		return interp.ExitStatus(1)
	}
	rc.Script().SetCacheDuration(d)
	return nil
}
