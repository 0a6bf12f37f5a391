// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/diffeo/go-scripted/embedded"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var renderCommand = cli.Command{
	Name:      "render",
	Usage:     "run a script and write its output",
	ArgsUsage: "NAME",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "param, p",
			Usage: "request parameter as name=value",
		},
		cli.StringFlag{
			Name:  "media-type",
			Value: "text/html",
			Usage: "negotiated media type",
		},
		cli.StringFlag{
			Name:  "language",
			Usage: "negotiated language",
		},
		cli.StringFlag{
			Name:  "engine",
			Usage: "treat the entire script as code for this engine",
		},
		cli.BoolFlag{
			Name:  "exec",
			Usage: "let shell code run external programs",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return cli.NewExitError("render needs exactly one script name", 2)
		}
		params, err := parseParams(c.StringSlice("param"))
		if err != nil {
			return err
		}
		scripts, err := source.Source()
		if err != nil {
			return err
		}
		resource := scripted.NewResource(scripts, newCompiler(c.Bool("exec")), nil)
		variant := scripted.Attributes{
			MediaType: c.String("media-type"),
			Language:  c.String("language"),
		}
		container := resource.NewContainer(context.Background(), variant, params)
		err = render(container, c.Args().First(), c.String("engine"), os.Stdout)
		if errors := container.ErrorOutput(); errors != "" {
			logrus.WithField("script", c.Args().First()).Debug(errors)
		}
		return err
	},
}

// newCompiler creates a compiler with the standard engines.  The shell
// engine may run external programs only if allowExec is set.
func newCompiler(allowExec bool) *embedded.Compiler {
	manager := embedded.DefaultManager()
	if allowExec {
		manager = embedded.NewManager()
		shell := &embedded.ShellEngine{AllowExec: true}
		_ = manager.Register(embedded.ShellEngineName, func() (embedded.Engine, error) { return shell, nil }, "sh")
		_ = manager.Register(embedded.TemplateEngineName, func() (embedded.Engine, error) { return &embedded.TemplateEngine{}, nil }, "tmpl")
		_ = manager.Register(embedded.MarkdownEngineName, func() (embedded.Engine, error) { return embedded.NewMarkdownEngine(), nil }, "md")
	}
	return &embedded.Compiler{Manager: manager}
}

// parseParams turns "name=value" strings into a parameter map.
func parseParams(args []string) (map[string]string, error) {
	params := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q (want name=value)", arg)
		}
		params[name] = value
	}
	return params, nil
}

// render includes a script in a container and writes whatever it
// produces to w.  A script that streams runs a second time, writing
// straight to w.
func render(container *scripted.Container, name, engine string, w io.Writer) error {
	rep, err := container.IncludeWith(name, engine)
	if err != nil {
		return err
	}
	if rep == nil {
		return nil
	}
	_, err = rep.WriteTo(w)
	return err
}
