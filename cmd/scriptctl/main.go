// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Scriptctl administers scripted text resources.  It can render a
// script locally, manage the scripts in a directory or PostgreSQL
// store, set up the PostgreSQL schema, and fetch pages from a running
// scriptd.
//
//     scriptctl --source dir:./site put index index.html
//     scriptctl --source dir:./site render --param user=bob index
//     scriptctl get --url http://localhost:5980/ index
package main

import (
	"os"

	"github.com/diffeo/go-scripted/backend"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var source = backend.Source{Implementation: "dir", Address: "."}

func main() {
	app := cli.NewApp()
	app.Name = "scriptctl"
	app.Usage = "manage and render scripted text resources"
	app.Flags = []cli.Flag{
		cli.GenericFlag{
			Name:  "source",
			Value: &source,
			Usage: "impl[:address] of script storage (memory, dir, postgres)",
		},
		cli.StringFlag{
			Name:  "extension",
			Value: ".html",
			Usage: "default file extension for dir sources",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "log script diagnostics",
		},
	}
	app.Before = func(c *cli.Context) error {
		source.Extension = c.String("extension")
		if c.Bool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	app.Commands = []cli.Command{
		renderCommand,
		putCommand,
		listCommand,
		removeCommand,
		migrateCommand,
		getCommand,
	}
	if err := app.Run(os.Args); err != nil {
		logrus.WithError(err).Fatal("scriptctl failed")
	}
}
