// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/diffeo/go-scripted/dirsource"
	"github.com/diffeo/go-scripted/postgres"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/urfave/cli"
)

// errReadOnly is returned for sources scriptctl cannot change.  An
// in-memory source would forget any change as soon as scriptctl
// exits.
var errReadOnly = errors.New("script source cannot be changed from the command line")

// store is a script source that can be changed.
type store interface {
	scripted.Source
	Put(name, text string) error
	Remove(ctx context.Context, name string) error
	Names(ctx context.Context) ([]string, error)
}

// dirStore adapts a directory source to store.
type dirStore struct {
	*dirsource.Source
}

func (s dirStore) Remove(ctx context.Context, name string) error {
	return s.Source.Remove(name)
}

func (s dirStore) Names(ctx context.Context) ([]string, error) {
	return s.Source.Names()
}

// openStore creates the source described by the --source flag, if
// it is a kind that can be changed.
func openStore() (store, error) {
	scripts, err := source.Source()
	if err != nil {
		return nil, err
	}
	switch s := scripts.(type) {
	case *dirsource.Source:
		return dirStore{s}, nil
	case *postgres.Source:
		return s, nil
	default:
		return nil, errReadOnly
	}
}

var putCommand = cli.Command{
	Name:      "put",
	Usage:     "store a script, reading it from a file or stdin",
	ArgsUsage: "NAME [FILE]",
	Action: func(c *cli.Context) error {
		if c.NArg() < 1 || c.NArg() > 2 {
			return cli.NewExitError("put needs a script name and optionally a file", 2)
		}
		var in io.Reader = os.Stdin
		if c.NArg() == 2 {
			f, err := os.Open(c.Args().Get(1))
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		text, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		s, err := openStore()
		if err != nil {
			return err
		}
		return s.Put(c.Args().First(), string(text))
	},
}

var listCommand = cli.Command{
	Name:  "list",
	Usage: "list the names of stored scripts",
	Action: func(c *cli.Context) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		names, err := s.Names(context.Background())
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var removeCommand = cli.Command{
	Name:      "remove",
	Usage:     "delete stored scripts",
	ArgsUsage: "NAME...",
	Action: func(c *cli.Context) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		for _, name := range c.Args() {
			if err := s.Remove(context.Background(), name); err != nil {
				return err
			}
		}
		return nil
	},
}

var migrateCommand = cli.Command{
	Name:  "migrate",
	Usage: "create or drop the PostgreSQL schema",
	Flags: []cli.Flag{
		cli.BoolFlag{
			Name:  "drop",
			Usage: "remove all tables instead",
		},
	},
	Action: func(c *cli.Context) error {
		if source.Implementation != "postgres" {
			return cli.NewExitError("migrate needs a postgres source", 2)
		}
		// Opening the source brings the schema up to date.
		s, err := postgres.New(source.Address)
		if err != nil {
			return err
		}
		defer s.Close()
		if c.Bool("drop") {
			return postgres.Drop(s.DB())
		}
		return nil
	},
}
