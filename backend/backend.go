// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package backend provides a standard way to construct script sources
// and output caches based on command-line flags.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/diffeo/go-scripted/cache"
	"github.com/diffeo/go-scripted/dirsource"
	"github.com/diffeo/go-scripted/memory"
	"github.com/diffeo/go-scripted/postgres"
	"github.com/diffeo/go-scripted/scripted"
	"github.com/sirupsen/logrus"
)

// parse splits "implementation:address" and checks the
// implementation against known.
func parse(param string, known ...string) (string, string, error) {
	implementation, address, _ := strings.Cut(param, ":")
	if implementation == "" {
		return "", "", errors.New("must specify a backend type")
	}
	for _, k := range known {
		if implementation == k {
			return implementation, address, nil
		}
	}
	return "", "", fmt.Errorf("unknown backend %q (want one of %s)", implementation, strings.Join(known, ", "))
}

func format(implementation, address string) string {
	if address == "" {
		return implementation
	}
	return implementation + ":" + address
}

// Source describes user-visible parameters to find scripts.  This
// implements the flag.Value interface, and so a typical use is
//
//     func main() {
//         source := backend.Source{Implementation: "dir", Address: "."}
//         flag.Var(&source, "source", "impl:address of script storage")
//         flag.Parse()
//         scripts, err := source.Source()
//     }
type Source struct {
	// Implementation holds the name of the implementation: "memory",
	// "dir", or "postgres".
	Implementation string

	// Address holds some implementation-specific address: a
	// directory for "dir", a connection string for "postgres".
	Address string

	// Extension is the default file extension for "dir".
	Extension string
}

// Source creates the script source.  This generally should be only
// called once.  If the source has in-process state, such as a
// database connection pool or an in-memory store, calling this
// multiple times will create multiple copies of that state.
func (b *Source) Source() (scripted.Source, error) {
	switch b.Implementation {
	case "memory":
		return memory.New(), nil
	case "dir":
		root := b.Address
		if root == "" {
			root = "."
		}
		return dirsource.New(root, b.Extension), nil
	case "postgres":
		return postgres.New(b.Address)
	default:
		return nil, errors.New("unknown script source " + b.Implementation)
	}
}

// String renders a source description as a string.
func (b *Source) String() string {
	return format(b.Implementation, b.Address)
}

// Set parses a string into an existing source description.  The
// string should be of the form "implementation:address", where
// address can be any string.
//
// This is part of the flag.Value interface.  Set does not attempt
// to validate the address or to actually make a connection.
func (b *Source) Set(param string) (err error) {
	b.Implementation, b.Address, err = parse(param, "memory", "dir", "postgres")
	return
}

// Cache describes user-visible parameters for the script output
// cache.  It implements flag.Value the same way Source does.
type Cache struct {
	// Implementation holds the name of the implementation: "none",
	// "lru", or "redis".
	Implementation string

	// Address holds the capacity for "lru", and the server
	// address for "redis".
	Address string

	// TTL is the expiry time of Redis entries.  Zero means entries
	// do not expire.
	TTL time.Duration

	// Prefix is prepended to Redis keys.  If empty,
	// cache.DefaultRedisPrefix is used.
	Prefix string
}

// DefaultLRUSize is the capacity of an "lru" cache with no address.
const DefaultLRUSize = 1024

// Cache creates the output cache, or returns nil for "none".
func (b *Cache) Cache(ctx context.Context, logger logrus.FieldLogger) (scripted.Cache, error) {
	switch b.Implementation {
	case "", "none":
		return nil, nil
	case "lru":
		size := DefaultLRUSize
		if b.Address != "" {
			var err error
			size, err = strconv.Atoi(b.Address)
			if err != nil || size <= 0 {
				return nil, fmt.Errorf("invalid LRU cache size %q", b.Address)
			}
		}
		return cache.NewLRU(size), nil
	case "redis":
		redis, err := cache.DialRedis(ctx, b.Address, b.Prefix, b.TTL)
		if err != nil {
			return nil, err
		}
		if logger != nil {
			redis.SetLogger(logger)
		}
		return redis, nil
	default:
		return nil, errors.New("unknown cache " + b.Implementation)
	}
}

// String renders a cache description as a string.
func (b *Cache) String() string {
	return format(b.Implementation, b.Address)
}

// Set parses a string of the form "implementation:address" into an
// existing cache description.
func (b *Cache) Set(param string) (err error) {
	b.Implementation, b.Address, err = parse(param, "none", "lru", "redis")
	return
}
