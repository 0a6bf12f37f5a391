// Copyright 2016-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package cache provides implementations of scripted.Cache.
//
// LRU keeps a bounded number of entries in process memory.  Redis
// keeps entries in a Redis server, so that every process serving the
// same scripts sees the same output.
//
// Neither cache coordinates writers.  If two requests run the same
// script at the same time, whichever finishes last wins; both results
// are valid output of the script, so this is not a correctness
// problem.
package cache

import "github.com/diffeo/go-scripted/scripted"

var (
	_ scripted.Cache = (*LRU)(nil)
	_ scripted.Cache = (*Redis)(nil)
)
