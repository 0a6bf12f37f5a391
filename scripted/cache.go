// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import "context"

// Cache stores the most recent output of scripts by name.  A Cache is
// shared by every request for a resource, so implementations must be
// safe for concurrent use.  There is no coordination between writers:
// the last Put for a name wins.  Caches are best-effort; an
// implementation that cannot reach its storage should behave as
// though the entry is absent.
type Cache interface {
	// Get returns the cached string for name, and whether one
	// was found.
	Get(ctx context.Context, name string) (RepresentableString, bool)

	// Put stores a string under name, replacing any previous
	// value.
	Put(ctx context.Context, name string, value RepresentableString)
}
