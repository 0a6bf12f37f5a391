// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package scripted defines the execution container for scripted text
// resources.  A scripted resource is a named script whose output
// becomes the body of an HTTP response.  For each request a Container
// is created; Container.Include decides whether to run the script,
// serve its previously cached output, or hand off to streaming.
//
// Caching and Streaming
//
// A container starts in caching mode.  Script output goes to an
// in-memory buffer, and when the script finishes, the output is
// stored in the shared result Cache under the script's name together
// with the representation attributes (media type, language, character
// set) in effect at that moment.  A script may ask for its output to
// be reused on later requests by telling its runner that the cached
// result is still valid; in that case the container serves the cached
// string instead.
//
// A running script may call Container.Stream to switch to streaming
// mode.  The current run's output is discarded, and Include returns a
// StreamingRepresentation.  When the transport layer writes that
// representation, the script runs a second time, writing directly to
// the client.  Errors raised by the first run after Stream was called
// are ignored; returning early with an error is an accepted way for a
// script to say "stop here, I am ready to stream".  Side effects of
// the first run are not undone, so scripts should call Stream before
// doing anything they cannot safely repeat.
//
// Nested Includes
//
// Scripts may include other scripts.  A nested include writes into
// the enclosing script's buffer; the result cache stores exactly the
// nested script's own contribution, while the representation returned
// to the caller is the entire enclosing buffer.
//
// Collaborators
//
// A Source resolves script names to Descriptors.  A Compiler turns
// descriptor text into a Script, which is attached to the descriptor
// and reused.  Scripts themselves are the runners; the embedded
// package provides the standard implementation.
package scripted
