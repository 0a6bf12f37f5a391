// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restserver publishes a scripted.Resource over HTTP.  The
// restclient package is a matching client.
//
// The wire protocol is described in the restdata package.  Every
// request gets its own scripted.Container, and the script named by the
// URL path is included into it.  Its output goes back to the client:
//
//     cacheable output     200 OK, with an ETag, or 304 Not Modified
//     streamed output      200 OK, flushed as the script runs
//     no output            204 No Content
//     unknown script       404 Not Found
//     failing script       500 Internal Server Error
//
// The Accept, Accept-Charset, and Accept-Language request headers are
// negotiated against the server's configured media types and
// languages to choose the container's variant.  Query parameters
// become the container's parameters; only the first value of a
// repeated parameter is kept.
//
// Every response carries an X-Request-Id header, and every log line
// about a request carries the same ID.
package restserver
