// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package restdata defines common data structures shared between the
// restserver and restclient packages.
//
// API Usage
//
// HTTP GET the URL of a script, relative to the server's root, to get
// the script's output.  The standard Accept, Accept-Charset, and
// Accept-Language headers select the variant the script sees; the
// script may still choose a different media type, language, or
// character set for its output, and the Content-Type and
// Content-Language response headers describe what was actually sent.
// HEAD is also supported.  The empty path names the server's default
// script, usually "index".
//
// Encoding Considerations
//
// A script name that appears in a URL must be made of ASCII
// characters that can be represented unescaped, plus "/" between path
// segments.  Other names are escaped by encoding their byte
// representations using the base64 URL-safe encoding with no padding,
// and prepending a hyphen to the name.  Names that would be otherwise
// safe and begin with hyphens are also encoded.
//
// The URL path
//
//     /-LWRhc2g
//
// refers to the script named "-dash".
//
// HTTP Considerations
//
// Cacheable output is sent with an ETag header, and a request whose
// If-None-Match header matches it gets 304 Not Modified.  Streamed
// output has no ETag and may be sent with chunked encoding.  A script
// that produces no output at all results in 204 No Content.
//
// Errors
//
// Errors are returned as JSON encodings of the ErrorResponse type,
// with media type application/json, and a failing HTTP status: 404
// Not Found for unknown scripts, 406 Not Acceptable if no variant
// matches the request headers, and 500 Internal Server Error for
// failing scripts.  If Go server code panics, this is captured and
// returned as an ErrorResponse with error code "panic".
package restdata

// JSONMediaType is the media type of error responses.
const JSONMediaType = "application/json"

// RequestIDHeader is the HTTP header carrying a request's unique ID.
const RequestIDHeader = "X-Request-Id"

// ErrorResponse can be a response to any method, generally accompanied
// by a failing HTTP status code.
type ErrorResponse struct {
	// Error is a short description of the failure.  This may be
	// the name of a well-known scripted error, the string
	// "panic", or the string "error" for some other kind of
	// error.
	Error string `json:"error" codec:"error"`

	// Message is a human-readable description of the failure.
	Message string `json:"message" codec:"message"`

	// Value is an extra parameter to the error if applicable,
	// typically a script name.
	Value string `json:"value,omitempty" codec:"value,omitempty"`

	// RequestID identifies the failed request in server logs.
	RequestID string `json:"request_id,omitempty" codec:"request_id,omitempty"`

	// Stack holds a formatted backtrace, if the method failed
	// due to a panic.
	Stack string `json:"stack,omitempty" codec:"stack,omitempty"`
}
