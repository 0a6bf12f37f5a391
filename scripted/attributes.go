// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"mime"
	"strings"
)

// Mode is the output mode of a Container.
type Mode int

const (
	// Caching mode buffers script output so that it can be cached
	// and reused.
	Caching Mode = iota

	// Streaming mode sends script output directly to the client.
	Streaming
)

func (m Mode) String() string {
	switch m {
	case Caching:
		return "caching"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// DefaultCharacterSet is used when neither the negotiated variant nor
// the Resource names a character set.
const DefaultCharacterSet = "utf-8"

// Attributes describe a textual representation: its media type, its
// natural language, and its character set.  A negotiated variant is
// described with the same type.  Empty strings mean "unspecified".
type Attributes struct {
	MediaType    string
	Language     string
	CharacterSet string
}

// ContentType renders the attributes as an HTTP Content-Type header
// value, including the character set if there is one.  Returns an
// empty string if there is no media type.
func (a Attributes) ContentType() string {
	if a.MediaType == "" {
		return ""
	}
	if a.CharacterSet == "" || !isTextual(a.MediaType) {
		return a.MediaType
	}
	return mime.FormatMediaType(a.MediaType, map[string]string{
		"charset": a.CharacterSet,
	})
}

// isTextual decides whether a media type carries a character set
// parameter.
func isTextual(mediaType string) bool {
	switch {
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xml",
		mediaType == "application/javascript",
		strings.HasSuffix(mediaType, "+json"),
		strings.HasSuffix(mediaType, "+xml"):
		return true
	}
	return false
}
