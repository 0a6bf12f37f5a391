// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"io"
	"time"
)

// Representation is something the transport layer can send to a
// client: a set of attributes, which become response headers, and a
// body.  Include returns a nil Representation when there is nothing
// to send.
type Representation interface {
	// Attributes returns the representation attributes.  For a
	// StreamingRepresentation these are final once WriteTo has
	// been called.
	Attributes() Attributes

	// WriteTo writes the body of the representation.
	WriteTo(w io.Writer) (int64, error)
}

// RepresentableString is an immutable rendered script output, along
// with the representation attributes in effect when it was produced.
// These are what the result Cache stores.
type RepresentableString struct {
	text       string
	attributes Attributes
	created    time.Time
}

// NewRepresentableString creates a new representable string.
func NewRepresentableString(text string, attributes Attributes, created time.Time) RepresentableString {
	return RepresentableString{
		text:       text,
		attributes: attributes,
		created:    created,
	}
}

// Text returns the string content.
func (s RepresentableString) Text() string {
	return s.text
}

// Attributes returns the representation attributes frozen at
// creation time.
func (s RepresentableString) Attributes() Attributes {
	return s.attributes
}

// Created returns the time the string was produced.
func (s RepresentableString) Created() time.Time {
	return s.created
}

// Represent renders the string as a Representation.
func (s RepresentableString) Represent() *StringRepresentation {
	return NewStringRepresentation(s.text, s.attributes)
}

// StringRepresentation is a Representation with fixed text.
type StringRepresentation struct {
	text       string
	attributes Attributes
}

// NewStringRepresentation creates a representation of a fixed string.
func NewStringRepresentation(text string, attributes Attributes) *StringRepresentation {
	return &StringRepresentation{text: text, attributes: attributes}
}

// Text returns the representation body.
func (r *StringRepresentation) Text() string {
	return r.text
}

// Attributes returns the representation attributes.
func (r *StringRepresentation) Attributes() Attributes {
	return r.attributes
}

// WriteTo writes the text to w.
func (r *StringRepresentation) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, r.text)
	return int64(n), err
}

// StreamingRepresentation is returned from Container.Include when a
// script has asked to stream its output.  Nothing has been produced
// yet: calling WriteTo runs the script again, in streaming mode,
// writing directly to the provided writer.  WriteTo may only be
// called once.
type StreamingRepresentation struct {
	container *Container
	script    Script
	name      string
}

// Name returns the name of the script that will be run.
func (r *StreamingRepresentation) Name() string {
	return r.name
}

// Attributes returns the container's representation attributes.
// These are whatever the script set before it asked to stream, and
// cannot change once streaming starts.
func (r *StreamingRepresentation) Attributes() Attributes {
	return r.container.attributes
}

// WriteTo runs the script in streaming mode, sending its output to
// w.  The returned count is the number of bytes written to w.
func (r *StreamingRepresentation) WriteTo(w io.Writer) (int64, error) {
	return r.container.streamTo(w, r.name, r.script)
}
