// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package scripted

import (
	"io"
	"strings"
)

// outputLog is the append-only buffer behind a caching-mode
// container's output sink.  Each include records a mark before it
// runs; its own output is everything written since that mark.
type outputLog struct {
	text strings.Builder
}

func (l *outputLog) Write(p []byte) (int, error) {
	return l.text.Write(p)
}

func (l *outputLog) WriteString(s string) (int, error) {
	return l.text.WriteString(s)
}

// Mark returns the current end of the log.
func (l *outputLog) Mark() int {
	return l.text.Len()
}

// Since returns everything written after mark.
func (l *outputLog) Since(mark int) string {
	return l.text.String()[mark:]
}

// String returns the entire log.
func (l *outputLog) String() string {
	return l.text.String()
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
