// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package embedded

import (
	"fmt"
	"strings"
	"unicode"
)

// delimiters are the recognized segment delimiter pairs, in order of
// preference when both appear at the same place.
var delimiters = [][2]string{
	{"<%", "%>"},
	{"<?", "?>"},
}

const (
	// expressionMarker, right after the opening delimiter, marks
	// a segment whose value is printed.
	expressionMarker = "="

	// includeMarker, right after the opening delimiter, marks a
	// segment that includes another script by name.
	includeMarker = "&"
)

type segmentKind int

const (
	literalSegment segmentKind = iota
	codeSegment
	expressionSegment
	includeSegment
)

// segment is one piece of a parsed script.
type segment struct {
	kind   segmentKind
	text   string
	engine string
}

// ErrUnterminated is returned from parsing when a code segment has no
// closing delimiter.
type ErrUnterminated struct {
	Offset    int
	Delimiter string
}

func (err ErrUnterminated) Error() string {
	return fmt.Sprintf("code segment at offset %d has no closing %q", err.Offset, err.Delimiter)
}

// engineLookup resolves a possible engine name to its canonical name.
type engineLookup func(name string) (string, bool)

// parse splits script text into segments.  defaultEngine is used
// until a segment names another engine.
func parse(text, defaultEngine string, lookup engineLookup) ([]segment, error) {
	open, close := chooseDelimiters(text)
	var segments []segment
	engine := defaultEngine
	pos := 0
	for {
		start := strings.Index(text[pos:], open)
		if start < 0 {
			if pos < len(text) {
				segments = append(segments, segment{kind: literalSegment, text: text[pos:]})
			}
			return segments, nil
		}
		if start > 0 {
			segments = append(segments, segment{kind: literalSegment, text: text[pos : pos+start]})
		}
		codeStart := pos + start + len(open)
		end := strings.Index(text[codeStart:], close)
		if end < 0 {
			return nil, ErrUnterminated{Offset: pos + start, Delimiter: close}
		}
		body := text[codeStart : codeStart+end]
		pos = codeStart + end + len(close)

		kind := codeSegment
		switch {
		case strings.HasPrefix(body, expressionMarker):
			kind = expressionSegment
			body = body[len(expressionMarker):]
		case strings.HasPrefix(body, includeMarker):
			segments = append(segments, segment{
				kind: includeSegment,
				text: strings.TrimSpace(body[len(includeMarker):]),
			})
			continue
		}

		if word, rest := firstWord(body); word != "" {
			if canonical, known := lookup(word); known {
				engine = canonical
				body = rest
			}
		}
		segments = append(segments, segment{kind: kind, text: body, engine: engine})
	}
}

// chooseDelimiters picks the delimiter pair whose opening delimiter
// appears first in text.
func chooseDelimiters(text string) (string, string) {
	best := delimiters[0]
	bestAt := -1
	for _, pair := range delimiters {
		at := strings.Index(text, pair[0])
		if at >= 0 && (bestAt < 0 || at < bestAt) {
			best = pair
			bestAt = at
		}
	}
	return best[0], best[1]
}

// firstWord splits off a word that starts at the very beginning of
// body.  Returns an empty word if body starts with a space.
func firstWord(body string) (string, string) {
	end := strings.IndexFunc(body, unicode.IsSpace)
	if end < 0 {
		return body, ""
	}
	return body[:end], body[end:]
}

// trivialText returns the concatenated literal text if segments
// contain no code.
func trivialText(segments []segment) (string, bool) {
	var b strings.Builder
	for _, s := range segments {
		if s.kind != literalSegment {
			return "", false
		}
		b.WriteString(s.text)
	}
	return b.String(), true
}
