// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"encoding/base64"
	"strings"

	"github.com/diffeo/go-scripted/scripted"
	"github.com/zeebo/blake3"
)

// ETag computes a strong entity tag for a cacheable representation.
// It covers the text and every attribute that reaches the client.
func ETag(text string, attributes scripted.Attributes) string {
	h := blake3.New()
	for _, part := range []string{attributes.ContentType(), attributes.Language, text} {
		_, _ = h.Write([]byte(part))
		_, _ = h.Write([]byte{0})
	}
	sum := h.Sum(nil)
	return `"` + base64.RawURLEncoding.EncodeToString(sum[:16]) + `"`
}

// MatchETag determines whether an If-None-Match header value matches
// etag.  Weak comparison is used, as RFC 7232 requires for
// If-None-Match.
func MatchETag(header, etag string) bool {
	etag = strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}
