// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

// This file contains HTTP content negotiation, following the path
// laid out in RFC 7231 section 5.3.

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/diffeo/go-scripted/restdata"
)

// errBadAccept is returned from negotiation if an Accept-type header
// is malformed (and no more specific error applies).
var errBadAccept = errors.New("Invalid Accept: header")

// errNotAcceptable is returned from negotiateMediaType() if the
// Accept: header does not mention any media types we can actually
// return.
type errNotAcceptable struct{}

func (e errNotAcceptable) Error() string {
	return "No acceptable representation for response"
}

func (e errNotAcceptable) HTTPStatus() int {
	return http.StatusNotAcceptable
}

// errMethodNotAllowed flags an HTTP method other than GET or HEAD.
// This corresponds exactly to the 405 Method Not Allowed HTTP status
// code.
type errMethodNotAllowed struct {
	Method string
}

func (e errMethodNotAllowed) Error() string {
	return fmt.Sprintf("Method %v not allowed", e.Method)
}

func (e errMethodNotAllowed) HTTPStatus() int {
	return http.StatusMethodNotAllowed
}

// parseQuality extracts the "q" ("quality") parameter from a header
// element's parameters.  It defaults to 1.
func parseQuality(params map[string]string) (float64, error) {
	qStr, haveQ := params["q"]
	if !haveQ {
		return 1.0, nil
	}
	q, err := strconv.ParseFloat(qStr, 64)
	if err != nil || q < 0.0 || q > 1.0 {
		return 0, restdata.ErrBadRequest{Err: errBadAccept}
	}
	return q, nil
}

// negotiateMediaType returns the offered media type that best matches
// an Accept: header.  A specific type overrides "type/*", which
// overrides "*/*"; at the same specificity and quality, the first one
// listed wins.
func negotiateMediaType(accept string, offered []string) (string, error) {
	if accept == "" {
		accept = "*/*"
	}
	bestType := ""
	bestQ := 0.0
	bestSpecificity := -1
	for _, mediaRange := range strings.Split(accept, ",") {
		mediaRange = strings.TrimSpace(mediaRange)
		if mediaRange == "" {
			continue
		}
		mediaType, params, err := mime.ParseMediaType(mediaRange)
		if err != nil {
			return "", restdata.ErrBadRequest{Err: err}
		}
		q, err := parseQuality(params)
		if err != nil {
			return "", err
		}
		if q == 0.0 || q < bestQ {
			continue
		}

		candidate := ""
		specificity := 0
		switch {
		case mediaType == "*/*":
			if len(offered) > 0 {
				candidate = offered[0]
			}
		case strings.HasSuffix(mediaType, "/*"):
			specificity = 1
			prefix := strings.TrimSuffix(mediaType, "*")
			for _, o := range offered {
				if strings.HasPrefix(o, prefix) {
					candidate = o
					break
				}
			}
		default:
			specificity = 2
			for _, o := range offered {
				if o == mediaType {
					candidate = o
					break
				}
			}
		}
		// Otherwise we don't offer this type at all, so just
		// drop it
		if candidate == "" {
			continue
		}
		if q > bestQ || specificity > bestSpecificity {
			bestType = candidate
			bestQ = q
			bestSpecificity = specificity
		}
	}
	if bestType == "" {
		return "", errNotAcceptable{}
	}
	return bestType, nil
}

// qualityItem is one element of an Accept-Charset: or
// Accept-Language: header.
type qualityItem struct {
	value string
	q     float64
}

// parseQualityList parses a header of comma-separated tokens with
// optional quality parameters.  The result is ordered by descending
// quality, keeping header order for equal qualities.  Elements with
// zero quality are dropped.
func parseQualityList(header string) ([]qualityItem, error) {
	var items []qualityItem
	for _, element := range strings.Split(header, ",") {
		parts := strings.Split(element, ";")
		value := strings.ToLower(strings.TrimSpace(parts[0]))
		if value == "" {
			continue
		}
		params := make(map[string]string)
		for _, param := range parts[1:] {
			k, v, _ := strings.Cut(strings.TrimSpace(param), "=")
			params[strings.ToLower(k)] = v
		}
		q, err := parseQuality(params)
		if err != nil {
			return nil, err
		}
		if q == 0.0 {
			continue
		}
		// Insertion sort, stable
		i := len(items)
		items = append(items, qualityItem{})
		for i > 0 && items[i-1].q < q {
			items[i] = items[i-1]
			i--
		}
		items[i] = qualityItem{value: value, q: q}
	}
	return items, nil
}

// negotiateCharset returns the most preferred character set in an
// Accept-Charset: header, or an empty string if the client has no
// preference.
func negotiateCharset(acceptCharset string) (string, error) {
	items, err := parseQualityList(acceptCharset)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if item.value != "*" {
			return item.value, nil
		}
	}
	return "", nil
}

// negotiateLanguage picks a language for an Accept-Language: header.
// If offered is empty, any language is acceptable and the client's
// favorite is returned.  Otherwise a language range matches an offered
// tag if either is a prefix of the other at a "-" boundary.  Returns
// an empty string if nothing matches.
func negotiateLanguage(acceptLanguage string, offered []string) (string, error) {
	items, err := parseQualityList(acceptLanguage)
	if err != nil {
		return "", err
	}
	for _, item := range items {
		if len(offered) == 0 {
			if item.value != "*" {
				return item.value, nil
			}
			continue
		}
		for _, o := range offered {
			if languageMatches(item.value, strings.ToLower(o)) {
				return o, nil
			}
		}
	}
	return "", nil
}

func languageMatches(languageRange, tag string) bool {
	return languageRange == "*" ||
		languageRange == tag ||
		strings.HasPrefix(tag, languageRange+"-") ||
		strings.HasPrefix(languageRange, tag+"-")
}
