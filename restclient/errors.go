// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restclient

import (
	"bytes"
	"io"
	"net/http"

	"github.com/diffeo/go-scripted/restdata"
)

// checkHTTPStatus examines an HTTP response and returns an error if
// it is not successful.  304 Not Modified counts as success.
func checkHTTPStatus(resp *http.Response) error {
	if resp.StatusCode/100 == 2 || resp.StatusCode == http.StatusNotModified {
		return nil
	}

	// Always collect the entire body; we will need it as a fallback
	// and can only parse it once.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	// Take a shot at decoding it as a better error
	contentType := resp.Header.Get("Content-Type")
	errResp, err := restdata.DecodeError(contentType, bytes.NewReader(body))
	if err == nil {
		switch errResp.Error {
		case "", "error":
			// Nothing more specific than the status
			return restdata.ErrHTTP{Status: resp.StatusCode, Message: errResp.Message}
		default:
			// Given that we decoded that successfully,
			// return the server-provided error
			return errResp.ToError()
		}
	}

	return restdata.ErrHTTP{Status: resp.StatusCode, Message: string(body)}
}

func readBody(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	return string(body), err
}

func firstError(e1, e2 error) error {
	if e1 != nil {
		return e1
	}
	return e2
}
