// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"io"
	"mime"

	"github.com/ugorji/go/codec"
)

// ErrUnsupportedMediaType is returned from DecodeError() if the
// provided Content-Type: is not JSON.
type ErrUnsupportedMediaType struct {
	Type string
}

func (e ErrUnsupportedMediaType) Error() string {
	return "Unsupported media type " + e.Type
}

// EncodeError writes an error response as JSON.
func EncodeError(w io.Writer, resp ErrorResponse) error {
	json := &codec.JsonHandle{}
	return codec.NewEncoder(w, json).Encode(resp)
}

// DecodeError reads an error response, such as the body of a failed
// HTTP response.
func DecodeError(contentType string, r io.Reader) (ErrorResponse, error) {
	var resp ErrorResponse
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return resp, err
	}
	switch mediaType {
	case JSONMediaType, "text/json":
	default:
		return resp, ErrUnsupportedMediaType{Type: mediaType}
	}
	json := &codec.JsonHandle{}
	err = codec.NewDecoder(r, json).Decode(&resp)
	return resp, err
}
