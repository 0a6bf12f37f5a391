// Copyright 2015-2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restdata

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/diffeo/go-scripted/scripted"
)

// ErrorStatus describes errors that correspond to specific HTTP status
// codes.
type ErrorStatus interface {
	// HTTPStatus returns the HTTP status code for this error.
	HTTPStatus() int
}

// ErrNotFound is a wrapper error that indicates that, due to the
// embedded error, a REST service should return a 404 Not Found error.
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 404 Not Found error code.
func (e ErrNotFound) HTTPStatus() int {
	return http.StatusNotFound
}

// ErrBadRequest is returned as an error when there is an error decoding
// HTTP headers or the request URL.
type ErrBadRequest struct {
	Err error
}

func (e ErrBadRequest) Error() string {
	return e.Err.Error()
}

// Unwrap returns the embedded error.
func (e ErrBadRequest) Unwrap() error {
	return e.Err
}

// HTTPStatus returns a fixed 400 Bad Request HTTP status code.
func (e ErrBadRequest) HTTPStatus() int {
	return http.StatusBadRequest
}

// ErrHTTP is returned from the client for a failing response that did
// not carry a well-known error.
type ErrHTTP struct {
	Status  int
	Message string
}

func (e ErrHTTP) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// HTTPStatus returns the status code of the failed response.
func (e ErrHTTP) HTTPStatus() int {
	return e.Status
}

// Status picks the HTTP status code for an error.  Errors that do not
// name a status are internal server errors.
func Status(err error) int {
	var errS ErrorStatus
	if errors.As(err, &errS) {
		return errS.HTTPStatus()
	}
	var noSuchScript scripted.ErrNoSuchScript
	if errors.As(err, &noSuchScript) && !scripted.IsScriptError(err) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// FromError populates an ErrorResponse to fill in its fields based
// on an error value.  This remaps the well-known scripted errors to
// specific e.Error codes.
func (e *ErrorResponse) FromError(err error) {
	e.Error = "error"
	e.Message = err.Error()

	var scriptErr *scripted.ScriptError
	var noSuchScript scripted.ErrNoSuchScript
	var streaming scripted.ErrStreaming
	switch {
	case errors.As(err, &scriptErr):
		e.Error = "ScriptError"
		e.Value = scriptErr.Name
	case errors.As(err, &noSuchScript):
		e.Error = "ErrNoSuchScript"
		e.Value = noSuchScript.Name
	case errors.As(err, &streaming):
		e.Error = "ErrStreaming"
		e.Value = streaming.Attribute
	case errors.Is(err, scripted.ErrNoCompiler):
		e.Error = "ErrNoCompiler"
	}
}

// ToError converts e back to a scripted error, if that is possible.
// If not, returns a plain error with e.Message text.
func (e *ErrorResponse) ToError() error {
	switch e.Error {
	case "ErrNoSuchScript":
		return scripted.ErrNoSuchScript{Name: e.Value}
	case "ErrStreaming":
		return scripted.ErrStreaming{Attribute: e.Value}
	case "ErrNoCompiler":
		return scripted.ErrNoCompiler
	case "ScriptError":
		return &scripted.ScriptError{Name: e.Value, Err: errors.New(e.Message)}
	default:
		return errors.New(e.Message)
	}
}

// FromPanic populates an error response based on a panic.  Typical use
// is:
//
//     defer func() {
//         if obj := recovered(); obj != nil {
//             resp := restdata.ErrorResponse{}
//             resp.FromPanic(obj)
//             // write resp out as makes sense
//         }
//    }
func (e *ErrorResponse) FromPanic(obj interface{}) {
	e.Error = "panic"
	if recoveredError, isError := obj.(error); isError {
		e.Message = recoveredError.Error()
	} else {
		e.Message = fmt.Sprintf("%+v", obj)
	}
	var stack [4096]byte
	len := runtime.Stack(stack[:], false)
	e.Stack = string(stack[:len])
}
