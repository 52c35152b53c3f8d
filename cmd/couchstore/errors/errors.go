// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//  http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

// Package errors maps bootstrap failures to process exit codes.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-kivik/kivik/v4"

	"github.com/jotun-server/couchstore"
)

// Exit status codes
//
// See https://man.openbsd.org/sysexits.3
const (
	// ErrUsage indicates an incorrect command, option, or unparseable
	// configuration or command line options.
	ErrUsage = 2
	// ErrUnknown indicates that the server responded with an HTTP status > 500.
	// Probably an indication of a proxy server interfering.
	ErrUnknown = 3
	// ErrInternalServerError indicates that the server responded with a 500
	// error.
	ErrInternalServerError = 4

	// ErrBadRequest indicates that the server responded with a 400 error.
	// Other 4xx statuses map to status - 390 in the same way, so a 401
	// becomes 11, a 403 becomes 13, and so on.
	ErrBadRequest = 10
	// ErrUnauthorized indicates that the server responded with a 401 error.
	ErrUnauthorized = 11
	// ErrForbidden indicates that the server responded with a 403 error.
	ErrForbidden = 13
	// ErrConflict indicates that the server responded with a 409 error.
	ErrConflict = 19
	// ErrPreconditionFailed indicates that the server responded with a 412
	// error.
	ErrPreconditionFailed = 22

	// ErrData indicates an input file is invalid, such as malformed JSON or
	// YAML.
	ErrData = 65
	// ErrNoInput indicates that an input file does not exist or cannot be read.
	ErrNoInput = 66
	// ErrUnavailable indicates that the server could not be reached, such as
	// a connection refused.
	ErrUnavailable = 69
	// ErrCantCreate indicates that an output file cannot be created.
	ErrCantCreate = 73
	// ErrProtocol indicates a protocol error, such as a CouchDB server
	// acknowledging a write without returning a result.
	ErrProtocol = 76
)

type statusErr struct {
	error
	code int
}

func (e *statusErr) Error() string {
	return e.error.Error()
}

func (e *statusErr) Unwrap() error {
	return e.error
}

func (e *statusErr) ExitStatus() int {
	return e.code
}

// WithCode wraps err with an exit code.
func WithCode(err error, code int) error {
	return &statusErr{
		error: err,
		code:  code,
	}
}

// InspectErrorCode returns the exit code for err, or 0 if none can be
// determined.
func InspectErrorCode(err error) int {
	if err == nil {
		return 0
	}
	exitErr := new(statusErr)
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus()
	}

	switch couchstore.KindOf(err) {
	case couchstore.InvalidParameters:
		return ErrUsage
	case couchstore.UnexpectedEmptyResult:
		return ErrProtocol
	case couchstore.UnreachableServer:
		// A 4xx reply means the server was reached and refused the request.
		if status := kivik.HTTPStatus(err); status >= 400 && status < 500 {
			return fromHTTPStatus(status)
		}
		return ErrUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrUnavailable
	}

	jsonSyntax := new(json.SyntaxError)
	if errors.As(err, &jsonSyntax) {
		return ErrProtocol
	}

	var kivikErr interface {
		HTTPStatus() int
	}
	if errors.As(err, &kivikErr) {
		return fromHTTPStatus(kivikErr.HTTPStatus())
	}

	return 0
}

func fromHTTPStatus(status int) int {
	switch {
	case status == http.StatusInternalServerError:
		return ErrInternalServerError
	case status >= 400 && status < 500:
		return status - 390 // nolint:gomnd
	default:
		return ErrUnknown
	}
}

// Code returns a new error with an error code. If err is an existing error, it
// is wrapped with the error code. All other values are passed to fmt.Sprint.
//
// If err is a single nil value, nil is returned.
func Code(code int, err ...interface{}) error {
	if len(err) == 1 {
		if err[0] == nil {
			return nil
		}
		if e, ok := err[0].(error); ok {
			return &statusErr{
				error: e,
				code:  code,
			}
		}
	}
	return &statusErr{
		error: errors.New(fmt.Sprint(err...)),
		code:  code,
	}
}

// Codef wraps the output of fmt.Errorf with a code.
func Codef(code int, format string, args ...interface{}) error {
	return &statusErr{
		error: fmt.Errorf(format, args...),
		code:  code,
	}
}
