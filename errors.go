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

package couchstore

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

// Kind classifies a bootstrap failure.
type Kind int

// Bootstrap failure kinds. All of them are fatal.
const (
	// UnknownKind is returned by KindOf for errors not produced by this
	// package.
	UnknownKind Kind = iota
	// InvalidParameters indicates the Parameters failed validation.
	InvalidParameters
	// UnreachableServer indicates the existence check failed.
	UnreachableServer
	// CreationFailed indicates the server refused to create the database.
	CreationFailed
	// DesignInstallFailed indicates the server refused the design document.
	DesignInstallFailed
	// UnexpectedEmptyResult indicates the server reported success, but
	// returned nothing usable.
	UnexpectedEmptyResult
)

func (k Kind) String() string {
	switch k {
	case InvalidParameters:
		return "invalid parameters"
	case UnreachableServer:
		return "unreachable server"
	case CreationFailed:
		return "creation failed"
	case DesignInstallFailed:
		return "design install failed"
	case UnexpectedEmptyResult:
		return "unexpected empty result"
	default:
		return "unknown"
	}
}

// Error is a bootstrap failure.
type Error struct {
	Kind Kind
	// Message is a human-readable description of the failed step.
	Message string
	// Err is the underlying error, if any.
	Err error
}

var _ error = &Error{}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status of the underlying error, if any. Empty
// results are reported as 502 Bad Gateway, and invalid parameters as 400 Bad
// Request.
func (e *Error) HTTPStatus() int {
	if status := kivik.HTTPStatus(e.Err); status != 0 && status != http.StatusInternalServerError {
		return status
	}
	switch e.Kind {
	case InvalidParameters:
		return http.StatusBadRequest
	case UnexpectedEmptyResult:
		return http.StatusBadGateway
	}
	return kivik.HTTPStatus(e.Err)
}

// Is allows errors.Is(err, &Error{Kind: k}) to match on kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

// KindOf returns the Kind of err, or UnknownKind if err did not originate
// from a bootstrap.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnknownKind
}
