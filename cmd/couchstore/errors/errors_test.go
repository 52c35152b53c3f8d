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

package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"gitlab.com/flimzy/testy"

	"github.com/jotun-server/couchstore"
)

func TestInspectErrorCode(t *testing.T) {
	type tt struct {
		err  error
		want int
	}

	tests := testy.NewTable()
	tests.Add("nil", tt{
		want: 0,
	})
	tests.Add("standard", tt{
		err:  errors.New("foo"),
		want: 0,
	})
	tests.Add("codeErr", tt{
		err:  WithCode(errors.New("foo"), 123),
		want: 123,
	})
	tests.Add("wrapped", tt{
		err:  fmt.Errorf("%w", Code(123, "foo")),
		want: 123,
	})
	tests.Add("Codef", tt{
		err:  Codef(ErrData, "bad %s", "input"),
		want: ErrData,
	})
	tests.Add("net error", tt{
		err:  &net.OpError{Op: "dial", Err: errors.New("connection refused")},
		want: ErrUnavailable,
	})
	tests.Add("kivik 401", tt{
		err:  httpErr(http.StatusUnauthorized),
		want: ErrUnauthorized,
	})
	tests.Add("kivik internal server error", tt{
		err:  httpErr(http.StatusInternalServerError),
		want: ErrInternalServerError,
	})
	tests.Add("kivik 501", tt{
		err:  httpErr(http.StatusNotImplemented),
		want: ErrUnknown,
	})
	tests.Add("invalid parameters", tt{
		err:  &couchstore.Error{Kind: couchstore.InvalidParameters, Message: "invalid bootstrap parameters"},
		want: ErrUsage,
	})
	tests.Add("unreachable server", tt{
		err: &couchstore.Error{
			Kind:    couchstore.UnreachableServer,
			Message: "CouchDB not reachable",
			Err:     httpErr(http.StatusInternalServerError),
		},
		want: ErrUnavailable,
	})
	tests.Add("unreachable server, unauthorized", tt{
		err: &couchstore.Error{
			Kind:    couchstore.UnreachableServer,
			Message: "CouchDB not reachable",
			Err:     httpErr(http.StatusUnauthorized),
		},
		want: ErrUnauthorized,
	})
	tests.Add("unreachable server, transport failure", tt{
		err: &couchstore.Error{
			Kind:    couchstore.UnreachableServer,
			Message: "CouchDB not reachable",
			Err:     fmt.Errorf("dial tcp: connection refused"),
		},
		want: ErrUnavailable,
	})
	tests.Add("unexpected empty result", tt{
		err:  fmt.Errorf("store orders: %w", &couchstore.Error{Kind: couchstore.UnexpectedEmptyResult, Message: "Silent design creation occurred"}),
		want: ErrProtocol,
	})
	tests.Add("design install conflict", tt{
		err: &couchstore.Error{
			Kind:    couchstore.DesignInstallFailed,
			Message: "Creating design caused a failure",
			Err:     httpErr(http.StatusConflict),
		},
		want: ErrConflict,
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		got := InspectErrorCode(tt.err)
		if got != tt.want {
			t.Errorf("want %d, got %d", tt.want, got)
		}
	})
}

func TestCode(t *testing.T) {
	if err := Code(ErrUsage, nil); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
	err := Code(ErrUsage, "no ", "stores")
	if err.Error() != "no stores" {
		t.Errorf("Unexpected message: %s", err)
	}
}

type httpErr int

func (e httpErr) Error() string {
	return http.StatusText(int(e))
}

func (e httpErr) HTTPStatus() int {
	return int(e)
}
