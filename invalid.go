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
	"context"
	"errors"

	"github.com/go-kivik/kivik/v4"
	"github.com/go-kivik/kivik/v4/driver"
)

// driverInvalid serves handles for connection properties that cannot produce
// a client. The data source name is the reason; every request fails with it.
const driverInvalid = "couchstore-invalid"

func init() {
	kivik.Register(driverInvalid, invalidDriver{})
}

type invalidDriver struct{}

var _ driver.Driver = invalidDriver{}

func (invalidDriver) NewClient(reason string, _ driver.Options) (driver.Client, error) {
	return &invalidClient{err: &Error{
		Kind:    InvalidParameters,
		Message: "invalid connection properties",
		Err:     errors.New(reason),
	}}, nil
}

type invalidClient struct {
	err error
}

var _ driver.Client = (*invalidClient)(nil)

func (c *invalidClient) Version(context.Context) (*driver.Version, error) {
	return nil, c.err
}

func (c *invalidClient) AllDBs(context.Context, driver.Options) ([]string, error) {
	return nil, c.err
}

func (c *invalidClient) DBExists(context.Context, string, driver.Options) (bool, error) {
	return false, c.err
}

func (c *invalidClient) CreateDB(context.Context, string, driver.Options) error {
	return c.err
}

func (c *invalidClient) DestroyDB(context.Context, string, driver.Options) error {
	return c.err
}

func (c *invalidClient) DB(string, driver.Options) (driver.DB, error) {
	return nil, c.err
}

// invalidKivikClient returns a kivik client whose every request fails with
// err.
func invalidKivikClient(err error) *kivik.Client {
	client, _ := kivik.New(driverInvalid, err.Error())
	return client
}
