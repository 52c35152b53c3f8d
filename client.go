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
	"net/http"

	"github.com/go-kivik/kivik/v4"
)

// Confirmation is the server's acknowledgement of an installed design
// document.
type Confirmation struct {
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

// Client is the database client used by the bootstrap workflow.
type Client interface {
	// DBExists returns true if the named database exists.
	DBExists(ctx context.Context, name string) (bool, error)
	// CreateDB creates the named database, and returns a handle to it.
	CreateDB(ctx context.Context, name string) (Database, error)
	// DB returns a handle to the named database, without contacting the
	// server.
	DB(name string) Database
}

// Database is a handle to a single database.
type Database interface {
	// PutDesign creates, or replaces, the design document. A nil
	// Confirmation with a nil error means the server acknowledged the
	// request without saying what it stored.
	PutDesign(ctx context.Context, doc *DesignDoc) (*Confirmation, error)
}

// NewClient wraps a kivik client for use by the bootstrap workflow.
func NewClient(client *kivik.Client) Client {
	return &kivikClient{client: client}
}

type kivikClient struct {
	client *kivik.Client
}

var _ Client = &kivikClient{}

func (c *kivikClient) DBExists(ctx context.Context, name string) (bool, error) {
	return c.client.DBExists(ctx, name)
}

func (c *kivikClient) CreateDB(ctx context.Context, name string) (Database, error) {
	if err := c.client.CreateDB(ctx, name); err != nil {
		return nil, err
	}
	return c.DB(name), nil
}

func (c *kivikClient) DB(name string) Database {
	return &kivikDB{db: c.client.DB(name)}
}

type kivikDB struct {
	db *kivik.DB
}

var _ Database = &kivikDB{}

// PutDesign writes doc, replacing the current revision if the design
// document already exists.
func (d *kivikDB) PutDesign(ctx context.Context, doc *DesignDoc) (*Confirmation, error) {
	if err := d.db.Err(); err != nil {
		return nil, err
	}
	rev, err := d.db.GetRev(ctx, doc.ID)
	if err != nil {
		if kivik.HTTPStatus(err) != http.StatusNotFound {
			return nil, err
		}
		rev = ""
	}
	put := *doc
	put.Rev = rev
	newRev, err := d.db.Put(ctx, doc.ID, &put)
	if err != nil {
		return nil, err
	}
	if newRev == "" {
		return nil, nil
	}
	return &Confirmation{ID: doc.ID, Rev: newRev}, nil
}
