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

package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"gitlab.com/flimzy/testy"

	"github.com/jotun-server/couchstore"
	"github.com/jotun-server/couchstore/cmd/couchstore/errors"
	"github.com/jotun-server/couchstore/log"
)

const ordersMap = "function(doc){emit(doc.status,doc)}"

func readConfig(t *testing.T, filename string) *Config {
	t.Helper()
	c := New()
	if err := c.Read(filename, log.NewNil()); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestConfig_Read(t *testing.T) {
	type tt struct {
		filename string
		env      map[string]string
		args     []string
		status   int
		current  string
		want     *couchstore.ConnectionProperties
	}

	tests := testy.NewTable()
	tests.Add("no config file", tt{
		status: errors.ErrUsage,
	})
	tests.Add("missing config file", tt{
		filename: "./testdata/missing.yaml",
		status:   errors.ErrUsage,
	})
	tests.Add("invalid YAML", tt{
		filename: "./testdata/invalid.yaml",
		status:   errors.ErrUsage,
	})
	tests.Add("current context from file", tt{
		filename: "./testdata/couchstore.yaml",
		current:  "local",
		want: &couchstore.ConnectionProperties{
			Scheme:         "http",
			Host:           "localhost",
			Port:           5984,
			User:           "admin",
			Password:       "abc123",
			RequestTimeout: 5 * time.Second,
		},
	})
	tests.Add("DSN from env", tt{
		filename: "./testdata/couchstore.yaml",
		env: map[string]string{
			"COUCHSTORE_DSN": "https://bob:pw@couch.example.com:6984/",
		},
		current: EnvContext,
		want: &couchstore.ConnectionProperties{
			Scheme:   "https",
			Host:     "couch.example.com",
			Port:     6984,
			User:     "bob",
			Password: "pw",
		},
	})
	tests.Add("file DSN from env, no config", tt{
		env: map[string]string{
			"COUCHSTORE_DSN": "/var/lib/couchstore",
		},
		current: EnvContext,
		want: &couchstore.ConnectionProperties{
			Scheme: "file",
			Path:   "/var/lib/couchstore",
		},
	})
	tests.Add("invalid DSN from env", tt{
		env: map[string]string{
			"COUCHSTORE_DSN": "http://localhost:5984/%xxx",
		},
		status: errors.ErrUsage,
	})
	tests.Add("context from env", tt{
		filename: "./testdata/couchstore.yaml",
		env: map[string]string{
			"COUCHSTORE_CONTEXT": "scratch",
		},
		current: "scratch",
		want: &couchstore.ConnectionProperties{
			Scheme: "file",
			Path:   "/tmp/couchstore",
		},
	})
	tests.Add("context flag overrides env", tt{
		filename: "./testdata/couchstore.yaml",
		env: map[string]string{
			"COUCHSTORE_CONTEXT": "scratch",
		},
		args:    []string{"--context", "staging"},
		current: "staging",
		want: &couchstore.ConnectionProperties{
			Scheme:   "https",
			Host:     "couch.staging.example.com",
			Port:     6984,
			User:     "bootstrap",
			Password: "s3cr3t",
		},
	})
	tests.Add("unknown context", tt{
		filename: "./testdata/couchstore.yaml",
		args:     []string{"--context", "bogus"},
		current:  "bogus",
		status:   errors.ErrUsage,
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		for k, v := range tt.env {
			t.Setenv(k, v)
		}
		c := New()
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		fs.String("context", "", "")
		if err := fs.Parse(tt.args); err != nil {
			t.Fatal(err)
		}
		if err := c.BindContextFlag(fs.Lookup("context")); err != nil {
			t.Fatal(err)
		}
		err := c.Read(tt.filename, log.NewNil())
		if err == nil {
			var cx *couchstore.ConnectionProperties
			cx, err = c.CurrentCx()
			if err == nil {
				if d := cmp.Diff(tt.want, cx); d != "" {
					t.Error(d)
				}
			}
		}
		if status := errors.InspectErrorCode(err); status != tt.status {
			t.Errorf("Unexpected exit status %d: %v", status, err)
		}
		if tt.current != "" && c.CurrentContext != tt.current {
			t.Errorf("Unexpected current context: %q", c.CurrentContext)
		}
	})
}

func TestConfig_StoreNames(t *testing.T) {
	c := readConfig(t, "./testdata/couchstore.yaml")
	want := []string{"customers", "orders"}
	if d := cmp.Diff(want, c.StoreNames()); d != "" {
		t.Error(d)
	}
	if got := New().StoreNames(); len(got) != 0 {
		t.Errorf("Expected no stores, got %v", got)
	}
}

func TestConfig_Params(t *testing.T) {
	type tt struct {
		filename string
		store    string
		want     couchstore.Parameters
		status   int
	}

	tests := testy.NewTable()
	tests.Add("inline views, current context", tt{
		filename: "./testdata/couchstore.yaml",
		store:    "orders",
		want: couchstore.Parameters{
			DatabaseName: "orders",
			DesignName:   "orders_views",
			Views: []couchstore.View{
				{Name: "by_status", MapFunction: ordersMap},
			},
			Connection: couchstore.ConnectionProperties{
				Scheme:         "http",
				Host:           "localhost",
				Port:           5984,
				User:           "admin",
				Password:       "abc123",
				RequestTimeout: 5 * time.Second,
			},
		},
	})
	tests.Add("views file, store context", tt{
		filename: "./testdata/couchstore.yaml",
		store:    "customers",
		want: couchstore.Parameters{
			DatabaseName: "customers",
			DesignName:   "customer_views",
			Views: []couchstore.View{
				{Name: "by_email", MapFunction: "function(doc){emit(doc.email,null)}"},
				{Name: "count", MapFunction: "function(doc){emit(null,1)}", ReduceFunction: "_count"},
			},
			Connection: couchstore.ConnectionProperties{
				Scheme:   "https",
				Host:     "couch.staging.example.com",
				Port:     6984,
				User:     "bootstrap",
				Password: "s3cr3t",
			},
		},
	})
	tests.Add("unknown store", tt{
		filename: "./testdata/couchstore.yaml",
		store:    "bogus",
		status:   errors.ErrUsage,
	})
	tests.Add("ambiguous store", tt{
		filename: "./testdata/couchstore.yaml",
		status:   errors.ErrUsage,
	})
	tests.Add("invalid views file", tt{
		filename: "./testdata/broken-views.yaml",
		store:    "broken",
		status:   errors.ErrData,
	})
	tests.Add("only store, no context", tt{
		filename: "./testdata/broken-views.yaml",
		status:   errors.ErrData,
	})

	tests.Run(t, func(t *testing.T, tt tt) {
		c := readConfig(t, tt.filename)
		got, err := c.Params(tt.store)
		if status := errors.InspectErrorCode(err); status != tt.status {
			t.Fatalf("Unexpected exit status %d: %v", status, err)
		}
		if err != nil {
			return
		}
		if d := cmp.Diff(tt.want, got); d != "" {
			t.Error(d)
		}
	})
}

func TestConfig_Design(t *testing.T) {
	c := New()
	c.Stores["orders"] = &Store{
		Database: "orders",
		Design:   "orders_views",
		Views:    []couchstore.View{{Name: "by_status", MapFunction: ordersMap}},
	}
	if err := c.Read("", log.NewNil()); err != nil {
		t.Fatal(err)
	}
	got, err := c.Design("")
	if err != nil {
		t.Fatal(err)
	}
	want := couchstore.Parameters{
		DatabaseName: "orders",
		DesignName:   "orders_views",
		Views:        []couchstore.View{{Name: "by_status", MapFunction: ordersMap}},
	}
	if d := cmp.Diff(want, got); d != "" {
		t.Error(d)
	}
	if _, err := c.Params(""); errors.InspectErrorCode(err) != errors.ErrUsage {
		t.Errorf("Expected usage error without a context, got %v", err)
	}
	if _, err := c.Views(&Store{ViewsFile: "./testdata/missing.json"}); errors.InspectErrorCode(err) != errors.ErrNoInput {
		t.Errorf("Expected no-input error, got %v", err)
	}
}
