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

// Package couchtest provides an in-memory stand-in for the subset of the
// CouchDB HTTP API used by the bootstrap workflow: database existence checks,
// database creation, and design document reads and writes.
package couchtest

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Request records a single request received by the server.
type Request struct {
	Method string
	Path   string
}

func (r Request) String() string {
	return r.Method + " " + r.Path
}

// Server is a fake CouchDB server.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	dbs      map[string]map[string]map[string]any
	failures map[string]int
	requests []Request
}

// New starts a new fake server, which is closed when the test completes.
func New(t *testing.T) *Server {
	t.Helper()
	s := &Server{
		dbs:      map[string]map[string]map[string]any{},
		failures: map[string]int{},
	}
	s.Server = httptest.NewServer(s.router())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Head("/{db}", s.headDB)
	r.Put("/{db}", s.putDB)
	r.Head("/{db}/_design/{ddoc}", s.headDesign)
	r.Get("/{db}/_design/{ddoc}", s.getDesign)
	r.Put("/{db}/_design/{ddoc}", s.putDesign)
	return r
}

// AddDB creates a database directly, without a request.
func (s *Server) AddDB(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; !ok {
		s.dbs[name] = map[string]map[string]any{}
	}
}

// HasDB reports whether the database exists.
func (s *Server) HasDB(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dbs[name]
	return ok
}

// Doc returns a stored document, or nil.
func (s *Server) Doc(db, id string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dbs[db][id]
}

// Fail makes every subsequent request matching method and path fail with the
// given HTTP status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+path] = status
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	reqs := make([]Request, len(s.requests))
	copy(reqs, s.requests)
	return reqs
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := Request{Method: r.Method, Path: r.URL.EscapedPath()}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		status, fail := s.failures[req.String()]
		s.mu.Unlock()
		if fail {
			writeError(w, status, "injected", "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, errName, reason string) {
	writeJSON(w, status, map[string]string{
		"error":  errName,
		"reason": reason,
	})
}

func (s *Server) headDB(w http.ResponseWriter, r *http.Request) {
	if !s.HasDB(chi.URLParam(r, "db")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) putDB(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "db")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[name]; ok {
		writeError(w, http.StatusPreconditionFailed, "file_exists", "The database could not be created, the file already exists.")
		return
	}
	s.dbs[name] = map[string]map[string]any{}
	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

func designID(r *http.Request) string {
	return "_design/" + chi.URLParam(r, "ddoc")
}

func (s *Server) lookup(r *http.Request) (map[string]map[string]any, map[string]any, bool) {
	db, ok := s.dbs[chi.URLParam(r, "db")]
	if !ok {
		return nil, nil, false
	}
	return db, db[designID(r)], true
}

func (s *Server) headDesign(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, doc, ok := s.lookup(r)
	if !ok || doc == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc["_rev"].(string)))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) getDesign(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, doc, ok := s.lookup(r)
	if !ok || doc == nil {
		writeError(w, http.StatusNotFound, "not_found", "missing")
		return
	}
	w.Header().Set("ETag", strconv.Quote(doc["_rev"].(string)))
	writeJSON(w, http.StatusOK, doc)
}

// body returns the request body, decompressing it if the client sent it
// gzipped, as the kivik CouchDB driver does by default.
func body(r *http.Request) (io.ReadCloser, error) {
	if r.Header.Get("Content-Encoding") != "gzip" {
		return r.Body, nil
	}
	return gzip.NewReader(r.Body)
}

func (s *Server) putDesign(w http.ResponseWriter, r *http.Request) {
	var doc map[string]any
	in, err := body(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	defer in.Close()
	if err := json.NewDecoder(in).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db, current, ok := s.lookup(r)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Database does not exist.")
		return
	}
	id := designID(r)
	rev, _ := doc["_rev"].(string)
	var gen int
	if current != nil {
		if rev != current["_rev"] {
			writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
			return
		}
		gen, _ = strconv.Atoi(strings.SplitN(rev, "-", 2)[0])
	} else if rev != "" {
		writeError(w, http.StatusConflict, "conflict", "Document update conflict.")
		return
	}
	newRev := fmt.Sprintf("%d-%032x", gen+1, len(s.requests))
	doc["_id"] = id
	doc["_rev"] = newRev
	db[id] = doc
	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":  true,
		"id":  id,
		"rev": newRev,
	})
}
