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
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-kivik/kivik/v4"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jotun-server/couchstore/log"
)

const tracerName = "github.com/jotun-server/couchstore"

// State is the state of a bootstrap run.
type State int

// Bootstrap run states.
const (
	Pending State = iota
	Running
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type step int

const (
	stepCheckExists step = iota
	stepCreateDB
	stepInstallDesign
)

func (s step) String() string {
	switch s {
	case stepCheckExists:
		return "check_exists"
	case stepCreateDB:
		return "create_db"
	case stepInstallDesign:
		return "install_design"
	}
	return "unknown"
}

// Run is a single bootstrap run.
type Run struct {
	id   string
	done chan struct{}

	mu    sync.Mutex
	state State
	err   error
	conf  *Confirmation
}

func newRun() *Run {
	return &Run{
		id:   uuid.NewString(),
		done: make(chan struct{}),
	}
}

// ID uniquely identifies the run in log output.
func (r *Run) ID() string { return r.id }

// State returns the current state of the run.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Err returns the reason the run failed, or nil.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Confirmation returns the server's acknowledgement of the installed design
// document, once the run has succeeded.
func (r *Run) Confirmation() *Confirmation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conf
}

// Done is closed when the run reaches Succeeded or Failed.
func (r *Run) Done() <-chan struct{} { return r.done }

// Wait blocks until the run completes, and returns its error, or until ctx is
// done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

func (r *Run) finish(conf *Confirmation, err error) {
	r.mu.Lock()
	r.conf = conf
	r.err = err
	if err != nil {
		r.state = Failed
	} else {
		r.state = Succeeded
	}
	r.mu.Unlock()
	close(r.done)
}

// Manager ensures a database and its design document exist.
type Manager struct {
	params     Parameters
	client     Client
	log        log.Logger
	fatal      func(error)
	ctx        context.Context
	registerer prometheus.Registerer
	metrics    *metrics
	tp         trace.TracerProvider
	tracer     trace.Tracer

	queue queue
	first *Run
}

// New stores params and schedules the first bootstrap run. It does not block.
// Any failure during the run is logged and then passed to the fatal handler.
func New(params Parameters, opts ...Option) *Manager {
	m := &Manager{
		params: params.clone(),
		log:    log.New(),
		ctx:    context.Background(),
		fatal: func(error) {
			os.Exit(1)
		},
	}
	for _, opt := range opts {
		opt.apply(m)
	}
	metrics, err := newMetrics(m.registerer)
	if err != nil {
		m.log.Warnf("Metrics disabled: %s", err)
	}
	m.metrics = metrics
	if m.tp == nil {
		m.tp = otel.GetTracerProvider()
	}
	m.tracer = m.tp.Tracer(tracerName)
	m.first = m.Bootstrap()
	return m
}

// Parameters returns the parameters the Manager was created with.
func (m *Manager) Parameters() Parameters {
	return m.params.clone()
}

// DB returns a new handle to the target database. No request is made to the
// server.
//
// If the connection properties cannot produce a client, the returned handle's
// Err method reports why, with kind InvalidParameters.
func (m *Manager) DB() *kivik.DB {
	client, err := m.params.Connection.KivikClient()
	if err != nil {
		client = invalidKivikClient(err)
	}
	return client.DB(m.params.DatabaseName)
}

// Bootstrap schedules another bootstrap run. Runs execute one at a time, in
// the order they were scheduled.
func (m *Manager) Bootstrap() *Run {
	r := newRun()
	m.queue.submit(func() {
		m.run(r)
	})
	return r
}

// Initial returns the run scheduled by New.
func (m *Manager) Initial() *Run { return m.first }

// Wait blocks until the first run completes, and returns its error.
func (m *Manager) Wait(ctx context.Context) error { return m.first.Wait(ctx) }

// Done is closed when the first run completes.
func (m *Manager) Done() <-chan struct{} { return m.first.Done() }

// State returns the state of the first run.
func (m *Manager) State() State { return m.first.State() }

// Err returns the error of the first run, if it failed.
func (m *Manager) Err() error { return m.first.Err() }

func (m *Manager) run(r *Run) {
	r.setState(Running)
	ctx, span := m.tracer.Start(m.ctx, "couchstore.bootstrap", trace.WithAttributes(
		attribute.String("couchstore.run_id", r.id),
		attribute.String("db.name", m.params.DatabaseName),
		attribute.String("couchstore.design_id", m.params.DesignID()),
	))
	conf, err := m.bootstrap(ctx, r)
	m.metrics.countRun(m.params.DatabaseName, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, KindOf(err).String())
	} else {
		span.SetAttributes(attribute.String("couchstore.design_rev", conf.Rev))
		span.SetStatus(codes.Ok, "")
	}
	span.End()
	if err != nil {
		m.fatal(err)
	}
	r.finish(conf, err)
}

// startStep opens a span for s. The returned function ends it, and records
// the step duration.
func (m *Manager) startStep(ctx context.Context, s step) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := m.tracer.Start(ctx, "couchstore."+s.String())
	return ctx, func(err error) {
		m.metrics.observeStep(m.params.DatabaseName, s, start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (m *Manager) connect() (Client, error) {
	if m.client != nil {
		return m.client, nil
	}
	client, err := m.params.Connection.KivikClient()
	if err != nil {
		return nil, err
	}
	return NewClient(client), nil
}

func (m *Manager) fail(r *Run, kind Kind, msg string, err error) error {
	m.log.Errorf("[%s] %s: %s", r.id, msg, err)
	return &Error{Kind: kind, Message: msg, Err: err}
}

func (m *Manager) empty(r *Run, msg string) error {
	m.log.Warnf("[%s] %s", r.id, msg)
	m.log.Errorf("[%s] %s", r.id, UnexpectedEmptyResult)
	return &Error{Kind: UnexpectedEmptyResult, Message: msg}
}

func (m *Manager) bootstrap(ctx context.Context, r *Run) (*Confirmation, error) {
	name := m.params.DatabaseName
	validate := m.params.Validate
	if m.client != nil {
		// An injected client never dials from the connection properties.
		validate = m.params.ValidateDesign
	}
	if err := validate(); err != nil {
		m.log.Errorf("[%s] %s", r.id, err)
		return nil, err
	}
	client, err := m.connect()
	if err != nil {
		return nil, m.fail(r, InvalidParameters, "Unable to create client", err)
	}
	m.log.Debugf("[%s] Bootstrapping database %q on %s", r.id, name, m.params.Connection)

	var db Database
	s := stepCheckExists
	for {
		stepCtx, done := m.startStep(ctx, s)
		switch s {
		case stepCheckExists:
			exists, err := client.DBExists(stepCtx, name)
			done(err)
			if err != nil {
				return nil, m.fail(r, UnreachableServer, "CouchDB not reachable", err)
			}
			if !exists {
				s = stepCreateDB
				continue
			}
			m.log.Debugf("[%s] Database %q already exists", r.id, name)
			if db = client.DB(name); db == nil {
				return nil, m.empty(r, "No handle returned for existing database")
			}
			s = stepInstallDesign
		case stepCreateDB:
			db, err = client.CreateDB(stepCtx, name)
			done(err)
			if err != nil {
				return nil, m.fail(r, CreationFailed, "Unable to create the database", err)
			}
			if db == nil {
				return nil, m.empty(r, "Silent database creation occurred")
			}
			m.log.Infof("[%s] Database %q created", r.id, name)
			s = stepInstallDesign
		case stepInstallDesign:
			doc := m.params.DesignDoc()
			conf, err := db.PutDesign(stepCtx, doc)
			done(err)
			if err != nil {
				return nil, m.fail(r, DesignInstallFailed, "Creating design caused a failure", err)
			}
			if conf == nil || conf.Rev == "" {
				return nil, m.empty(r, "Silent design creation occurred")
			}
			m.log.Infof("[%s] Design created: %s (rev %s)", r.id, conf.ID, conf.Rev)
			return conf, nil
		}
	}
}
