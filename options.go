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

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/jotun-server/couchstore/log"
)

// Option configures a Manager.
type Option interface {
	apply(*Manager)
}

type optionFunc func(*Manager)

func (f optionFunc) apply(m *Manager) { f(m) }

// WithClient makes the Manager use client for every bootstrap run, instead of
// dialing a new kivik client from the connection properties.
func WithClient(client Client) Option {
	return optionFunc(func(m *Manager) {
		m.client = client
	})
}

// WithLogger sets the logger. The default logs to standard output and
// standard error.
func WithLogger(l log.Logger) Option {
	return optionFunc(func(m *Manager) {
		m.log = l
	})
}

// WithFatalHandler replaces the default fatal handler, which terminates the
// process with exit status 1. fn is called on the Manager's worker, after the
// failure has been logged, and before the run is marked done.
func WithFatalHandler(fn func(error)) Option {
	return optionFunc(func(m *Manager) {
		m.fatal = fn
	})
}

// WithRegisterer registers bootstrap metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return optionFunc(func(m *Manager) {
		m.registerer = reg
	})
}

// WithTracerProvider sets the provider of the tracer that records a span for
// each bootstrap run, and a child span for each step. The default is the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return optionFunc(func(m *Manager) {
		m.tp = tp
	})
}

// WithContext sets the context passed to every request made by bootstrap
// runs. The default is context.Background().
func WithContext(ctx context.Context) Option {
	return optionFunc(func(m *Manager) {
		m.ctx = ctx
	})
}
