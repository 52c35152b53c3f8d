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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "couchstore"

// metrics is nil-safe: a nil *metrics records nothing.
type metrics struct {
	runs  *prometheus.CounterVec
	steps *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}
	m := &metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "bootstrap",
			Name:      "runs_total",
			Help:      "Bootstrap runs, by result kind.",
		}, []string{"database", "result"}),
		steps: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "bootstrap",
			Name:      "step_duration_seconds",
			Help:      "Duration of each bootstrap step's server round trip.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "step"}),
	}
	for _, c := range []prometheus.Collector{m.runs, m.steps} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return nil, err
			}
			switch existing := are.ExistingCollector.(type) {
			case *prometheus.CounterVec:
				m.runs = existing
			case *prometheus.HistogramVec:
				m.steps = existing
			}
		}
	}
	return m, nil
}

func (m *metrics) observeStep(database string, s step, start time.Time) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(database, s.String()).Observe(time.Since(start).Seconds())
}

func (m *metrics) countRun(database string, err error) {
	if m == nil {
		return
	}
	result := "succeeded"
	if err != nil {
		result = KindOf(err).String()
	}
	m.runs.WithLabelValues(database, result).Inc()
}
