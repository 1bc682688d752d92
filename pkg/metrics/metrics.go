// Copyright (c) 2025, The pkgsmith Authors.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics records build pipeline metrics in a Prometheus registry
// and writes them in the node-exporter textfile format, so CI hosts can
// pick them up without running a server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/biovault/pkgsmith/pkg/errors"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageFailures *prometheus.CounterVec
	artifacts     *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pkgsmith_stage_duration_seconds",
				Help:    "Time taken by a recipe lifecycle stage",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
			},
			[]string{"recipe", "stage"},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgsmith_stage_failures_total",
				Help: "Total number of failed recipe stages",
			},
			[]string{"recipe", "stage", "code"},
		),
		artifacts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgsmith_artifacts_copied_total",
				Help: "Total number of files copied into package folders",
			},
			[]string{"recipe"},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pkgsmith_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"status"}, // success or error
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pkgsmith_run_duration_seconds",
				Help:    "Time taken by a complete pipeline run",
				Buckets: []float64{10, 60, 300, 900, 1800, 3600, 7200, 14400},
			},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveStage records a stage duration and, when err is non-nil, a failure
// labelled with the error code.
func (m *Metrics) ObserveStage(recipe, stage string, d time.Duration, err error) {
	m.stageDuration.WithLabelValues(recipe, stage).Observe(d.Seconds())
	if err != nil {
		m.stageFailures.WithLabelValues(recipe, stage, string(errors.CodeOf(err))).Inc()
	}
}

// AddArtifacts counts files copied into a package folder.
func (m *Metrics) AddArtifacts(recipe string, n int) {
	m.artifacts.WithLabelValues(recipe).Add(float64(n))
}

// ObserveRun records a complete pipeline run.
func (m *Metrics) ObserveRun(d time.Duration, success bool) {
	m.runDuration.Observe(d.Seconds())
	status := StatusSuccess
	if !success {
		status = StatusError
	}
	m.runs.WithLabelValues(status).Inc()
}

// WriteTextfile writes every collected metric to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.WrapWithContext(errors.ErrCodeInternal, "failed to write metrics textfile", err,
			map[string]any{"path": path})
	}
	return nil
}
