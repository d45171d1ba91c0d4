/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package metrics holds the prometheus collectors for store calls and message dispatch.
// All recorders are safe to use through a nil pointer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "docstore"

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// StoreMetrics counts store calls by operation and outcome and observes their latency.
type StoreMetrics struct {
	Calls   *prometheus.CounterVec
	Latency *prometheus.HistogramVec
}

// NewStoreMetrics creates the store collectors and registers them when reg is not nil.
func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "calls_total",
			Help:      "Store calls by operation, collection and outcome.",
		}, []string{"operation", "collection", "outcome"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg != nil {
		reg.MustRegister(m.Calls, m.Latency)
	}
	return m
}

// Observe records one finished store call.
func (m *StoreMetrics) Observe(operation, collection string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(operation, collection, outcome(err)).Inc()
	m.Latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// DispatchMetrics counts delivered messages by subscription and outcome.
type DispatchMetrics struct {
	Messages *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewDispatchMetrics creates the dispatcher collectors and registers them when reg is not nil.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "messages_total",
			Help:      "Messages handled by subscription and outcome.",
		}, []string{"subscription", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "handler_duration_seconds",
			Help:      "Handler execution time.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"subscription"}),
	}
	if reg != nil {
		reg.MustRegister(m.Messages, m.Duration)
	}
	return m
}

// Observe records one handled message.
func (m *DispatchMetrics) Observe(subscription string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Messages.WithLabelValues(subscription, outcome(err)).Inc()
	m.Duration.WithLabelValues(subscription).Observe(elapsed.Seconds())
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
