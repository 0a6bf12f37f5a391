// Copyright 2017 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package restserver

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for a server.
type Metrics struct {
	// Requests counts HTTP requests by method and status code.
	Requests *prometheus.CounterVec

	// Responses counts script results by kind: "string",
	// "stream", "empty", "not_modified", or "error".
	Responses *prometheus.CounterVec

	// Duration observes how long requests take, by method.
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the server's collectors and registers them with
// reg, unless it is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "diffeo",
				Subsystem: "scripted",
				Name:      "requests_total",
				Help:      "HTTP requests for scripts",
			},
			[]string{"method", "code"},
		),
		Responses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "diffeo",
				Subsystem: "scripted",
				Name:      "responses_total",
				Help:      "Script results by kind of representation",
			},
			[]string{"kind"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "diffeo",
				Subsystem: "scripted",
				Name:      "request_duration_seconds",
				Help:      "Time to serve script requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.Responses, m.Duration)
	}
	return m
}

func (m *Metrics) response(kind string) {
	if m != nil {
		m.Responses.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) request(method string, code int, elapsed time.Duration) {
	if m != nil {
		m.Requests.WithLabelValues(method, strconv.Itoa(code)).Inc()
		m.Duration.WithLabelValues(method).Observe(elapsed.Seconds())
	}
}
