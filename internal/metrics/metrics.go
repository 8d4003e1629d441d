// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package metrics holds the Prometheus instruments shared by the locator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrientationUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyloc_orientation_updates_total",
		Help: "Orientation values derived from sensor samples.",
	})

	DegenerateRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skyloc_degenerate_rotations_total",
		Help: "Sensor samples whose rotation could not be derived.",
	})

	FramesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyloc_frames_processed_total",
			Help: "Frames analyzed, by outcome (detected, undetected, error).",
		},
		[]string{"outcome"},
	)

	AnalysisDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skyloc_frame_analysis_seconds",
		Help:    "Time spent analyzing one frame.",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	PublishFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyloc_publish_failures_total",
			Help: "Estimate payloads that could not be delivered, by sink.",
		},
		[]string{"sink"},
	)
)

// Frame outcomes.
const (
	OutcomeDetected   = "detected"
	OutcomeUndetected = "undetected"
	OutcomeError      = "error"
)

func init() {
	prometheus.MustRegister(OrientationUpdates)
	prometheus.MustRegister(DegenerateRotations)
	prometheus.MustRegister(FramesProcessed)
	prometheus.MustRegister(AnalysisDuration)
	prometheus.MustRegister(PublishFailures)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
