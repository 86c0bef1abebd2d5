// Package obs holds the Prometheus metric variables for the review-scheduling
// core, grounded on infra/observability.go's promauto var-per-metric style
// (namespace renamed tutu -> reviewcore; the in-memory Tracer/span machinery
// is dropped, since the Notifier callbacks of the core already carry
// lifecycle events and a second parallel tracing facility would duplicate
// that surface).
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Session Metrics ────────────────────────────────────────────────────────

// SessionsStarted counts sessions started.
var SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "session",
	Name:      "started_total",
	Help:      "Total study sessions started.",
})

// SessionsEnded counts sessions ended.
var SessionsEnded = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "session",
	Name:      "ended_total",
	Help:      "Total study sessions ended.",
})

// SessionItemsStudied tracks items studied per ended session.
var SessionItemsStudied = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "reviewcore",
	Subsystem: "session",
	Name:      "items_studied",
	Help:      "Items studied per completed session.",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250},
})

// ─── Gesture Metrics ────────────────────────────────────────────────────────

// GesturesClassified tracks classified gestures by resulting action.
var GesturesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "gesture",
	Name:      "classified_total",
	Help:      "Total gestures classified, by resulting action.",
}, []string{"action"})

// AccidentalOperations tracks gestures rejected as accidental.
var AccidentalOperations = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "gesture",
	Name:      "accidental_total",
	Help:      "Total gestures rejected as accidental (dwell below threshold).",
})

// DwellMillis tracks observed dwell times.
var DwellMillis = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "reviewcore",
	Subsystem: "gesture",
	Name:      "dwell_millis",
	Help:      "Observed dwell time in milliseconds.",
	Buckets:   []float64{100, 200, 500, 1000, 2000, 5000, 10000, 30000},
})

// ─── Queue Metrics ──────────────────────────────────────────────────────────

// QueueDepth tracks the current recommendation queue length.
var QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reviewcore",
	Subsystem: "queue",
	Name:      "depth",
	Help:      "Current number of items in the recommendation queue.",
})

// QueueEmptyEvents counts times the queue was drained to empty.
var QueueEmptyEvents = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "queue",
	Name:      "empty_total",
	Help:      "Total times the recommendation queue emptied.",
})

// ─── Anomaly Metrics ────────────────────────────────────────────────────────

// AnomaliesDetected tracks anomaly detections by kind.
var AnomaliesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "anomaly",
	Name:      "detected_total",
	Help:      "Total anomalies detected, by kind.",
}, []string{"kind"})

// ─── Batch Writer Metrics ───────────────────────────────────────────────────

// BatchPendingUpdates tracks the write-behind buffer's pending item count.
var BatchPendingUpdates = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reviewcore",
	Subsystem: "batch",
	Name:      "pending_updates",
	Help:      "Current number of buffered item updates awaiting flush.",
})

// BatchFlushes counts flush attempts by outcome.
var BatchFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "batch",
	Name:      "flushes_total",
	Help:      "Total flush attempts, by outcome (ok, error).",
}, []string{"outcome"})

// BatchRecovered tracks items/records recovered at startup.
var BatchRecovered = promauto.NewGaugeVec(prometheus.GaugeOpts{
	Namespace: "reviewcore",
	Subsystem: "batch",
	Name:      "recovered",
	Help:      "Items or records applied during the last startup recovery, by kind.",
}, []string{"kind"})

// ─── Scheduler Metrics ──────────────────────────────────────────────────────

// SchedulerTimersActive tracks currently armed per-item promotion timers.
// The single idle-wait timer is not counted.
var SchedulerTimersActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "reviewcore",
	Subsystem: "scheduler",
	Name:      "timers_active",
	Help:      "Currently armed per-item promotion timers.",
})

// SchedulerMessagesSent tracks messages posted to the session outbox, by kind.
var SchedulerMessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "reviewcore",
	Subsystem: "scheduler",
	Name:      "messages_sent_total",
	Help:      "Total messages posted to the session outbox, by kind.",
}, []string{"kind"})
