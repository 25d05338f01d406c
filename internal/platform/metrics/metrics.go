// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers game and transport counters.
type Collector struct {
	// Game metrics
	RoundsStarted  int64
	DiagnosesTotal int64
	Admitted       int64
	Referred       int64
	Misdiagnosed   int64
	QuickBonuses   int64
	TimeoutsForced int64

	// Event persistence metrics
	EventsWritten    int64
	EventWriteLatSum int64 // nanoseconds
	EventWriteLatMax int64
	EventWriteErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	StartTime time.Time
	mu        sync.RWMutex
}

// Global collector instance
var collector = &Collector{
	StartTime: time.Now(),
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordRound records a started round.
func (c *Collector) RecordRound() {
	atomic.AddInt64(&c.RoundsStarted, 1)
}

// RecordDiagnosis records a resolved diagnosis by outcome.
func (c *Collector) RecordDiagnosis(outcome string, quickBonus bool) {
	atomic.AddInt64(&c.DiagnosesTotal, 1)
	switch outcome {
	case "Admitted":
		atomic.AddInt64(&c.Admitted, 1)
	case "Referred":
		atomic.AddInt64(&c.Referred, 1)
	case "Misdiagnosed":
		atomic.AddInt64(&c.Misdiagnosed, 1)
	}
	if quickBonus {
		atomic.AddInt64(&c.QuickBonuses, 1)
	}
}

// RecordTimeout records a guess forced to misdiagnosis by the deadline.
func (c *Collector) RecordTimeout() {
	atomic.AddInt64(&c.TimeoutsForced, 1)
}

// RecordEventWrite records an event write to the database.
func (c *Collector) RecordEventWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.EventsWritten, 1)
	atomic.AddInt64(&c.EventWriteLatSum, int64(latency))

	// Non-atomic max update is acceptable for metrics.
	if int64(latency) > atomic.LoadInt64(&c.EventWriteLatMax) {
		atomic.StoreInt64(&c.EventWriteLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.EventWriteErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	eventsWritten := atomic.LoadInt64(&c.EventsWritten)

	var eventAvg float64
	if eventsWritten > 0 {
		eventAvg = float64(atomic.LoadInt64(&c.EventWriteLatSum)) / float64(eventsWritten) / 1e6 // ms
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"game": map[string]interface{}{
			"rounds_started":  atomic.LoadInt64(&c.RoundsStarted),
			"diagnoses_total": atomic.LoadInt64(&c.DiagnosesTotal),
			"admitted":        atomic.LoadInt64(&c.Admitted),
			"referred":        atomic.LoadInt64(&c.Referred),
			"misdiagnosed":    atomic.LoadInt64(&c.Misdiagnosed),
			"quick_bonuses":   atomic.LoadInt64(&c.QuickBonuses),
			"timeouts_forced": atomic.LoadInt64(&c.TimeoutsForced),
		},

		"events": map[string]interface{}{
			"written":          eventsWritten,
			"avg_write_lat_ms": eventAvg,
			"max_write_lat_ms": float64(atomic.LoadInt64(&c.EventWriteLatMax)) / 1e6,
			"errors":           atomic.LoadInt64(&c.EventWriteErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")

		snapshot := collector.Snapshot()
		json.NewEncoder(w).Encode(snapshot)
	}
}

// PrometheusHandler returns metrics in Prometheus format.
func PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		c := collector

		fmt.Fprintf(w, "# HELP triage_rounds_started Total rounds started\n")
		fmt.Fprintf(w, "# TYPE triage_rounds_started counter\n")
		fmt.Fprintf(w, "triage_rounds_started %d\n\n", atomic.LoadInt64(&c.RoundsStarted))

		fmt.Fprintf(w, "# HELP triage_diagnoses_total Total diagnoses resolved\n")
		fmt.Fprintf(w, "# TYPE triage_diagnoses_total counter\n")
		fmt.Fprintf(w, "triage_diagnoses_total{outcome=\"admitted\"} %d\n", atomic.LoadInt64(&c.Admitted))
		fmt.Fprintf(w, "triage_diagnoses_total{outcome=\"referred\"} %d\n", atomic.LoadInt64(&c.Referred))
		fmt.Fprintf(w, "triage_diagnoses_total{outcome=\"misdiagnosed\"} %d\n\n", atomic.LoadInt64(&c.Misdiagnosed))

		fmt.Fprintf(w, "# HELP triage_quick_bonuses Total quick-diagnosis bonuses awarded\n")
		fmt.Fprintf(w, "# TYPE triage_quick_bonuses counter\n")
		fmt.Fprintf(w, "triage_quick_bonuses %d\n\n", atomic.LoadInt64(&c.QuickBonuses))

		fmt.Fprintf(w, "# HELP triage_timeouts_forced Guesses resolved by the round deadline\n")
		fmt.Fprintf(w, "# TYPE triage_timeouts_forced counter\n")
		fmt.Fprintf(w, "triage_timeouts_forced %d\n\n", atomic.LoadInt64(&c.TimeoutsForced))

		fmt.Fprintf(w, "# HELP triage_events_written Total events written\n")
		fmt.Fprintf(w, "# TYPE triage_events_written counter\n")
		fmt.Fprintf(w, "triage_events_written %d\n\n", atomic.LoadInt64(&c.EventsWritten))

		fmt.Fprintf(w, "# HELP triage_event_write_errors Total event write errors\n")
		fmt.Fprintf(w, "# TYPE triage_event_write_errors counter\n")
		fmt.Fprintf(w, "triage_event_write_errors %d\n\n", atomic.LoadInt64(&c.EventWriteErrors))

		fmt.Fprintf(w, "# HELP triage_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE triage_ws_connections gauge\n")
		fmt.Fprintf(w, "triage_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP triage_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE triage_ws_messages_total counter\n")
		fmt.Fprintf(w, "triage_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "triage_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
