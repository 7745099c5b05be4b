// Package metrics provides observability for the clinic server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers performance metrics.
type Collector struct {
	// Tick metrics
	TickCount      int64
	TickLatencySum int64 // nanoseconds
	TickLatencyMax int64
	LastTickTime   time.Time

	// Journal metrics
	JournalWrites    int64
	JournalLatSum    int64
	JournalLatMax    int64
	JournalErrors    int64
	SessionsFinished int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	// System
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

// RecordTick records a simulation tick completion.
func (c *Collector) RecordTick(latency time.Duration) {
	atomic.AddInt64(&c.TickCount, 1)
	atomic.AddInt64(&c.TickLatencySum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.TickLatencyMax) {
		atomic.StoreInt64(&c.TickLatencyMax, int64(latency))
	}

	c.mu.Lock()
	c.LastTickTime = time.Now()
	c.mu.Unlock()
}

// RecordJournalWrite records an event write to the session journal.
func (c *Collector) RecordJournalWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.JournalWrites, 1)
	atomic.AddInt64(&c.JournalLatSum, int64(latency))

	if int64(latency) > atomic.LoadInt64(&c.JournalLatMax) {
		atomic.StoreInt64(&c.JournalLatMax, int64(latency))
	}

	if err != nil {
		atomic.AddInt64(&c.JournalErrors, 1)
	}
}

// RecordSessionFinished counts a completed game session.
func (c *Collector) RecordSessionFinished() {
	atomic.AddInt64(&c.SessionsFinished, 1)
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
	c.mu.RLock()
	defer c.mu.RUnlock()

	tickCount := atomic.LoadInt64(&c.TickCount)
	journalWrites := atomic.LoadInt64(&c.JournalWrites)

	var tickAvg, journalAvg float64
	if tickCount > 0 {
		tickAvg = float64(atomic.LoadInt64(&c.TickLatencySum)) / float64(tickCount) / 1e6 // ms
	}
	if journalWrites > 0 {
		journalAvg = float64(atomic.LoadInt64(&c.JournalLatSum)) / float64(journalWrites) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"tick": map[string]interface{}{
			"count":          tickCount,
			"avg_latency_ms": tickAvg,
			"max_latency_ms": float64(atomic.LoadInt64(&c.TickLatencyMax)) / 1e6,
			"last_tick":      c.LastTickTime.Format(time.RFC3339),
		},

		"journal": map[string]interface{}{
			"writes":            journalWrites,
			"avg_write_lat_ms":  journalAvg,
			"max_write_lat_ms":  float64(atomic.LoadInt64(&c.JournalLatMax)) / 1e6,
			"errors":            atomic.LoadInt64(&c.JournalErrors),
			"sessions_finished": atomic.LoadInt64(&c.SessionsFinished),
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

		fmt.Fprintf(w, "# HELP clinic_tick_count Total simulation ticks\n")
		fmt.Fprintf(w, "# TYPE clinic_tick_count counter\n")
		fmt.Fprintf(w, "clinic_tick_count %d\n\n", atomic.LoadInt64(&c.TickCount))

		fmt.Fprintf(w, "# HELP clinic_tick_latency_max_ms Maximum tick latency\n")
		fmt.Fprintf(w, "# TYPE clinic_tick_latency_max_ms gauge\n")
		fmt.Fprintf(w, "clinic_tick_latency_max_ms %.2f\n\n", float64(atomic.LoadInt64(&c.TickLatencyMax))/1e6)

		fmt.Fprintf(w, "# HELP clinic_journal_writes Total journal writes\n")
		fmt.Fprintf(w, "# TYPE clinic_journal_writes counter\n")
		fmt.Fprintf(w, "clinic_journal_writes %d\n\n", atomic.LoadInt64(&c.JournalWrites))

		fmt.Fprintf(w, "# HELP clinic_journal_write_errors Total journal write errors\n")
		fmt.Fprintf(w, "# TYPE clinic_journal_write_errors counter\n")
		fmt.Fprintf(w, "clinic_journal_write_errors %d\n\n", atomic.LoadInt64(&c.JournalErrors))

		fmt.Fprintf(w, "# HELP clinic_sessions_finished Total finished game sessions\n")
		fmt.Fprintf(w, "# TYPE clinic_sessions_finished counter\n")
		fmt.Fprintf(w, "clinic_sessions_finished %d\n\n", atomic.LoadInt64(&c.SessionsFinished))

		fmt.Fprintf(w, "# HELP clinic_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE clinic_ws_connections gauge\n")
		fmt.Fprintf(w, "clinic_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP clinic_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE clinic_ws_messages_total counter\n")
		fmt.Fprintf(w, "clinic_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "clinic_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
