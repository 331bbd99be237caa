// Package metrics provides observability for the simulation server.
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
	// Scheduler metrics
	AgentCycles      int64
	AgentCycleLatSum int64 // nanoseconds
	AgentCycleLatMax int64
	ActiveSchedulers int64

	// Event metrics
	EventsCreated  int64
	EventsResolved int64
	EventsFailed   int64
	EventsArchived int64

	// Resolver metrics
	ResolverCycles    int64
	ResolverLatSum    int64
	ScheduledTriggers int64

	// Oracle metrics
	OracleCalls    int64
	OracleFailures int64
	OracleTokens   int64
	OracleLatSum   int64

	// Meeting metrics
	MeetingTurns     int64
	MeetingsStarted  int64
	MeetingsResolved int64

	// Persistence metrics
	SnapshotWrites int64
	SnapshotErrors int64

	// WebSocket metrics
	WSConnectionsActive int64
	WSMessagesOut       int64

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

// RecordAgentCycle records one decision cycle of an entity scheduler.
func (c *Collector) RecordAgentCycle(latency time.Duration) {
	atomic.AddInt64(&c.AgentCycles, 1)
	atomic.AddInt64(&c.AgentCycleLatSum, int64(latency))

	// Update max (non-atomic but acceptable for metrics)
	if int64(latency) > atomic.LoadInt64(&c.AgentCycleLatMax) {
		atomic.StoreInt64(&c.AgentCycleLatMax, int64(latency))
	}
}

// RecordSchedulerCount tracks how many entity loops are live.
func (c *Collector) RecordSchedulerCount(delta int64) {
	atomic.AddInt64(&c.ActiveSchedulers, delta)
}

// RecordEventCreated records a new simulation event.
func (c *Collector) RecordEventCreated() {
	atomic.AddInt64(&c.EventsCreated, 1)
}

// RecordEventResolved records a resolution outcome.
func (c *Collector) RecordEventResolved(success bool) {
	if success {
		atomic.AddInt64(&c.EventsResolved, 1)
	} else {
		atomic.AddInt64(&c.EventsFailed, 1)
	}
}

// RecordEventsArchived records events moved to the archive store.
func (c *Collector) RecordEventsArchived(n int64) {
	atomic.AddInt64(&c.EventsArchived, n)
}

// RecordResolverCycle records a full resolver pass.
func (c *Collector) RecordResolverCycle(latency time.Duration) {
	atomic.AddInt64(&c.ResolverCycles, 1)
	atomic.AddInt64(&c.ResolverLatSum, int64(latency))
}

// RecordScheduledTrigger records a due ScheduledEvent being injected.
func (c *Collector) RecordScheduledTrigger() {
	atomic.AddInt64(&c.ScheduledTriggers, 1)
}

// RecordOracleCall records an oracle API call.
func (c *Collector) RecordOracleCall(tokens int, latency time.Duration, err error) {
	atomic.AddInt64(&c.OracleCalls, 1)
	atomic.AddInt64(&c.OracleTokens, int64(tokens))
	atomic.AddInt64(&c.OracleLatSum, int64(latency))
	if err != nil {
		atomic.AddInt64(&c.OracleFailures, 1)
	}
}

// RecordMeetingTurn records one spoken meeting turn.
func (c *Collector) RecordMeetingTurn() {
	atomic.AddInt64(&c.MeetingTurns, 1)
}

// RecordMeetingStarted records a meeting activation.
func (c *Collector) RecordMeetingStarted() {
	atomic.AddInt64(&c.MeetingsStarted, 1)
}

// RecordMeetingResolved records a concluded or aborted meeting.
func (c *Collector) RecordMeetingResolved() {
	atomic.AddInt64(&c.MeetingsResolved, 1)
}

// RecordSnapshotWrite records a persistence snapshot attempt.
func (c *Collector) RecordSnapshotWrite(err error) {
	atomic.AddInt64(&c.SnapshotWrites, 1)
	if err != nil {
		atomic.AddInt64(&c.SnapshotErrors, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records an outbound WebSocket message.
func (c *Collector) RecordWSMessage() {
	atomic.AddInt64(&c.WSMessagesOut, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cycles := atomic.LoadInt64(&c.AgentCycles)
	resolverCycles := atomic.LoadInt64(&c.ResolverCycles)
	oracleCalls := atomic.LoadInt64(&c.OracleCalls)

	var cycleAvg, resolverAvg, oracleAvg float64
	if cycles > 0 {
		cycleAvg = float64(atomic.LoadInt64(&c.AgentCycleLatSum)) / float64(cycles) / 1e6 // ms
	}
	if resolverCycles > 0 {
		resolverAvg = float64(atomic.LoadInt64(&c.ResolverLatSum)) / float64(resolverCycles) / 1e6
	}
	if oracleCalls > 0 {
		oracleAvg = float64(atomic.LoadInt64(&c.OracleLatSum)) / float64(oracleCalls) / 1e9 // seconds
	}

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"scheduler": map[string]interface{}{
			"agent_cycles":     cycles,
			"avg_latency_ms":   cycleAvg,
			"max_latency_ms":   float64(atomic.LoadInt64(&c.AgentCycleLatMax)) / 1e6,
			"active_loops":     atomic.LoadInt64(&c.ActiveSchedulers),
		},

		"events": map[string]interface{}{
			"created":  atomic.LoadInt64(&c.EventsCreated),
			"resolved": atomic.LoadInt64(&c.EventsResolved),
			"failed":   atomic.LoadInt64(&c.EventsFailed),
			"archived": atomic.LoadInt64(&c.EventsArchived),
		},

		"resolver": map[string]interface{}{
			"cycles":             resolverCycles,
			"avg_latency_ms":     resolverAvg,
			"scheduled_triggers": atomic.LoadInt64(&c.ScheduledTriggers),
		},

		"oracle": map[string]interface{}{
			"calls":           oracleCalls,
			"failures":        atomic.LoadInt64(&c.OracleFailures),
			"tokens_used":     atomic.LoadInt64(&c.OracleTokens),
			"avg_latency_sec": oracleAvg,
		},

		"meetings": map[string]interface{}{
			"started":  atomic.LoadInt64(&c.MeetingsStarted),
			"resolved": atomic.LoadInt64(&c.MeetingsResolved),
			"turns":    atomic.LoadInt64(&c.MeetingTurns),
		},

		"persistence": map[string]interface{}{
			"snapshot_writes": atomic.LoadInt64(&c.SnapshotWrites),
			"snapshot_errors": atomic.LoadInt64(&c.SnapshotErrors),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
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

		fmt.Fprintf(w, "# HELP pm1_agent_cycles Total entity decision cycles\n")
		fmt.Fprintf(w, "# TYPE pm1_agent_cycles counter\n")
		fmt.Fprintf(w, "pm1_agent_cycles %d\n\n", atomic.LoadInt64(&c.AgentCycles))

		fmt.Fprintf(w, "# HELP pm1_active_schedulers Live entity scheduler loops\n")
		fmt.Fprintf(w, "# TYPE pm1_active_schedulers gauge\n")
		fmt.Fprintf(w, "pm1_active_schedulers %d\n\n", atomic.LoadInt64(&c.ActiveSchedulers))

		fmt.Fprintf(w, "# HELP pm1_events_total Simulation events by lifecycle stage\n")
		fmt.Fprintf(w, "# TYPE pm1_events_total counter\n")
		fmt.Fprintf(w, "pm1_events_total{stage=\"created\"} %d\n", atomic.LoadInt64(&c.EventsCreated))
		fmt.Fprintf(w, "pm1_events_total{stage=\"resolved\"} %d\n", atomic.LoadInt64(&c.EventsResolved))
		fmt.Fprintf(w, "pm1_events_total{stage=\"failed\"} %d\n", atomic.LoadInt64(&c.EventsFailed))
		fmt.Fprintf(w, "pm1_events_total{stage=\"archived\"} %d\n\n", atomic.LoadInt64(&c.EventsArchived))

		fmt.Fprintf(w, "# HELP pm1_resolver_cycles Total resolver passes\n")
		fmt.Fprintf(w, "# TYPE pm1_resolver_cycles counter\n")
		fmt.Fprintf(w, "pm1_resolver_cycles %d\n\n", atomic.LoadInt64(&c.ResolverCycles))

		fmt.Fprintf(w, "# HELP pm1_oracle_calls Total oracle API requests\n")
		fmt.Fprintf(w, "# TYPE pm1_oracle_calls counter\n")
		fmt.Fprintf(w, "pm1_oracle_calls %d\n\n", atomic.LoadInt64(&c.OracleCalls))

		fmt.Fprintf(w, "# HELP pm1_oracle_failures Total failed oracle requests\n")
		fmt.Fprintf(w, "# TYPE pm1_oracle_failures counter\n")
		fmt.Fprintf(w, "pm1_oracle_failures %d\n\n", atomic.LoadInt64(&c.OracleFailures))

		fmt.Fprintf(w, "# HELP pm1_oracle_tokens_used Total tokens consumed\n")
		fmt.Fprintf(w, "# TYPE pm1_oracle_tokens_used counter\n")
		fmt.Fprintf(w, "pm1_oracle_tokens_used %d\n\n", atomic.LoadInt64(&c.OracleTokens))

		fmt.Fprintf(w, "# HELP pm1_meeting_turns Total meeting turns executed\n")
		fmt.Fprintf(w, "# TYPE pm1_meeting_turns counter\n")
		fmt.Fprintf(w, "pm1_meeting_turns %d\n\n", atomic.LoadInt64(&c.MeetingTurns))

		fmt.Fprintf(w, "# HELP pm1_snapshot_writes Total persistence snapshot writes\n")
		fmt.Fprintf(w, "# TYPE pm1_snapshot_writes counter\n")
		fmt.Fprintf(w, "pm1_snapshot_writes %d\n", atomic.LoadInt64(&c.SnapshotWrites))

		fmt.Fprintf(w, "# HELP pm1_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE pm1_ws_connections gauge\n")
		fmt.Fprintf(w, "pm1_ws_connections %d\n", atomic.LoadInt64(&c.WSConnectionsActive))
	}
}
