package metrics

import "time"

// Recorder receives counters and latencies. Labels are free-form; the
// Prometheus recorder reads the "chain" label.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}

// Event names shared by the components.
const (
	EventRequestCreated    = "request_created"
	EventRequestSettled    = "request_settled"
	EventRequestCancelled  = "request_cancelled"
	EventRequestExpired    = "request_expired"
	EventDuplicateSettle   = "settlement_duplicate"
	EventSettlementAnomaly = "settlement_anomaly"
	EventWatchSettled      = "watch_settled"
	EventWatchTimedOut     = "watch_timed_out"
	EventWatchDegraded     = "watch_degraded"
	EventRouteNotFound     = "route_not_found"
	EventConfirmRejected   = "confirmation_rejected"
)
