package model

import "time"

// CloseReason explains why a connection was removed from the pool.
type CloseReason string

const (
	CloseClientClosed CloseReason = "client_closed"
	CloseError        CloseReason = "error"
	CloseWriteError   CloseReason = "write_error"
	CloseTimeout      CloseReason = "timeout"
	CloseShutdown     CloseReason = "shutdown"
)

// DropReason explains why a queued message was discarded.
type DropReason string

const (
	DropQueueFull DropReason = "queue_full"
	DropExpired   DropReason = "expired"
)

type ObservationKind string

const (
	ObsConnectionAdded   ObservationKind = "connection_added"
	ObsConnectionRemoved ObservationKind = "connection_removed"
	ObsMessageSent       ObservationKind = "message_sent"
	ObsMessageDropped    ObservationKind = "message_dropped"
	ObsPoolFull          ObservationKind = "pool_full"
	ObsBackpressure      ObservationKind = "backpressure"
)

// Observation is one typed event on the pool's fire-and-forget observation
// stream. Fields irrelevant to a given kind are left zero.
type Observation struct {
	Kind         ObservationKind
	ConnectionID string
	UserID       string
	TenantID     string
	MessageID    string

	// Reason carries a CloseReason for connection_removed and a DropReason
	// for message_dropped.
	Reason string

	// Count is how many messages one message_dropped observation covers; the
	// drop policy truncates in batches and reports them as a single event.
	Count int

	At time.Time
}
