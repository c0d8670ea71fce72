package model

import "time"

// PoolStats is a derived, read-only snapshot of the pool. It is never an
// input to admission or drop decisions; those rely on the live indexes only.
type PoolStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveConnections int            `json:"active_connections"`
	TenantConnections map[string]int `json:"tenant_connections"`
	UserConnections   map[string]int `json:"user_connections"`

	MessagesSent    uint64 `json:"messages_sent"`
	BytesWritten    uint64 `json:"bytes_written"`
	MessagesDropped uint64 `json:"messages_dropped"`

	// AvgWriteLatency is a rolling average over the most recent write samples.
	AvgWriteLatency time.Duration `json:"avg_write_latency_ns"`

	Uptime time.Duration `json:"uptime_ns"`
}
