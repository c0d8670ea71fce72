package pool

import (
	"log/slog"
	"time"
)

type options struct {
	maxConnectionsPerUser   int
	maxConnectionsPerTenant int
	maxTotalConnections     int

	connectionTimeout time.Duration
	pingInterval      time.Duration
	cleanupInterval   time.Duration

	maxMessageQueueSize int
	// backpressureThreshold is diagnostic only: crossing it logs a warning,
	// it never drives a drop decision.
	backpressureThreshold int
	// dropRetentionRatio is the share of the queue the drop policy keeps.
	dropRetentionRatio float64

	poolFullCooldown time.Duration

	logger    *slog.Logger
	observers []Observer
}

func defaultOptions() options {
	return options{
		maxConnectionsPerUser:   8,
		maxConnectionsPerTenant: 500,
		maxTotalConnections:     10000,
		connectionTimeout:       5 * time.Minute,
		pingInterval:            30 * time.Second,
		cleanupInterval:         time.Minute,
		maxMessageQueueSize:     100,
		backpressureThreshold:   50,
		dropRetentionRatio:      0.7,
		poolFullCooldown:        30 * time.Second,
		logger:                  slog.Default(),
	}
}

// Option is a functional configuration type for the Pool.
type Option func(*options)

func WithMaxConnectionsPerUser(n int) Option {
	return func(o *options) { o.maxConnectionsPerUser = n }
}

func WithMaxConnectionsPerTenant(n int) Option {
	return func(o *options) { o.maxConnectionsPerTenant = n }
}

func WithMaxTotalConnections(n int) Option {
	return func(o *options) { o.maxTotalConnections = n }
}

// WithConnectionTimeout sets the quiet period after which the sweep removes
// a connection.
func WithConnectionTimeout(d time.Duration) Option {
	return func(o *options) { o.connectionTimeout = d }
}

func WithPingInterval(d time.Duration) Option {
	return func(o *options) { o.pingInterval = d }
}

func WithCleanupInterval(d time.Duration) Option {
	return func(o *options) { o.cleanupInterval = d }
}

func WithMaxMessageQueueSize(n int) Option {
	return func(o *options) { o.maxMessageQueueSize = n }
}

func WithBackpressureThreshold(n int) Option {
	return func(o *options) { o.backpressureThreshold = n }
}

// WithDropRetentionRatio overrides the share of a full queue the drop policy
// retains. Values outside (0, 1] are ignored.
func WithDropRetentionRatio(r float64) Option {
	return func(o *options) {
		if r > 0 && r <= 1 {
			o.dropRetentionRatio = r
		}
	}
}

// WithPoolFullCooldown sets the window inside which repeated pool_full
// observations for one tenant are coalesced. Zero disables coalescing.
func WithPoolFullCooldown(d time.Duration) Option {
	return func(o *options) { o.poolFullCooldown = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver attaches a listener to the pool's observation stream.
func WithObserver(obs ...Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs...) }
}
