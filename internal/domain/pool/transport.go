package pool

// Transport is the two-state write capability a streaming session plugs into
// the pool: a chunked HTTP response, a websocket, or an in-memory double all
// implement the same contract.
type Transport interface {
	// Write pushes one rendered frame to the peer. ok=false signals
	// backpressure: the transport is saturated and the pool must stop
	// writing until the drain continuation fires. A non-nil err is fatal to
	// this session only.
	Write(p []byte) (ok bool, err error)

	// OnDrainable registers the continuation invoked when a saturated
	// transport can accept data again. Registered once, at admission.
	OnDrainable(fn func())

	// Close tears the session down. Errors are advisory; the pool treats
	// the connection as gone regardless.
	Close() error
}
