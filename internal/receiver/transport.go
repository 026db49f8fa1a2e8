package receiver

import (
	"context"
	"fmt"
	"sync"
)

// Transport carries the one message the driver pushes to a receiver:
// the stop signal. The inbound direction (RegisterReceiver, AddBlock,
// ReportError, DeregisterReceiver) is already exposed as plain Go
// methods on Tracker; a remote receiver process reaches them through
// whatever RPC front end wraps the tracker (see GRPCServer), so
// Transport only needs to model the direction Tracker itself
// initiates.
type Transport interface {
	StopReceiver(ctx context.Context, streamID int) error
}

// LocalTransport is used by in-process receivers (tests, streamd run):
// each receiver registers a callback to invoke on stop, rather than
// going over the network.
type LocalTransport struct {
	mu    sync.Mutex
	stops map[int]func(ctx context.Context) error
}

// NewLocalTransport returns an empty LocalTransport.
func NewLocalTransport() *LocalTransport {
	return &LocalTransport{stops: make(map[int]func(ctx context.Context) error)}
}

// Register installs the stop callback for streamID.
func (l *LocalTransport) Register(streamID int, stop func(ctx context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stops[streamID] = stop
}

// Unregister removes streamID's stop callback, e.g. once it has
// already terminated on its own.
func (l *LocalTransport) Unregister(streamID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.stops, streamID)
}

// StopReceiver implements Transport. A stream with no registered
// callback is tolerated — it may already have exited.
func (l *LocalTransport) StopReceiver(ctx context.Context, streamID int) error {
	l.mu.Lock()
	stop := l.stops[streamID]
	l.mu.Unlock()
	if stop == nil {
		return nil
	}
	return stop(ctx)
}

// ErrNoAddress is returned by GRPCTransport.StopReceiver when streamID
// has no registered network address.
var ErrNoAddress = fmt.Errorf("receiver: no registered address for stream")
