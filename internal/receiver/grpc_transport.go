package receiver

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/grpc"
)

// GRPCTransport signals receivers running as separate processes,
// dialing each one lazily the first time it needs to stop it and
// reusing the connection afterward.
type GRPCTransport struct {
	mu        sync.Mutex
	addresses map[int]string
	conns     map[int]*grpc.ClientConn

	dialOpts []grpc.DialOption
}

// NewGRPCTransport returns a GRPCTransport that dials with dialOpts
// (tests typically pass grpc.WithTransportCredentials(insecure...)).
func NewGRPCTransport(dialOpts ...grpc.DialOption) *GRPCTransport {
	return &GRPCTransport{
		addresses: make(map[int]string),
		conns:     make(map[int]*grpc.ClientConn),
		dialOpts:  dialOpts,
	}
}

// Register records the host:port a receiver can be reached at, so a
// later StopReceiver knows where to dial.
func (g *GRPCTransport) Register(streamID int, address string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addresses[streamID] = address
}

// StopReceiver implements Transport by invoking the hand-registered
// Stop RPC over a JSON-coded grpc.ClientConn — no protoc-generated
// stub is involved (see codec.go).
func (g *GRPCTransport) StopReceiver(ctx context.Context, streamID int) error {
	conn, err := g.connFor(streamID)
	if err != nil {
		return err
	}

	req := &stopRequest{StreamID: streamID}
	reply := &stopReply{}
	return conn.Invoke(ctx, stopMethod, req, reply, grpc.ForceCodec(jsonCodec{}))
}

func (g *GRPCTransport) connFor(streamID int) (*grpc.ClientConn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if conn, ok := g.conns[streamID]; ok {
		return conn, nil
	}

	address, ok := g.addresses[streamID]
	if !ok {
		return nil, ErrNoAddress
	}

	conn, err := grpc.NewClient(address, g.dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("receiver: dial %s: %w", address, err)
	}
	g.conns[streamID] = conn
	return conn, nil
}

// Close tears down every dialed connection.
func (g *GRPCTransport) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var firstErr error
	for streamID, conn := range g.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(g.conns, streamID)
	}
	return firstErr
}
