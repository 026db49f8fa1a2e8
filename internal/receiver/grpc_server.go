package receiver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/ctrager/streamcore/internal/streamio"
	"github.com/ctrager/streamcore/internal/wal"
)

// Wire request/reply types for the inbound driver RPCs, carried over
// jsonCodec the same way as the stop RPC in codec.go.

type registerRequest struct {
	StreamID int    `json:"stream_id"`
	Type     string `json:"type"`
	Host     string `json:"host"`
}

type registerReplyWire struct {
	Ack   bool   `json:"ack"`
	Error string `json:"error,omitempty"`
}

type addBlockRequest struct {
	StreamID     int                `json:"stream_id"`
	BlockID      string             `json:"block_id"`
	NumRecords   int64              `json:"num_records"`
	UserMetadata any                `json:"user_metadata,omitempty"`
	WALPath      string             `json:"wal_path,omitempty"`
	WALOffset    int64              `json:"wal_offset,omitempty"`
	WALLength    int64              `json:"wal_length,omitempty"`
	HasSegment   bool               `json:"has_segment,omitempty"`
}

type addBlockReplyWire struct {
	Accepted bool `json:"accepted"`
}

type reportErrorRequest struct {
	StreamID int    `json:"stream_id"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

type deregisterRequest struct {
	StreamID int    `json:"stream_id"`
	Message  string `json:"message"`
	Error    string `json:"error,omitempty"`
}

type deregisterReplyWire struct {
	Ack bool `json:"ack"`
}

// GRPCServer exposes a Tracker's inbound driver API over gRPC for
// receivers running as separate processes. It is registered against a
// *grpc.Server with the hand-written ServiceDesc below instead of a
// protoc-generated one (see DESIGN.md).
type GRPCServer struct {
	tracker *Tracker
}

// NewGRPCServer wraps tracker for remote access.
func NewGRPCServer(tracker *Tracker) *GRPCServer {
	return &GRPCServer{tracker: tracker}
}

func (s *GRPCServer) registerReceiver(ctx context.Context, req *registerRequest) (*registerReplyWire, error) {
	err := s.tracker.RegisterReceiver(ctx, req.StreamID, req.Type, req.Host)
	if err != nil {
		return &registerReplyWire{Ack: false, Error: err.Error()}, nil
	}
	return &registerReplyWire{Ack: true}, nil
}

func (s *GRPCServer) addBlock(ctx context.Context, req *addBlockRequest) (*addBlockReplyWire, error) {
	info := streamio.ReceivedBlockInfo{
		StreamID:     req.StreamID,
		BlockID:      streamio.BlockID{StreamID: req.StreamID, ID: req.BlockID},
		NumRecords:   req.NumRecords,
		UserMetadata: req.UserMetadata,
	}
	if req.HasSegment {
		info.WALSegment = &wal.FileSegment{Path: req.WALPath, FileOffset: req.WALOffset, Length: req.WALLength}
	}
	accepted := s.tracker.AddBlock(ctx, info)
	return &addBlockReplyWire{Accepted: accepted}, nil
}

func (s *GRPCServer) reportError(ctx context.Context, req *reportErrorRequest) (*emptyReply, error) {
	var err error
	if req.Error != "" {
		err = errString(req.Error)
	}
	s.tracker.ReportError(ctx, req.StreamID, req.Message, err)
	return &emptyReply{}, nil
}

func (s *GRPCServer) deregisterReceiver(ctx context.Context, req *deregisterRequest) (*deregisterReplyWire, error) {
	var err error
	if req.Error != "" {
		err = errString(req.Error)
	}
	ack := s.tracker.DeregisterReceiver(ctx, req.StreamID, req.Message, err)
	return &deregisterReplyWire{Ack: ack}, nil
}

type emptyReply struct{}

type errString string

func (e errString) Error() string { return string(e) }

// ServiceDesc is the hand-written equivalent of a protoc-generated
// grpc.ServiceDesc for the Receiver Tracker's inbound API.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "streamcore.receiver.v1.Tracker",
	HandlerType: (*GRPCServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterReceiver",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &registerRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*GRPCServer).registerReceiver(ctx, req)
			},
		},
		{
			MethodName: "AddBlock",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &addBlockRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*GRPCServer).addBlock(ctx, req)
			},
		},
		{
			MethodName: "ReportError",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &reportErrorRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*GRPCServer).reportError(ctx, req)
			},
		},
		{
			MethodName: "DeregisterReceiver",
			Handler: func(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
				req := &deregisterRequest{}
				if err := dec(req); err != nil {
					return nil, err
				}
				return srv.(*GRPCServer).deregisterReceiver(ctx, req)
			},
		},
	},
	Metadata: "streamcore/receiver.proto",
}
