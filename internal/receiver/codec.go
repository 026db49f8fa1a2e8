package receiver

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is registered with grpc's encoding package so the
// receiver transport can speak gRPC without a protoc-generated
// message type (see DESIGN.md for why no .proto toolchain was used).
const jsonCodecName = "streamcore-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements encoding.Codec by marshaling request/reply
// structs as JSON instead of protobuf wire format.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
func (jsonCodec) Name() string { return jsonCodecName }

// stopRequest/stopReply are the wire types for the driver→receiver
// stop RPC, carried over jsonCodec instead of generated protobuf
// structs.
type stopRequest struct {
	StreamID int `json:"stream_id"`
}

type stopReply struct{}

const stopMethod = "/streamcore.receiver.v1.Receiver/Stop"
