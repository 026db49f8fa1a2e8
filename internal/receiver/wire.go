package receiver

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/ctrager/streamcore/internal/streamio"
)

func init() {
	// UserMetadata is opaque to the core; register the concrete types
	// the shipped in-memory adapter actually carries through it.
	gob.Register("")
	gob.Register(0)
	gob.Register(int64(0))
}

// encodeBlockInfo gob-encodes a ReceivedBlockInfo for a single WAL
// frame.
func encodeBlockInfo(info streamio.ReceivedBlockInfo) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&info); err != nil {
		return nil, fmt.Errorf("receiver: encode block info: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeBlockInfo reverses encodeBlockInfo.
func decodeBlockInfo(payload []byte) (streamio.ReceivedBlockInfo, error) {
	var info streamio.ReceivedBlockInfo
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&info); err != nil {
		return streamio.ReceivedBlockInfo{}, fmt.Errorf("receiver: decode block info: %w", err)
	}
	return info, nil
}
