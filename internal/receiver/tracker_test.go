package receiver

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctrager/streamcore/internal/streamio"
	"github.com/ctrager/streamcore/internal/wal"
)

func newTestManager(t *testing.T) *wal.Manager {
	t.Helper()
	m, err := wal.NewManager(t.TempDir(), 1<<20, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestTrackerRegisterUnknownStreamFails(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	err = tr.RegisterReceiver(context.Background(), 99, "kinesis", "host:1")
	assert.ErrorIs(t, err, ErrUnknownStream)
}

func TestTrackerRegisterThenDoubleRegisterFails(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	ctx := context.Background()
	require.NoError(t, tr.RegisterReceiver(ctx, 1, "kinesis", "host:1"))
	err = tr.RegisterReceiver(ctx, 1, "kinesis", "host:1")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)
}

func TestTrackerAddBlockDurablyLogsBeforeEnqueue(t *testing.T) {
	manager := newTestManager(t)
	tr, err := New([]int{1}, manager, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	ctx := context.Background()
	require.NoError(t, tr.RegisterReceiver(ctx, 1, "kinesis", "host:1"))

	info := streamio.ReceivedBlockInfo{StreamID: 1, BlockID: streamio.BlockID{StreamID: 1, ID: "b0"}, NumRecords: 3}
	accepted := tr.AddBlock(ctx, info)
	assert.True(t, accepted)

	blocks := tr.GetReceivedBlockInfo(ctx, 1)
	require.Len(t, blocks, 1)
	assert.NotNil(t, blocks[0].WALSegment, "accepted block must carry its WAL location")
}

func TestTrackerGetReceivedBlockInfoDrainsExactlyOnce(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	ctx := context.Background()
	require.NoError(t, tr.RegisterReceiver(ctx, 1, "kinesis", "host:1"))
	for i := 0; i < 3; i++ {
		tr.AddBlock(ctx, streamio.ReceivedBlockInfo{StreamID: 1, BlockID: streamio.BlockID{StreamID: 1, ID: string(rune('a' + i))}})
	}

	first := tr.GetReceivedBlockInfo(ctx, 1)
	assert.Len(t, first, 3)

	second := tr.GetReceivedBlockInfo(ctx, 1)
	assert.Empty(t, second, "a drained queue must not redeliver blocks")
}

func TestTrackerAddBlockRejectedForUnregisteredStream(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	accepted := tr.AddBlock(context.Background(), streamio.ReceivedBlockInfo{StreamID: 1})
	assert.False(t, accepted)
}

func TestTrackerDeregisterTerminatesAndIsTolerantAfterward(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)
	defer tr.Stop(context.Background())

	ctx := context.Background()
	require.NoError(t, tr.RegisterReceiver(ctx, 1, "kinesis", "host:1"))

	ack := tr.DeregisterReceiver(ctx, 1, "crashed", nil)
	assert.True(t, ack)

	infos := tr.Info(ctx)
	require.Len(t, infos, 1)
	assert.Equal(t, Terminated, infos[0].State)

	// A second deregistration on an already-terminated receiver is a
	// tolerated no-op.
	ack = tr.DeregisterReceiver(ctx, 1, "again", nil)
	assert.True(t, ack)
}

func TestTrackerRecoversQueueFromWAL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blocks")
	manager, err := wal.NewManager(dir, 1<<20, time.Hour)
	require.NoError(t, err)

	tr, err := New([]int{1}, manager, NewLocalTransport())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, tr.RegisterReceiver(ctx, 1, "kinesis", "host:1"))
	for i := 0; i < 5; i++ {
		ok := tr.AddBlock(ctx, streamio.ReceivedBlockInfo{StreamID: 1, BlockID: streamio.BlockID{StreamID: 1, ID: string(rune('a' + i))}})
		require.True(t, ok)
	}
	require.NoError(t, tr.Stop(ctx))

	manager2, err := wal.NewManager(dir, 1<<20, time.Hour)
	require.NoError(t, err)
	tr2, err := New([]int{1}, manager2, NewLocalTransport())
	require.NoError(t, err)
	defer tr2.Stop(ctx)

	require.NoError(t, tr2.RegisterReceiver(ctx, 1, "kinesis", "host:1"))
	recovered := tr2.GetReceivedBlockInfo(ctx, 1)
	require.Len(t, recovered, 5)
	for i, b := range recovered {
		assert.Equal(t, string(rune('a'+i)), b.BlockID.ID)
	}
}

func TestTrackerStopIsIdempotent(t *testing.T) {
	tr, err := New([]int{1}, nil, NewLocalTransport())
	require.NoError(t, err)

	require.NoError(t, tr.Stop(context.Background()))
	require.NoError(t, tr.Stop(context.Background()))
}
