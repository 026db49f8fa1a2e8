package receiver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ctrager/streamcore/internal/streamio"
	"github.com/ctrager/streamcore/internal/wal"
)

var log = slog.Default()

// Tracker is the driver-side singleton coordinating remote receivers.
// All mutable state (registered receivers, per-stream block queues) is
// owned exclusively by one actor goroutine reading from inbox; public
// methods reach that state only by sending a message over that channel
// (a request/reply, except ReportError, which sends without a reply),
// so the state machine itself never needs its own lock.
type Tracker struct {
	knownStreams map[int]bool
	walManager   *wal.Manager
	transport    Transport

	inbox   chan message
	stopCh  chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	stopErr error

	// actor-owned; touched only inside run().
	receivers map[int]*Info
	queues    map[int][]streamio.ReceivedBlockInfo
}

// New constructs a Tracker for the given set of known input streams.
// If walManager is non-nil, block metadata is durably logged before
// being enqueued, and the tracker recovers its queues by replaying the
// WAL before the actor loop starts serving new messages.
func New(knownStreams []int, walManager *wal.Manager, transport Transport) (*Tracker, error) {
	known := make(map[int]bool, len(knownStreams))
	for _, s := range knownStreams {
		known[s] = true
	}

	t := &Tracker{
		knownStreams: known,
		walManager:   walManager,
		transport:    transport,
		inbox:        make(chan message),
		stopCh:       make(chan struct{}),
		receivers:    make(map[int]*Info),
		queues:       make(map[int][]streamio.ReceivedBlockInfo),
	}

	if walManager != nil {
		if err := t.recover(); err != nil {
			return nil, fmt.Errorf("receiver: recover from write-ahead log: %w", err)
		}
	}

	t.wg.Add(1)
	go t.run()
	return t, nil
}

// recover replays the block-metadata WAL and re-enqueues each record
// under its stream's queue, in the order it was originally written.
func (t *Tracker) recover() error {
	return t.walManager.ReadAll(func(payload []byte) error {
		info, err := decodeBlockInfo(payload)
		if err != nil {
			return err
		}
		t.queues[info.StreamID] = append(t.queues[info.StreamID], info)
		return nil
	})
}

func (t *Tracker) run() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		case msg := <-t.inbox:
			t.handle(msg)
		}
	}
}

func (t *Tracker) handle(msg message) {
	switch m := msg.(type) {
	case *registerReceiverMsg:
		t.handleRegister(m)
	case *addBlockMsg:
		t.handleAddBlock(m)
	case *reportErrorMsg:
		t.handleReportError(m)
	case *deregisterMsg:
		t.handleDeregister(m)
	case *getBlocksMsg:
		t.handleGetBlocks(m)
	case *infoMsg:
		t.handleInfo(m)
	default:
		panic(fmt.Sprintf("receiver: unhandled message type %T", msg))
	}
}

func (t *Tracker) handleRegister(m *registerReceiverMsg) {
	if !t.knownStreams[m.streamID] {
		m.reply <- registerReply{err: ErrUnknownStream}
		return
	}
	if existing, ok := t.receivers[m.streamID]; ok && existing.State == Registered {
		m.reply <- registerReply{err: ErrAlreadyRegistered}
		return
	}
	t.receivers[m.streamID] = &Info{StreamID: m.streamID, Type: m.recvType, Host: m.host, State: Registered}
	m.reply <- registerReply{ack: true}
}

func (t *Tracker) handleAddBlock(m *addBlockMsg) {
	info := t.receivers[m.info.StreamID]
	if info == nil || info.State != Registered {
		m.reply <- addBlockReply{accepted: false}
		return
	}

	if t.walManager != nil {
		payload, err := encodeBlockInfo(m.info)
		if err == nil {
			var seg wal.FileSegment
			seg, err = t.walManager.Write(time.Now(), payload)
			if err == nil {
				m.info.WALSegment = &seg
			}
		}
		if err != nil {
			log.Error("receiver: failed to durably log block", "streamID", m.info.StreamID, "error", err)
			m.reply <- addBlockReply{accepted: false}
			return
		}
	}

	t.queues[m.info.StreamID] = append(t.queues[m.info.StreamID], m.info)
	m.reply <- addBlockReply{accepted: true}
}

func (t *Tracker) handleReportError(m *reportErrorMsg) {
	info := t.receivers[m.streamID]
	if info == nil {
		return
	}
	info.LastError = fmt.Sprintf("%s: %v", m.message, m.err)
}

func (t *Tracker) handleDeregister(m *deregisterMsg) {
	info := t.receivers[m.streamID]
	if info == nil {
		// Never registered (or already cleared); deregistration of an
		// unknown receiver is tolerated, matching the Terminated
		// state's no-op rule.
		m.reply <- deregisterReply{ack: true}
		return
	}
	if info.State == Terminated {
		// Already terminated: a repeated deregistration is a no-op.
		m.reply <- deregisterReply{ack: true}
		return
	}
	info.State = Terminated
	if m.err != nil {
		info.LastError = fmt.Sprintf("%s: %v", m.message, m.err)
	} else if m.message != "" {
		info.LastError = m.message
	}
	m.reply <- deregisterReply{ack: true}
}

func (t *Tracker) handleGetBlocks(m *getBlocksMsg) {
	blocks := t.queues[m.streamID]
	delete(t.queues, m.streamID)
	m.reply <- blocks
}

func (t *Tracker) handleInfo(m *infoMsg) {
	out := make([]Info, 0, len(t.receivers))
	for _, info := range t.receivers {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StreamID < out[j].StreamID })
	m.reply <- out
}

// request sends msg to the actor and returns false if the tracker has
// already stopped.
func (t *Tracker) request(ctx context.Context, msg message) bool {
	select {
	case t.inbox <- msg:
		return true
	case <-t.stopCh:
		return false
	case <-ctx.Done():
		return false
	}
}

// RegisterReceiver registers a remote receiver for streamID. It fails
// if streamID is not one of the tracker's known input streams, or if
// that stream already has an active registration.
func (t *Tracker) RegisterReceiver(ctx context.Context, streamID int, recvType, host string) error {
	reply := make(chan registerReply, 1)
	if !t.request(ctx, &registerReceiverMsg{streamID: streamID, recvType: recvType, host: host, reply: reply}) {
		return fmt.Errorf("receiver: tracker stopped")
	}
	select {
	case r := <-reply:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddBlock durably logs info (if a WAL is configured) and enqueues it
// for the next batch of its stream. It returns false if logging failed
// or the stream has no active receiver registration.
func (t *Tracker) AddBlock(ctx context.Context, info streamio.ReceivedBlockInfo) bool {
	reply := make(chan addBlockReply, 1)
	if !t.request(ctx, &addBlockMsg{info: info, reply: reply}) {
		return false
	}
	select {
	case r := <-reply:
		return r.accepted
	case <-ctx.Done():
		return false
	}
}

// ReportError records message/err against streamID's receiver. It has
// no reply: a failing report must never block the receiver.
func (t *Tracker) ReportError(ctx context.Context, streamID int, message string, err error) {
	t.request(ctx, &reportErrorMsg{streamID: streamID, message: message, err: err})
}

// DeregisterReceiver transitions streamID's receiver to Terminated.
// Calling it on an already-terminated or unknown stream is a tolerated
// no-op.
func (t *Tracker) DeregisterReceiver(ctx context.Context, streamID int, message string, err error) bool {
	reply := make(chan deregisterReply, 1)
	if !t.request(ctx, &deregisterMsg{streamID: streamID, message: message, err: err, reply: reply}) {
		return true
	}
	select {
	case r := <-reply:
		return r.ack
	case <-ctx.Done():
		return false
	}
}

// GetReceivedBlockInfo atomically dequeues every block reported so far
// for streamID; a single call drains the whole queue, so no block is
// ever delivered twice.
func (t *Tracker) GetReceivedBlockInfo(ctx context.Context, streamID int) []streamio.ReceivedBlockInfo {
	reply := make(chan []streamio.ReceivedBlockInfo, 1)
	if !t.request(ctx, &getBlocksMsg{streamID: streamID, reply: reply}) {
		return nil
	}
	select {
	case blocks := <-reply:
		return blocks
	case <-ctx.Done():
		return nil
	}
}

// Info returns a snapshot of every receiver the tracker currently
// knows about, ordered by stream id.
func (t *Tracker) Info(ctx context.Context) []Info {
	reply := make(chan []Info, 1)
	if !t.request(ctx, &infoMsg{reply: reply}) {
		return nil
	}
	select {
	case infos := <-reply:
		return infos
	case <-ctx.Done():
		return nil
	}
}

// Stop signals every registered receiver to stop via the transport,
// joins the actor with a bounded wait (logging any receiver still
// registered if that wait times out), and finally closes the WAL
// manager. Stop is idempotent.
func (t *Tracker) Stop(ctx context.Context) error {
	t.once.Do(func() {
		for _, info := range t.Info(ctx) {
			if info.State != Registered {
				continue
			}
			if err := t.transport.StopReceiver(ctx, info.StreamID); err != nil {
				log.Warn("receiver: failed to signal stop", "streamID", info.StreamID, "error", err)
			}
		}

		close(t.stopCh)

		done := make(chan struct{})
		go func() {
			t.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(10 * time.Second):
			for _, info := range t.activeReceiversUnsafe() {
				log.Warn("receiver: still active at shutdown", "streamID", info.StreamID, "host", info.Host)
			}
		}

		if t.walManager != nil {
			t.stopErr = t.walManager.Close()
		}
	})
	return t.stopErr
}

// activeReceiversUnsafe is only used on the Stop timeout path, after
// the actor has already been asked to exit; reading receivers directly
// here is safe to do non-deterministically when the goal is just a
// best-effort shutdown warning.
func (t *Tracker) activeReceiversUnsafe() []Info {
	var out []Info
	for _, info := range t.receivers {
		if info.State == Registered {
			out = append(out, *info)
		}
	}
	return out
}
