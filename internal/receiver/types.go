// Package receiver implements the driver-side Receiver Tracker
// (component E): a message-driven actor coordinating remote
// receivers, with a write-ahead log durably recording block metadata
// before it becomes visible to any batch.
package receiver

import (
	"github.com/ctrager/streamcore/internal/streamio"
)

// State is a receiver's lifecycle state as tracked by the driver.
type State int

const (
	Registered State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Registered:
		return "Registered"
	case Terminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// Info is the driver-held record of one receiver: identity, liveness,
// and the last error it reported, if any.
type Info struct {
	StreamID  int
	Type      string
	Host      string
	State     State
	LastError string
}

// message is the tagged variant every inbound request to the tracker
// actor is wrapped in. The actor's run loop exhaustively switches on
// the concrete type; there is no untyped dispatch.
type message interface {
	isMessage()
}

type registerReceiverMsg struct {
	streamID int
	recvType string
	host     string
	reply    chan registerReply
}

type registerReply struct {
	ack bool
	err error
}

type addBlockMsg struct {
	info  streamio.ReceivedBlockInfo
	reply chan addBlockReply
}

type addBlockReply struct {
	accepted bool
}

type reportErrorMsg struct {
	streamID int
	message  string
	err      error
}

type deregisterMsg struct {
	streamID int
	message  string
	err      error
	reply    chan deregisterReply
}

type deregisterReply struct {
	ack bool
}

type getBlocksMsg struct {
	streamID int
	reply    chan []streamio.ReceivedBlockInfo
}

type infoMsg struct {
	reply chan []Info
}

func (registerReceiverMsg) isMessage() {}
func (addBlockMsg) isMessage()         {}
func (reportErrorMsg) isMessage()      {}
func (deregisterMsg) isMessage()       {}
func (getBlocksMsg) isMessage()        {}
func (infoMsg) isMessage()             {}
