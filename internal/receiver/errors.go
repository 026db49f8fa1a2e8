package receiver

import "errors"

var (
	// ErrUnknownStream is returned when RegisterReceiver names a
	// stream the tracker was not constructed with.
	ErrUnknownStream = errors.New("receiver: unknown input stream")

	// ErrAlreadyRegistered is returned when RegisterReceiver is called
	// twice for the same stream without an intervening deregistration.
	ErrAlreadyRegistered = errors.New("receiver: stream already has a registered receiver")
)
