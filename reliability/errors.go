package reliability

import "errors"

var (
	// ErrMaxRetransmitExceeded is returned by OnTimeout once all
	// MAX_RETRANSMIT retries have been exhausted without an ACK.
	ErrMaxRetransmitExceeded = errors.New("reliability: max retransmit exceeded")
	// ErrNotInTransit is returned when a timeout fires for a Transmission
	// that has already reached a terminal state, which should not happen
	// if the caller cancels its timer on every state transition but is
	// guarded against here regardless.
	ErrNotInTransit = errors.New("reliability: transmission is not in transit")
)
