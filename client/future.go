package client

import (
	"errors"

	"github.com/457948250/coap/message"
)

// Outcome classifies how a Future resolved, distinguishing a real
// response from the terminal non-error states spec.md §7 calls out:
// Timeout, Rejected, and Cancelled each resolve the future rather than
// leaving it pending.
type Outcome int

const (
	OutcomeResponded Outcome = iota
	OutcomeTimedOut
	OutcomeRejected
	OutcomeCancelled
)

// ErrTimeout, ErrRejected, ErrCancelled are the sentinel errors a Future
// resolves with for the non-Responded outcomes (spec.md §7 taxonomy).
var (
	ErrTimeout   = errors.New("client: request timed out")
	ErrRejected  = errors.New("client: request rejected (RST)")
	ErrCancelled = errors.New("client: request cancelled")
)

// Result is what a Future yields: either a Response (Outcome ==
// OutcomeResponded) or one of the terminal non-response outcomes with
// its matching error.
type Result struct {
	Outcome  Outcome
	Response *message.Message
	Err      error
}

// Future is the single-value promise spec.md §4.7's "send(request) ->
// Future<Response>" describes. It is a buffered channel of size 1,
// mirroring the teacher's sessionResp pattern (SPEC_FULL.md §4.7): the
// event loop writes exactly once and never blocks doing so.
type Future chan Result

func newFuture() Future {
	return make(Future, 1)
}

func (f Future) resolve(r Result) {
	select {
	case f <- r:
	default:
		// Already resolved (e.g. cancelled after a response raced in);
		// the first resolution wins, matching a promise's settle-once
		// semantics.
	}
}

// Wait blocks until the future resolves.
func (f Future) Wait() Result {
	return <-f
}
