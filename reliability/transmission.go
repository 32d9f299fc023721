// Package reliability drives the per-Confirmable-message retransmission
// state machine from spec.md §4.4: exponential backoff with jittered
// initial delay, capped at MAX_RETRANSMIT attempts, advanced by the
// caller's timer wheel rather than by blocking inside this package.
// Grounded on the teacher's backoff.go (a thin alias over
// github.com/cenkalti/backoff/v4) generalized into a constructed-per-CON
// policy instead of one shared package-level type.
package reliability

import (
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// State is where a Transmission sits in the retransmission lifecycle
// (spec.md §4.4's Fresh -> InTransit -> {Acknowledged, Rejected,
// TimedOut, Cancelled}).
type State int

const (
	Fresh State = iota
	InTransit
	Acknowledged
	Rejected
	TimedOut
	Cancelled
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "Fresh"
	case InTransit:
		return "InTransit"
	case Acknowledged:
		return "Acknowledged"
	case Rejected:
		return "Rejected"
	case TimedOut:
		return "TimedOut"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Params carries the tunable constants from spec.md §6 that govern one
// endpoint's retransmission behavior; every Transmission it creates shares
// them.
type Params struct {
	AckTimeout      time.Duration
	AckRandomFactor float64
	AckTimeoutScale float64
	MaxRetransmit   int32
}

// DefaultParams matches RFC 7252 §4.8's recommended constants.
func DefaultParams() Params {
	return Params{
		AckTimeout:      2 * time.Second,
		AckRandomFactor: 1.5,
		AckTimeoutScale: 2.0,
		MaxRetransmit:   4,
	}
}

// Transmission tracks one Confirmable message's retransmission schedule.
// It is not safe for concurrent use; callers drive it from a single timer
// wheel goroutine (spec.md §5).
type Transmission struct {
	backoff    backoff.BackOff
	state      State
	attempts   int32
	maxRetries int32
}

// New creates a Transmission in state Fresh for one CON message, seeded
// with a fresh jittered initial interval per spec.md §4.4's
// ACK_TIMEOUT·random(1, ACK_RANDOM_FACTOR) formula.
func New(p Params) *Transmission {
	initial := jitteredInitialInterval(p.AckTimeout, p.AckRandomFactor)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initial
	eb.RandomizationFactor = 0 // jitter is applied once, up front; not on every step
	eb.Multiplier = p.AckTimeoutScale
	eb.MaxInterval = initial * time.Duration(1<<uint(p.MaxRetransmit+1))
	eb.MaxElapsedTime = 0 // unbounded; MaxRetransmit governs the cap, not elapsed time
	eb.Reset()

	return &Transmission{
		backoff:    backoff.WithMaxRetries(eb, uint64(p.MaxRetransmit)),
		state:      Fresh,
		maxRetries: p.MaxRetransmit,
	}
}

func jitteredInitialInterval(ackTimeout time.Duration, ackRandomFactor float64) time.Duration {
	if ackRandomFactor <= 1 {
		return ackTimeout
	}
	factor := 1 + rand.Float64()*(ackRandomFactor-1) //nolint:gosec // timing jitter, not security-sensitive
	return time.Duration(float64(ackTimeout) * factor)
}

// Start transitions Fresh -> InTransit and returns the delay before the
// first retransmission should fire if no ACK arrives in time.
func (t *Transmission) Start() time.Duration {
	t.state = InTransit
	return t.backoff.NextBackOff()
}

// OnTimeout is called when the retransmit timer fires with no ACK
// received. It returns the delay before the next retransmission, or
// ErrMaxRetransmitExceeded once MAX_RETRANSMIT attempts have all timed
// out, at which point the Transmission moves to TimedOut.
func (t *Transmission) OnTimeout() (time.Duration, error) {
	if t.state != InTransit {
		return 0, ErrNotInTransit
	}
	next := t.backoff.NextBackOff()
	if next == backoff.Stop {
		t.state = TimedOut
		return 0, ErrMaxRetransmitExceeded
	}
	t.attempts++
	return next, nil
}

// OnAcknowledge transitions InTransit -> Acknowledged. Retransmission
// stops.
func (t *Transmission) OnAcknowledge() {
	if t.state == InTransit {
		t.state = Acknowledged
	}
}

// OnReject transitions InTransit -> Rejected (peer sent RST).
func (t *Transmission) OnReject() {
	if t.state == InTransit {
		t.state = Rejected
	}
}

// Cancel transitions to Cancelled from any non-terminal state, used when
// the caller gives up on the exchange (e.g. its context was cancelled).
func (t *Transmission) Cancel() {
	if t.state == Fresh || t.state == InTransit {
		t.state = Cancelled
	}
}

func (t *Transmission) State() State    { return t.state }
func (t *Transmission) Attempts() int32 { return t.attempts }

// IsTerminal reports whether no further transitions are possible.
func (t *Transmission) IsTerminal() bool {
	switch t.state {
	case Acknowledged, Rejected, TimedOut, Cancelled:
		return true
	default:
		return false
	}
}
