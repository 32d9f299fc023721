package observation

import (
	"sync"
	"time"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/pool"
)

// Relation tracks one observe subscription, client or server side
// (spec.md §3's ObserveRelation, §4.6). The endpoint is role-symmetric so
// the same type carries both the client's freshness bookkeeping
// (lastCounter/lastTime) and the server's at-most-one-CON-in-transit
// notification scheduler.
type Relation struct {
	mu sync.Mutex

	Token          message.Token
	SourceEndpoint string // peer address string; Cancel affects only this relation, so cancelling every relation from one source is up to the caller (spec.md §4.6 cancellation clause c)

	established bool
	cancelled   bool

	// client-side freshness state
	hasNotification bool
	lastCounter     uint32
	lastTime        time.Time

	// server-side scheduling state
	inTransit       *pool.Message
	pending         *pool.Message
	notifyCount     int
	lastConfirm     time.Time
	checkCount      int
	checkInterval   time.Duration
}

// New creates a Relation for token against source, with the server-side
// CON-promotion policy (spec.md §4.6 "check-interval counters"):
// checkIntervalCount notifications or checkIntervalTime elapsed, whichever
// comes first, promotes the next NON to a CON.
func New(source string, token message.Token, checkIntervalCount int, checkIntervalTime time.Duration) *Relation {
	return &Relation{
		Token:          token,
		SourceEndpoint: source,
		checkCount:     checkIntervalCount,
		checkInterval:  checkIntervalTime,
		lastConfirm:    time.Now(),
	}
}

// Establish marks the relation active; called when the first response
// carrying an Observe option arrives (client role) or when the server
// accepts a GET with Observe=0 (server role).
func (r *Relation) Establish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.established = true
}

// Established reports whether Establish has been called and Cancel has not.
func (r *Relation) Established() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.established && !r.cancelled
}

// Cancel marks the relation inactive. Per spec.md §4.6, cancellation is
// terminal: Accept/Notify calls after Cancel are no-ops.
func (r *Relation) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

// Cancelled reports whether Cancel has been called.
func (r *Relation) Cancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// AcceptNotification applies the client-side freshness check (spec.md
// §4.6) to an incoming notification carrying Observe counter v, observed
// at now. It returns false (discard silently) for a stale notification;
// otherwise it records (v, now) as the new baseline and returns true.
func (r *Relation) AcceptNotification(v uint32, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return false
	}
	if !r.hasNotification {
		r.hasNotification = true
		r.lastCounter = v
		r.lastTime = now
		return true
	}
	if !IsFresh(r.lastCounter, v, r.lastTime, now) {
		return false
	}
	r.lastCounter = v
	r.lastTime = now
	return true
}
