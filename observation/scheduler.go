package observation

import (
	"time"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/pool"
)

// Notify offers a freshly generated notification to the scheduler
// (spec.md §4.6, server role). If no CON notification is currently in
// transit, the caller should send msg now (possibly promoted to CON by
// the check-interval policy, reported via becameConfirmable) and this
// call tracks it as in-transit when it is confirmable. If a CON is
// already in transit, msg is stashed as the pending replacement — any
// previously stashed notification is discarded, since only the freshest
// value matters (spec.md's ObserveRelation.nextControlNotification is a
// single slot, not a queue) — and stashed reports true so the caller must
// not send msg itself.
func (r *Relation) Notify(msg *pool.Message, confirmableByDefault bool) (becameConfirmable bool, stashed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelled {
		return false, false
	}
	if r.inTransit != nil {
		r.pending = msg
		return false, true
	}
	r.notifyCount++
	confirm := confirmableByDefault || r.dueForConfirmLocked()
	if confirm {
		msg.SetType(message.Confirmable)
		r.inTransit = msg
		r.notifyCount = 0
		r.lastConfirm = time.Now()
	}
	return confirm, false
}

func (r *Relation) dueForConfirmLocked() bool {
	if r.checkCount > 0 && r.notifyCount >= r.checkCount {
		return true
	}
	if r.checkInterval > 0 && time.Since(r.lastConfirm) >= r.checkInterval {
		return true
	}
	return false
}

// OnAcknowledged is called when the in-transit CON notification's ACK
// arrives. It clears the in-transit slot and, if a notification was
// stashed while the ACK was outstanding, returns it for the caller to
// send with a freshly allocated message ID (spec.md §4.6: "when the
// in-transit CON is acknowledged, the stash is sent with a new
// message-ID").
func (r *Relation) OnAcknowledged() (stash *pool.Message, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTransit = nil
	if r.pending == nil {
		return nil, false
	}
	stash, r.pending = r.pending, nil
	return stash, true
}

// OnRetransmitDue is called when the in-transit CON's retransmit timer
// fires. If a notification has been stashed since it was sent, the
// retransmission is skipped: the stash is returned for the caller to send
// in its place, reusing the in-transit message's ID and switching to CON
// if the stash was NON (spec.md §4.6's "cancel retransmission" clause).
// When no stash exists, ok is false and the caller proceeds with its
// normal retransmission.
func (r *Relation) OnRetransmitDue() (stash *pool.Message, reuseID int32, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == nil || r.inTransit == nil {
		return nil, 0, false
	}
	reuseID = r.inTransit.MessageID()
	stash, r.pending = r.pending, nil
	stash.SetMessageID(reuseID)
	stash.SetType(message.Confirmable)
	r.inTransit = stash
	return stash, reuseID, true
}

// OnNotificationTimedOut is called when the in-transit CON exhausts its
// retransmissions with no stash available. Per spec.md §4.6 clause (c),
// this cancels every relation sharing the same source endpoint — the
// caller looks those up by SourceEndpoint and calls Cancel on each.
func (r *Relation) OnNotificationTimedOut() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inTransit = nil
	r.cancelled = true
}

// InTransit reports the currently in-flight CON notification, if any.
func (r *Relation) InTransit() *pool.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inTransit
}
