package observation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/457948250/coap/message/pool"
)

var msgPool = pool.New(64)

func newNotification() *pool.Message {
	return msgPool.AcquireMessage(context.Background())
}

func TestIsFresh(t *testing.T) {
	base := time.Unix(0, 0)
	assert.True(t, IsFresh(5, 9, base, base.Add(time.Second)))
	assert.False(t, IsFresh(9, 7, base, base.Add(time.Second)))
	// wraparound: old much larger than new, gap > half the counter space
	assert.True(t, IsFresh(1<<23+100, 5, base, base.Add(time.Second)))
	// stale but the 128s timeout has elapsed
	assert.True(t, IsFresh(9, 7, base, base.Add(200*time.Second)))
}

// TestObserveStaleSequence reproduces spec.md §8 scenario S5: V=5 (t=0),
// V=9 (t=1s), V=7 (t=2s) — 5 and 9 accepted, 7 discarded as stale.
func TestObserveStaleSequence(t *testing.T) {
	r := New("peer:5683", []byte{0xAB}, 0, 0)
	base := time.Unix(0, 0)

	assert.True(t, r.AcceptNotification(5, base))
	assert.True(t, r.AcceptNotification(9, base.Add(time.Second)))
	assert.False(t, r.AcceptNotification(7, base.Add(2*time.Second)))
}

func TestRelationEstablishCancel(t *testing.T) {
	r := New("peer:5683", []byte{0x01}, 0, 0)
	assert.False(t, r.Established())
	r.Establish()
	assert.True(t, r.Established())
	r.Cancel()
	assert.True(t, r.Cancelled())
	assert.False(t, r.Established())
}

func TestRelationCancelledDropsNotifications(t *testing.T) {
	r := New("peer:5683", []byte{0x01}, 0, 0)
	r.Cancel()
	assert.False(t, r.AcceptNotification(1, time.Now()))
}

func TestSchedulerStashOnInTransit(t *testing.T) {
	r := New("peer:5683", []byte{0x01}, 0, 0)

	first := newNotification()
	first.SetMessageID(100)
	confirmed, stashed := r.Notify(first, true)
	require.True(t, confirmed)
	require.False(t, stashed)

	second := newNotification()
	_, stashed = r.Notify(second, true)
	assert.True(t, stashed)

	stash, ok := r.OnAcknowledged()
	require.True(t, ok)
	assert.Same(t, second, stash)

	// no more stash on a second ack
	_, ok = r.OnAcknowledged()
	assert.False(t, ok)
}

func TestSchedulerRetransmitPreemptedByStash(t *testing.T) {
	r := New("peer:5683", []byte{0x01}, 0, 0)

	first := newNotification()
	first.SetMessageID(42)
	_, _ = r.Notify(first, true)

	second := newNotification()
	_, _ = r.Notify(second, true)

	stash, reuseID, ok := r.OnRetransmitDue()
	require.True(t, ok)
	assert.Equal(t, int32(42), reuseID)
	assert.Same(t, second, stash)
	assert.Equal(t, int32(42), stash.MessageID())
}

func TestSchedulerCheckIntervalPromotesToConfirmable(t *testing.T) {
	r := New("peer:5683", []byte{0x01}, 2, 0)

	n1 := newNotification()
	confirmed, _ := r.Notify(n1, false)
	assert.False(t, confirmed)
	r.OnAcknowledged() // clear in-transit slot for the next Notify (NON has none, no-op here)

	n2 := newNotification()
	confirmed, _ = r.Notify(n2, false)
	assert.True(t, confirmed, "second notification should be promoted to CON by checkIntervalCount=2")
}

func TestReregistrationDeadline(t *testing.T) {
	rr := NewReregistration([]byte{0xAB}, 2*time.Second)
	now := time.Unix(0, 0)
	rr.Reset(now, 60*time.Second)
	assert.False(t, rr.Due(now.Add(61*time.Second)))
	assert.True(t, rr.Due(now.Add(63*time.Second)))
}
