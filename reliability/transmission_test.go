package reliability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStartReturnsJitteredDelayWithinBounds(t *testing.T) {
	p := DefaultParams()
	tr := New(p)

	d := tr.Start()
	require.Equal(t, InTransit, tr.State())
	require.GreaterOrEqual(t, d, p.AckTimeout)
	require.LessOrEqual(t, d, time.Duration(float64(p.AckTimeout)*p.AckRandomFactor)+time.Millisecond)
}

func TestOnTimeoutDoublesUntilMaxRetransmitThenFails(t *testing.T) {
	p := Params{AckTimeout: 10 * time.Millisecond, AckRandomFactor: 1, AckTimeoutScale: 2, MaxRetransmit: 3}
	tr := New(p)

	first := tr.Start()
	require.InDelta(t, float64(10*time.Millisecond), float64(first), float64(time.Millisecond))

	// Start() already consumed the delay for retransmission #1; MAX_RETRANSMIT
	// counts that one too, so MaxRetransmit-1 further OnTimeout calls succeed
	// before the schedule is exhausted.
	prev := first
	for i := int32(1); i < p.MaxRetransmit; i++ {
		next, err := tr.OnTimeout()
		require.NoError(t, err)
		require.Greater(t, next, prev)
		prev = next
	}

	_, err := tr.OnTimeout()
	require.ErrorIs(t, err, ErrMaxRetransmitExceeded)
	require.Equal(t, TimedOut, tr.State())
	require.True(t, tr.IsTerminal())
}

func TestOnAcknowledgeStopsRetransmission(t *testing.T) {
	tr := New(DefaultParams())
	tr.Start()
	tr.OnAcknowledge()
	require.Equal(t, Acknowledged, tr.State())
	require.True(t, tr.IsTerminal())

	_, err := tr.OnTimeout()
	require.ErrorIs(t, err, ErrNotInTransit)
}

func TestOnRejectIsTerminal(t *testing.T) {
	tr := New(DefaultParams())
	tr.Start()
	tr.OnReject()
	require.Equal(t, Rejected, tr.State())
	require.True(t, tr.IsTerminal())
}

func TestCancelFromFreshOrInTransit(t *testing.T) {
	tr := New(DefaultParams())
	tr.Cancel()
	require.Equal(t, Cancelled, tr.State())

	tr2 := New(DefaultParams())
	tr2.Start()
	tr2.Cancel()
	require.Equal(t, Cancelled, tr2.State())
}

func TestNoJitterWhenAckRandomFactorIsOne(t *testing.T) {
	p := Params{AckTimeout: 50 * time.Millisecond, AckRandomFactor: 1, AckTimeoutScale: 2, MaxRetransmit: 1}
	tr := New(p)
	d := tr.Start()
	require.Equal(t, 50*time.Millisecond, d)
}
