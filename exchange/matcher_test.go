package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
	"github.com/457948250/coap/message/pool"
)

func TestInboundRequestNewWhenUntracked(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	m := NewMatcher(store)

	disp, ex := m.InboundRequest("peer:1", 42, message.Confirmable)
	require.Equal(t, DispositionNew, disp)
	require.Nil(t, ex)
}

func TestInboundRequestDropsInFlightConfirmableDuplicate(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 42, message.Token{0x1})
	ex := NewExchange(Origin{Remote: "peer:1"}, req)
	store.Track(ex)

	disp, got := m.InboundRequest("peer:1", 42, message.Confirmable)
	require.Equal(t, DispositionDuplicateDrop, disp)
	require.Same(t, ex, got)
}

func TestInboundRequestReplaysCompletedConfirmableDuplicate(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 42, message.Token{0x1})
	ex := NewExchange(Origin{Remote: "peer:1"}, req)
	store.Track(ex)

	resp := p.AcquireMessage(context.Background())
	resp.SetCode(codes.Content)
	store.Complete(ex, resp)

	disp, got := m.InboundRequest("peer:1", 42, message.Confirmable)
	require.Equal(t, DispositionDuplicateReplay, disp)
	require.Same(t, ex, got)
}

func TestInboundRequestDropsNonConfirmableDuplicateEvenIfIncomplete(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 9, nil)
	req.SetType(message.NonConfirmable)
	ex := NewExchange(Origin{Remote: "peer:1"}, req)
	store.Track(ex)

	disp, got := m.InboundRequest("peer:1", 9, message.NonConfirmable)
	require.Equal(t, DispositionDuplicateDrop, disp)
	require.Same(t, ex, got)
}

func TestInboundResponseMatchesByTokenAcrossMessageIDChange(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 1, message.Token{0x7, 0x7})
	ex := NewExchange(Origin{Remote: "peer:1"}, req)
	store.Track(ex)

	// separate response arrives with a different message ID but the
	// request's token.
	disp, got := m.InboundResponse("peer:1", 999, message.Token{0x7, 0x7})
	require.Equal(t, DispositionMatchedResponse, disp)
	require.Same(t, ex, got)
}

func TestInboundResponseFallsBackToMessageIDForBareAck(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 5, nil)
	ex := NewExchange(Origin{Remote: "peer:1"}, req)
	store.Track(ex)

	disp, got := m.InboundResponse("peer:1", 5, nil)
	require.Equal(t, DispositionMatchedResponse, disp)
	require.Same(t, ex, got)
}

func TestInboundResponseUnmatchedWhenUnknown(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	m := NewMatcher(store)

	disp, got := m.InboundResponse("peer:1", 123, message.Token{0xff})
	require.Equal(t, DispositionUnmatched, disp)
	require.Nil(t, got)
}

func TestInboundResponseTokenFromDifferentPeerDoesNotMatch(t *testing.T) {
	store := NewStore(false, true, ExchangeLifetime)
	p := pool.New(16)
	m := NewMatcher(store)

	req := newReq(p, 1, message.Token{0x7, 0x7})
	store.Track(NewExchange(Origin{Remote: "peer:1"}, req))

	disp, got := m.InboundResponse("peer:2", 1, message.Token{0x7, 0x7})
	require.Equal(t, DispositionUnmatched, disp)
	require.Nil(t, got)
}
