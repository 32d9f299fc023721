package exchange

import "github.com/457948250/coap/message"

// Disposition tells the caller what to do with an inbound message after
// Matcher.InboundRequest or Matcher.InboundResponse has classified it
// against the store (spec.md §4.3).
type Disposition int

const (
	// DispositionNew is a request the endpoint hasn't seen before; hand it
	// to the resource handler.
	DispositionNew Disposition = iota
	// DispositionMatchedResponse is a response/ACK/RST that belongs to a
	// tracked exchange; the matched exchange is returned to the caller.
	DispositionMatchedResponse
	// DispositionDuplicateReplay is a duplicate Confirmable request whose
	// response was already produced; the cached Exchange.Response should
	// be re-sent verbatim, without invoking the handler again.
	DispositionDuplicateReplay
	// DispositionDuplicateDrop is a duplicate that must be dropped
	// silently: a duplicate NonConfirmable, or a duplicate Confirmable
	// whose original handling is still in flight (no response cached yet).
	DispositionDuplicateDrop
	// DispositionUnmatched is a response/ACK/RST whose message ID or
	// token doesn't correspond to any tracked exchange; drop silently.
	DispositionUnmatched
)

// Matcher applies the deduplication/matching policy from spec.md §4.3 on
// top of a Store.
type Matcher struct {
	store *Store
}

func NewMatcher(store *Store) *Matcher {
	return &Matcher{store: store}
}

// InboundRequest classifies an incoming request (CON or NON) against the
// store, by message ID scoped to remote.
func (m *Matcher) InboundRequest(remote string, mid int32, typ message.Type) (Disposition, *Exchange) {
	ex, found := m.store.LookupByID(remote, mid)
	if !found {
		return DispositionNew, nil
	}
	switch {
	case ex.Completed && ex.Response != nil:
		return DispositionDuplicateReplay, ex
	case typ == message.NonConfirmable:
		return DispositionDuplicateDrop, ex
	default:
		// Confirmable retransmission of a request still being handled:
		// drop it, the original ACK/response will arrive once ready.
		return DispositionDuplicateDrop, ex
	}
}

// InboundResponse classifies an incoming ACK/response/RST against the
// store, first by token (responses correlate by token per spec.md §3),
// falling back to message ID for bare ACK/RST which carry no token.
func (m *Matcher) InboundResponse(remote string, mid int32, token message.Token) (Disposition, *Exchange) {
	if len(token) > 0 {
		if ex, found := m.store.LookupByToken(token); found && ex.Origin.Remote == remote {
			return DispositionMatchedResponse, ex
		}
	}
	if ex, found := m.store.LookupByID(remote, mid); found {
		return DispositionMatchedResponse, ex
	}
	return DispositionUnmatched, nil
}
