package client

import (
	"net"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
)

// Request is one outgoing request, carrying the callback hooks spec.md §3
// names (acknowledged, rejected, timedOut, responded, cancelled,
// reregistering). Each hook is optional; nil hooks are simply not
// invoked. Hooks run on the endpoint's event-loop goroutine and must not
// block (spec.md §5).
type Request struct {
	Method      codes.Code
	Dest        *net.UDPAddr
	Options     message.Options
	Payload     []byte
	Confirmable bool

	// Observe, when true, attaches Observe=0 to register a relation
	// instead of a plain one-shot request (spec.md §4.6).
	Observe bool

	OnAcknowledged  func()
	OnRejected      func()
	OnTimedOut      func()
	OnResponded     func(*message.Message)
	OnCancelled     func()
	OnReregistering func()

	// token/id, filled in by the endpoint once submitted.
	token message.Token
	mid   int32
}

// NewRequest creates a Confirmable request for method against dest,
// carrying opts and payload.
func NewRequest(method codes.Code, dest *net.UDPAddr, opts message.Options, payload []byte) *Request {
	return &Request{
		Method:      method,
		Dest:        dest,
		Options:     opts,
		Payload:     payload,
		Confirmable: true,
	}
}

func (r *Request) fireAcknowledged() {
	if r.OnAcknowledged != nil {
		r.OnAcknowledged()
	}
}
func (r *Request) fireRejected() {
	if r.OnRejected != nil {
		r.OnRejected()
	}
}
func (r *Request) fireTimedOut() {
	if r.OnTimedOut != nil {
		r.OnTimedOut()
	}
}
func (r *Request) fireResponded(m *message.Message) {
	if r.OnResponded != nil {
		r.OnResponded(m)
	}
}
func (r *Request) fireCancelled() {
	if r.OnCancelled != nil {
		r.OnCancelled()
	}
}
func (r *Request) fireReregistering() {
	if r.OnReregistering != nil {
		r.OnReregistering()
	}
}
