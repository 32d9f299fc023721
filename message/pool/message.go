package pool

import (
	"context"

	"go.uber.org/atomic"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
)

// Message wraps message.Message with a context and the hijack/modified
// bookkeeping the exchange pipeline needs, grounded on the teacher's
// message/pool/message.go (trimmed of TCP/signal-message concerns that
// don't apply to this UDP-only engine).
type Message struct {
	ctx      context.Context
	msg      message.Message
	hijacked atomic.Bool
	modified bool
	sequence uint64
}

func newMessage(ctx context.Context) *Message {
	return &Message{
		ctx: ctx,
		msg: message.Message{
			Options:   make(message.Options, 0, 8),
			MessageID: -1,
			Type:      message.Unset,
		},
	}
}

func (m *Message) reset() {
	m.msg.Options = m.msg.Options[:0]
	m.msg.Token = nil
	m.msg.Payload = nil
	m.msg.Code = codes.Empty
	m.msg.MessageID = -1
	m.msg.Type = message.Unset
	m.hijacked.Store(false)
	m.modified = false
	m.sequence = 0
}

func (m *Message) Context() context.Context { return m.ctx }
func (m *Message) SetContext(ctx context.Context) { m.ctx = ctx }

func (m *Message) Message() *message.Message { return &m.msg }

func (m *Message) Code() codes.Code        { return m.msg.Code }
func (m *Message) SetCode(c codes.Code)    { m.msg.Code = c; m.modified = true }
func (m *Message) Type() message.Type      { return m.msg.Type }
func (m *Message) SetType(t message.Type)  { m.msg.Type = t }
func (m *Message) MessageID() int32        { return m.msg.MessageID }
func (m *Message) SetMessageID(id int32)   { m.msg.MessageID = id }
func (m *Message) Token() message.Token    { return m.msg.Token }
func (m *Message) SetToken(t message.Token) { m.msg.Token = t }
func (m *Message) Options() message.Options { return m.msg.Options }
func (m *Message) SetOptions(o message.Options) { m.msg.Options = o }
func (m *Message) Payload() []byte         { return m.msg.Payload }
func (m *Message) SetPayload(p []byte)     { m.msg.Payload = p; m.modified = true }

// IsModified reports whether SetCode or SetPayload has been called on this
// message since acquisition/reset (the other setters do not mark it) (the teacher's ResponseWriter uses this to decide
// whether a response needs to be sent at all).
func (m *Message) IsModified() bool { return m.modified }

func (m *Message) SetSequence(s uint64) { m.sequence = s }
func (m *Message) Sequence() uint64     { return m.sequence }

// Hijack marks the message as owned by the caller: the pipeline will not
// release it back to the pool, because the caller stashed a pointer to it
// (e.g. a block-wise reassembly buffer, or an observation's "last
// notification" slot).
func (m *Message) Hijack() {
	m.hijacked.Store(true)
}

func (m *Message) IsHijacked() bool {
	return m.hijacked.Load()
}

// Clone deep-copies m into dst, leaving dst's context/hijack/modified
// state untouched (the caller decides those).
func (m *Message) Clone(dst *Message) {
	m.msg.Clone(&dst.msg)
}
