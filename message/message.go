// Package message defines the CoAP datagram data model: the message
// header, token, typed options, and payload (RFC 7252 §3), independent of
// how a particular message is obtained (wire decode, pool, or hand-built in
// a test).
package message

import (
	"fmt"

	"github.com/457948250/coap/message/codes"
)

// MaxTokenSize is the maximum number of bytes a CoAP token may occupy.
const MaxTokenSize = 8

// Message is the common base shared by requests, responses, and empty
// messages (ACK/RST/ping). Version is always 1 on the wire and is not
// represented here since it carries no information once decoded.
type Message struct {
	Token   Token
	Options Options
	Code    codes.Code
	Payload []byte

	MessageID int32 // 0..65535 valid; -1 means unset
	Type      Type  // Confirmable..Reset valid; Unset means not yet assigned
}

// IsEmpty reports whether m is an empty message (code 0.00): per RFC 7252
// §4.3 it carries no token, options, or payload.
func (m *Message) IsEmpty() bool {
	return m.Code == codes.Empty
}

func (m *Message) String() string {
	if m == nil {
		return "nil"
	}
	buf := fmt.Sprintf("Code: %v, Token: %v", m.Code, m.Token)
	if path, err := m.Options.Path(); err == nil {
		buf = fmt.Sprintf("%s, Path: %v", buf, path)
	}
	if cf, err := m.Options.ContentFormat(); err == nil {
		buf = fmt.Sprintf("%s, ContentFormat: %v", buf, cf)
	}
	if ValidateType(m.Type) {
		buf = fmt.Sprintf("%s, Type: %v", buf, m.Type)
	}
	if ValidateMID(m.MessageID) {
		buf = fmt.Sprintf("%s, MessageID: %v", buf, m.MessageID)
	}
	if len(m.Payload) > 0 {
		buf = fmt.Sprintf("%s, PayloadLen: %v", buf, len(m.Payload))
	}
	return buf
}

// Clone makes dst a deep copy of m, reusing dst's existing option/payload
// backing arrays when they have enough capacity. Grounded on the teacher's
// pool.Message.Clone, generalized to the plain Message type.
func (m *Message) Clone(dst *Message) {
	dst.Code = m.Code
	dst.Type = m.Type
	dst.MessageID = m.MessageID

	dst.Token = append(dst.Token[:0], m.Token...)

	if m.Payload == nil {
		dst.Payload = nil
	} else {
		dst.Payload = append(dst.Payload[:0], m.Payload...)
	}

	dst.Options = dst.Options[:0]
	for _, o := range m.Options {
		v := append([]byte(nil), o.Value...)
		dst.Options = append(dst.Options, Option{ID: o.ID, Value: v})
	}
}
