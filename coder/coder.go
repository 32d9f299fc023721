// Package coder implements the RFC 7252 §3 wire format: the 4-byte
// header, token, options, and optional payload that make up a CoAP-over-UDP
// datagram. Grounded on the teacher's udp/coder/coder.go, generalized from
// a package-level singleton into a zero-value Coder (no state to carry).
package coder

import (
	"encoding/binary"
	"fmt"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
)

// DefaultCoder is the stateless encoder/decoder for CoAP-over-UDP
// messages. There is never a reason to construct more than one.
var DefaultCoder = Coder{}

// Coder has no fields; methods are value receivers so DefaultCoder can be
// copied freely.
type Coder struct{}

const headerSize = 4

// Size reports the number of bytes Encode would need for m, without
// allocating the buffer.
func (Coder) Size(m message.Message) (int, error) {
	if len(m.Token) > message.MaxTokenSize {
		return -1, message.ErrInvalidTokenLen
	}
	size := headerSize + len(m.Token)
	optionsLen, err := m.Options.Marshal(nil)
	if err != nil {
		return -1, err
	}
	size += optionsLen
	if len(m.Payload) > 0 {
		size += 1 + len(m.Payload) // 0xff marker + payload
	}
	return size, nil
}

// Encode writes m into buf per RFC 7252 §3 and returns the number of
// bytes written. If buf is too small it returns the required size and
// message.ErrTooSmall so the caller can grow the buffer and retry.
func (Coder) Encode(m message.Message, buf []byte) (int, error) {
	if !message.ValidateMID(m.MessageID) {
		return -1, fmt.Errorf("coder: invalid message ID %d", m.MessageID)
	}
	if !message.ValidateType(m.Type) {
		return -1, fmt.Errorf("coder: invalid type %v", m.Type)
	}
	size, err := DefaultCoder.Size(m)
	if err != nil {
		return -1, err
	}
	if len(buf) < size {
		return size, message.ErrTooSmall
	}

	buf[0] = (1 << 6) | byte(m.Type)<<4 | byte(len(m.Token)&0xf)
	buf[1] = byte(m.Code)
	binary.BigEndian.PutUint16(buf[2:4], uint16(m.MessageID))
	pos := headerSize

	copy(buf[pos:], m.Token)
	pos += len(m.Token)

	optLen, err := m.Options.Marshal(buf[pos:])
	if err != nil {
		return -1, err
	}
	pos += optLen

	if len(m.Payload) > 0 {
		buf[pos] = 0xff
		pos++
		copy(buf[pos:], m.Payload)
		pos += len(m.Payload)
	}
	return pos, nil
}

// Decode parses a single datagram into m. Per spec.md §4.1 this fails
// with an error wrapping message.ErrMalformed, whose text names the more
// specific cause (the cause itself is not wrapped), for any of:
// total length < 4, TKL > 8, an option delta/length extension running
// past the end of the buffer, or a payload marker with zero bytes after
// it.
func (Coder) Decode(data []byte, m *message.Message) (int, error) {
	if len(data) < headerSize {
		return -1, fmt.Errorf("%w: header truncated", message.ErrMalformed)
	}
	if data[0]>>6 != 1 {
		return -1, fmt.Errorf("%w: bad version", message.ErrMalformed)
	}
	typ := message.Type((data[0] >> 4) & 0x3)
	tokenLen := int(data[0] & 0xf)
	if tokenLen > message.MaxTokenSize {
		return -1, fmt.Errorf("%w: %v", message.ErrMalformed, message.ErrInvalidTokenLen)
	}
	code := codes.Code(data[1])
	messageID := binary.BigEndian.Uint16(data[2:4])
	rest := data[headerSize:]

	if len(rest) < tokenLen {
		return -1, fmt.Errorf("%w: token truncated", message.ErrMalformed)
	}
	var token message.Token
	if tokenLen > 0 {
		token = message.Token(rest[:tokenLen])
	}
	rest = rest[tokenLen:]

	var opts message.Options
	consumed, sawMarker, err := opts.Unmarshal(rest, message.CoapOptionDefs)
	if err != nil {
		return -1, fmt.Errorf("%w: %v", message.ErrMalformed, err)
	}
	rest = rest[consumed:]

	if sawMarker && len(rest) == 0 {
		return -1, fmt.Errorf("%w: empty payload after marker", message.ErrMalformed)
	}

	m.Type = typ
	m.Code = code
	m.MessageID = int32(messageID)
	m.Token = token
	m.Options = opts
	if len(rest) > 0 {
		m.Payload = rest
	} else {
		m.Payload = nil
	}
	return len(data), nil
}
