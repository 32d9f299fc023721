package coder

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
)

func TestEncodeValidatesMessageID(t *testing.T) {
	buf := make([]byte, 64)
	_, err := DefaultCoder.Encode(message.Message{MessageID: 0}, buf)
	require.NoError(t, err)
	_, err = DefaultCoder.Encode(message.Message{MessageID: -1}, buf)
	require.Error(t, err)
	_, err = DefaultCoder.Encode(message.Message{MessageID: math.MaxUint16}, buf)
	require.NoError(t, err)
	_, err = DefaultCoder.Encode(message.Message{MessageID: math.MaxUint16 + 1}, buf)
	require.Error(t, err)
}

func TestEncodeValidatesType(t *testing.T) {
	buf := make([]byte, 64)
	_, err := DefaultCoder.Encode(message.Message{Type: message.Reset}, buf)
	require.NoError(t, err)
	_, err = DefaultCoder.Encode(message.Message{Type: message.Unset}, buf)
	require.Error(t, err)
	_, err = DefaultCoder.Encode(message.Message{Type: 4}, buf)
	require.Error(t, err)
}

func TestEncodeSmallBufferReturnsSizeAndErrTooSmall(t *testing.T) {
	m := message.Message{Code: codes.GET, Token: message.Token{0x1, 0x2, 0x3}, Payload: []byte{0xaa}}
	size, err := DefaultCoder.Size(m)
	require.NoError(t, err)

	_, err = DefaultCoder.Encode(m, make([]byte, size-1))
	require.ErrorIs(t, err, message.ErrTooSmall)
}

func TestEncodeFixedVectors(t *testing.T) {
	buf := make([]byte, 1024)

	n, err := DefaultCoder.Encode(message.Message{}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x40, 0, 0, 0}, buf[:n])

	n, err = DefaultCoder.Encode(message.Message{Code: codes.GET}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x40, byte(codes.GET), 0, 0}, buf[:n])

	n, err = DefaultCoder.Encode(message.Message{Code: codes.GET, Payload: []byte{0x1}}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x40, byte(codes.GET), 0, 0, 0xff, 0x1}, buf[:n])

	n, err = DefaultCoder.Encode(message.Message{
		Code:    codes.GET,
		Payload: []byte{0x1},
		Token:   message.Token{0x1, 0x2, 0x3},
	}, buf)
	require.NoError(t, err)
	require.Equal(t, []byte{0x43, byte(codes.GET), 0, 0, 0x1, 0x2, 0x3, 0xff, 0x1}, buf[:n])
}

func TestRoundTrip(t *testing.T) {
	orig := message.Message{
		Code:      codes.Content,
		Token:     message.Token{0x86, 0xed, 0x9e, 0x84, 0x96, 0x13, 0x13, 0x9f},
		MessageID: 27562,
		Type:      message.NonConfirmable,
		Options: message.Options{
			{ID: message.ETag, Value: []byte{0x14, 0xd2, 0xe, 0x17, 0xe7, 0xa0, 0xb7, 0x91}},
			{ID: message.ContentFormat, Value: message.EncodeUint32(uint32(message.AppJSON))},
			{ID: message.Block2, Value: []byte{0x0e}},
		},
		Payload: []byte("hello"),
	}

	buf := make([]byte, 256)
	n, err := DefaultCoder.Encode(orig, buf)
	require.NoError(t, err)

	var decoded message.Message
	consumed, err := DefaultCoder.Decode(buf[:n], &decoded)
	require.NoError(t, err)
	require.Equal(t, n, consumed)

	require.Equal(t, orig.Code, decoded.Code)
	require.Equal(t, orig.Token, decoded.Token)
	require.Equal(t, orig.MessageID, decoded.MessageID)
	require.Equal(t, orig.Type, decoded.Type)
	require.Equal(t, orig.Payload, decoded.Payload)
	require.Equal(t, orig.Options, decoded.Options)
}

func TestRoundTripRepeatedOptionsAndNoPayload(t *testing.T) {
	orig := message.Message{}
	orig.Options = orig.Options.AddString(message.URIPath, "light").AddString(message.URIPath, "1")
	orig.Code = codes.GET
	orig.Token = message.Token{0xb0, 0x35, 0x4c, 0xf5, 0xd9, 0x72, 0x24, 0x0d}
	orig.Type = message.Confirmable

	buf := make([]byte, 256)
	n, err := DefaultCoder.Encode(orig, buf)
	require.NoError(t, err)
	require.Nil(t, orig.Payload)

	var decoded message.Message
	_, err = DefaultCoder.Decode(buf[:n], &decoded)
	require.NoError(t, err)
	require.Nil(t, decoded.Payload)
	require.Equal(t, orig.Options, decoded.Options)
}

func TestDecodeRejectsTruncatedHeader(t *testing.T) {
	var m message.Message
	_, err := DefaultCoder.Decode([]byte{0x40, 0, 0}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeRejectsBadVersion(t *testing.T) {
	var m message.Message
	_, err := DefaultCoder.Decode([]byte{0x00, 0, 0, 0}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeRejectsOversizedTokenLength(t *testing.T) {
	var m message.Message
	// TKL nibble is 9, which exceeds the 8-byte maximum.
	_, err := DefaultCoder.Decode([]byte{0x49, 0, 0, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
	require.True(t, errors.Is(err, message.ErrInvalidTokenLen) || errors.Is(err, message.ErrMalformed))
}

func TestDecodeRejectsTruncatedToken(t *testing.T) {
	var m message.Message
	_, err := DefaultCoder.Decode([]byte{0x43, 0, 0, 0, 1, 2}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeRejectsOptionExtensionPastEndOfBuffer(t *testing.T) {
	var m message.Message
	// Option header says "delta extend by one more byte" (nibble 13) but
	// the buffer ends right there.
	_, err := DefaultCoder.Decode([]byte{0x40, 0, 0, 0, 0xd0}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeRejectsMarkerWithNoPayload(t *testing.T) {
	var m message.Message
	_, err := DefaultCoder.Decode([]byte{0x40, byte(codes.GET), 0, 0, 0xff}, &m)
	require.ErrorIs(t, err, message.ErrMalformed)
}

func TestDecodeEmptyMessage(t *testing.T) {
	var m message.Message
	n, err := DefaultCoder.Decode([]byte{0x40, 0, 0, 0}, &m)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.True(t, m.IsEmpty())
}
