package message

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync/atomic"
)

var msgID = uint32(RandMID())

// GetMID generates a process-wide, monotonically increasing message ID.
// A fresh endpoint seeds its own counter (one exchange.Store counter
// shared by all peers) from RandMID instead of
// calling this repeatedly; GetMID exists so that multiple endpoints
// sharing one socket (spec.md §5 "outbound sockets may be shared") never
// collide.
func GetMID() int32 {
	return int32(uint16(atomic.AddUint32(&msgID, 1)))
}

// RandMID returns a cryptographically random 16-bit message ID, falling
// back to math/rand if the system RNG is unavailable.
func RandMID() int32 {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return int32(uint16(mathrand.Uint32())) //nolint:gosec // fallback only
	}
	return int32(uint16(binary.BigEndian.Uint32(b)))
}
