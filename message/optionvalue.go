package message

import (
	"encoding/binary"
)

const (
	max1ByteNumber = uint32(^uint8(0))
	max2ByteNumber = uint32(^uint16(0))
	max3ByteNumber = uint32(0xffffff)
)

// EncodeUint32 returns the canonical big-endian encoding of value with no
// leading zero bytes; zero encodes as the empty slice (spec.md §4.2).
func EncodeUint32(value uint32) []byte {
	switch {
	case value == 0:
		return nil
	case value <= max1ByteNumber:
		return []byte{byte(value)}
	case value <= max2ByteNumber:
		buf := make([]byte, 2)
		binary.BigEndian.PutUint16(buf, uint16(value))
		return buf
	case value <= max3ByteNumber:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, value)
		return buf[1:]
	default:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, value)
		return buf
	}
}

// DecodeUint32 canonicalises a (possibly non-canonical) big-endian uint
// option value on decode, per the round-trip guarantee in spec.md §4.2.
func DecodeUint32(buf []byte) (uint32, error) {
	if len(buf) > 4 {
		return 0, ErrInvalidValueLength
	}
	var tmp [4]byte
	copy(tmp[4-len(buf):], buf)
	return binary.BigEndian.Uint32(tmp[:]), nil
}
