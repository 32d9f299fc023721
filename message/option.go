package message

import (
	"encoding/binary"
)

// OptionID identifies an option by its registered number (RFC 7252 §5.10).
type OptionID uint16

// Option numbers recognised by this package (RFC 7252 §12.2, RFC 7959,
// RFC 7641).
const (
	IfMatch       OptionID = 1
	URIHost       OptionID = 3
	ETag          OptionID = 4
	IfNoneMatch   OptionID = 5
	Observe       OptionID = 6
	URIPort       OptionID = 7
	LocationPath  OptionID = 8
	URIPath       OptionID = 11
	ContentFormat OptionID = 12
	MaxAge        OptionID = 14
	URIQuery      OptionID = 15
	Accept        OptionID = 17
	LocationQuery OptionID = 20
	Block2        OptionID = 23
	Block1        OptionID = 27
	Size2         OptionID = 28
	ProxyURI      OptionID = 35
	ProxyScheme   OptionID = 39
	Size1         OptionID = 60
)

// IsCritical reports whether an unrecognized option of this number must
// cause the message to be rejected (RFC 7252 §5.4.1): critical iff odd.
func (id OptionID) IsCritical() bool {
	return id&1 == 1
}

// IsUnsafe reports whether a proxy may not forward the message without
// understanding this option (RFC 7252 §5.4.2): unsafe iff bit 1 is set.
func (id OptionID) IsUnsafe() bool {
	return id&2 == 2
}

// IsNoCacheKey reports whether this option must be excluded from a cache
// key when it is unsafe but not part of the cache key (RFC 7252 §5.4.2):
// NoCacheKey iff bits 0b11110 of the number equal 0b11100.
func (id OptionID) IsNoCacheKey() bool {
	return id&0x1e == 0x1c
}

// ValueFormat describes the canonical wire representation of an option's
// value (RFC 7252 §3.2).
type ValueFormat uint8

const (
	ValueUnknown ValueFormat = iota
	ValueEmpty
	ValueOpaque
	ValueUint
	ValueString
)

// OptionDef carries the registered constraints for one option number.
type OptionDef struct {
	ValueFormat ValueFormat
	MinLen      int
	MaxLen      int
	Repeatable  bool
}

// CoapOptionDefs is the registry of recognised option numbers from
// spec.md §3/§4.2.
var CoapOptionDefs = map[OptionID]OptionDef{
	IfMatch:       {ValueFormat: ValueOpaque, MinLen: 0, MaxLen: 8, Repeatable: true},
	URIHost:       {ValueFormat: ValueString, MinLen: 1, MaxLen: 255},
	ETag:          {ValueFormat: ValueOpaque, MinLen: 1, MaxLen: 8, Repeatable: true},
	IfNoneMatch:   {ValueFormat: ValueEmpty, MinLen: 0, MaxLen: 0},
	Observe:       {ValueFormat: ValueUint, MinLen: 0, MaxLen: 3},
	URIPort:       {ValueFormat: ValueUint, MinLen: 0, MaxLen: 2},
	LocationPath:  {ValueFormat: ValueString, MinLen: 0, MaxLen: 255, Repeatable: true},
	URIPath:       {ValueFormat: ValueString, MinLen: 0, MaxLen: 255, Repeatable: true},
	ContentFormat: {ValueFormat: ValueUint, MinLen: 0, MaxLen: 2},
	MaxAge:        {ValueFormat: ValueUint, MinLen: 0, MaxLen: 4},
	URIQuery:      {ValueFormat: ValueString, MinLen: 0, MaxLen: 255, Repeatable: true},
	Accept:        {ValueFormat: ValueUint, MinLen: 0, MaxLen: 2},
	LocationQuery: {ValueFormat: ValueString, MinLen: 0, MaxLen: 255, Repeatable: true},
	Block2:        {ValueFormat: ValueUint, MinLen: 0, MaxLen: 3},
	Block1:        {ValueFormat: ValueUint, MinLen: 0, MaxLen: 3},
	Size2:         {ValueFormat: ValueUint, MinLen: 0, MaxLen: 4},
	ProxyURI:      {ValueFormat: ValueString, MinLen: 1, MaxLen: 1034},
	ProxyScheme:   {ValueFormat: ValueString, MinLen: 1, MaxLen: 255},
	Size1:         {ValueFormat: ValueUint, MinLen: 0, MaxLen: 4},
}

// Option is a single (number, value) pair as carried on the wire. The
// canonical representation of the value depends on the option's
// registered ValueFormat; see optionvalue.go for uint/string helpers.
type Option struct {
	ID    OptionID
	Value []byte
}

const (
	extendByteCode   = 13
	extendByteAddend = 13
	extendWordCode   = 14
	extendWordAddend = 269
	extendReserved   = 15
)

func extend(n int) (nibble, ext int) {
	switch {
	case n >= extendWordAddend:
		return extendWordCode, n - extendWordAddend
	case n >= extendByteAddend:
		return extendByteCode, n - extendByteAddend
	default:
		return n, 0
	}
}

// marshal writes o to buf (or just measures the size if buf is nil),
// using delta against previousID. It returns the number of bytes written
// or needed.
func (o Option) marshal(buf []byte, previousID OptionID) (int, error) {
	delta := int(o.ID) - int(previousID)
	if delta < 0 {
		return -1, ErrInvalidEncoding
	}
	dNib, dExt := extend(delta)
	lNib, lExt := extend(len(o.Value))

	size := 1
	if dNib >= extendByteCode {
		if dNib == extendByteCode {
			size++
		} else {
			size += 2
		}
	}
	if lNib >= extendByteCode {
		if lNib == extendByteCode {
			size++
		} else {
			size += 2
		}
	}
	size += len(o.Value)

	if buf == nil {
		return size, nil
	}
	if len(buf) < size {
		return size, ErrTooSmall
	}

	buf[0] = byte(dNib<<4) | byte(lNib)
	pos := 1
	pos += writeExt(buf[pos:], dNib, dExt)
	pos += writeExt(buf[pos:], lNib, lExt)
	copy(buf[pos:], o.Value)
	return size, nil
}

func writeExt(buf []byte, nibble, ext int) int {
	switch nibble {
	case extendByteCode:
		buf[0] = byte(ext)
		return 1
	case extendWordCode:
		binary.BigEndian.PutUint16(buf, uint16(ext))
		return 2
	default:
		return 0
	}
}

func parseExt(data []byte, nibble int) (consumed, value int, err error) {
	switch nibble {
	case extendReserved:
		return 0, 0, ErrInvalidOptionExtend
	case extendByteCode:
		if len(data) < 1 {
			return 0, 0, ErrOptionTruncated
		}
		return 1, int(data[0]) + extendByteAddend, nil
	case extendWordCode:
		if len(data) < 2 {
			return 0, 0, ErrOptionTruncated
		}
		return 2, int(binary.BigEndian.Uint16(data[:2])) + extendWordAddend, nil
	default:
		return 0, nibble, nil
	}
}

// unmarshalOption parses one option entry (header + value) out of data, given
// the running previous option number. It does not consume the 0xff
// payload marker; callers check for it first.
func unmarshalOption(data []byte, previousID OptionID, defs map[OptionID]OptionDef) (opt Option, consumed int, err error) {
	if len(data) < 1 {
		return Option{}, 0, ErrOptionTruncated
	}
	deltaNib := int(data[0] >> 4)
	lenNib := int(data[0] & 0x0f)
	pos := 1

	n, delta, err := parseExt(data[pos:], deltaNib)
	if err != nil {
		return Option{}, 0, err
	}
	pos += n

	n, length, err := parseExt(data[pos:], lenNib)
	if err != nil {
		return Option{}, 0, err
	}
	pos += n

	if len(data) < pos+length {
		return Option{}, 0, ErrOptionTruncated
	}
	if int(previousID)+delta > 0xffff {
		return Option{}, 0, ErrInvalidEncoding
	}
	id := previousID + OptionID(delta)

	value := data[pos : pos+length]
	pos += length

	if def, ok := defs[id]; ok {
		if length < def.MinLen || length > def.MaxLen {
			return Option{}, 0, ErrInvalidValueLength
		}
	} else if length > 65535 {
		return Option{}, 0, ErrInvalidValueLength
	}

	return Option{ID: id, Value: value}, pos, nil
}
