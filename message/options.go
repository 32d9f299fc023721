package message

import (
	"strings"
)

// Options is an ordered sequence of Option, always kept sorted by ID per
// the wire requirement that options be emitted in non-decreasing number
// order (spec.md §4.1, invariant 2 in §8).
type Options []Option

// Find returns the [first, last) index range of options with the given
// ID, searching with two binary searches (lower/upper bound) since
// repeated options of the same number are kept contiguous.
func (o Options) Find(id OptionID) (first, last int, err error) {
	lo := o.lowerBound(id)
	hi := o.upperBound(id)
	if lo == hi {
		return -1, -1, ErrOptionNotFound
	}
	return lo, hi, nil
}

func (o Options) lowerBound(id OptionID) int {
	lo, hi := 0, len(o)
	for lo < hi {
		mid := (lo + hi) / 2
		if o[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (o Options) upperBound(id OptionID) int {
	lo, hi := 0, len(o)
	for lo < hi {
		mid := (lo + hi) / 2
		if o[mid].ID <= id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// HasOption reports whether any option with this ID is present.
func (o Options) HasOption(id OptionID) bool {
	_, _, err := o.Find(id)
	return err == nil
}

// Add inserts opt in sorted position, after any existing options that
// share its ID (so repeated options keep arrival order).
func (o Options) Add(opt Option) Options {
	idx := o.upperBound(opt.ID)
	o = append(o, Option{})
	copy(o[idx+1:], o[idx:])
	o[idx] = opt
	return o
}

// Set replaces every option with opt.ID with opt alone (single-valued
// options such as Content-Format).
func (o Options) Set(opt Option) Options {
	lo, hi := o.lowerBound(opt.ID), o.upperBound(opt.ID)
	if lo == hi {
		return o.Add(opt)
	}
	o[lo] = opt
	o = append(o[:lo+1], o[hi:]...)
	return o
}

// Remove deletes every option with the given ID.
func (o Options) Remove(id OptionID) Options {
	lo, hi := o.lowerBound(id), o.upperBound(id)
	if lo == hi {
		return o
	}
	return append(o[:lo], o[hi:]...)
}

// Marshal encodes o into buf (or just measures it if buf is nil, teacher
// idiom from message/options.go's size-probe Marshal).
func (o Options) Marshal(buf []byte) (int, error) {
	prev := OptionID(0)
	length := 0
	probe := buf == nil
	for _, opt := range o {
		var n int
		var err error
		if probe {
			n, err = opt.marshal(nil, prev)
		} else {
			n, err = opt.marshal(buf[length:], prev)
		}
		switch {
		case err == nil:
		case err == ErrTooSmall:
			probe = true
		default:
			return -1, err
		}
		length += n
		prev = opt.ID
	}
	if probe && buf != nil {
		return length, ErrTooSmall
	}
	return length, nil
}

// Unmarshal decodes options from data until it sees the 0xff payload
// marker or runs out of bytes. It returns the number of bytes consumed
// (including the marker, if present) and whether a marker was seen, so
// callers can distinguish "no payload" from "marker with nothing after
// it".
func (o *Options) Unmarshal(data []byte, defs map[OptionID]OptionDef) (consumed int, sawMarker bool, err error) {
	prev := OptionID(0)
	for len(data) > 0 {
		if data[0] == 0xff {
			return consumed + 1, true, nil
		}
		opt, n, err := unmarshalOption(data, prev, defs)
		if err != nil {
			return -1, false, err
		}
		*o = append(*o, opt)
		prev = opt.ID
		consumed += n
		data = data[n:]
	}
	return consumed, false, nil
}

// FirstCriticalUnknown returns the ID of the first option present that is
// both unrecognised and critical, used to build a 4.02 Bad Option reply
// (spec.md §4.1 "Unknown critical options").
func (o Options) FirstCriticalUnknown() (OptionID, bool) {
	for _, opt := range o {
		if _, ok := CoapOptionDefs[opt.ID]; !ok && opt.ID.IsCritical() {
			return opt.ID, true
		}
	}
	return 0, false
}

// ---- typed accessors -------------------------------------------------

// GetUint32 returns the canonical uint value of the first option with id.
func (o Options) GetUint32(id OptionID) (uint32, error) {
	first, _, err := o.Find(id)
	if err != nil {
		return 0, err
	}
	return DecodeUint32(o[first].Value)
}

// GetString returns the string value of the first option with id.
func (o Options) GetString(id OptionID) (string, error) {
	first, _, err := o.Find(id)
	if err != nil {
		return "", err
	}
	return string(o[first].Value), nil
}

// GetBytes returns the raw value of the first option with id.
func (o Options) GetBytes(id OptionID) ([]byte, error) {
	first, _, err := o.Find(id)
	if err != nil {
		return nil, err
	}
	return o[first].Value, nil
}

// Strings returns the values of every option with id, in order.
func (o Options) Strings(id OptionID) []string {
	first, last, err := o.Find(id)
	if err != nil {
		return nil
	}
	out := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		out = append(out, string(o[i].Value))
	}
	return out
}

// AddUint32 appends a uint-valued option encoded canonically.
func (o Options) AddUint32(id OptionID, value uint32) Options {
	return o.Add(Option{ID: id, Value: EncodeUint32(value)})
}

// SetUint32 replaces any existing option(s) with id by a single
// uint-valued option encoded canonically.
func (o Options) SetUint32(id OptionID, value uint32) Options {
	return o.Set(Option{ID: id, Value: EncodeUint32(value)})
}

// AddString appends a string-valued option.
func (o Options) AddString(id OptionID, s string) Options {
	return o.Add(Option{ID: id, Value: []byte(s)})
}

// SetString replaces any existing option(s) with id by a single
// string-valued option.
func (o Options) SetString(id OptionID, s string) Options {
	return o.Set(Option{ID: id, Value: []byte(s)})
}

// ContentFormat returns the message's Content-Format option.
func (o Options) ContentFormat() (MediaType, error) {
	v, err := o.GetUint32(ContentFormat)
	return MediaType(v), err
}

// Path reconstructs the request URI path from the repeated Uri-Path
// options, joined by "/".
func (o Options) Path() (string, error) {
	segs := o.Strings(URIPath)
	if segs == nil {
		return "", ErrOptionNotFound
	}
	return strings.Join(segs, "/"), nil
}

// SetPath replaces the Uri-Path options with the segments of path,
// splitting on "/" and ignoring a leading slash.
func (o Options) SetPath(path string) Options {
	o = o.Remove(URIPath)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return o
	}
	for _, seg := range strings.Split(path, "/") {
		o = o.Add(Option{ID: URIPath, Value: []byte(seg)})
	}
	return o
}

// Queries returns the repeated Uri-Query option values, each "k=v".
func (o Options) Queries() []string {
	return o.Strings(URIQuery)
}
