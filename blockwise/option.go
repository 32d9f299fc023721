package blockwise

import "github.com/457948250/coap/message"

// id returns the OptionID this Status's Option value is carried under.
func (o Option) id() message.OptionID {
	if o == Block1 {
		return message.Block1
	}
	return message.Block2
}

// sizeID returns the Size1/Size2 OptionID paired with this block option,
// used to advertise the full transfer length up front.
func (o Option) sizeID() message.OptionID {
	if o == Block1 {
		return message.Size1
	}
	return message.Size2
}

// GetBlockOption reads the Block1/Block2 option value out of opts, if
// present.
func GetBlockOption(opts message.Options, o Option) (szx SZX, num int, more bool, ok bool, err error) {
	v, gerr := opts.GetUint32(o.id())
	if gerr != nil {
		return 0, 0, false, false, nil
	}
	szx, num, more, err = DecodeBlockOption(v)
	return szx, num, more, true, err
}

// SetBlockOption replaces opts' Block1/Block2 option with one encoding
// (szx, num, more).
func SetBlockOption(opts message.Options, o Option, szx SZX, num int, more bool) (message.Options, error) {
	v, err := EncodeBlockOption(szx, num, more)
	if err != nil {
		return opts, err
	}
	return opts.SetUint32(o.id(), v), nil
}

// SetSize advertises the full transfer length via the paired Size1/Size2
// option.
func SetSize(opts message.Options, o Option, size int) message.Options {
	return opts.SetUint32(o.sizeID(), uint32(size))
}

// NegotiateSZX picks the block size a sender should use for a transfer:
// the smaller of the locally preferred size and whatever the peer already
// announced (szx, ok), implementing spec.md §4.5's early/late negotiation
// ("late negotiation lets the server choose and the client mirrors on
// subsequent requests").
func NegotiateSZX(preferred SZX, peer SZX, peerOK bool) SZX {
	if !peerOK {
		return preferred
	}
	if peer < preferred {
		return peer
	}
	return preferred
}

// PreferredSZXForSize picks the largest SZX whose block size does not
// exceed preferredBlockSize, clamped to a valid SZX.
func PreferredSZXForSize(preferredBlockSize int) SZX {
	szx := SZX1024
	for szx > SZX16 && szx.Size() > preferredBlockSize {
		szx--
	}
	return szx
}
