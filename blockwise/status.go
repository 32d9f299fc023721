package blockwise

// Option identifies which block option (spec.md §4.5) a Status tracks:
// Block1 for request-payload fragmentation, Block2 for response-payload
// fragmentation. The same Status type serves both directions; Option just
// picks which CoAP option number the caller reads/writes.
type Option uint8

const (
	Block1 Option = iota
	Block2
)

// Status is the per-transfer blockwise state. client.Endpoint keeps it on
// its own outgoing-request record and in a Store keyed by token; it does
// not put it in exchange.Status.Blockwise. Exactly one of fragmenter/reassembler is set,
// depending on whether this side of the exchange is producing blocks
// (sender) or consuming them (receiver).
type Status struct {
	Opt Option

	fragmenter  *Fragmenter
	reassembler *Reassembler

	// szxAgreed is the block size this transfer settled on, used to mirror
	// a server's SZX choice on subsequent requests in "late negotiation"
	// (spec.md §4.5).
	szxAgreed SZX
}

// NewSenderStatus starts a Status that serves payload out in blocks of at
// most szx bytes, used for a BLOCK2 GET response or a BLOCK1 PUT/POST
// request body.
func NewSenderStatus(opt Option, payload []byte, szx SZX) (*Status, error) {
	f, err := NewFragmenter(payload, szx)
	if err != nil {
		return nil, err
	}
	return &Status{Opt: opt, fragmenter: f, szxAgreed: szx}, nil
}

// NewReceiverStatus starts a Status that reassembles an inbound transfer
// whose first block has not yet arrived.
func NewReceiverStatus(opt Option) *Status {
	return &Status{Opt: opt, reassembler: NewReassembler()}
}

// IsSender reports whether this Status produces blocks (as opposed to
// consuming them).
func (s *Status) IsSender() bool { return s.fragmenter != nil }

// Block returns block num of a sender Status's payload.
func (s *Status) Block(num int) (block []byte, more bool, err error) {
	if s.fragmenter == nil {
		return nil, false, ErrTransferNotFound
	}
	return s.fragmenter.Block(num)
}

// SZX reports the block size this Status serves (sender) or has locked
// on from the peer's first block (receiver, zero value before the first
// block arrives).
func (s *Status) SZX() SZX {
	if s.fragmenter != nil {
		return s.fragmenter.SZX()
	}
	return s.reassembler.SZX()
}

// Total reports the full payload length, known up front for a sender. For
// a receiver it reports the Reassembler's declared Size1/Size2 total,
// which Status never sets, so it is 0.
func (s *Status) Total() int {
	if s.fragmenter != nil {
		return s.fragmenter.Total()
	}
	return s.reassembler.Total()
}

// Accept folds one inbound block into a receiver Status's reassembly
// buffer. See Reassembler.Accept for the window/SZX-consistency rules.
func (s *Status) Accept(szx SZX, num int, more bool, payload []byte) (done bool, err error) {
	if s.reassembler == nil {
		return false, ErrTransferNotFound
	}
	if s.szxAgreed != 0 && num == 0 && szx != s.szxAgreed {
		// Late-negotiation mismatch on the very first block: the peer
		// ignored the size we mirrored from a prior exchange.
		return false, ErrSZXMismatch
	}
	return s.reassembler.Accept(szx, num, more, payload)
}

// Payload returns the fully reassembled bytes; valid only once Accept has
// reported done == true.
func (s *Status) Payload() []byte {
	if s.reassembler == nil {
		return nil
	}
	return s.reassembler.Payload()
}

// NextExpected reports the NUM a receiver Status will accept next.
func (s *Status) NextExpected() int {
	if s.reassembler == nil {
		return 0
	}
	return s.reassembler.NextExpected()
}
