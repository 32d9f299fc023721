package blockwise

// Fragmenter slices a single outbound payload into fixed-size blocks on
// demand. The same type serves both fragmentation directions named in
// spec.md §4.5: a BLOCK1 sender walks NUM forward itself: BLOCK1 ascending;
// a BLOCK2 server calls Block with whatever NUM the client's request asked
// for, since block2 delivery is demand-driven by the peer.
type Fragmenter struct {
	payload []byte
	szx     SZX
}

// NewFragmenter creates a Fragmenter that serves payload in blocks no
// larger than szx.
func NewFragmenter(payload []byte, szx SZX) (*Fragmenter, error) {
	if !szx.valid() {
		return nil, ErrInvalidSZX
	}
	return &Fragmenter{payload: payload, szx: szx}, nil
}

// SZX reports the block size this Fragmenter serves.
func (f *Fragmenter) SZX() SZX { return f.szx }

// Total reports the full payload length (for a Size1/Size2 option).
func (f *Fragmenter) Total() int { return len(f.payload) }

// Block returns the bytes of block num and whether more blocks follow it.
func (f *Fragmenter) Block(num int) (block []byte, more bool, err error) {
	if num < 0 || num > maxBlockNumber {
		return nil, false, ErrBlockNumberExceedLimit
	}
	size := f.szx.Size()
	off := num * size
	if off > len(f.payload) {
		return nil, false, ErrWindowExceeded
	}
	end := off + size
	if end >= len(f.payload) {
		return f.payload[off:], false, nil
	}
	return f.payload[off:end], true, nil
}
