package blockwise

import (
	"io"

	"github.com/dsnet/golib/memfile"
)

// Reassembler rebuilds one inbound multi-block transfer behind a
// single-entry sliding window (spec.md §4.5): blocks must arrive with NUM
// equal to the next expected block, and every block after the first must
// carry the same SZX the transfer locked on. A block whose NUM is not the
// next expected one, including a repeat of a block already written, is
// rejected with ErrWindowExceeded. The backing buffer is a memfile.File
// rather than a growing []byte; each block is written at NUM*size via Seek.
type Reassembler struct {
	file     *memfile.File
	szx      SZX
	nextNum  int
	total    int
	done     bool
	complete []byte
}

// NewReassembler starts a transfer whose first block has not yet arrived.
func NewReassembler() *Reassembler {
	return &Reassembler{
		file:    memfile.New(make([]byte, 0, 1024)),
		nextNum: 0,
	}
}

// Total reports the declared full payload size from a Size1/Size2 option,
// or 0 if the peer never sent one.
func (r *Reassembler) Total() int { return r.total }

// SetTotal records the declared full payload size (Size1/Size2), used
// only to size the response to callers asking for progress; reassembly
// itself does not depend on it since the final block's M=0 is
// authoritative.
func (r *Reassembler) SetTotal(n int) { r.total = n }

// Accept folds one inbound block into the reassembly buffer. done reports
// whether this was the final block (more == false); once done, Payload
// returns the complete reassembled bytes.
func (r *Reassembler) Accept(szx SZX, num int, more bool, payload []byte) (done bool, err error) {
	if r.done {
		return true, ErrAlreadyComplete
	}
	if !szx.valid() {
		return false, ErrInvalidSZX
	}
	if num != r.nextNum {
		return false, ErrWindowExceeded
	}
	if num > 0 && szx != r.szx {
		return false, ErrSZXMismatch
	}
	r.szx = szx

	off := int64(num) * int64(szx.Size())
	if _, err := r.file.Seek(off, io.SeekStart); err != nil {
		return false, err
	}
	if _, err := r.file.Write(payload); err != nil {
		return false, err
	}

	r.nextNum++
	if !more {
		r.done = true
		size := off + int64(len(payload))
		if err := r.file.Truncate(size); err != nil {
			return false, err
		}
		buf := make([]byte, size)
		if _, err := r.file.ReadAt(buf, 0); err != nil && err != io.EOF {
			return false, err
		}
		r.complete = buf
	}
	return r.done, nil
}

// Payload returns the fully reassembled bytes. It is only valid once
// Accept has reported done == true.
func (r *Reassembler) Payload() []byte { return r.complete }

// NextExpected reports the NUM this Reassembler will accept next, for
// building the "request the next block" response (BLOCK1's 2.31
// Continue, or a client's next BLOCK2 GET).
func (r *Reassembler) NextExpected() int { return r.nextNum }

// SZX reports the size this transfer locked on (valid once at least one
// block has been accepted).
func (r *Reassembler) SZX() SZX { return r.szx }
