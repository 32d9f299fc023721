package blockwise

import "errors"

var (
	ErrInvalidSZX             = errors.New("blockwise: invalid SZX")
	ErrBlockNumberExceedLimit = errors.New("blockwise: block number exceeds 20-bit limit")
	ErrBlockInvalidSize       = errors.New("blockwise: block option value out of range")

	// ErrSZXMismatch is returned when a later block in a transfer carries a
	// different SZX than the one the transfer locked on its first block.
	ErrSZXMismatch = errors.New("blockwise: SZX changed mid-transfer")
	// ErrWindowExceeded is returned when a block's NUM falls outside the
	// single-entry sliding window (spec.md §4.5: NUM must be strictly
	// within the current window).
	ErrWindowExceeded = errors.New("blockwise: block number outside reassembly window")
	// ErrTransferNotFound is returned when a Status is used in the wrong
	// role: Block on a receiver Status, or Accept on a sender Status.
	ErrTransferNotFound = errors.New("blockwise: no transfer for token")
	// ErrAlreadyComplete is returned when a block arrives for a transfer
	// that has already been fully reassembled and not yet cleared.
	ErrAlreadyComplete = errors.New("blockwise: transfer already complete")
)
