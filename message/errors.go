package message

import "errors"

// Sentinel errors for the option/message codec. Callers match with
// errors.Is; the coder package wraps these as message.ErrMalformed where
// spec.md's error taxonomy calls for "drop silently, do not ACK".
var (
	ErrTooSmall            = errors.New("message: buffer too small")
	ErrInvalidTokenLen     = errors.New("message: invalid token length")
	ErrInvalidValueLength  = errors.New("message: invalid option value length")
	ErrOptionTruncated     = errors.New("message: option truncated")
	ErrInvalidOptionExtend = errors.New("message: invalid option delta/length extension")
	ErrOptionNotFound      = errors.New("message: option not found")
	ErrShortRead           = errors.New("message: destination slice too short")
	ErrInvalidEncoding     = errors.New("message: invalid value encoding")

	// ErrMalformed is the taxonomy-level error from spec.md §7: codec
	// rejected the bytes outright. The matcher/client must drop silently.
	ErrMalformed = errors.New("message: malformed")
	// ErrBadOption marks an unrecognized critical option (RFC 7252 §5.4.1).
	ErrBadOption = errors.New("message: unrecognized critical option")
)
