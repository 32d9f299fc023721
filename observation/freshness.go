// Package observation implements RFC 7641 (spec.md §4.6): notification
// freshness on the client side, stashing/promotion scheduling for an
// at-most-one-CON-in-flight server role, and the re-registration timer
// that re-issues a GET when notifications stop arriving.
//
// Grounded on the teacher's net/observation/observation.go
// (ValidSequenceNumber), generalized into a stateful Relation instead of
// a bare free function, and on keepalive.go's ticker-driven timer idiom
// for Reregistration.
package observation

import "time"

// SequenceTimeout is RFC 7641 §3.4's fallback freshness window: a
// notification is accepted regardless of counter ordering if this long
// has passed since the last accepted one.
const SequenceTimeout = 128 * time.Second

// counterSpace is 2^23, half of the 24-bit Observe counter's range
// (RFC 7641 §3.4). The teacher's own ValidSequenceNumber wrote this as
// "2^23", which in Go is XOR (2^23 == 21), not exponentiation — a bug this
// package does not reproduce.
const counterSpace = 1 << 23

// IsFresh implements spec.md §4.6's exact freshness predicate: a
// notification with counter vNew observed at tNew is fresher than one
// with counter vLast observed at tLast iff vNew has advanced within half
// the counter space, vLast has wrapped around past vNew, or the
// SequenceTimeout has elapsed since tLast.
func IsFresh(vLast, vNew uint32, tLast, tNew time.Time) bool {
	switch {
	case vNew > vLast && vNew-vLast < counterSpace:
		return true
	case vLast > vNew && vLast-vNew > counterSpace:
		return true
	case tNew.After(tLast.Add(SequenceTimeout)):
		return true
	default:
		return false
	}
}
