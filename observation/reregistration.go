package observation

import "time"

// DefaultBackoff is spec.md §6's notificationReregistrationBackoff
// default: extra slack added on top of MaxAge before giving up on a
// notification and re-registering.
const DefaultBackoff = 2 * time.Second

// Reregistration is the timer armed after each received notification
// (spec.md §3's ReregistrationContext): if no fresher notification
// arrives within MaxAge*1000 + backoff of the last one, a fresh GET with
// Observe=0 reusing the original token should be issued. Grounded on the
// teacher's keepalive.go ticker/deadline idiom, narrowed to a single
// one-shot deadline per relation instead of a recurring ping.
type Reregistration struct {
	Token   []byte
	Backoff time.Duration

	deadline time.Time
}

// NewReregistration creates a Reregistration for token with the given
// backoff (spec.md §6's notificationReregistrationBackoff, default
// DefaultBackoff).
func NewReregistration(token []byte, backoff time.Duration) *Reregistration {
	return &Reregistration{Token: token, Backoff: backoff}
}

// Reset arms the deadline at maxAge plus the backoff, measured from now.
// maxAge is used as given; Reset applies no default of its own
// (client.Endpoint passes the response's Max-Age, or
// Config.NotificationMaxAge when the option is absent).
func (r *Reregistration) Reset(now time.Time, maxAge time.Duration) {
	r.deadline = now.Add(maxAge).Add(r.Backoff)
}

// Deadline reports when this Reregistration should fire if not reset
// again first.
func (r *Reregistration) Deadline() time.Time { return r.deadline }

// Due reports whether now has passed the armed deadline.
func (r *Reregistration) Due(now time.Time) bool {
	return !r.deadline.IsZero() && !now.Before(r.deadline)
}
