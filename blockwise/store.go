package blockwise

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// StatusLifetime is RFC 7959's BLOCKWISE_STATUS_LIFETIME default
// (spec.md §4.5/§6): how long partial reassembly state survives without a
// new block arriving before it is discarded.
const StatusLifetime = 10 * time.Minute

// Store keeps one in-progress Status per token, evicting entries that
// have sat idle past their lifetime (spec.md §4.5's "Lifetime" clause).
// Grounded on the teacher's legacy blockwise.go, which used
// github.com/patrickmn/go-cache the same way for its per-token transfer
// cache; this Store narrows that to just the blockwise concern (the
// teacher's cache also did double duty as a response cache, which now
// lives in exchange.Store instead).
type Store struct {
	c        *gocache.Cache
	lifetime time.Duration
}

// NewStore creates a Store whose entries expire after lifetime of
// inactivity, swept every lifetime/2 by go-cache's own janitor.
func NewStore(lifetime time.Duration) *Store {
	return &Store{
		c:        gocache.New(lifetime, lifetime/2),
		lifetime: lifetime,
	}
}

// Get returns the in-progress Status for token, if one hasn't expired.
func (s *Store) Get(token []byte) (*Status, bool) {
	v, ok := s.c.Get(TokenToStr(token))
	if !ok {
		return nil, false
	}
	st, ok := v.(*Status)
	return st, ok
}

// Put starts or replaces the transfer tracked under token, resetting its
// expiry to lifetime from now (every accepted block should push the
// deadline back, per "status lifetime" meaning idle time, not total
// transfer time).
func (s *Store) Put(token []byte, st *Status) {
	s.c.Set(TokenToStr(token), st, s.lifetime)
}

// Delete removes the transfer tracked under token, used once a transfer
// completes or is aborted.
func (s *Store) Delete(token []byte) {
	s.c.Delete(TokenToStr(token))
}
