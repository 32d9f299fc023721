package exchange

import (
	"fmt"
	"sync"
	"time"

	"github.com/457948250/coap/internal/cache"
	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/pool"
)

// ExchangeLifetime is RFC 7252 §4.8.2's EXCHANGE_LIFETIME: the longest
// time an exchange is kept around for deduplication after its request was
// sent/received.
const ExchangeLifetime = 247 * time.Second

// tokenKey is a fixed-size array so it can be a map/cache key without
// allocating, grounded on the teacher's tokenhandler.go [MaxTokenSize]byte
// idiom.
type tokenKey [message.MaxTokenSize]byte

func newTokenKey(t message.Token) tokenKey {
	var k tokenKey
	copy(k[:], t)
	return k
}

// idKey combines a peer origin with a message ID, since message IDs are
// only unique per-peer (spec.md §3's Exchange.origin).
type idKey struct {
	remote string
	mid    int32
}

// Store indexes in-flight and recently-completed exchanges by message ID
// and by token, for Matcher's deduplication: a duplicate whose exchange
// has a cached response is replayed, and any other duplicate (CON or
// NON) is dropped. Grounded on udp/client/conn.go's
// midHandlerContainer/tokenHandlerContainer/responseMsgCache, collapsed
// into one type since here they always move together.
type Store struct {
	byID    *cache.Cache[idKey, *Exchange]
	byToken *cache.Cache[tokenKey, *Exchange]

	mu           sync.Mutex
	useRandomID  bool
	useRandomTok bool
	nextID       uint32
	lifetime     time.Duration
}

// NewStore creates a Store. useRandomIDStart true means the initial
// message-ID value is drawn from a CSPRNG rather than starting at 0.
// useRandomTokenStart is stored but does not change token allocation (see
// NextToken).
func NewStore(useRandomIDStart, useRandomTokenStart bool, lifetime time.Duration) *Store {
	s := &Store{
		byID:         cache.NewCache[idKey, *Exchange](),
		byToken:      cache.NewCache[tokenKey, *Exchange](),
		useRandomID:  useRandomIDStart,
		useRandomTok: useRandomTokenStart,
		lifetime:     lifetime,
	}
	if useRandomIDStart {
		s.nextID = uint32(message.RandMID())
	}
	return s
}

// NextMessageID allocates the next outbound message ID for remote,
// skipping any value currently occupied in byID so a fresh CON never
// collides with one still awaiting its ACK.
func (s *Store) NextMessageID(remote string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		id := int32(uint16(s.nextID))
		s.nextID++
		if _, loaded := s.byID.Load(idKey{remote: remote, mid: id}); !loaded {
			return id
		}
	}
}

// NextToken allocates a fresh token, unique among this store's currently
// tracked tokens. Tokens are always random MaxTokenSize-byte values,
// whatever useRandomTokenStart says; every token is re-rolled until it
// doesn't collide.
func (s *Store) NextToken(remote string) (message.Token, error) {
	for {
		tok, err := message.GetToken()
		if err != nil {
			return nil, fmt.Errorf("exchange: cannot allocate token: %w", err)
		}
		if _, loaded := s.byToken.Load(newTokenKey(tok)); !loaded {
			return tok, nil
		}
	}
}

// Track registers ex under its message ID and (if present) its token.
func (s *Store) Track(ex *Exchange) {
	until := time.Now().Add(s.lifetime)
	idElem := s.byID.NewElement(ex, until, nil)
	s.byID.LoadOrStore(idKey{remote: ex.Origin.Remote, mid: ex.MessageID}, idElem)
	if len(ex.Token) > 0 {
		tokElem := s.byToken.NewElement(ex, until, nil)
		s.byToken.LoadOrStore(newTokenKey(ex.Token), tokElem)
	}
}

// LookupByID finds the exchange tracked under (remote, mid), if any.
func (s *Store) LookupByID(remote string, mid int32) (*Exchange, bool) {
	e, loaded := s.byID.Load(idKey{remote: remote, mid: mid})
	if !loaded || e == nil {
		return nil, false
	}
	return e.Data(), true
}

// LookupByToken finds the exchange tracked under token, if any.
func (s *Store) LookupByToken(token message.Token) (*Exchange, bool) {
	e, loaded := s.byToken.Load(newTokenKey(token))
	if !loaded || e == nil {
		return nil, false
	}
	return e.Data(), true
}

// Complete marks ex as having produced its final response, stashing a
// clone of resp so a duplicate CON/NON for the same message ID can be
// answered without re-invoking the handler (spec.md §4.3 "cache ACK
// re-emission"). resp may be nil for an exchange that never produced a
// body (a bare ACK).
func (s *Store) Complete(ex *Exchange, resp *pool.Message) {
	ex.Completed = true
	if resp == nil {
		return
	}
	clone := &message.Message{}
	resp.Message().Clone(clone)
	ex.Response = clone
}

// Untrack removes ex from both indices immediately, without waiting for
// Sweep; client.Endpoint calls it when an outgoing request reaches any
// terminal outcome.
func (s *Store) Untrack(ex *Exchange) {
	s.byID.Delete(idKey{remote: ex.Origin.Remote, mid: ex.MessageID})
	if len(ex.Token) > 0 {
		s.byToken.Delete(newTokenKey(ex.Token))
	}
}

// Sweep deletes every exchange whose tracking lifetime has elapsed. The
// endpoint event loop calls this on a MARK_AND_SWEEP_INTERVAL ticker.
func (s *Store) Sweep(now time.Time) {
	s.byID.CheckExpirations(now)
	s.byToken.CheckExpirations(now)
}
