// Package exchange tracks the request/response pairs in flight between
// this endpoint and its peers: matching an incoming ACK/response/RST to
// the request that caused it, detecting duplicate retransmissions, and
// mark-and-sweeping entries that have outlived EXCHANGE_LIFETIME.
// Grounded on the teacher's udp/client/conn.go (midHandlerContainer /
// tokenHandlerContainer / responseMsgCache) and pkg/cache.
package exchange

import (
	"net"
	"time"

	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/pool"
)

// Origin identifies the two endpoints of an exchange: this engine's local
// address and the peer's remote address, so the same message ID or token
// from two different peers is never conflated (spec.md §3's Exchange.origin).
type Origin struct {
	Local  net.Addr
	Remote string // peer address as a string key; net.Addr itself isn't comparable across implementations
}

// Status is where a layer above the matcher (blockwise, observe) stashes
// per-exchange state. Kept as named typed fields rather than a
// map[string]interface{} per the Open Question decision recorded in
// DESIGN.md: every dependency a layer has on exchange state is visible at
// compile time instead of hidden behind a string key.
type Status struct {
	Blockwise      interface{} // slot for a *blockwise.Status; client.Endpoint leaves it nil
	Observation    interface{} // the *observation.Relation, set by client.Endpoint for an Observe request
	Reregistration interface{} // slot for a *observation.Reregistration; client.Endpoint leaves it nil
}

// Exchange is one in-flight CON/request awaiting its ACK/response, or a
// recently completed one kept around for deduplication and response
// replay (spec.md §3 Exchange / §4.3).
type Exchange struct {
	Origin    Origin
	MessageID int32
	Token     message.Token

	Request  *pool.Message
	Response *message.Message // set once a response has been produced, for replay to a duplicate CON/NON

	Status Status

	CreatedAt   time.Time
	Completed   bool // true once a final response/ACK/RST has been matched
	RetransmitN int32
}

// NewExchange creates an Exchange for req, not yet matched.
func NewExchange(origin Origin, req *pool.Message) *Exchange {
	return &Exchange{
		Origin:    origin,
		MessageID: req.MessageID(),
		Token:     req.Token(),
		Request:   req,
		CreatedAt: time.Now(),
	}
}
