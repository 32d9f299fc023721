// Package client implements the endpoint façade (spec.md §4.7): it ties
// the message/exchange/reliability/blockwise/observation layers to a UDP
// channel, assigns message IDs and tokens, and drives a single-threaded
// event loop per spec.md §5's concurrency model. Grounded on the
// teacher's udp/client/conn.go (Conn's mid/token handler containers,
// Transmission knobs, numOutstandingInteraction semaphore), collapsed to
// one goroutine owning both the UDP receive loop and the timer wheel.
package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/457948250/coap/blockwise"
	"github.com/457948250/coap/config"
	"github.com/457948250/coap/exchange"
	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
	"github.com/457948250/coap/message/pool"
	"github.com/457948250/coap/observation"
	coapnet "github.com/457948250/coap/net"
	"github.com/457948250/coap/reliability"
)

// nstart bounds outstanding interactions across the whole endpoint (not
// per peer), a looser limit than RFC 7252 §4.7's NSTART=1 default;
// grounded on udp/client/conn.go's numOutstandingInteraction semaphore.
const nstart = 50

// outgoing is the client-side bookkeeping for one request this endpoint
// is driving, independent of exchange.Exchange's own matching fields —
// it holds the parts specific to being the requester (the Request
// itself, its Future, and this layer's per-request state machines).
type outgoing struct {
	ex           *exchange.Exchange
	req          *Request
	future       Future
	transmission *reliability.Transmission
	timer        *timerEntry
	blockStatus  *blockwise.Status // set when the request body or the response body is block-wise
	relation     *observation.Relation
	reregTimer   *timerEntry
	semAcquired  bool
}

type inboundDatagram struct {
	data []byte
	peer net.Addr
}

// Endpoint is one CoAP client/endpoint bound to a single UDP channel.
// Send/Observe/Ping may be called from any goroutine; all actual state
// transitions happen on the loop goroutine (spec.md §5).
type Endpoint struct {
	cfg     config.Config
	channel coapnet.Channel
	pool    *pool.Pool

	store   *exchange.Store
	matcher *exchange.Matcher

	blockStore *blockwise.Store
	sem        *semaphore.Weighted

	outbound chan func()
	inbound  chan inboundDatagram
	stop     chan struct{}
	done     chan struct{}

	outgoingByToken map[string]*outgoing
	outgoingByID    map[string]*outgoing // keyed by remote+":"+mid, for empty-ACK/RST matching (tokens are absent on those)
	relationsBySrc  map[string][]*outgoing // every Observe request, by remote; nothing reads or prunes it, so no cancel-all-from-source happens

	timers *timerQueue
}

// New creates an Endpoint bound to channel, ready to run once Run is
// called.
func New(channel coapnet.Channel, cfg config.Config) *Endpoint {
	e := &Endpoint{
		cfg:             cfg,
		channel:         channel,
		pool:            pool.New(1024),
		store:           exchange.NewStore(cfg.UseRandomIDStart, cfg.UseRandomTokenStart, cfg.ExchangeLifetime),
		blockStore:      blockwise.NewStore(cfg.BlockwiseStatusLifetime),
		sem:             semaphore.NewWeighted(nstart),
		outbound:        make(chan func(), 64),
		inbound:         make(chan inboundDatagram, 64),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
		outgoingByToken: make(map[string]*outgoing),
		outgoingByID:    make(map[string]*outgoing),
		relationsBySrc:  make(map[string][]*outgoing),
		timers:          newTimerQueue(),
	}
	e.matcher = exchange.NewMatcher(e.store)
	channel.SetReceiveHandler(e.onReceive)
	return e
}

// onReceive is the Channel's ReceiveFunc; it just hands the datagram to
// the loop goroutine, since no layer may touch state off the loop
// (spec.md §5).
func (e *Endpoint) onReceive(data []byte, peer net.Addr) {
	select {
	case e.inbound <- inboundDatagram{data: data, peer: peer}:
	case <-e.stop:
	}
}

// Run starts the UDP receive loop (in its own goroutine) and the event
// loop (on the calling goroutine), returning once Close is called or the
// channel's Serve returns an error.
func (e *Endpoint) Run() error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- e.channel.Serve() }()

	sweepTicker := time.NewTicker(e.cfg.MarkAndSweepInterval)
	defer sweepTicker.Stop()

	defer close(e.done)
	for {
		var fireAt <-chan time.Time
		if d, ok := e.timers.NextDeadline(); ok {
			fireAt = time.After(time.Until(d))
		}
		select {
		case <-e.stop:
			return nil
		case err := <-serveErr:
			return err
		case dg := <-e.inbound:
			e.handleDatagram(dg)
		case job := <-e.outbound:
			job()
		case <-sweepTicker.C:
			e.store.Sweep(time.Now())
		case now := <-orNow(fireAt):
			e.timers.FireDue(now)
		}
	}
}

func orNow(c <-chan time.Time) <-chan time.Time {
	if c == nil {
		return make(chan time.Time) // never fires; just lets select block on the other cases
	}
	return c
}

// Close stops the event loop and the underlying channel.
func (e *Endpoint) Close() error {
	close(e.stop)
	<-e.done
	return e.channel.Close()
}

// do runs fn on the event-loop goroutine and waits for it to finish,
// used by the public API (called from arbitrary goroutines) to safely
// touch loop-owned state.
func (e *Endpoint) do(fn func()) {
	done := make(chan struct{})
	e.outbound <- func() {
		fn()
		close(done)
	}
	<-done
}

// Send submits req and returns a Future resolving with the response, a
// Timeout, a Rejected (RST), or a Cancelled outcome (spec.md §4.7).
// Blocks (on the caller's goroutine, never the event loop) until an
// NSTART slot is free, grounded on udp/client/conn.go's
// numOutstandingInteraction semaphore.
func (e *Endpoint) Send(ctx context.Context, req *Request) Future {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		future := newFuture()
		future.resolve(Result{Outcome: OutcomeCancelled, Err: err})
		return future
	}
	future := newFuture()
	e.do(func() {
		e.startRequest(ctx, req, future, false)
		if og, ok := e.outgoingByToken[string(req.token)]; ok {
			og.semAcquired = true
		} else {
			e.sem.Release(1)
		}
	})
	return future
}

// Observe submits req with Observe=0 and returns the Relation plus a
// Future resolving on the first response (establishing or declining the
// relation, per spec.md §4.6's registration clause). Subsequent
// notifications are delivered via req.OnResponded.
func (e *Endpoint) Observe(ctx context.Context, req *Request) (*observation.Relation, Future) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		future := newFuture()
		future.resolve(Result{Outcome: OutcomeCancelled, Err: err})
		return nil, future
	}
	req.Observe = true
	future := newFuture()
	var rel *observation.Relation
	e.do(func() {
		e.startRequest(ctx, req, future, true)
		if og, ok := e.outgoingByToken[string(req.token)]; ok {
			og.semAcquired = true
			rel = og.relation
		} else {
			e.sem.Release(1)
		}
	})
	return rel, future
}

// Ping sends a Confirmable empty message (a CoAP ping, spec.md §9 note
// c) and reports success iff the peer replies RST within timeout.
func (e *Endpoint) Ping(ctx context.Context, dest *net.UDPAddr, timeout time.Duration) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	req := &Request{Method: codes.Empty, Dest: dest, Confirmable: true}
	future := newFuture()
	e.do(func() {
		e.startRequest(ctx, req, future, false)
		if og, ok := e.outgoingByID[idKeyStr(dest.String(), req.mid)]; ok {
			og.semAcquired = true
		} else {
			e.sem.Release(1)
		}
	})

	select {
	case r := <-future:
		if r.Outcome == OutcomeRejected {
			return nil // RST is the expected/successful ping reply
		}
		if r.Err != nil {
			return r.Err
		}
		return fmt.Errorf("client: ping got unexpected response")
	case <-time.After(timeout):
		e.cancelByID(dest.String(), req.mid)
		return ErrTimeout
	case <-ctx.Done():
		e.cancelByID(dest.String(), req.mid)
		return ctx.Err()
	}
}

// Cancel cancels the outstanding request/relation tracked under token
// (spec.md §5 "Cancellation"): its timers are stopped, its store entries
// removed, and its Future resolves with OutcomeCancelled.
func (e *Endpoint) Cancel(token message.Token) {
	e.do(func() { e.cancelLocked(string(token)) })
}

func (e *Endpoint) cancelLocked(key string) {
	og, ok := e.outgoingByToken[key]
	if !ok {
		return
	}
	e.finishCancelled(og)
}

// cancelByID cancels a tokenless exchange (an empty-message ping, which
// per spec.md §3 carries TKL=0 and so is never indexed by token).
func (e *Endpoint) cancelByID(remote string, mid int32) {
	e.do(func() {
		og, ok := e.outgoingByID[idKeyStr(remote, mid)]
		if !ok {
			return
		}
		e.finishCancelled(og)
	})
}

func (e *Endpoint) finishCancelled(og *outgoing) {
	if og.relation != nil {
		og.relation.Cancel()
	}
	e.untrackOutgoing(og)
	og.req.fireCancelled()
	og.future.resolve(Result{Outcome: OutcomeCancelled, Err: ErrCancelled})
}
