package client

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/457948250/coap/blockwise"
	"github.com/457948250/coap/coder"
	"github.com/457948250/coap/exchange"
	"github.com/457948250/coap/message"
	"github.com/457948250/coap/message/codes"
	"github.com/457948250/coap/message/pool"
	"github.com/457948250/coap/observation"
	"github.com/457948250/coap/reliability"
)

func idKeyStr(remote string, mid int32) string {
	return fmt.Sprintf("%s#%d", remote, mid)
}

// startRequest runs on the event loop: it assigns token/ID, applies
// BLOCK1 fragmentation if the payload exceeds the preferred block size,
// encodes, and sends the first datagram. The full request-timeout is
// enforced by a timer parallel to the per-CON retransmit schedule
// (spec.md §4.7's "propagate timeouts upward... within the
// caller-supplied timeout, default 32767 ms").
func (e *Endpoint) startRequest(ctx context.Context, req *Request, future Future, isObserve bool) {
	remote := req.Dest.String()

	token, err := e.store.NextToken(remote)
	if err != nil {
		future.resolve(Result{Outcome: OutcomeCancelled, Err: err})
		return
	}
	if req.Method == codes.Empty {
		token = nil // empty messages (pings) carry no token, spec.md §3
	}
	req.token = token
	mid := e.store.NextMessageID(remote)
	req.mid = mid

	opts := req.Options
	if isObserve {
		opts = opts.SetUint32(message.Observe, 0)
	}

	pm := e.pool.AcquireMessage(ctx)
	pm.SetCode(req.Method)
	pm.SetToken(token)
	pm.SetMessageID(mid)
	if req.Confirmable {
		pm.SetType(message.Confirmable)
	} else {
		pm.SetType(message.NonConfirmable)
	}

	og := &outgoing{req: req, future: future}

	payload := req.Payload
	if len(payload) > e.cfg.DefaultBlockSize {
		szx := blockwise.PreferredSZXForSize(e.cfg.DefaultBlockSize)
		st, berr := blockwise.NewSenderStatus(blockwise.Block1, payload, szx)
		if berr != nil {
			future.resolve(Result{Outcome: OutcomeCancelled, Err: berr})
			return
		}
		og.blockStatus = st
		block, more, _ := st.Block(0)
		opts, _ = blockwise.SetBlockOption(opts, blockwise.Block1, szx, 0, more)
		opts = blockwise.SetSize(opts, blockwise.Block1, st.Total())
		payload = block
	}
	pm.SetOptions(opts)
	pm.SetPayload(payload)

	ex := exchange.NewExchange(exchange.Origin{Remote: remote}, pm)
	og.ex = ex

	if isObserve {
		rel := observation.New(remote, token, e.cfg.NotificationCheckIntervalCount, e.cfg.NotificationCheckIntervalTime)
		og.relation = rel
		ex.Status.Observation = rel
		e.relationsBySrc[remote] = append(e.relationsBySrc[remote], og)
	}

	e.store.Track(ex)
	if len(token) > 0 {
		e.outgoingByToken[string(token)] = og
	}
	e.outgoingByID[idKeyStr(remote, mid)] = og

	e.sendDatagram(pm, req.Dest)

	if req.Confirmable {
		og.transmission = reliability.New(reliability.Params{
			AckTimeout:      e.cfg.AckTimeout,
			AckRandomFactor: e.cfg.AckRandomFactor,
			AckTimeoutScale: e.cfg.AckTimeoutScale,
			MaxRetransmit:   e.cfg.MaxRetransmit,
		})
		delay := og.transmission.Start()
		e.armRetransmit(og, delay)
	}

	if dl, ok := ctx.Deadline(); ok {
		e.timers.Schedule(dl, func(time.Time) { e.cancelLocked(string(token)) })
	} else {
		e.timers.Schedule(time.Now().Add(e.cfg.RequestTimeout), func(time.Time) {
			if og.relation != nil && og.relation.Established() {
				return // an established relation outlives the registering request's timeout
			}
			e.finishTimeout(og)
		})
	}
}

func (e *Endpoint) armRetransmit(og *outgoing, delay time.Duration) {
	og.timer = e.timers.Schedule(time.Now().Add(delay), func(now time.Time) {
		e.onRetransmitDue(og)
	})
}

func (e *Endpoint) onRetransmitDue(og *outgoing) {
	if og.transmission == nil || og.transmission.IsTerminal() {
		return
	}
	e.sendDatagram(og.ex.Request, og.req.Dest)
	next, err := og.transmission.OnTimeout()
	if err != nil {
		e.finishTimeout(og)
		return
	}
	e.armRetransmit(og, next)
}

func (e *Endpoint) finishTimeout(og *outgoing) {
	key := ""
	if len(og.req.token) > 0 {
		key = string(og.req.token)
	}
	if _, ok := e.outgoingByToken[key]; !ok {
		if _, ok := e.outgoingByID[idKeyStr(og.ex.Origin.Remote, og.ex.MessageID)]; !ok {
			return // already resolved
		}
	}
	e.untrackOutgoing(og)
	og.req.fireTimedOut()
	og.future.resolve(Result{Outcome: OutcomeTimedOut, Err: ErrTimeout})
}

func (e *Endpoint) sendDatagram(pm *pool.Message, dest *net.UDPAddr) {
	m := pm.Message()
	size, err := coder.DefaultCoder.Size(*m)
	if err != nil {
		e.cfg.Errors(fmt.Errorf("client: size message: %w", err))
		return
	}
	buf := make([]byte, size)
	if _, err := coder.DefaultCoder.Encode(*m, buf); err != nil {
		e.cfg.Errors(fmt.Errorf("client: encode message: %w", err))
		return
	}
	if err := e.channel.Send(buf, dest); err != nil {
		e.cfg.Errors(fmt.Errorf("client: send: %w", err))
	}
}
