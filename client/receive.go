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
	"github.com/457948250/coap/observation"
)

// handleDatagram runs on the event loop for every inbound UDP datagram.
// It mirrors spec.md §2's bottom-up pipeline: Codec -> TokenMatcher ->
// Reliability -> BlockWise -> Observe -> App.
func (e *Endpoint) handleDatagram(dg inboundDatagram) {
	var m message.Message
	if _, err := coder.DefaultCoder.Decode(dg.data, &m); err != nil {
		// spec.md §7: MalformedMessage is dropped silently, never ACKed.
		e.cfg.Errors(fmt.Errorf("client: decode: %w", err))
		return
	}
	remote := dg.peer.String()

	switch {
	case m.Code == codes.Empty:
		e.handleEmpty(remote, &m)
	case m.Code.IsRequest():
		// Server-role request handling (a resource tree to answer GET
		// etc.) is out of scope per spec.md §1; this façade is the client
		// side of the exchange. An unexpected request is dropped.
	default:
		e.handleResponse(remote, &m)
	}
}

func (e *Endpoint) handleEmpty(remote string, m *message.Message) {
	og, ok := e.outgoingByID[idKeyStr(remote, m.MessageID)]
	if !ok {
		return // unmatched ACK/RST: drop silently (spec.md §4.3 DispositionUnmatched)
	}
	switch m.Type {
	case message.Acknowledgement:
		if og.transmission != nil {
			og.transmission.OnAcknowledge()
		}
		e.timers.Cancel(og.timer)
		og.req.fireAcknowledged()
		// A bare ACK with no piggybacked code just stops retransmission;
		// the real response arrives later as a separate CON/NON matched
		// by token (spec.md §4.4 "Separate response").
	case message.Reset:
		if og.transmission != nil {
			og.transmission.OnReject()
		}
		e.timers.Cancel(og.timer)
		e.finishRejected(og)
	}
}

func (e *Endpoint) finishRejected(og *outgoing) {
	e.untrackOutgoing(og)
	if og.relation != nil {
		og.relation.Cancel()
	}
	og.req.fireRejected()
	og.future.resolve(Result{Outcome: OutcomeRejected, Err: ErrRejected})
}

// untrackOutgoing is the single teardown path for an outgoing request:
// every terminal outcome (responded, rejected, timed out, cancelled)
// funnels through it so the NSTART slot acquired in Send/Observe/Ping
// is released exactly once.
func (e *Endpoint) untrackOutgoing(og *outgoing) {
	e.timers.Cancel(og.timer)
	e.timers.Cancel(og.reregTimer)
	if og.transmission != nil {
		og.transmission.Cancel()
	}
	e.store.Untrack(og.ex)
	if len(og.req.token) > 0 {
		delete(e.outgoingByToken, string(og.req.token))
	}
	delete(e.outgoingByID, idKeyStr(og.ex.Origin.Remote, og.ex.MessageID))
	if og.semAcquired {
		og.semAcquired = false
		e.sem.Release(1)
	}
}

// handleResponse processes a piggybacked ACK-with-code or a separate
// CON/NON response/notification.
func (e *Endpoint) handleResponse(remote string, m *message.Message) {
	disp, _ := e.matcher.InboundResponse(remote, m.MessageID, m.Token)
	if disp != exchange.DispositionMatchedResponse {
		return
	}
	og, ok := e.outgoingByToken[string(m.Token)]
	if !ok {
		return
	}

	// Reliability: a separate CON response must itself be ACKed; a
	// piggybacked ACK already stopped retransmission when decoded as
	// type Acknowledgement.
	if m.Type == message.Confirmable {
		e.sendEmptyAck(m.MessageID, og.req.Dest)
	}
	if m.Type == message.Acknowledgement && og.transmission != nil {
		og.transmission.OnAcknowledge()
	}
	e.timers.Cancel(og.timer)

	if szx, num, more, hasBlock2, err := blockwise.GetBlockOption(m.Options, blockwise.Block2); err == nil && hasBlock2 {
		e.handleBlock2(og, m, szx, num, more)
		return
	}

	e.deliver(og, m)
}

func (e *Endpoint) sendEmptyAck(mid int32, dest *net.UDPAddr) {
	pm := e.pool.AcquireMessage(context.Background())
	pm.SetCode(codes.Empty)
	pm.SetType(message.Acknowledgement)
	pm.SetMessageID(mid)
	e.sendDatagram(pm, dest)
}

// handleBlock2 drives a BLOCK2 (GET-response) download: reassembles the
// inbound block and, if more remain, issues the follow-up request for the
// next NUM (spec.md §4.5, scenario S6).
func (e *Endpoint) handleBlock2(og *outgoing, m *message.Message, szx blockwise.SZX, num int, more bool) {
	if og.blockStatus == nil {
		og.blockStatus = blockwise.NewReceiverStatus(blockwise.Block2)
		e.blockStore.Put(og.req.token, og.blockStatus)
	}
	done, err := og.blockStatus.Accept(szx, num, more, m.Payload)
	if err != nil {
		e.cfg.Errors(fmt.Errorf("client: block2 reassembly: %w", err))
		e.blockStore.Delete(og.req.token)
		e.untrackOutgoing(og)
		og.future.resolve(Result{Outcome: OutcomeCancelled, Err: err})
		return
	}
	if done {
		m.Payload = og.blockStatus.Payload()
		e.blockStore.Delete(og.req.token)
		e.deliver(og, m)
		return
	}

	// Ask for the next block, mirroring the server's chosen SZX (late
	// negotiation, spec.md §4.5).
	next := og.blockStatus.NextExpected()
	opts := og.req.Options
	opts, _ = blockwise.SetBlockOption(opts, blockwise.Block2, szx, next, false)

	pm := e.pool.AcquireMessage(context.Background())
	pm.SetCode(og.req.Method)
	pm.SetToken(og.req.token)
	mid := e.store.NextMessageID(og.ex.Origin.Remote)
	pm.SetMessageID(mid)
	if og.req.Confirmable {
		pm.SetType(message.Confirmable)
	} else {
		pm.SetType(message.NonConfirmable)
	}
	pm.SetOptions(opts)

	delete(e.outgoingByID, idKeyStr(og.ex.Origin.Remote, og.ex.MessageID))
	ex := exchange.NewExchange(og.ex.Origin, pm)
	og.ex = ex
	e.store.Track(ex)
	e.outgoingByID[idKeyStr(ex.Origin.Remote, mid)] = og

	e.sendDatagram(pm, og.req.Dest)
}

// deliver hands a final response to the request's Future and hooks, and
// handles the Observe-layer bookkeeping (establish/freshness/
// re-registration) when the request registered a relation. A stale
// notification (per observation.Relation.AcceptNotification) is dropped
// here without reaching the caller's hooks, per spec.md §4.6.
func (e *Endpoint) deliver(og *outgoing, m *message.Message) {
	if og.relation != nil {
		fresh := e.applyObserve(og, m)
		if og.relation.Cancelled() {
			e.untrackOutgoing(og)
			if !og.relation.Established() {
				og.future.resolve(Result{Outcome: OutcomeResponded, Response: m})
			}
			return
		}
		if !fresh {
			return
		}
	}

	og.req.fireResponded(m)

	if og.relation != nil && og.relation.Established() {
		// The relation stays alive across notifications: only the first
		// response resolves the registering Future (spec.md §4.6); the
		// exchange itself is not torn down.
		e.armReregistration(og, m)
		og.future.resolve(Result{Outcome: OutcomeResponded, Response: m})
		return
	}

	e.untrackOutgoing(og)
	og.future.resolve(Result{Outcome: OutcomeResponded, Response: m})
}

// applyObserve returns whether m should be delivered to the caller: true
// for a relation-establishing response or a fresh notification, false for
// a stale one (which Cancel is not called for — it's merely discarded).
func (e *Endpoint) applyObserve(og *outgoing, m *message.Message) bool {
	v, err := m.Options.GetUint32(message.Observe)
	if err != nil {
		// No Observe option: the server declined or ended the relation
		// (spec.md §4.6 "terminates the relation").
		og.relation.Cancel()
		return true
	}
	if !og.relation.Established() {
		og.relation.Establish()
		og.relation.AcceptNotification(v, time.Now())
		return true
	}
	return og.relation.AcceptNotification(v, time.Now())
}

func (e *Endpoint) armReregistration(og *outgoing, m *message.Message) {
	e.timers.Cancel(og.reregTimer)
	maxAge := e.cfg.NotificationMaxAge
	if v, err := m.Options.GetUint32(message.MaxAge); err == nil {
		maxAge = time.Duration(v) * time.Second
	}
	rr := observation.NewReregistration(og.req.token, e.cfg.NotificationReregistrationBackoff)
	rr.Reset(time.Now(), maxAge)
	og.reregTimer = e.timers.Schedule(rr.Deadline(), func(time.Time) {
		e.onReregistrationDue(og)
	})
}

// onReregistrationDue re-issues the original GET with Observe=0, reusing
// the relation's token (spec.md §4.6 "Re-registration"), when no fresher
// notification has reset the timer in the meantime.
func (e *Endpoint) onReregistrationDue(og *outgoing) {
	if og.relation == nil || og.relation.Cancelled() {
		return
	}
	og.req.fireReregistering()

	pm := e.pool.AcquireMessage(context.Background())
	pm.SetCode(og.req.Method)
	pm.SetToken(og.req.token)
	mid := e.store.NextMessageID(og.ex.Origin.Remote)
	pm.SetMessageID(mid)
	pm.SetType(message.Confirmable)
	pm.SetOptions(og.req.Options.SetUint32(message.Observe, 0))

	delete(e.outgoingByID, idKeyStr(og.ex.Origin.Remote, og.ex.MessageID))
	ex := exchange.NewExchange(og.ex.Origin, pm)
	og.ex = ex
	e.store.Track(ex)
	e.outgoingByID[idKeyStr(ex.Origin.Remote, mid)] = og

	e.sendDatagram(pm, og.req.Dest)
}
