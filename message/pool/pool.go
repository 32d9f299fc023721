// Package pool recycles message.Message instances across the endpoint's
// hot path (one allocation-free Message per received/sent datagram
// instead of one per request), grounded on the teacher's
// message/pool/pool.go sync.Pool wrapper.
package pool

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"
)

// Pool is a bounded sync.Pool of *Message values.
type Pool struct {
	currentMessagesInPool atomic.Int64
	messagePool           sync.Pool
	maxNumMessages        uint32
}

// New creates a Pool that keeps at most maxNumMessages idle messages
// around for reuse; additional releases are simply garbage collected.
func New(maxNumMessages uint32) *Pool {
	return &Pool{maxNumMessages: maxNumMessages}
}

// AcquireMessage returns a Message bound to ctx, recycled from the pool
// when possible.
func (p *Pool) AcquireMessage(ctx context.Context) *Message {
	v := p.messagePool.Get()
	if v == nil {
		return newMessage(ctx)
	}
	m, ok := v.(*Message)
	if !ok {
		panic(fmt.Errorf("pool: invalid message type(%T)", v))
	}
	p.currentMessagesInPool.Dec()
	m.ctx = ctx
	return m
}

// ReleaseMessage returns m to the pool. m must not be used afterwards.
func (p *Pool) ReleaseMessage(m *Message) {
	for {
		cur := p.currentMessagesInPool.Load()
		if cur >= int64(p.maxNumMessages) {
			return
		}
		if p.currentMessagesInPool.CompareAndSwap(cur, cur+1) {
			break
		}
	}
	m.reset()
	m.ctx = nil
	p.messagePool.Put(m)
}
