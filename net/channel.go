// Package net provides the UDP channel contract the client façade drives
// (spec.md §6 "UDP channel contract") and a default net.UDPConn-backed
// implementation. Everything above Channel treats the socket as an
// external collaborator per spec.md §1 — this package exists so the
// façade is usable end-to-end without the caller supplying its own
// transport.
package net

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// ReceivePacketSize is spec.md §6's channelReceivePacketSize default: a
// single CoAP message must fit in one UDP datagram of this size.
const ReceivePacketSize = 2048

// ErrClosed is returned by Send/receive handling once the channel has
// been closed.
var ErrClosed = errors.New("net: channel closed")

// ReceiveFunc is invoked once per inbound datagram, grounded on the
// spec's "onReceive(bytes, peer)" contract. It must not block: the
// channel delivers datagrams serially from its single read loop
// (spec.md §5's single suspension point for UDP receive).
type ReceiveFunc func(data []byte, peer net.Addr)

// Channel is the minimal UDP transport contract spec.md §6 requires of
// an external collaborator: best-effort non-blocking Send, and a
// one-datagram-per-call receive callback.
type Channel interface {
	// Send transmits b to peer. Best-effort: no delivery or ordering
	// guarantee, matching UDP semantics.
	Send(b []byte, peer net.Addr) error
	// SetReceiveHandler installs the callback invoked for every inbound
	// datagram. Must be called before Serve.
	SetReceiveHandler(ReceiveFunc)
	// Serve runs the receive loop until the channel is closed. It
	// occupies the caller's goroutine — the client façade's single event
	// loop (spec.md §5) runs this in its own goroutine.
	Serve() error
	LocalAddr() net.Addr
	Close() error
}

// UDPChannel is the default Channel, backed by a *net.UDPConn.
// Grounded on the teacher's net/udp.go/net/connUDP.go, narrowed to the
// plain (non-DTLS, non-OOB-destination-tracking) path this engine needs:
// CoAP over UDP only cares about the peer address, not which local
// interface a multicast packet landed on.
type UDPChannel struct {
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn // used only to pin TTL/hop-limit for multicast pings
	recv    ReceiveFunc
	bufSize int

	mu     sync.Mutex
	closed bool
}

// NewUDPChannel opens a UDP socket on laddr (":0" picks an ephemeral
// port) and wraps it as a Channel.
func NewUDPChannel(laddr *net.UDPAddr) (*UDPChannel, error) {
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("net: listen udp: %w", err)
	}
	return &UDPChannel{
		conn:    conn,
		pconn:   ipv4.NewPacketConn(conn),
		bufSize: ReceivePacketSize,
	}, nil
}

// SetMulticastHopLimit pins the outgoing hop limit used for multicast
// sends on this channel, grounded on the teacher's use of
// golang.org/x/net/ipv4 to control multicast TTL for discovery pings.
func (c *UDPChannel) SetMulticastHopLimit(hops int) error {
	return c.pconn.SetMulticastTTL(hops)
}

func (c *UDPChannel) SetReceiveHandler(fn ReceiveFunc) { c.recv = fn }

func (c *UDPChannel) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Send writes b to peer. Non-blocking in the sense UDP sends always are:
// it returns once the datagram is handed to the kernel, without waiting
// for delivery.
func (c *UDPChannel) Send(b []byte, peer net.Addr) error {
	udpAddr, ok := peer.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("net: peer is not a *net.UDPAddr: %T", peer)
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	_, err := c.conn.WriteToUDP(b, udpAddr)
	return err
}

// Serve reads datagrams until the channel is closed, delivering each one
// to the installed ReceiveFunc. One call per datagram; malformed-message
// handling happens entirely above this layer (spec.md §4.1/§7).
func (c *UDPChannel) Serve() error {
	buf := make([]byte, c.bufSize)
	for {
		n, addr, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		if c.recv != nil && n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			c.recv(data, addr)
		}
	}
}

func (c *UDPChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.conn.Close()
}
