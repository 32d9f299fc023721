// Package coapuri converts between a coap:// URI and the CoAP option
// sequence that represents it on the wire (spec.md §6 "URI scheme"):
// Uri-Host/Uri-Port when they differ from the destination, repeated
// Uri-Path segments, and repeated Uri-Query k=v pairs.
package coapuri

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/457948250/coap/message"
)

// DefaultPort is coap://'s default port when the URI carries none
// (spec.md §6).
const DefaultPort = 5683

// Parsed is a decomposed coap:// URI: the address to send to, plus the
// options that should be attached to the outgoing request.
type Parsed struct {
	Host string
	Port uint16
	Path string
	Query []string
}

// Parse decomposes a coap://host[:port]/path?query URI.
func Parse(raw string) (*Parsed, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("coapuri: %w", err)
	}
	if u.Scheme != "coap" && u.Scheme != "coaps" {
		return nil, fmt.Errorf("coapuri: unsupported scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("coapuri: missing host in %q", raw)
	}
	port := uint16(DefaultPort)
	if p := u.Port(); p != "" {
		n, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("coapuri: invalid port %q: %w", p, err)
		}
		port = uint16(n)
	}
	var query []string
	if u.RawQuery != "" {
		query = strings.Split(u.RawQuery, "&")
	}
	return &Parsed{Host: host, Port: port, Path: u.Path, Query: query}, nil
}

// ResolveUDPAddr resolves p's host/port to a *net.UDPAddr, the façade's
// DNS-resolution external collaborator (spec.md §1/§4.7).
func (p *Parsed) ResolveUDPAddr() (*net.UDPAddr, error) {
	addr := net.JoinHostPort(p.Host, strconv.Itoa(int(p.Port)))
	return net.ResolveUDPAddr("udp", addr)
}

// Options builds the Uri-Host/Uri-Port/Uri-Path/Uri-Query option sequence
// for a request to p, destined for dest. Uri-Host/Uri-Port are omitted
// when they match dest exactly, per RFC 7252 §6.4 (they're only needed
// when the request is proxied or the name doesn't match the destination
// address).
func (p *Parsed) Options(dest *net.UDPAddr) message.Options {
	var opts message.Options
	if dest == nil || !hostMatches(p.Host, dest) {
		opts = opts.Add(message.Option{ID: message.URIHost, Value: []byte(p.Host)})
	}
	if dest == nil || p.Port != uint16(dest.Port) {
		opts = opts.AddUint32(message.URIPort, uint32(p.Port))
	}
	opts = opts.SetPath(p.Path)
	for _, q := range p.Query {
		opts = opts.Add(message.Option{ID: message.URIQuery, Value: []byte(q)})
	}
	return opts
}

func hostMatches(host string, dest *net.UDPAddr) bool {
	if host == dest.IP.String() {
		return true
	}
	ips, err := net.LookupIP(host)
	if err != nil {
		return false
	}
	for _, ip := range ips {
		if ip.Equal(dest.IP) {
			return true
		}
	}
	return false
}

// String reconstructs a coap:// URI from an option sequence and the
// destination actually used, the inverse of Options.
func String(dest *net.UDPAddr, opts message.Options) string {
	host := dest.IP.String()
	if h, err := opts.GetString(message.URIHost); err == nil {
		host = h
	}
	port := dest.Port
	if p, err := opts.GetUint32(message.URIPort); err == nil {
		port = int(p)
	}
	path, _ := opts.Path()
	u := url.URL{Scheme: "coap", Host: net.JoinHostPort(host, strconv.Itoa(port)), Path: "/" + path}
	if qs := opts.Queries(); len(qs) > 0 {
		u.RawQuery = strings.Join(qs, "&")
	}
	return u.String()
}
