package coapuri

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/457948250/coap/message"
)

func TestParseDefaultsPort(t *testing.T) {
	p, err := Parse("coap://example.org/sensors/temp")
	require.NoError(t, err)
	require.Equal(t, "example.org", p.Host)
	require.Equal(t, uint16(DefaultPort), p.Port)
	require.Equal(t, "/sensors/temp", p.Path)
}

func TestParseExplicitPortAndQuery(t *testing.T) {
	p, err := Parse("coap://10.0.0.1:5001/a/b?x=1&y=2")
	require.NoError(t, err)
	require.Equal(t, uint16(5001), p.Port)
	require.Equal(t, "/a/b", p.Path)
	require.Equal(t, []string{"x=1", "y=2"}, p.Query)
}

func TestParseRejectsUnsupportedScheme(t *testing.T) {
	_, err := Parse("http://example.org/")
	require.Error(t, err)
}

func TestParseRejectsMissingHost(t *testing.T) {
	_, err := Parse("coap:///path")
	require.Error(t, err)
}

func TestOptionsOmitsHostPortWhenMatchingDest(t *testing.T) {
	p := &Parsed{Host: "192.0.2.1", Port: DefaultPort, Path: "/a"}
	dest := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: DefaultPort}

	opts := p.Options(dest)
	require.False(t, opts.HasOption(message.URIHost))
	require.False(t, opts.HasOption(message.URIPort))
	path, err := opts.Path()
	require.NoError(t, err)
	require.Equal(t, "a", path)
}

func TestOptionsIncludesHostPortWhenDiffering(t *testing.T) {
	p := &Parsed{Host: "proxy.example.org", Port: 9999, Path: "/a"}
	dest := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: DefaultPort}

	opts := p.Options(dest)
	require.True(t, opts.HasOption(message.URIHost))
	require.True(t, opts.HasOption(message.URIPort))
	host, err := opts.GetString(message.URIHost)
	require.NoError(t, err)
	require.Equal(t, "proxy.example.org", host)
}

func TestStringRoundTripsPathAndQuery(t *testing.T) {
	dest := &net.UDPAddr{IP: net.ParseIP("192.0.2.1"), Port: DefaultPort}
	var opts message.Options
	opts = opts.SetPath("a/b")
	opts = opts.Add(message.Option{ID: message.URIQuery, Value: []byte("x=1")})

	s := String(dest, opts)
	require.Equal(t, "coap://192.0.2.1:5683/a/b?x=1", s)
}

func TestResolveUDPAddr(t *testing.T) {
	p := &Parsed{Host: "127.0.0.1", Port: 5683}
	addr, err := p.ResolveUDPAddr()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", addr.IP.String())
	require.Equal(t, 5683, addr.Port)
}
