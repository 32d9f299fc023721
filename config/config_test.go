package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAppliesSpecDefaults(t *testing.T) {
	cfg := New()

	require.Equal(t, uint16(5683), cfg.DefaultPort)
	require.Equal(t, uint16(5684), cfg.DefaultSecurePort)
	require.Equal(t, 2*time.Second, cfg.AckTimeout)
	require.Equal(t, 1.5, cfg.AckRandomFactor)
	require.Equal(t, 2.0, cfg.AckTimeoutScale)
	require.Equal(t, int32(4), cfg.MaxRetransmit)
	require.Equal(t, uint32(1024), cfg.MaxMessageSize)
	require.Equal(t, 512, cfg.DefaultBlockSize)
	require.Equal(t, 10*time.Minute, cfg.BlockwiseStatusLifetime)
	require.True(t, cfg.UseRandomIDStart)
	require.True(t, cfg.UseRandomTokenStart)
	require.Equal(t, 128*time.Second, cfg.NotificationMaxAge)
	require.Equal(t, 247*time.Second, cfg.ExchangeLifetime)
	require.Equal(t, 10*time.Second, cfg.MarkAndSweepInterval)
	require.Equal(t, 2048, cfg.ChannelReceivePacketSize)
	require.Equal(t, 32767*time.Millisecond, cfg.RequestTimeout)
	require.NotNil(t, cfg.Errors)
	require.NotPanics(t, func() { cfg.Errors(errors.New("ignored")) })
}

func TestOptionsOverrideDefaults(t *testing.T) {
	var captured error
	cfg := New(
		WithAckTimeout(500*time.Millisecond),
		WithAckRandomFactor(1.0),
		WithMaxRetransmit(2),
		WithDefaultBlockSize(64),
		WithRequestTimeout(2*time.Second),
		WithExchangeLifetime(30*time.Second),
		WithUseRandomIDStart(false),
		WithUseRandomTokenStart(false),
		WithErrors(func(err error) { captured = err }),
	)

	require.Equal(t, 500*time.Millisecond, cfg.AckTimeout)
	require.Equal(t, 1.0, cfg.AckRandomFactor)
	require.Equal(t, int32(2), cfg.MaxRetransmit)
	require.Equal(t, 64, cfg.DefaultBlockSize)
	require.Equal(t, 2*time.Second, cfg.RequestTimeout)
	require.Equal(t, 30*time.Second, cfg.ExchangeLifetime)
	require.False(t, cfg.UseRandomIDStart)
	require.False(t, cfg.UseRandomTokenStart)

	sentinel := errors.New("boom")
	cfg.Errors(sentinel)
	require.Equal(t, sentinel, captured)
}

func TestNewIsIndependentPerCall(t *testing.T) {
	a := New(WithAckTimeout(9 * time.Second))
	b := New()

	require.Equal(t, 9*time.Second, a.AckTimeout)
	require.Equal(t, 2*time.Second, b.AckTimeout)
}
