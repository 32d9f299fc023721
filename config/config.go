// Package config holds one endpoint's immutable configuration, built via
// functional options and injected at construction (spec.md §9 Design
// Note: "re-architect as an endpoint-owned immutable configuration value
// injected at construction; tests construct fresh endpoints" — replacing
// the teacher's CoapConfig.inst package-level singleton). Grounded on the
// shape of options/config/common.go and options/udpOptions.go, rewritten
// without generics since this engine has a single concrete transport.
package config

import "time"

// ErrorFunc is the seam every layer uses to report an already-handled,
// non-fatal condition (spec.md §7 "Propagation policy"). No logging
// backend is bundled; callers wire in zap/zerolog/slog/etc. here,
// matching the teacher's own injected `Errors ErrorFunc` convention.
type ErrorFunc func(error)

// Config is the full set of tunables from spec.md §6, with their
// specified defaults. It is built once via New(opts...) and never
// mutated afterwards; every component that needs a knob reads it from
// the Config value it was constructed with.
type Config struct {
	DefaultPort       uint16
	DefaultSecurePort uint16

	AckTimeout      time.Duration
	AckRandomFactor float64
	AckTimeoutScale float64
	MaxRetransmit   int32

	MaxMessageSize          uint32
	DefaultBlockSize        int
	BlockwiseStatusLifetime time.Duration

	UseRandomIDStart    bool
	UseRandomTokenStart bool

	NotificationMaxAge                 time.Duration
	NotificationCheckIntervalTime      time.Duration
	NotificationCheckIntervalCount     int
	NotificationReregistrationBackoff  time.Duration

	ExchangeLifetime      time.Duration
	MarkAndSweepInterval  time.Duration

	ChannelReceivePacketSize int

	// RequestTimeout bounds how long Send waits for a response before
	// resolving with Response=none (spec.md §4.7).
	RequestTimeout time.Duration

	Errors ErrorFunc
}

// New builds a Config from spec.md §6's defaults, applying opts in order.
func New(opts ...Option) Config {
	cfg := Config{
		DefaultPort:       5683,
		DefaultSecurePort: 5684,

		AckTimeout:      2000 * time.Millisecond,
		AckRandomFactor: 1.5,
		AckTimeoutScale: 2.0,
		MaxRetransmit:   4,

		MaxMessageSize:          1024,
		DefaultBlockSize:        512,
		BlockwiseStatusLifetime: 600000 * time.Millisecond,

		UseRandomIDStart:    true,
		UseRandomTokenStart: true,

		NotificationMaxAge:                128000 * time.Millisecond,
		NotificationCheckIntervalTime:      86400000 * time.Millisecond,
		NotificationCheckIntervalCount:     100,
		NotificationReregistrationBackoff: 2000 * time.Millisecond,

		ExchangeLifetime:     247000 * time.Millisecond,
		MarkAndSweepInterval: 10000 * time.Millisecond,

		ChannelReceivePacketSize: 2048,

		RequestTimeout: 32767 * time.Millisecond,

		Errors: func(error) {},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// Option mutates a Config under construction. Grounded on
// options/udpOptions.go's functional-option idiom.
type Option func(*Config)

func WithAckTimeout(d time.Duration) Option      { return func(c *Config) { c.AckTimeout = d } }
func WithAckRandomFactor(f float64) Option       { return func(c *Config) { c.AckRandomFactor = f } }
func WithMaxRetransmit(n int32) Option           { return func(c *Config) { c.MaxRetransmit = n } }
func WithDefaultBlockSize(n int) Option          { return func(c *Config) { c.DefaultBlockSize = n } }
func WithRequestTimeout(d time.Duration) Option  { return func(c *Config) { c.RequestTimeout = d } }
func WithErrors(f ErrorFunc) Option              { return func(c *Config) { c.Errors = f } }
func WithExchangeLifetime(d time.Duration) Option {
	return func(c *Config) { c.ExchangeLifetime = d }
}
func WithUseRandomIDStart(b bool) Option    { return func(c *Config) { c.UseRandomIDStart = b } }
func WithUseRandomTokenStart(b bool) Option { return func(c *Config) { c.UseRandomTokenStart = b } }
