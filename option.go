package chainvoice

import (
	"time"

	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/metrics"
	"github.com/vitwit/chainvoice/providers"
)

// Option customizes construction. Options run before the internal
// services are wired, so they may swap the logger, recorder, dialer,
// and timing knobs.
type Option func(c *Chainvoice, dial *providers.Dialer, settleDelay *time.Duration)

func WithLogger(l logger.Logger) Option {
	return func(c *Chainvoice, _ *providers.Dialer, _ *time.Duration) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Chainvoice, _ *providers.Dialer, _ *time.Duration) {
		c.metrics = r
	}
}

// WithDialer swaps the direct-RPC dialer used for fallbacks and
// secondary lookups.
func WithDialer(d providers.Dialer) Option {
	return func(_ *Chainvoice, dial *providers.Dialer, _ *time.Duration) {
		*dial = d
	}
}

// WithSettleDelay overrides the wait between confirmation and the
// dependent re-read.
func WithSettleDelay(d time.Duration) Option {
	return func(_ *Chainvoice, _ *providers.Dialer, settleDelay *time.Duration) {
		if d >= 0 {
			*settleDelay = d
		}
	}
}

// WithPollInterval overrides the auto-execution scan period.
func WithPollInterval(d time.Duration) Option {
	return func(c *Chainvoice, _ *providers.Dialer, _ *time.Duration) {
		c.pollInterval = d
	}
}

// WithSubmitSpacing overrides the delay between consecutive poller
// submissions within one tick.
func WithSubmitSpacing(d time.Duration) Option {
	return func(c *Chainvoice, _ *providers.Dialer, _ *time.Duration) {
		c.submitSpacing = d
	}
}
