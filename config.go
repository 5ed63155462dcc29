package chainvoice

import (
	"os"
	"time"

	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
)

// Config is the construction-time configuration of the interaction
// layer. Contract addresses live on the registry configs; see
// registry.Builtin for the environment variables that supply them.
type Config struct {
	// Wallet is the injected browser wallet boundary. Required.
	Wallet providers.Wallet

	// Registry overrides the compiled-in network table. Nil selects
	// registry.Builtin().
	Registry *registry.Registry

	// ExplorerAPIKey is the shared fallback key for block-explorer
	// reads, used for networks whose registry config carries no key of
	// its own. Optional; explorers rate-limit unauthenticated requests.
	ExplorerAPIKey string

	// SettleDelay, PollInterval, and SubmitSpacing are the only timing
	// knobs. Zero selects the defaults.
	SettleDelay   time.Duration
	PollInterval  time.Duration
	SubmitSpacing time.Duration
}

// FromEnv builds a Config for the given wallet from the environment:
// CHAINVOICE_EXPLORER_KEY, CHAINVOICE_SETTLE_DELAY,
// CHAINVOICE_POLL_INTERVAL, CHAINVOICE_SUBMIT_SPACING. Malformed
// durations are ignored in favor of the defaults.
func FromEnv(wallet providers.Wallet) Config {
	return Config{
		Wallet:         wallet,
		ExplorerAPIKey: os.Getenv("CHAINVOICE_EXPLORER_KEY"),
		SettleDelay:    envDuration("CHAINVOICE_SETTLE_DELAY"),
		PollInterval:   envDuration("CHAINVOICE_POLL_INTERVAL"),
		SubmitSpacing:  envDuration("CHAINVOICE_SUBMIT_SPACING"),
	}
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return 0
	}
	return d
}
