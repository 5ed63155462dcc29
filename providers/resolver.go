package providers

import (
	"context"

	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
)

// Resolver produces a usable Binding for a target network, reconciling
// disagreement between the wallet and its injected provider.
type Resolver struct {
	dial Dialer
	log  logger.Logger
}

// NewResolver builds a resolver. A nil dialer uses DialRPC.
func NewResolver(dial Dialer, log logger.Logger) *Resolver {
	if dial == nil {
		dial = DialRPC
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Resolver{dial: dial, log: log}
}

// Resolve picks the provider for target.
//
// The injected backend's own chain query wins when it agrees with the
// target. When it disagrees (or fails) but the wallet-reported chain id
// matches the target — a known transient desync right after a network
// switch — a registered direct RPC endpoint is used instead. Anything
// else is a mismatch, and callers must not submit transactions.
func (r *Resolver) Resolve(ctx context.Context, wallet Wallet, target registry.Config) (Binding, error) {
	var providerChainID uint64
	backendID, err := wallet.Backend().ChainID(ctx)
	if err == nil && backendID != nil {
		providerChainID = backendID.Uint64()
		if providerChainID == target.ChainID {
			return Binding{Backend: wallet.Backend(), ChainID: target.ChainID}, nil
		}
	} else if err != nil {
		r.log.Warn("injected provider chain query failed", map[string]any{
			"target": target.Name, "error": err.Error(),
		})
	}

	walletChainID, werr := wallet.ChainID(ctx)
	if werr == nil && walletChainID == target.ChainID && target.FallbackRPC != "" {
		backend, derr := r.dial(ctx, target.FallbackRPC)
		if derr != nil {
			return Binding{}, types.NewError(types.ErrProviderInternal,
				"fallback RPC for %s unreachable: %v", target.Name, derr)
		}
		r.log.Info("using fallback RPC", map[string]any{
			"network": target.Name, "provider_chain": providerChainID,
		})
		return Binding{Backend: backend, ChainID: target.ChainID, UsedFallback: true}, nil
	}

	return Binding{}, &types.NetworkMismatchError{
		WalletChainID:   walletChainID,
		ProviderChainID: providerChainID,
		TargetChainID:   target.ChainID,
	}
}
