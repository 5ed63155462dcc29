package contracts

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
)

// Locator reads invoices with cross-network disambiguation: a hash
// missing on the active network is probed on every other registered
// network before NotFound is reported, so "wrong network" and "truly
// does not exist" produce different errors.
type Locator struct {
	registry *registry.Registry
	dial     providers.Dialer
	log      logger.Logger
}

func NewLocator(reg *registry.Registry, dial providers.Dialer, log logger.Logger) *Locator {
	if dial == nil {
		dial = providers.DialRPC
	}
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Locator{registry: reg, dial: dial, log: log}
}

// FindInvoice reads hash on the active network's backend. On a miss it
// probes the other registered networks over their fallback RPCs and, if
// found, returns FoundOnOtherNetworkError naming where.
func (l *Locator) FindInvoice(ctx context.Context, hash common.Hash, active registry.Config, backend providers.Backend) (*types.InvoiceRecord, error) {
	if active.InvoiceAddr != (common.Address{}) {
		record, err := NewInvoicing(active.InvoiceAddr, backend).ReadInvoice(ctx, hash)
		if err == nil {
			return record, nil
		}
		var notFound *types.NotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	for _, cfg := range l.registry.All() {
		if cfg.ChainID == active.ChainID || cfg.FallbackRPC == "" || cfg.InvoiceAddr == (common.Address{}) {
			continue
		}
		other, err := l.dial(ctx, cfg.FallbackRPC)
		if err != nil {
			l.log.Warn("secondary lookup dial failed", map[string]any{
				"network": cfg.Name, "error": err.Error(),
			})
			continue
		}
		record, err := NewInvoicing(cfg.InvoiceAddr, other).ReadInvoice(ctx, hash)
		if err == nil {
			return nil, &types.FoundOnOtherNetworkError{
				Hash:    hash,
				Network: cfg.Name,
				ChainID: cfg.ChainID,
				Record:  record,
			}
		}
	}

	return nil, &types.NotFoundError{Hash: hash}
}
