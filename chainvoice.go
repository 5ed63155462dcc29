// Package chainvoice is the contract-interaction and reconciliation
// layer of an invoicing/payment dashboard built on an externally
// deployed invoice contract and a cross-chain payment-automation
// contract. The presentation layer consumes this package through plain
// function calls; contract logic and settlement live on-chain.
package chainvoice

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/analytics"
	"github.com/vitwit/chainvoice/autoexec"
	"github.com/vitwit/chainvoice/contracts"
	"github.com/vitwit/chainvoice/explorer"
	"github.com/vitwit/chainvoice/flows"
	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/metrics"
	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
)

// Chainvoice wires the registry, resolver, contract facades, flows, and
// the auto-execution poller behind one entry point.
type Chainvoice struct {
	registry *registry.Registry
	resolver *providers.Resolver
	wallet   providers.Wallet
	locator  *contracts.Locator
	flows    *flows.Service
	explorer *explorer.Client
	log      logger.Logger
	metrics  metrics.Recorder

	pollInterval  time.Duration
	submitSpacing time.Duration
	poller        *autoexec.Poller
}

// New builds the interaction layer around a connected wallet.
func New(cfg Config, opts ...Option) (*Chainvoice, error) {
	if cfg.Wallet == nil {
		return nil, fmt.Errorf("chainvoice: a wallet is required")
	}

	reg := cfg.Registry
	if reg == nil {
		var err error
		reg, err = registry.Builtin()
		if err != nil {
			return nil, err
		}
	}

	c := &Chainvoice{
		registry:      reg,
		wallet:        cfg.Wallet,
		log:           logger.NoopLogger{},
		metrics:       metrics.NoopRecorder{},
		pollInterval:  cfg.PollInterval,
		submitSpacing: cfg.SubmitSpacing,
	}

	var dial providers.Dialer
	settleDelay := cfg.SettleDelay
	if settleDelay == 0 {
		settleDelay = flows.DefaultSettleDelay
	}
	for _, opt := range opts {
		opt(c, &dial, &settleDelay)
	}

	c.resolver = providers.NewResolver(dial, c.log)
	c.locator = contracts.NewLocator(reg, dial, c.log)
	c.flows = flows.NewService(reg, c.resolver, cfg.Wallet, c.locator, c.log, c.metrics, settleDelay)
	c.explorer = explorer.New(cfg.ExplorerAPIKey, c.log)
	return c, nil
}

// ActiveNetwork resolves the wallet's current chain to a network
// config. The second return is false when the chain is unsupported and
// the default config was substituted — the dashboard may then be
// displaying data for the wrong chain.
func (c *Chainvoice) ActiveNetwork(ctx context.Context) (registry.Config, bool, error) {
	chainID, err := c.wallet.ChainID(ctx)
	if err != nil {
		return registry.Config{}, false, err
	}
	cfg, exact := c.registry.Lookup(chainID)
	return cfg, exact, nil
}

// Networks returns every registered network config.
func (c *Chainvoice) Networks() []registry.Config {
	return c.registry.All()
}

// Invoice reads one invoice with cross-network disambiguation.
func (c *Chainvoice) Invoice(ctx context.Context, hash common.Hash) (*types.InvoiceRecord, error) {
	cfg, binding, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}
	return c.locator.FindInvoice(ctx, hash, cfg, binding.Backend)
}

// CreateInvoice submits a new invoice.
func (c *Chainvoice) CreateInvoice(ctx context.Context, req flows.CreateInvoiceRequest) (common.Hash, error) {
	return c.flows.CreateInvoice(ctx, req)
}

// PayInvoice pays an invoice, running the approval sequence first for
// non-native assets.
func (c *Chainvoice) PayInvoice(ctx context.Context, hash common.Hash) error {
	return c.flows.PayInvoice(ctx, hash)
}

// SchedulePayment schedules an automation payment.
func (c *Chainvoice) SchedulePayment(ctx context.Context, req flows.SchedulePaymentRequest) (common.Hash, error) {
	return c.flows.SchedulePayment(ctx, req)
}

// ExecutePayment executes one scheduled payment with confirmation.
func (c *Chainvoice) ExecutePayment(ctx context.Context, id uint64) error {
	return c.flows.ExecutePayment(ctx, id)
}

// FlowState exposes the current orchestration state for rendering.
func (c *Chainvoice) FlowState() flows.State {
	return c.flows.State()
}

// ListPayments reads every scheduled payment on the active network.
func (c *Chainvoice) ListPayments(ctx context.Context) ([]*types.ScheduledPayment, error) {
	cfg, binding, err := c.bind(ctx)
	if err != nil {
		return nil, err
	}
	if cfg.AutomationAddr == (common.Address{}) {
		return nil, nil
	}
	return contracts.NewAutomation(cfg.AutomationAddr, binding.Backend).ListPayments(ctx)
}

// Authorization recomputes the account's authorization status against
// the automation contract. Call again after any account or network
// change; the result is never persisted.
func (c *Chainvoice) Authorization(ctx context.Context, account common.Address) (types.AuthorizationStatus, error) {
	cfg, binding, err := c.bind(ctx)
	if err != nil {
		return types.AuthorizationStatus{}, err
	}
	if cfg.AutomationAddr == (common.Address{}) {
		return types.AuthorizationStatus{}, nil
	}
	return contracts.NewAutomation(cfg.AutomationAddr, binding.Backend).Authorization(ctx, account)
}

// ExecutablePayments returns the scheduled payments the connected
// account could execute right now.
func (c *Chainvoice) ExecutablePayments(ctx context.Context) ([]*types.ScheduledPayment, error) {
	account, err := c.wallet.Account(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := c.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	auth, err := c.Authorization(ctx, account)
	if err != nil {
		return nil, err
	}
	return analytics.ExecutableSet(payments, account, auth, time.Now()), nil
}

// Aggregate buckets paid invoices for chart display on the active
// network's token metadata.
func (c *Chainvoice) Aggregate(ctx context.Context, invoices []*types.InvoiceRecord, window analytics.Window) ([]analytics.Bucket, error) {
	cfg, _, err := c.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Aggregate(invoices, window, time.Now(), cfg), nil
}

// Transactions lists the account's transactions from the active
// network's block explorer. Display only.
func (c *Chainvoice) Transactions(ctx context.Context, account common.Address) ([]explorer.Transaction, error) {
	cfg, _, err := c.ActiveNetwork(ctx)
	if err != nil {
		return nil, err
	}
	return c.explorer.Transactions(ctx, cfg.ExplorerAPI, cfg.ExplorerKey, account)
}

// StartAutoExecution begins the background poller. Safe to call
// repeatedly; each tick re-reads the wallet's connected account, so a
// stop → account switch → start cycle scans as the new signer.
func (c *Chainvoice) StartAutoExecution(ctx context.Context) error {
	if c.poller == nil {
		var opts []autoexec.Option
		if c.pollInterval > 0 {
			opts = append(opts, autoexec.WithInterval(c.pollInterval))
		}
		if c.submitSpacing > 0 {
			opts = append(opts, autoexec.WithSubmitSpacing(c.submitSpacing))
		}
		c.poller = autoexec.New(c, c.flows, c.Authorization, c.wallet.Account, c.log, c.metrics, opts...)
	}
	c.poller.Start()
	return nil
}

// StopAutoExecution halts the poller. Idempotent; in-flight
// submissions are not cancelled.
func (c *Chainvoice) StopAutoExecution() {
	if c.poller != nil {
		c.poller.Stop()
	}
}

// AutoExecutionRunning reports whether the poller is active.
func (c *Chainvoice) AutoExecutionRunning() bool {
	return c.poller != nil && c.poller.Running()
}

// bind resolves the active network and a safe provider binding for one
// call sequence.
func (c *Chainvoice) bind(ctx context.Context) (registry.Config, providers.Binding, error) {
	cfg, _, err := c.ActiveNetwork(ctx)
	if err != nil {
		return registry.Config{}, providers.Binding{}, err
	}
	binding, err := c.resolver.Resolve(ctx, c.wallet, cfg)
	if err != nil {
		return registry.Config{}, providers.Binding{}, err
	}
	return cfg, binding, nil
}
