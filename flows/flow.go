// Package flows sequences user-initiated contract writes: validate →
// resolve provider → (conditional) approval → submit → await
// confirmation → refresh. One flow may be in flight at a time; the
// auto-execution poller submits through a separate non-blocking path.
package flows

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/vitwit/chainvoice/approval"
	"github.com/vitwit/chainvoice/contracts"
	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/metrics"
	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/registry"
	"github.com/vitwit/chainvoice/types"
	"github.com/vitwit/chainvoice/utils"
)

// State is the observable position of the current flow.
type State string

const (
	StateIdle                 State = "idle"
	StateValidating           State = "validating"
	StateApproving            State = "approving"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateRefreshing           State = "refreshing"
	StateFailed               State = "failed"
)

// DefaultSettleDelay is the fixed wait after confirmation before
// dependent state is re-read, to tolerate indexing lag.
const DefaultSettleDelay = 3 * time.Second

// Service runs the payment orchestration flows against one wallet.
type Service struct {
	registry    *registry.Registry
	resolver    *providers.Resolver
	wallet      providers.Wallet
	locator     *contracts.Locator
	submitter   *contracts.Submitter
	log         logger.Logger
	metrics     metrics.Recorder
	settleDelay time.Duration
	validate    *validator.Validate

	mu    sync.Mutex
	state State
}

// NewService wires a flow service. Nil logger/recorder default to noop;
// a negative settleDelay selects DefaultSettleDelay.
func NewService(reg *registry.Registry, resolver *providers.Resolver, wallet providers.Wallet, locator *contracts.Locator, log logger.Logger, rec metrics.Recorder, settleDelay time.Duration) *Service {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	if settleDelay < 0 {
		settleDelay = DefaultSettleDelay
	}
	return &Service{
		registry:    reg,
		resolver:    resolver,
		wallet:      wallet,
		locator:     locator,
		submitter:   contracts.NewSubmitter(wallet, log),
		log:         log,
		metrics:     rec,
		settleDelay: settleDelay,
		validate:    validator.New(),
		state:       StateIdle,
	}
}

// State returns the current flow state for the presentation layer.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// begin takes the submitting flag. Re-entrant submission from the UI is
// rejected until the current flow reaches Idle or Failed.
func (s *Service) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle && s.state != StateFailed {
		return types.NewError(types.ErrValidation, "another operation is already in flight")
	}
	s.state = StateValidating
	return nil
}

func (s *Service) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

// finish releases the flow, classifying and counting a failure.
func (s *Service) finish(cfg registry.Config, op string, err error) error {
	if err == nil {
		s.setState(StateIdle)
		return nil
	}
	s.setState(StateFailed)
	failure := ClassifyFailure(err)
	s.metrics.IncCounter("flow_failed_"+string(failure.Class), map[string]string{"network": cfg.Name})
	s.log.Warn("flow failed", map[string]any{
		"operation": op, "class": string(failure.Class), "error": err.Error(),
	})
	return err
}

// activeConfig derives the network config for the wallet's current
// chain. An unsupported chain silently degrades to the default config,
// which is logged because the dashboard may then show the wrong chain.
func (s *Service) activeConfig(ctx context.Context) (registry.Config, error) {
	chainID, err := s.wallet.ChainID(ctx)
	if err != nil {
		return registry.Config{}, contracts.ClassifySubmitError(err)
	}
	cfg, exact := s.registry.Lookup(chainID)
	if !exact {
		s.log.Warn("wallet chain is unsupported, using default network", map[string]any{
			"wallet_chain": chainID, "default": cfg.Name,
		})
	}
	return cfg, nil
}

// CreateInvoiceRequest is the validated input of CreateInvoice.
type CreateInvoiceRequest struct {
	// Token is the payment asset's contract address; empty selects the
	// native asset.
	Token string `validate:"omitempty,eth_addr_checksum"`

	// Amount is the human-readable decimal amount.
	Amount string `validate:"required"`

	// DueBy is a unix timestamp; 0 means no expiry.
	DueBy uint64

	Memo        string `validate:"max=256"`
	LogoURI     string `validate:"omitempty,url"`
	Description string `validate:"max=1024"`
}

// CreateInvoice submits a new invoice and returns the transaction hash.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (common.Hash, error) {
	if err := s.begin(); err != nil {
		return common.Hash{}, err
	}
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return common.Hash{}, s.finish(cfg, "create_invoice", err)
	}

	txHash, err := s.createInvoice(ctx, cfg, req)
	return txHash, s.finish(cfg, "create_invoice", err)
}

func (s *Service) createInvoice(ctx context.Context, cfg registry.Config, req CreateInvoiceRequest) (common.Hash, error) {
	if err := s.validateInput(req); err != nil {
		return common.Hash{}, err
	}
	if !cfg.InvoiceWritesEnabled() {
		return common.Hash{}, writeDisabled(cfg, "invoice")
	}

	token := common.Address{}
	if req.Token != "" {
		token = common.HexToAddress(req.Token)
	}

	binding, err := s.resolveBinding(ctx, cfg)
	if err != nil {
		return common.Hash{}, err
	}

	amount, err := utils.ParseAmount(req.Amount, s.tokenDecimals(ctx, cfg, token, binding))
	if err != nil {
		return common.Hash{}, types.NewError(types.ErrValidation, "%v", err)
	}

	s.setState(StateSubmitting)
	txHash, err := s.submitter.Submit(ctx, cfg.InvoiceAddr, contracts.InvoiceABI(), "createInvoice", nil,
		token, amount, new(big.Int).SetUint64(req.DueBy), req.Memo, req.LogoURI, req.Description)
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.confirmAndSettle(ctx, cfg, binding, txHash, "create_invoice"); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

// PayInvoice looks up the invoice on the active network, runs the
// approval sequence for non-native assets, and pays it.
func (s *Service) PayInvoice(ctx context.Context, hash common.Hash) error {
	if err := s.begin(); err != nil {
		return err
	}
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return s.finish(cfg, "pay_invoice", err)
	}
	return s.finish(cfg, "pay_invoice", s.payInvoice(ctx, cfg, hash))
}

func (s *Service) payInvoice(ctx context.Context, cfg registry.Config, hash common.Hash) error {
	if !cfg.InvoiceWritesEnabled() {
		return writeDisabled(cfg, "invoice")
	}

	binding, err := s.resolveBinding(ctx, cfg)
	if err != nil {
		return err
	}

	record, err := s.locator.FindInvoice(ctx, hash, cfg, binding.Backend)
	if err != nil {
		return err
	}
	if record.IsPaid {
		return types.NewError(types.ErrValidation, "invoice %s is already paid", hash.Hex())
	}

	account, err := s.wallet.Account(ctx)
	if err != nil {
		return contracts.ClassifySubmitError(err)
	}

	var value *big.Int
	if record.Token == (common.Address{}) {
		value = record.Amount
	} else {
		s.setState(StateApproving)
		seq := approval.NewSequencer(binding, s.submitter, s.log, s.metrics)
		if err := seq.EnsureApproved(ctx, record.Token, cfg.InvoiceAddr, record.Amount, account); err != nil {
			return err
		}
	}

	s.setState(StateSubmitting)
	txHash, err := s.submitter.Submit(ctx, cfg.InvoiceAddr, contracts.InvoiceABI(), "payInvoice", value, hash)
	if err != nil {
		return err
	}

	if err := s.confirmAndSettle(ctx, cfg, binding, txHash, "pay_invoice"); err != nil {
		return err
	}

	// Re-fetch the affected record after the settle delay.
	refreshed, err := contracts.NewInvoicing(cfg.InvoiceAddr, binding.Backend).ReadInvoice(ctx, hash)
	if err != nil {
		s.log.Warn("post-payment refresh failed", map[string]any{"hash": hash.Hex(), "error": err.Error()})
		return nil
	}
	if !refreshed.IsPaid {
		s.log.Warn("invoice still unpaid after settle delay", map[string]any{"hash": hash.Hex()})
	}
	return nil
}

// SchedulePaymentRequest is the validated input of SchedulePayment.
// Scheduled payments move the native asset; the total is deposited with
// the schedule call.
type SchedulePaymentRequest struct {
	Recipients    []string `validate:"required,min=1,dive,eth_addr_checksum"`
	AmountPer     string   `validate:"required"`
	ScheduledTime uint64   `validate:"required"`
}

// SchedulePayment submits a scheduled payment and returns the
// transaction hash.
func (s *Service) SchedulePayment(ctx context.Context, req SchedulePaymentRequest) (common.Hash, error) {
	if err := s.begin(); err != nil {
		return common.Hash{}, err
	}
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return common.Hash{}, s.finish(cfg, "schedule_payment", err)
	}
	txHash, err := s.schedulePayment(ctx, cfg, req)
	return txHash, s.finish(cfg, "schedule_payment", err)
}

func (s *Service) schedulePayment(ctx context.Context, cfg registry.Config, req SchedulePaymentRequest) (common.Hash, error) {
	if err := s.validateInput(req); err != nil {
		return common.Hash{}, err
	}
	if !cfg.AutomationWritesEnabled() {
		return common.Hash{}, writeDisabled(cfg, "automation")
	}

	perRecipient, err := utils.ParseAmount(req.AmountPer, types.NativeDecimals)
	if err != nil {
		return common.Hash{}, types.NewError(types.ErrValidation, "%v", err)
	}

	recipients := make([]common.Address, len(req.Recipients))
	for i, r := range req.Recipients {
		recipients[i] = common.HexToAddress(r)
	}
	total := new(big.Int).Mul(perRecipient, big.NewInt(int64(len(recipients))))

	binding, err := s.resolveBinding(ctx, cfg)
	if err != nil {
		return common.Hash{}, err
	}

	s.setState(StateSubmitting)
	txHash, err := s.submitter.Submit(ctx, cfg.AutomationAddr, contracts.AutomationABI(), "schedulePayment", total,
		recipients, perRecipient, new(big.Int).SetUint64(req.ScheduledTime))
	if err != nil {
		return common.Hash{}, err
	}

	if err := s.confirmAndSettle(ctx, cfg, binding, txHash, "schedule_payment"); err != nil {
		return common.Hash{}, err
	}
	return txHash, nil
}

// ExecutePayment runs the full confirmation flow for one scheduled
// payment, as triggered by an explicit user action.
func (s *Service) ExecutePayment(ctx context.Context, id uint64) error {
	if err := s.begin(); err != nil {
		return err
	}
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return s.finish(cfg, "execute_payment", err)
	}
	return s.finish(cfg, "execute_payment", s.executePayment(ctx, cfg, id))
}

func (s *Service) executePayment(ctx context.Context, cfg registry.Config, id uint64) error {
	if !cfg.AutomationWritesEnabled() {
		return writeDisabled(cfg, "automation")
	}
	binding, err := s.resolveBinding(ctx, cfg)
	if err != nil {
		return err
	}

	s.setState(StateSubmitting)
	txHash, err := s.submitter.Submit(ctx, cfg.AutomationAddr, contracts.AutomationABI(), "executePayment", nil,
		new(big.Int).SetUint64(id))
	if err != nil {
		return err
	}
	return s.confirmAndSettle(ctx, cfg, binding, txHash, "execute_payment")
}

// SubmitExecute submits an execute call without waiting for its
// receipt. Used by the auto-execution poller, which must not block its
// scan on confirmations and does not take the submitting flag.
func (s *Service) SubmitExecute(ctx context.Context, id uint64) (common.Hash, error) {
	cfg, err := s.activeConfig(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	if !cfg.AutomationWritesEnabled() {
		return common.Hash{}, writeDisabled(cfg, "automation")
	}
	txHash, err := s.submitter.Submit(ctx, cfg.AutomationAddr, contracts.AutomationABI(), "executePayment", nil,
		new(big.Int).SetUint64(id))
	if err != nil {
		return common.Hash{}, err
	}
	s.metrics.IncCounter("auto_execute_submitted", map[string]string{"network": cfg.Name})
	return txHash, nil
}

func (s *Service) resolveBinding(ctx context.Context, cfg registry.Config) (providers.Binding, error) {
	binding, err := s.resolver.Resolve(ctx, s.wallet, cfg)
	if err != nil {
		return providers.Binding{}, err
	}
	if binding.UsedFallback {
		s.metrics.IncCounter("provider_fallback", map[string]string{"network": cfg.Name})
	}
	return binding, nil
}

// confirmAndSettle blocks on the receipt, then waits the settle delay
// so indexing catches up before dependent reads.
func (s *Service) confirmAndSettle(ctx context.Context, cfg registry.Config, binding providers.Binding, txHash common.Hash, op string) error {
	s.setState(StateAwaitingConfirmation)
	start := time.Now()
	receipt, err := providers.WaitMined(ctx, binding.Backend, txHash)
	if err != nil {
		return contracts.ClassifySubmitError(err)
	}
	s.metrics.ObserveLatency(op, time.Since(start), map[string]string{"network": cfg.Name})
	if receipt.Status == 0 {
		return types.NewError(types.ErrExecutionReverted, "transaction %s reverted", txHash.Hex())
	}

	s.setState(StateRefreshing)
	if err := sleepCtx(ctx, s.settleDelay); err != nil {
		return err
	}
	return nil
}

func (s *Service) validateInput(req any) error {
	if err := s.validate.Struct(req); err != nil {
		return types.NewError(types.ErrValidation, "%s", validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "eth_addr_checksum":
			parts = append(parts, fe.Field()+" must be a checksummed address")
		case "required":
			parts = append(parts, fe.Field()+" is required")
		default:
			parts = append(parts, fe.Field()+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// tokenDecimals prefers configured token metadata. A token missing from
// the registry is asked for its decimals on-chain; only if that read
// also fails does the native 18-decimal convention apply.
func (s *Service) tokenDecimals(ctx context.Context, cfg registry.Config, token common.Address, binding providers.Binding) int32 {
	if token == (common.Address{}) {
		return types.NativeDecimals
	}
	if t, ok := cfg.Token(token); ok {
		return t.Decimals
	}
	d, err := contracts.NewERC20(token, binding.Backend).Decimals(ctx)
	if err != nil {
		s.log.Warn("token decimals query failed, assuming native convention", map[string]any{
			"token": token.Hex(), "error": err.Error(),
		})
		return types.NativeDecimals
	}
	return int32(d)
}

func writeDisabled(cfg registry.Config, contract string) error {
	return types.NewError(types.ErrWriteDisabled,
		"no %s contract configured for %s; write operations are disabled on this network", contract, cfg.Name)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
