// Package autoexec runs the timer-driven loop that executes overdue
// scheduled payments without user interaction. Submissions are
// fire-and-forget; confirmation is handled asynchronously and one
// payment's failure never aborts the rest of a scan.
package autoexec

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/analytics"
	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/metrics"
	"github.com/vitwit/chainvoice/types"
)

// DefaultInterval is the scan period.
const DefaultInterval = 30 * time.Second

// DefaultSubmitSpacing separates consecutive submissions within one
// tick to avoid nonce collisions in the wallet.
const DefaultSubmitSpacing = 2 * time.Second

// Source supplies the scheduled payments to scan each tick.
type Source interface {
	ListPayments(ctx context.Context) ([]*types.ScheduledPayment, error)
}

// Executor submits an execute call without blocking on confirmation.
type Executor interface {
	SubmitExecute(ctx context.Context, id uint64) (common.Hash, error)
}

// AuthFunc recomputes the current account's authorization status.
type AuthFunc func(ctx context.Context, account common.Address) (types.AuthorizationStatus, error)

// AccountFunc reports the wallet's currently connected account. Resolved
// on every tick so an account switch never leaves the poller scanning as
// a previous signer.
type AccountFunc func(ctx context.Context) (common.Address, error)

// Poller is a cancellable periodic task: Start schedules ticks, Stop is
// idempotent and halts future ticks without cancelling in-flight
// submissions.
type Poller struct {
	source   Source
	executor Executor
	auth     AuthFunc
	account  AccountFunc
	interval time.Duration
	spacing  time.Duration
	log      logger.Logger
	metrics  metrics.Recorder
	now      func() time.Time

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// Option tweaks a Poller.
type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithSubmitSpacing(d time.Duration) Option {
	return func(p *Poller) {
		if d >= 0 {
			p.spacing = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// New builds a poller over the wallet's connected account.
func New(source Source, executor Executor, auth AuthFunc, account AccountFunc, log logger.Logger, rec metrics.Recorder, opts ...Option) *Poller {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	p := &Poller{
		source:   source,
		executor: executor,
		auth:     auth,
		account:  account,
		interval: DefaultInterval,
		spacing:  DefaultSubmitSpacing,
		log:      log,
		metrics:  rec,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins ticking. Starting an already running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.running = true
	go p.loop(ctx)
}

// Stop halts future ticks. Idempotent; in-flight submissions finish on
// their own.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.cancel()
	p.running = false
}

// Running reports whether the poller is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one scan: list payments, recompute authorization, submit an
// execute call for every payment in the executable set. Exported so a
// dashboard can trigger an immediate scan.
func (p *Poller) Tick(ctx context.Context) {
	account, err := p.account(ctx)
	if err != nil {
		p.log.Warn("account refresh failed", map[string]any{"error": err.Error()})
		return
	}

	payments, err := p.source.ListPayments(ctx)
	if err != nil {
		p.log.Warn("auto-execute scan failed", map[string]any{"error": err.Error()})
		return
	}

	auth, err := p.auth(ctx, account)
	if err != nil {
		p.log.Warn("authorization refresh failed", map[string]any{"error": err.Error()})
		return
	}

	// Stop halts the scan but must not abort a submission already
	// handed to the wallet.
	submitCtx := context.WithoutCancel(ctx)

	executable := analytics.ExecutableSet(payments, account, auth, p.now())
	for i, payment := range executable {
		if ctx.Err() != nil {
			return
		}
		if i > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.spacing):
			}
		}
		txHash, err := p.executor.SubmitExecute(submitCtx, payment.ID)
		if err != nil {
			// Logged and skipped; the next tick re-scans.
			p.log.Warn("auto-execute submission failed", map[string]any{
				"id": payment.ID, "error": err.Error(),
			})
			p.metrics.IncCounter("auto_execute_failed", map[string]string{"network": ""})
			continue
		}
		p.log.Info("auto-execute submitted", map[string]any{
			"id": payment.ID, "tx": txHash.Hex(),
		})
	}
}
