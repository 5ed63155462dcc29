// Package providers resolves which read/write provider an operation may
// safely use. Injected-provider chain reporting can lag wallet-reported
// state immediately after a network switch; the resolver prefers the
// injected provider, falls back to a known-good direct RPC endpoint when
// the two disagree transiently, and refuses to operate against a
// genuinely wrong chain.
package providers

import (
	"context"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Backend is the read surface this library needs from a provider.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*ethtypes.Receipt, error)
}

// TxRequest is a write request routed through the wallet for signing.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Wallet is the injected-provider boundary: a wallet-supplied interface
// for reading chain state and requesting signatures. Consumed, never
// implemented, by this library.
type Wallet interface {
	// ChainID is the wallet's own view of the current chain, which may
	// briefly disagree with what the injected backend reports.
	ChainID(ctx context.Context) (uint64, error)

	// Account is the currently connected account.
	Account(ctx context.Context) (common.Address, error)

	// SendTransaction asks the wallet to sign and broadcast. The user
	// may decline inside the wallet; no cancellation exists after send.
	SendTransaction(ctx context.Context, req *TxRequest) (common.Hash, error)

	// Backend is the injected provider's read view.
	Backend() Backend
}

// Binding is the resolved (chain, provider) pair for one call sequence.
// Never cache a Binding across chain switches.
type Binding struct {
	Backend      Backend
	ChainID      uint64
	UsedFallback bool
}

// Dialer opens a direct RPC backend. Swappable for tests.
type Dialer func(ctx context.Context, rawurl string) (Backend, error)

// DialRPC is the default Dialer, backed by ethclient.
func DialRPC(ctx context.Context, rawurl string) (Backend, error) {
	return ethclient.DialContext(ctx, rawurl)
}

// receiptPollInterval spaces out receipt polls in WaitMined.
const receiptPollInterval = time.Second

// WaitMined blocks until the transaction has a receipt or ctx is done.
// No application-level timeout is applied beyond the context's own.
func WaitMined(ctx context.Context, backend Backend, txHash common.Hash) (*ethtypes.Receipt, error) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
		receipt, err := backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		timer.Reset(receiptPollInterval)
	}
}
