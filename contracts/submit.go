package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/providers"
)

// Submitter routes write calls through the wallet boundary. The wallet
// signs and broadcasts; the underlying chain error category passes
// through classified, never swallowed.
type Submitter struct {
	wallet providers.Wallet
	log    logger.Logger
}

func NewSubmitter(wallet providers.Wallet, log logger.Logger) *Submitter {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Submitter{wallet: wallet, log: log}
}

// Submit packs a method call against the given ABI and asks the wallet
// to sign and send it. value may be nil for non-payable calls.
func (s *Submitter) Submit(ctx context.Context, to common.Address, contractABI abi.ABI, method string, value *big.Int, args ...any) (common.Hash, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, err
	}
	return s.SubmitRaw(ctx, to, data, value)
}

// SubmitRaw sends pre-packed call data through the wallet.
func (s *Submitter) SubmitRaw(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	from, err := s.wallet.Account(ctx)
	if err != nil {
		return common.Hash{}, ClassifySubmitError(err)
	}
	txHash, err := s.wallet.SendTransaction(ctx, &providers.TxRequest{
		From:  from,
		To:    to,
		Data:  data,
		Value: value,
	})
	if err != nil {
		classified := ClassifySubmitError(err)
		s.log.Warn("transaction submission failed", map[string]any{
			"to": to.Hex(), "code": classified.Code,
		})
		return common.Hash{}, classified
	}
	s.log.Debug("transaction submitted", map[string]any{
		"to": to.Hex(), "tx": txHash.Hex(),
	})
	return txHash, nil
}

func newBigUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}
