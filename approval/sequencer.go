// Package approval implements the ERC20 allowance/approval sequencing
// that must precede any value-moving call: balance, then allowance,
// then a conditional approve, then a post-approval verification. The
// order is mandatory — it avoids submitting an approval that cannot
// succeed or a payment that will revert.
package approval

import (
	"context"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/contracts"
	"github.com/vitwit/chainvoice/logger"
	"github.com/vitwit/chainvoice/metrics"
	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/types"
)

// Sequencer runs the approval sequence against one resolved binding.
type Sequencer struct {
	binding   providers.Binding
	submitter *contracts.Submitter
	log       logger.Logger
	metrics   metrics.Recorder
}

func NewSequencer(binding providers.Binding, submitter *contracts.Submitter, log logger.Logger, rec metrics.Recorder) *Sequencer {
	if log == nil {
		log = logger.NoopLogger{}
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Sequencer{binding: binding, submitter: submitter, log: log, metrics: rec}
}

// EnsureApproved guarantees that spender may move at least required of
// token from account. Returns nil without any transaction when the
// existing allowance already suffices, so repeated calls with the same
// required amount are idempotent.
func (s *Sequencer) EnsureApproved(ctx context.Context, token, spender common.Address, required *big.Int, account common.Address) error {
	erc20 := contracts.NewERC20(token, s.binding.Backend)

	exists, err := erc20.Exists(ctx)
	if err != nil {
		return contracts.ClassifySubmitError(err)
	}
	if !exists {
		return &types.ContractNotFoundError{Address: token, ChainID: s.binding.ChainID}
	}

	balance, err := erc20.BalanceOf(ctx, account)
	if err != nil {
		return err
	}
	if balance.Cmp(required) < 0 {
		return &types.InsufficientBalanceError{
			Token:     token,
			Required:  new(big.Int).Set(required),
			Available: balance,
		}
	}

	allowance, err := erc20.Allowance(ctx, account, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(required) >= 0 {
		s.log.Debug("allowance already sufficient", map[string]any{
			"token": token.Hex(), "allowance": allowance.String(),
		})
		return nil
	}

	data, err := contracts.ApproveCallData(spender, required)
	if err != nil {
		return err
	}
	txHash, err := s.submitter.SubmitRaw(ctx, token, data, nil)
	if err != nil {
		return err
	}
	s.metrics.IncCounter("approval_submitted", map[string]string{"network": s.networkLabel()})

	if _, err := providers.WaitMined(ctx, s.binding.Backend, txHash); err != nil {
		return contracts.ClassifySubmitError(err)
	}

	// Verify the approval actually took effect before any payment call.
	allowance, err = erc20.Allowance(ctx, account, spender)
	if err != nil {
		return err
	}
	if allowance.Cmp(required) < 0 {
		return &types.ApprovalFailedError{
			Token:     token,
			Spender:   spender,
			Required:  new(big.Int).Set(required),
			Allowance: allowance,
		}
	}

	s.log.Info("approval confirmed", map[string]any{
		"token": token.Hex(), "spender": spender.Hex(), "amount": required.String(),
	})
	return nil
}

func (s *Sequencer) networkLabel() string {
	return strconv.FormatUint(s.binding.ChainID, 10)
}
