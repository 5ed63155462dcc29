package contracts

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/providers"
)

// ERC20 is a thin read wrapper over a token contract.
type ERC20 struct {
	addr    common.Address
	backend providers.Backend
}

func NewERC20(addr common.Address, backend providers.Backend) *ERC20 {
	return &ERC20{addr: addr, backend: backend}
}

// Exists reports whether any code is deployed at the token address.
func (e *ERC20) Exists(ctx context.Context) (bool, error) {
	code, err := e.backend.CodeAt(ctx, e.addr, nil)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

func (e *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := readCall(ctx, e.backend, e.addr, erc20ABI, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return tupleBig(out, 0)
}

func (e *ERC20) Allowance(ctx context.Context, owner, spender common.Address) (*big.Int, error) {
	out, err := readCall(ctx, e.backend, e.addr, erc20ABI, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return tupleBig(out, 0)
}

// Decimals queries the token's own decimal count. Configured registry
// metadata is preferred for display; this is the on-chain ground truth.
func (e *ERC20) Decimals(ctx context.Context) (uint8, error) {
	out, err := readCall(ctx, e.backend, e.addr, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	v, ok := out[0].(uint8)
	if !ok {
		big, err := tupleBig(out, 0)
		if err != nil {
			return 0, err
		}
		return uint8(big.Uint64()), nil
	}
	return v, nil
}

// ApproveCallData packs an approve(spender, value) call for submission
// through the wallet.
func ApproveCallData(spender common.Address, value *big.Int) ([]byte, error) {
	return erc20ABI.Pack("approve", spender, value)
}
