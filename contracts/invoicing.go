package contracts

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/types"
)

// Invoicing is the typed read surface of the invoicing contract at one
// address on one backend.
type Invoicing struct {
	addr    common.Address
	backend providers.Backend
}

func NewInvoicing(addr common.Address, backend providers.Backend) *Invoicing {
	return &Invoicing{addr: addr, backend: backend}
}

// Address returns the bound contract address.
func (c *Invoicing) Address() common.Address { return c.addr }

// ReadInvoice fetches one invoice and maps the positional tuple to the
// named record. A zero merchant address means the contract has no such
// invoice; callers wanting cross-network disambiguation use Locator.
func (c *Invoicing) ReadInvoice(ctx context.Context, hash common.Hash) (*types.InvoiceRecord, error) {
	out, err := readCall(ctx, c.backend, c.addr, invoiceABI, "getInvoice", hash)
	if err != nil {
		return nil, err
	}
	record, err := invoiceFromTuple(hash, out)
	if err != nil {
		return nil, err
	}
	if !record.Exists() {
		return nil, &types.NotFoundError{Hash: hash}
	}
	return record, nil
}

// Owner returns the invoicing contract owner.
func (c *Invoicing) Owner(ctx context.Context) (common.Address, error) {
	out, err := readCall(ctx, c.backend, c.addr, invoiceABI, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return tupleAddress(out, 0)
}

// invoiceFromTuple maps the contract's 9-field positional return to the
// named record shape, by fixed field order.
func invoiceFromTuple(hash common.Hash, out []any) (*types.InvoiceRecord, error) {
	if len(out) != 9 {
		return nil, fmt.Errorf("getInvoice returned %d values, want 9", len(out))
	}
	merchant, err := tupleAddress(out, 0)
	if err != nil {
		return nil, err
	}
	token, err := tupleAddress(out, 1)
	if err != nil {
		return nil, err
	}
	amount, err := tupleBig(out, 2)
	if err != nil {
		return nil, err
	}
	dueBy, err := tupleBig(out, 3)
	if err != nil {
		return nil, err
	}
	isPaid, err := tupleBool(out, 4)
	if err != nil {
		return nil, err
	}
	memo, err := tupleString(out, 5)
	if err != nil {
		return nil, err
	}
	logoURI, err := tupleString(out, 6)
	if err != nil {
		return nil, err
	}
	description, err := tupleString(out, 7)
	if err != nil {
		return nil, err
	}
	paidAt, err := tupleBig(out, 8)
	if err != nil {
		return nil, err
	}

	return &types.InvoiceRecord{
		Hash:        hash,
		Merchant:    merchant,
		Token:       token,
		Amount:      amount,
		DueBy:       dueBy.Uint64(),
		IsPaid:      isPaid,
		Memo:        memo,
		LogoURI:     logoURI,
		Description: description,
		PaidAt:      paidAt.Uint64(),
	}, nil
}

// readCall packs a view call, executes it via eth_call, and unpacks the
// positional result.
func readCall(ctx context.Context, backend providers.Backend, to common.Address, contractABI abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	ret, err := backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, ClassifySubmitError(err)
	}
	out, err := contractABI.Unpack(method, ret)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out, nil
}

func tupleAddress(out []any, i int) (common.Address, error) {
	v, ok := out[i].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("tuple field %d: want address, got %T", i, out[i])
	}
	return v, nil
}

func tupleBig(out []any, i int) (*big.Int, error) {
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("tuple field %d: want uint256, got %T", i, out[i])
	}
	return v, nil
}

func tupleBool(out []any, i int) (bool, error) {
	v, ok := out[i].(bool)
	if !ok {
		return false, fmt.Errorf("tuple field %d: want bool, got %T", i, out[i])
	}
	return v, nil
}

func tupleString(out []any, i int) (string, error) {
	v, ok := out[i].(string)
	if !ok {
		return "", fmt.Errorf("tuple field %d: want string, got %T", i, out[i])
	}
	return v, nil
}
