package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Error codes shared across the library. Every error that escapes an
// orchestration flow carries exactly one of these.
const (
	ErrValidation          = "VALIDATION"
	ErrNetworkMismatch     = "NETWORK_MISMATCH"
	ErrContractNotFound    = "CONTRACT_NOT_FOUND"
	ErrInsufficientBalance = "INSUFFICIENT_BALANCE"
	ErrApprovalFailed      = "APPROVAL_FAILED"
	ErrUserRejected        = "USER_REJECTED"
	ErrExecutionReverted   = "EXECUTION_REVERTED"
	ErrProviderInternal    = "PROVIDER_INTERNAL"
	ErrNotFound            = "NOT_FOUND"
	ErrFoundOnOtherNetwork = "FOUND_ON_OTHER_NETWORK"
	ErrWriteDisabled       = "WRITE_DISABLED"
)

// Error is the library's generic coded error.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds a coded error with a formatted message.
func NewError(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NetworkMismatchError is returned when the wallet and the injected
// provider disagree about the current chain and no safe fallback exists.
// Callers must not submit transactions in this state.
type NetworkMismatchError struct {
	WalletChainID   uint64
	ProviderChainID uint64
	TargetChainID   uint64
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("network mismatch: wallet reports chain %d, provider reports chain %d, target is %d",
		e.WalletChainID, e.ProviderChainID, e.TargetChainID)
}

// ContractNotFoundError means no code exists at the expected address.
type ContractNotFoundError struct {
	Address common.Address
	ChainID uint64
}

func (e *ContractNotFoundError) Error() string {
	return fmt.Sprintf("no contract code at %s on chain %d", e.Address.Hex(), e.ChainID)
}

// InsufficientBalanceError carries the required and available amounts so
// the presentation layer can render both.
type InsufficientBalanceError struct {
	Token     common.Address
	Required  *big.Int
	Available *big.Int
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance of %s: required %s, available %s",
		e.Token.Hex(), e.Required, e.Available)
}

// ApprovalFailedError means the post-approval allowance is still short of
// the required amount.
type ApprovalFailedError struct {
	Token     common.Address
	Spender   common.Address
	Required  *big.Int
	Allowance *big.Int
}

func (e *ApprovalFailedError) Error() string {
	return fmt.Sprintf("approval of %s for %s did not take effect: required %s, allowance %s",
		e.Token.Hex(), e.Spender.Hex(), e.Required, e.Allowance)
}

// NotFoundError is returned for an invoice hash no registered network
// knows about.
type NotFoundError struct {
	Hash common.Hash
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("invoice %s not found", e.Hash.Hex())
}

// FoundOnOtherNetworkError disambiguates "wrong network" from "truly
// does not exist": the invoice is missing on the active network but a
// secondary lookup located it elsewhere. Record holds what was found.
type FoundOnOtherNetworkError struct {
	Hash    common.Hash
	Network string
	ChainID uint64
	Record  *InvoiceRecord
}

func (e *FoundOnOtherNetworkError) Error() string {
	return fmt.Sprintf("invoice %s not found on the active network but exists on %s (chain %d)",
		e.Hash.Hex(), e.Network, e.ChainID)
}
