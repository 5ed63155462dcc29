package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Token describes an asset usable for invoice payments on a network.
// A zero Address marks the chain's native asset.
type Token struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Decimals int32          `json:"decimals"`
	LogoURL  string         `json:"logoUrl,omitempty"`
}

// IsNative reports whether the token is the chain's native asset.
// Native transfers always use 18 decimals by convention.
func (t Token) IsNative() bool {
	return t.Address == (common.Address{})
}

// NativeDecimals is the decimal count of native-asset transfers.
const NativeDecimals int32 = 18

// InvoiceRecord is the named form of the invoicing contract's positional
// return tuple. The record is authoritative on-chain; this client only
// reads it or submits transactions that cause the contract to mutate it.
type InvoiceRecord struct {
	// Hash uniquely identifies the invoice on the contract.
	Hash common.Hash `json:"hash"`

	// Merchant is the payee. The zero address signals "not found".
	Merchant common.Address `json:"merchant"`

	// Token is the payment asset; zero address for the native asset.
	Token common.Address `json:"token"`

	// Amount in the token's smallest unit.
	Amount *big.Int `json:"amount"`

	// DueBy is a unix timestamp, 0 when the invoice never expires.
	DueBy uint64 `json:"dueBy"`

	IsPaid      bool   `json:"isPaid"`
	Memo        string `json:"memo"`
	LogoURI     string `json:"logoUri"`
	Description string `json:"description"`

	// PaidAt is a unix timestamp, 0 while unpaid.
	PaidAt uint64 `json:"paidAt"`
}

// Exists reports whether the record corresponds to an invoice the
// contract knows about.
func (r *InvoiceRecord) Exists() bool {
	return r != nil && r.Merchant != (common.Address{})
}

// Expired reports whether the invoice had a due date that has passed.
func (r *InvoiceRecord) Expired(now time.Time) bool {
	return r.DueBy != 0 && uint64(now.Unix()) > r.DueBy
}

// ScheduledPayment is the named form of the automation contract's
// positional return tuple. Created by a schedule call; Executed flips
// false to true exactly once via an execute call; never deleted.
type ScheduledPayment struct {
	ID                 uint64           `json:"id"`
	Creator            common.Address   `json:"creator"`
	TotalAmount        *big.Int         `json:"totalAmount"`
	Recipients         []common.Address `json:"recipients"`
	AmountPerRecipient *big.Int         `json:"amountPerRecipient"`
	ScheduledTime      uint64           `json:"scheduledTime"`
	Executed           bool             `json:"executed"`
}

// Overdue reports whether the payment's scheduled time has passed and it
// has not been executed yet.
func (p *ScheduledPayment) Overdue(now time.Time) bool {
	return !p.Executed && uint64(now.Unix()) >= p.ScheduledTime
}

// AuthorizationStatus is derived per account from the automation
// contract. Recomputed whenever the account or network changes; never
// persisted client-side.
type AuthorizationStatus struct {
	IsOwner                bool `json:"isOwner"`
	IsAuthorizedController bool `json:"isAuthorizedController"`
}

// CanExecute reports whether an account with this status may execute the
// given payment.
func (a AuthorizationStatus) CanExecute(p *ScheduledPayment, account common.Address) bool {
	return a.IsOwner || a.IsAuthorizedController || p.Creator == account
}
