package contracts

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/providers"
	"github.com/vitwit/chainvoice/types"
)

// Automation is the typed read surface of the payment-automation
// contract at one address on one backend.
type Automation struct {
	addr    common.Address
	backend providers.Backend
}

func NewAutomation(addr common.Address, backend providers.Backend) *Automation {
	return &Automation{addr: addr, backend: backend}
}

// Address returns the bound contract address.
func (c *Automation) Address() common.Address { return c.addr }

// ReadPaymentDetails fetches one scheduled payment and maps the 7-field
// positional tuple to the named record.
func (c *Automation) ReadPaymentDetails(ctx context.Context, id uint64) (*types.ScheduledPayment, error) {
	out, err := readCall(ctx, c.backend, c.addr, automationABI, "getPaymentDetails", newBigUint(id))
	if err != nil {
		return nil, err
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("getPaymentDetails returned %d values, want 7", len(out))
	}

	tupleID, err := tupleBig(out, 0)
	if err != nil {
		return nil, err
	}
	creator, err := tupleAddress(out, 1)
	if err != nil {
		return nil, err
	}
	total, err := tupleBig(out, 2)
	if err != nil {
		return nil, err
	}
	recipients, ok := out[3].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("tuple field 3: want address[], got %T", out[3])
	}
	perRecipient, err := tupleBig(out, 4)
	if err != nil {
		return nil, err
	}
	scheduledTime, err := tupleBig(out, 5)
	if err != nil {
		return nil, err
	}
	executed, err := tupleBool(out, 6)
	if err != nil {
		return nil, err
	}

	return &types.ScheduledPayment{
		ID:                 tupleID.Uint64(),
		Creator:            creator,
		TotalAmount:        total,
		Recipients:         recipients,
		AmountPerRecipient: perRecipient,
		ScheduledTime:      scheduledTime.Uint64(),
		Executed:           executed,
	}, nil
}

// PaymentCount returns how many payments have ever been scheduled.
// Payments are never deleted, so ids range over [0, count).
func (c *Automation) PaymentCount(ctx context.Context) (uint64, error) {
	out, err := readCall(ctx, c.backend, c.addr, automationABI, "paymentCount")
	if err != nil {
		return 0, err
	}
	count, err := tupleBig(out, 0)
	if err != nil {
		return 0, err
	}
	return count.Uint64(), nil
}

// ListPayments reads every scheduled payment. Intended for the poller
// and dashboard listings; individual read failures abort the listing.
func (c *Automation) ListPayments(ctx context.Context) ([]*types.ScheduledPayment, error) {
	count, err := c.PaymentCount(ctx)
	if err != nil {
		return nil, err
	}
	payments := make([]*types.ScheduledPayment, 0, count)
	for id := uint64(0); id < count; id++ {
		p, err := c.ReadPaymentDetails(ctx, id)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, nil
}

// Owner returns the automation contract owner.
func (c *Automation) Owner(ctx context.Context) (common.Address, error) {
	out, err := readCall(ctx, c.backend, c.addr, automationABI, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return tupleAddress(out, 0)
}

// IsAuthorizedController checks authorized-controller membership.
func (c *Automation) IsAuthorizedController(ctx context.Context, account common.Address) (bool, error) {
	out, err := readCall(ctx, c.backend, c.addr, automationABI, "authorizedControllers", account)
	if err != nil {
		return false, err
	}
	return tupleBool(out, 0)
}

// Authorization derives an account's authorization status. Recomputed
// on every account or network change; not cached here.
func (c *Automation) Authorization(ctx context.Context, account common.Address) (types.AuthorizationStatus, error) {
	owner, err := c.Owner(ctx)
	if err != nil {
		return types.AuthorizationStatus{}, err
	}
	controller, err := c.IsAuthorizedController(ctx, account)
	if err != nil {
		return types.AuthorizationStatus{}, err
	}
	return types.AuthorizationStatus{
		IsOwner:                owner == account,
		IsAuthorizedController: controller,
	}, nil
}
