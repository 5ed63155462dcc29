package analytics

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vitwit/chainvoice/types"
)

// ExecutableSet returns the scheduled payments that account could
// execute at now: overdue, not yet executed, and the account is the
// creator, the contract owner, or an authorized controller. Pure; the
// poller and the dashboard both recompute it from the same inputs.
func ExecutableSet(payments []*types.ScheduledPayment, account common.Address, auth types.AuthorizationStatus, now time.Time) []*types.ScheduledPayment {
	var out []*types.ScheduledPayment
	for _, p := range payments {
		if p == nil || !p.Overdue(now) {
			continue
		}
		if !auth.CanExecute(p, account) {
			continue
		}
		out = append(out, p)
	}
	return out
}
