package contracts

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vitwit/chainvoice/types"
)

// EIP-1193 provider error code for a user declining a signature request.
const codeUserRejected = 4001

// Standard JSON-RPC server error code surfaced by most providers for
// internal failures.
const codeInternal = -32603

// ClassifySubmitError maps an error from the wallet or RPC layer onto
// the library's taxonomy without swallowing the original category:
// user-rejected, execution-reverted, or provider-internal.
func ClassifySubmitError(err error) *types.Error {
	if err == nil {
		return nil
	}

	var code int
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		code = rpcErr.ErrorCode()
	}

	msg := err.Error()
	switch {
	case code == codeUserRejected,
		strings.Contains(msg, "user rejected"),
		strings.Contains(msg, "User denied"):
		return &types.Error{Code: types.ErrUserRejected, Message: msg}
	case code == 3, strings.Contains(msg, "execution reverted"):
		return &types.Error{Code: types.ErrExecutionReverted, Message: msg}
	case code == codeInternal:
		return &types.Error{Code: types.ErrProviderInternal, Message: msg}
	default:
		return &types.Error{Code: types.ErrProviderInternal, Message: msg}
	}
}
