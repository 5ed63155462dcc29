package flows

import (
	"errors"

	"github.com/vitwit/chainvoice/types"
)

// FailureClass is the user-facing category of a failed flow.
type FailureClass string

const (
	ClassValidation       FailureClass = "validation"
	ClassUserRejected     FailureClass = "user_rejected"
	ClassReverted         FailureClass = "execution_reverted"
	ClassProviderInternal FailureClass = "provider_internal"
)

// Failure pairs a class with a message suitable for a notification.
type Failure struct {
	Class   FailureClass
	Message string
}

// ClassifyFailure maps any error escaping a flow onto the four
// user-facing classes. Nothing is retried automatically; the
// presentation layer shows the message and the flow returns to Idle on
// the next operation.
func ClassifyFailure(err error) Failure {
	if err == nil {
		return Failure{}
	}

	var mismatch *types.NetworkMismatchError
	var notFound *types.NotFoundError
	var elsewhere *types.FoundOnOtherNetworkError
	var noContract *types.ContractNotFoundError
	var balance *types.InsufficientBalanceError
	var approvalErr *types.ApprovalFailedError
	switch {
	case errors.As(err, &mismatch):
		return Failure{ClassValidation, "your wallet and its provider disagree about the current network; switch networks and try again"}
	case errors.As(err, &elsewhere):
		return Failure{ClassValidation, err.Error()}
	case errors.As(err, &notFound):
		return Failure{ClassValidation, err.Error()}
	case errors.As(err, &noContract):
		return Failure{ClassValidation, err.Error()}
	case errors.As(err, &balance):
		return Failure{ClassValidation, err.Error()}
	case errors.As(err, &approvalErr):
		return Failure{ClassProviderInternal, err.Error()}
	}

	var coded *types.Error
	if errors.As(err, &coded) {
		switch coded.Code {
		case types.ErrValidation, types.ErrWriteDisabled:
			return Failure{ClassValidation, coded.Message}
		case types.ErrUserRejected:
			return Failure{ClassUserRejected, "the signature request was declined in the wallet"}
		case types.ErrExecutionReverted:
			return Failure{ClassReverted, "the chain rejected the transaction: " + coded.Message}
		default:
			return Failure{ClassProviderInternal, coded.Message}
		}
	}

	return Failure{ClassProviderInternal, err.Error()}
}

// UserMessage is a convenience for the presentation layer.
func UserMessage(err error) string {
	return ClassifyFailure(err).Message
}
