// internal/market/errors.go
package market

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/launchpad/internal/amm"
	"github.com/rovshanmuradov/launchpad/internal/curve"
)

var (
	ErrInvalidParams       = errors.New("invalid params")
	ErrInsufficientFee     = errors.New("insufficient creation fee")
	ErrZeroAmount          = errors.New("zero amount")
	ErrTokenNotActive      = errors.New("token not active")
	ErrInsufficientFunds   = errors.New("not enough income")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrRoyaltyLocked       = errors.New("royalty locked until graduation")
	ErrReentrant           = errors.New("reentrant call")
	ErrUnknownToken        = errors.New("unknown token")
	ErrInsufficientReserve = errors.New("insufficient curve reserve")

	// Re-exported so callers only need this package for errors.Is checks.
	ErrCurveExhausted = curve.ErrCurveExhausted
	ErrAlreadySeeded  = amm.ErrAlreadySeeded
)

// OperationError wraps every failure returned by a Market entry point.
type OperationError struct {
	Op    string
	Asset common.Address
	Err   error
}

func (e *OperationError) Error() string {
	if e.Asset == (common.Address{}) {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %v", e.Op, e.Asset.Hex(), e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// IsRejected reports whether err is a validation rejection rather than a collaborator failure.
func IsRejected(err error) bool {
	for _, target := range []error{
		ErrInvalidParams, ErrInsufficientFee, ErrZeroAmount, ErrTokenNotActive,
		ErrInsufficientFunds, ErrUnauthorized, ErrRoyaltyLocked, ErrReentrant,
		ErrUnknownToken, ErrInsufficientReserve, ErrCurveExhausted,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func wrap(op string, asset common.Address, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Op: op, Asset: asset, Err: err}
}
