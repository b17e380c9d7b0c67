package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrPasswordMissMatch = errors.New("password mismatch")
	ErrDuplicateKey      = errors.New("duplicate key")
	ErrUnknown           = errors.New("unknown error")

	ErrUserSuspended     = errors.New("user suspended")
	ErrNothingToPay      = errors.New("nothing to pay")
	ErrOwnerConflict     = errors.New("owner conflict")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// InsufficientCreditsError возвращается при попытке списания суммы, превышающей баланс.
// Списание при этом не выполняется.
type InsufficientCreditsError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func NewInsufficientCreditsError(available, required decimal.Decimal) error {
	return &InsufficientCreditsError{Available: available, Required: required}
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf(
		"insufficient credits: available %s, required %s",
		e.Available.String(),
		e.Required.String(),
	)
}
