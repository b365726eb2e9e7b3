package ledger

import (
	"errors"

	"github.com/mcclellann/fredLedger/pkg/store"
)

// Domain errors. Callers match them with errors.Is; anything else returned by the ledger is a
// persistence failure.
var (
	ErrNotFound                = store.ErrNotFound
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrCreditLimitExceeded     = errors.New("credit limit exceeded")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidInstallmentCount = errors.New("invalid installment count")
	ErrSameWallet              = errors.New("source and destination wallet are the same")
	ErrInstallmentNotActive    = errors.New("installment is not active")
	ErrDefaultWallet           = errors.New("default wallet conflict")
	ErrWalletInUse             = errors.New("wallet is still referenced")
	ErrInvalidInput            = errors.New("invalid input")
)

var domainErrors = []error{
	ErrNotFound,
	ErrInsufficientFunds,
	ErrCreditLimitExceeded,
	ErrInvalidAmount,
	ErrInvalidInstallmentCount,
	ErrSameWallet,
	ErrInstallmentNotActive,
	ErrDefaultWallet,
	ErrWalletInUse,
	ErrInvalidInput,
}

// IsDomainError reports whether err was caused by the request rather than by the system.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
