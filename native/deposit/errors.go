package deposit

import "errors"

var (
	// Authorization failures.
	ErrNotOwner     = errors.New("deposit: caller is not the owner")
	ErrUnauthorized = errors.New("deposit: unauthorized")

	// State failures.
	ErrNotFound       = errors.New("deposit: not found")
	ErrAlreadyClaimed = errors.New("deposit: already claimed")
	ErrNotYetMatured  = errors.New("deposit: not yet matured")

	// Validation failures.
	ErrInvalidPrincipal    = errors.New("deposit: principal must be positive")
	ErrUnsupportedDuration = errors.New("deposit: duration outside the schedule")
	ErrInvalidRecipient    = errors.New("deposit: invalid recipient")
	ErrDuplicateDeposit    = errors.New("deposit: id already in use")
	ErrDepositsPaused      = errors.New("deposit: deposits are paused")

	// Insufficiency failures.
	ErrInsufficientPenalty = errors.New("deposit: penalty payment below required amount")
)
