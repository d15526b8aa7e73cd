package errors

var (
	ErrVerificationRequired = &DomainError{
		Code:    CodeVerificationRequired,
		Message: "identity verification required",
	}
	ErrLimitExceeded = &DomainError{
		Code:    CodeLimitExceeded,
		Message: "transfer limit exceeded",
	}
	ErrInsufficientFunds = &DomainError{
		Code:    CodeInsufficientFunds,
		Message: "insufficient funds",
	}
	ErrAccountBlocked = &DomainError{
		Code:    CodeAccountBlocked,
		Message: "account is not active",
	}
	ErrInvalidDestination = &DomainError{
		Code:    CodeInvalidDestination,
		Message: "invalid destination account",
	}
	ErrInvalidBeneficiary = &DomainError{
		Code:    CodeInvalidBeneficiary,
		Message: "invalid beneficiary",
	}
	ErrInvalidSchedule = &DomainError{
		Code:    CodeInvalidSchedule,
		Message: "invalid schedule",
	}
	ErrInvalidState = &DomainError{
		Code:    CodeInvalidState,
		Message: "transfer is not in a valid state for this operation",
	}
	ErrLockTimeout = &DomainError{
		Code:    CodeLockTimeout,
		Message: "account is busy, retry with the same reference",
	}
	ErrNotFound = &DomainError{
		Code:    CodeNotFound,
		Message: "not found",
	}
	ErrInvalidRequest = &DomainError{
		Code:    CodeInvalidRequest,
		Message: "invalid request",
	}
	ErrInternal = &DomainError{
		Code:    CodeInternal,
		Message: "internal error",
	}
)
