package errors

var (
	ErrWalletNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WALLET_NOT_FOUND",
		Message: "wallet not found",
	}
	ErrWalletExists = &DomainError{
		Kind:    KindAlreadyExists,
		Code:    "WALLET_ALREADY_EXISTS",
		Message: "wallet already exists for this user",
	}
	ErrInsufficientBalance = &DomainError{
		Kind:    KindInsufficientBalance,
		Code:    "INSUFFICIENT_BALANCE",
		Message: "insufficient wallet balance",
	}
	ErrWalletNotActive = &DomainError{
		Kind:    KindWalletNotActive,
		Code:    "WALLET_NOT_ACTIVE",
		Message: "wallet is not active",
	}
	ErrInvalidAmount = &DomainError{
		Kind:    KindInvalidInput,
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrWalletStateConflict = &DomainError{
		Kind:    KindInvalidState,
		Code:    "WALLET_STATE_CONFLICT",
		Message: "wallet cannot change to the requested status",
	}
	ErrAlreadySettled = &DomainError{
		Kind:    KindAlreadySettled,
		Code:    "ALREADY_SETTLED",
		Message: "delivery has already been settled",
	}
	ErrSettlementNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "SETTLEMENT_NOT_FOUND",
		Message: "settlement not found",
	}
)
