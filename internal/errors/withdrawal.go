package errors

var (
	ErrWithdrawalNotFound = &DomainError{
		Kind:    KindNotFound,
		Code:    "WITHDRAWAL_NOT_FOUND",
		Message: "withdrawal request not found",
	}
	ErrBelowMinimum = &DomainError{
		Kind:    KindBelowMinimum,
		Code:    "BELOW_MINIMUM_WITHDRAWAL",
		Message: "amount is below the minimum withdrawal",
	}
	ErrInvalidWithdrawalState = &DomainError{
		Kind:    KindInvalidState,
		Code:    "INVALID_WITHDRAWAL_STATE",
		Message: "withdrawal request is not pending",
	}
	ErrSelfReview = &DomainError{
		Kind:    KindForbidden,
		Code:    "SELF_REVIEW",
		Message: "admins cannot review their own withdrawal requests",
	}
)
