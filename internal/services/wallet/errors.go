package wallet

import (
	"errors"

	derrors "mealpay/internal/errors"
	"mealpay/internal/repositories"
)

// walletNotFound converts the repository sentinel into the domain error.
func walletNotFound(err error, userID string) error {
	if errors.Is(err, repositories.ErrWalletNotFound) {
		return derrors.ErrWalletNotFound.WithMessage("wallet not found for user %s", userID)
	}
	return err
}
