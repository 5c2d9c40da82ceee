package wallet

import (
	"context"
	"strings"
	"time"

	derrors "mealpay/internal/errors"
	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/services/events"

	"go.uber.org/zap"
)

// FreezeWallet blocks debits on the wallet. Freezing a frozen wallet only
// replaces the recorded reason.
func (s *service) FreezeWallet(ctx context.Context, userID, reason, adminID string) (*models.Wallet, error) {
	reason = strings.TrimSpace(reason)
	return s.changeStatus(ctx, OpFreeze, events.WalletFrozen, userID, adminID, func(w *models.Wallet) (bool, error) {
		if w.Status == models.WalletClosed {
			return false, derrors.ErrWalletStateConflict.WithMessage("wallet of user %s is closed", w.UserID)
		}
		w.Status = models.WalletFrozen
		w.FreezeReason = reason
		return true, nil
	}, nil)
}

func (s *service) UnfreezeWallet(ctx context.Context, userID, adminID string) (*models.Wallet, error) {
	return s.changeStatus(ctx, OpUnfreeze, events.WalletUnfrozen, userID, adminID, func(w *models.Wallet) (bool, error) {
		switch w.Status {
		case models.WalletClosed:
			return false, derrors.ErrWalletStateConflict.WithMessage("wallet of user %s is closed", w.UserID)
		case models.WalletActive:
			return false, nil
		}
		w.Status = models.WalletActive
		w.FreezeReason = ""
		return true, nil
	}, nil)
}

// CloseWallet retires an empty wallet. It is refused while money or a
// pending withdrawal is still attached to it.
func (s *service) CloseWallet(ctx context.Context, userID, adminID string) (*models.Wallet, error) {
	if userID == s.config.PlatformUserID {
		return nil, derrors.ErrWalletStateConflict.WithMessage("the platform wallet cannot be closed")
	}
	return s.changeStatus(ctx, OpClose, events.WalletClosed, userID, adminID, func(w *models.Wallet) (bool, error) {
		if w.Status == models.WalletClosed {
			return false, derrors.ErrWalletStateConflict.WithMessage("wallet of user %s is already closed", w.UserID)
		}
		if !w.AvailableBalance.IsZero() || !w.PendingBalance.IsZero() {
			return false, derrors.ErrWalletStateConflict.WithMessage("wallet of user %s still holds %s",
				w.UserID, w.AvailableBalance.Add(w.PendingBalance).StringFixed(2))
		}
		w.Status = models.WalletClosed
		w.FreezeReason = ""
		return true, nil
	}, func(ctx context.Context, tx repositories.LedgerRepository) error {
		pending, err := tx.CountPendingWithdrawals(ctx, userID)
		if err != nil {
			return err
		}
		if pending > 0 {
			return derrors.ErrWalletStateConflict.WithMessage("wallet of user %s has %d pending withdrawal requests", userID, pending)
		}
		return nil
	})
}

// changeStatus locks the wallet, lets mutate decide whether anything changes
// and persists the result. guard runs first inside the same transaction.
func (s *service) changeStatus(
	ctx context.Context,
	op, eventType, userID, adminID string,
	mutate func(w *models.Wallet) (bool, error),
	guard func(ctx context.Context, tx repositories.LedgerRepository) error,
) (*models.Wallet, error) {
	if err := required("user_id", userID); err != nil {
		return nil, err
	}

	var (
		wallet  *models.Wallet
		changed bool
	)
	err := s.uow.Do(ctx, op, func(tx repositories.LedgerRepository) error {
		if guard != nil {
			if err := guard(ctx, tx); err != nil {
				return err
			}
		}

		w, err := LockWallet(ctx, tx, userID)
		if err != nil {
			return err
		}
		changed, err = mutate(w)
		if err != nil {
			return err
		}
		wallet = w
		if !changed {
			return nil
		}

		now := time.Now().UTC()
		w.StatusChangedBy = adminID
		w.StatusChangedAt = &now
		return tx.UpdateWallet(ctx, w)
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return wallet, nil
	}

	s.logger.Info("wallet status changed",
		zap.String("user_id", userID),
		zap.String("status", string(wallet.Status)),
		zap.String("admin_id", adminID))
	s.afterCommit(ctx, events.Event{
		Type:     eventType,
		UserID:   userID,
		Amount:   wallet.AvailableBalance,
		Status:   string(wallet.Status),
		Metadata: map[string]string{"admin_id": adminID, "reason": wallet.FreezeReason},
	}, userID)
	return wallet, nil
}
