package memory

import (
	"context"
	"errors"
	"testing"

	"mealpay/internal/models"
	"mealpay/internal/repositories"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, r *Repository, userID string, balance int64) *models.Wallet {
	t.Helper()
	w := &models.Wallet{
		UserID:           userID,
		Role:             models.RoleCustomer,
		AvailableBalance: decimal.NewFromInt(balance),
		Status:           models.WalletActive,
	}
	require.NoError(t, r.CreateWallet(context.Background(), w))
	return w
}

func TestRepository_RollbackDiscardsWork(t *testing.T) {
	r := New()
	ctx := context.Background()
	seed(t, r, "cust-1", 100)

	boom := errors.New("boom")
	err := r.ExecuteInTransaction(ctx, func(tx repositories.LedgerRepository) error {
		w, err := tx.GetWalletByUserIDForUpdate(ctx, "cust-1")
		require.NoError(t, err)
		w.AvailableBalance = decimal.Zero
		require.NoError(t, tx.UpdateWallet(ctx, w))
		require.NoError(t, tx.CreateTransaction(ctx, &models.WalletTransaction{WalletID: w.ID, UserID: "cust-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	w, err := r.GetWalletByUserID(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(w.AvailableBalance))

	_, total, err := r.ListTransactions(ctx, repositories.TransactionQuery{UserID: "cust-1"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRepository_CopiesValues(t *testing.T) {
	r := New()
	ctx := context.Background()
	seed(t, r, "cust-1", 100)

	w, err := r.GetWalletByUserID(ctx, "cust-1")
	require.NoError(t, err)
	w.AvailableBalance = decimal.NewFromInt(999)

	again, err := r.GetWalletByUserID(ctx, "cust-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(again.AvailableBalance))
}

func TestRepository_VersionConflict(t *testing.T) {
	r := New()
	ctx := context.Background()
	seed(t, r, "cust-1", 100)

	a, _ := r.GetWalletByUserID(ctx, "cust-1")
	b, _ := r.GetWalletByUserID(ctx, "cust-1")
	require.NoError(t, r.UpdateWallet(ctx, a))
	assert.ErrorIs(t, r.UpdateWallet(ctx, b), repositories.ErrVersionConflict)
}

func TestRepository_Fault(t *testing.T) {
	r := New()
	ctx := context.Background()
	r.SetFault(func(op string) error {
		if op == "CreateWallet" {
			return errors.New("storage down")
		}
		return nil
	})

	err := r.CreateWallet(ctx, &models.Wallet{UserID: "cust-1"})
	assert.EqualError(t, err, "storage down")

	r.SetFault(nil)
	seed(t, r, "cust-1", 0)
	assert.ErrorIs(t, r.CreateWallet(ctx, &models.Wallet{UserID: "cust-1"}), repositories.ErrDuplicateWallet)
}

func TestRepository_CancelledContext(t *testing.T) {
	r := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := r.ExecuteInTransaction(ctx, func(repositories.LedgerRepository) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
