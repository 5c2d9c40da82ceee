package repositories

import (
	"context"
	"errors"
	"time"

	"mealpay/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrDuplicateWallet     = errors.New("wallet already exists")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrSettlementNotFound  = errors.New("settlement not found")
	ErrDuplicateSettlement = errors.New("settlement already exists")
	ErrWithdrawalNotFound  = errors.New("withdrawal request not found")
	// ErrVersionConflict means a guarded row changed after it was read.
	// The unit of work is retried from the start.
	ErrVersionConflict = errors.New("row changed concurrently")
)

// LedgerRepository is the storage contract for wallets, ledger entries,
// delivery settlements and withdrawal requests. Every mutation made through
// the repository handed to ExecuteInTransaction commits or rolls back as one.
type LedgerRepository interface {
	// Wallets
	CreateWallet(ctx context.Context, wallet *models.Wallet) error
	GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error)
	GetWalletByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, id string) (*models.Wallet, error)
	// UpdateWallet writes the wallet only if its Version is unchanged and
	// then increments Version.
	UpdateWallet(ctx context.Context, wallet *models.Wallet) error
	ListWallets(ctx context.Context, q WalletQuery) ([]models.Wallet, int64, error)

	// Ledger entries
	CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error
	// FinalizeTransaction moves a pending entry to its terminal state.
	FinalizeTransaction(ctx context.Context, tx *models.WalletTransaction) error
	GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error)
	GetTransactionByReference(ctx context.Context, walletID string, ref models.Reference) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, q TransactionQuery) ([]models.WalletTransaction, int64, error)
	SumCompleted(ctx context.Context, walletID string) (LedgerTotals, error)
	UnbalancedTransfers(ctx context.Context) ([]string, error)

	// Settlements
	CreateSettlement(ctx context.Context, settlement *models.DeliverySettlement) error
	GetSettlementByDeliveryOrderID(ctx context.Context, deliveryOrderID string) (*models.DeliverySettlement, error)
	ListSettlements(ctx context.Context, q SettlementQuery) ([]models.DeliverySettlement, int64, error)

	// Withdrawals
	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	GetWithdrawalByID(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	GetWithdrawalByIDForUpdate(ctx context.Context, id string) (*models.WithdrawalRequest, error)
	// FinalizeWithdrawal moves a pending request to its terminal state.
	FinalizeWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	ListWithdrawals(ctx context.Context, q WithdrawalQuery) ([]models.WithdrawalRequest, int64, error)
	CountPendingWithdrawals(ctx context.Context, userID string) (int64, error)

	ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error
	Ping(ctx context.Context) error
}

// LedgerTotals is the sum of completed entries for one wallet.
type LedgerTotals struct {
	Credits decimal.Decimal
	Debits  decimal.Decimal
}

// Net is the balance implied by the ledger.
func (t LedgerTotals) Net() decimal.Decimal {
	return t.Credits.Sub(t.Debits)
}

// A zero Limit means no limit.
type TransactionQuery struct {
	UserID   string
	Category models.TransactionCategory
	Limit    int
	Offset   int
}

type WithdrawalQuery struct {
	UserID string
	Status models.WithdrawalStatus
	Role   models.WalletRole
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type SettlementQuery struct {
	ProviderID string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

type WalletQuery struct {
	Role   models.WalletRole
	Status models.WalletStatus
	Limit  int
	Offset int
}
