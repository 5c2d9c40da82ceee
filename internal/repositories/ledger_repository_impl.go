package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mealpay/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{
		db: db,
	}
}

func (r *ledgerRepository) ExecuteInTransaction(ctx context.Context, fn func(LedgerRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (r *ledgerRepository) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	if err := r.db.WithContext(ctx).Create(wallet).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateWallet
		}
		return fmt.Errorf("failed to create wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.findWallet(r.db.WithContext(ctx), "user_id = ?", userID)
}

func (r *ledgerRepository) GetWalletByUserIDForUpdate(ctx context.Context, userID string) (*models.Wallet, error) {
	return r.findWallet(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "user_id = ?", userID)
}

func (r *ledgerRepository) GetWalletByID(ctx context.Context, id string) (*models.Wallet, error) {
	return r.findWallet(r.db.WithContext(ctx), "id = ?", id)
}

func (r *ledgerRepository) findWallet(db *gorm.DB, query string, arg interface{}) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := db.Where(query, arg).First(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) UpdateWallet(ctx context.Context, wallet *models.Wallet) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.Wallet{}).
		Where("id = ? AND version = ?", wallet.ID, wallet.Version).
		Updates(map[string]interface{}{
			"available_balance":   wallet.AvailableBalance,
			"pending_balance":     wallet.PendingBalance,
			"total_earned":        wallet.TotalEarned,
			"total_spent":         wallet.TotalSpent,
			"status":              wallet.Status,
			"freeze_reason":       wallet.FreezeReason,
			"status_changed_by":   wallet.StatusChangedBy,
			"status_changed_at":   wallet.StatusChangedAt,
			"last_transaction_at": wallet.LastTransactionAt,
			"version":             wallet.Version + 1,
			"updated_at":          now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update wallet: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	wallet.Version++
	wallet.UpdatedAt = now
	return nil
}

func (r *ledgerRepository) ListWallets(ctx context.Context, q WalletQuery) ([]models.Wallet, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.Wallet{})
		if q.Role != "" {
			db = db.Where("role = ?", q.Role)
		}
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count wallets: %w", err)
	}

	var wallets []models.Wallet
	if err := paginate(base().Order("created_at ASC").Order("id ASC"), q.Limit, q.Offset).Find(&wallets).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list wallets: %w", err)
	}
	return wallets, total, nil
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) FinalizeTransaction(ctx context.Context, tx *models.WalletTransaction) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ? AND status = ?", tx.ID, models.TransactionPending).
		Updates(map[string]interface{}{
			"status":          tx.Status,
			"approval_status": tx.ApprovalStatus,
			"balance_after":   tx.BalanceAfter,
			"description":     tx.Description,
			"approved_by":     tx.ApprovedBy,
			"processed_at":    tx.ProcessedAt,
			"updated_at":      now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to finalize transaction: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	tx.UpdatedAt = now
	return nil
}

func (r *ledgerRepository) GetTransactionByID(ctx context.Context, id string) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &tx, nil
}

func (r *ledgerRepository) GetTransactionByReference(ctx context.Context, walletID string, ref models.Reference) (*models.WalletTransaction, error) {
	var tx models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("wallet_id = ? AND reference_type = ? AND reference_id = ?", walletID, ref.Type, ref.ID).
		Order("created_at DESC").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction by reference: %w", err)
	}
	return &tx, nil
}

func (r *ledgerRepository) ListTransactions(ctx context.Context, q TransactionQuery) ([]models.WalletTransaction, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.WalletTransaction{})
		if q.UserID != "" {
			db = db.Where("user_id = ?", q.UserID)
		}
		if q.Category != "" {
			db = db.Where("category = ?", q.Category)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	var txs []models.WalletTransaction
	err := paginate(base().Order("created_at DESC").Order("id DESC"), q.Limit, q.Offset).Find(&txs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transaction history: %w", err)
	}
	return txs, total, nil
}

func (r *ledgerRepository) SumCompleted(ctx context.Context, walletID string) (LedgerTotals, error) {
	var totals LedgerTotals
	credits, err := r.sumEntries(ctx, walletID, models.EntryCredit)
	if err != nil {
		return totals, err
	}
	debits, err := r.sumEntries(ctx, walletID, models.EntryDebit)
	if err != nil {
		return totals, err
	}
	totals.Credits = credits
	totals.Debits = debits
	return totals, nil
}

func (r *ledgerRepository) sumEntries(ctx context.Context, walletID string, entryType models.EntryType) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("wallet_id = ? AND status = ? AND type = ?", walletID, models.TransactionCompleted, entryType).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s entries: %w", entryType, err)
	}
	return total, nil
}

func (r *ledgerRepository) UnbalancedTransfers(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Select("transfer_id").
		Where("transfer_id <> '' AND status = ?", models.TransactionCompleted).
		Group("transfer_id").
		Having("COUNT(*) <> 2 OR SUM(CASE WHEN type = ? THEN amount ELSE -amount END) <> 0", models.EntryCredit).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check transfer balance: %w", err)
	}
	return ids, nil
}

func (r *ledgerRepository) CreateSettlement(ctx context.Context, settlement *models.DeliverySettlement) error {
	if err := r.db.WithContext(ctx).Create(settlement).Error; err != nil {
		if isDuplicateKey(err) {
			return ErrDuplicateSettlement
		}
		return fmt.Errorf("failed to create settlement: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetSettlementByDeliveryOrderID(ctx context.Context, deliveryOrderID string) (*models.DeliverySettlement, error) {
	var settlement models.DeliverySettlement
	if err := r.db.WithContext(ctx).Where("delivery_order_id = ?", deliveryOrderID).First(&settlement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettlementNotFound
		}
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	return &settlement, nil
}

func (r *ledgerRepository) ListSettlements(ctx context.Context, q SettlementQuery) ([]models.DeliverySettlement, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.DeliverySettlement{})
		if q.ProviderID != "" {
			db = db.Where("provider_id = ?", q.ProviderID)
		}
		if q.From != nil {
			db = db.Where("delivery_date >= ?", *q.From)
		}
		if q.To != nil {
			db = db.Where("delivery_date < ?", *q.To)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count settlements: %w", err)
	}

	var settlements []models.DeliverySettlement
	err := paginate(base().Order("delivery_date ASC").Order("created_at ASC"), q.Limit, q.Offset).Find(&settlements).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list settlements: %w", err)
	}
	return settlements, total, nil
}

func (r *ledgerRepository) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	if err := r.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("failed to create withdrawal request: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetWithdrawalByID(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return r.findWithdrawal(r.db.WithContext(ctx), id)
}

func (r *ledgerRepository) GetWithdrawalByIDForUpdate(ctx context.Context, id string) (*models.WithdrawalRequest, error) {
	return r.findWithdrawal(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ledgerRepository) findWithdrawal(db *gorm.DB, id string) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	if err := db.Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("failed to get withdrawal request: %w", err)
	}
	return &req, nil
}

func (r *ledgerRepository) FinalizeWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", req.ID, models.WithdrawalPending).
		Updates(map[string]interface{}{
			"status":               req.Status,
			"reviewed_by":          req.ReviewedBy,
			"reviewed_at":          req.ReviewedAt,
			"review_notes":         req.ReviewNotes,
			"rejection_reason":     req.RejectionReason,
			"debit_transaction_id": req.DebitTransactionID,
			"cancelled_at":         req.CancelledAt,
			"updated_at":           now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update withdrawal request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	req.UpdatedAt = now
	return nil
}

func (r *ledgerRepository) ListWithdrawals(ctx context.Context, q WithdrawalQuery) ([]models.WithdrawalRequest, int64, error) {
	base := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
		if q.UserID != "" {
			db = db.Where("user_id = ?", q.UserID)
		}
		if q.Status != "" {
			db = db.Where("status = ?", q.Status)
		}
		if q.Role != "" {
			db = db.Where("role = ?", q.Role)
		}
		if q.From != nil {
			db = db.Where("created_at >= ?", *q.From)
		}
		if q.To != nil {
			db = db.Where("created_at < ?", *q.To)
		}
		return db
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count withdrawal requests: %w", err)
	}

	var reqs []models.WithdrawalRequest
	err := paginate(base().Order("created_at DESC").Order("id DESC"), q.Limit, q.Offset).Find(&reqs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list withdrawal requests: %w", err)
	}
	return reqs, total, nil
}

func (r *ledgerRepository) CountPendingWithdrawals(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("user_id = ? AND status = ?", userID, models.WithdrawalPending).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending withdrawals: %w", err)
	}
	return count, nil
}

func paginate(db *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}
	return db
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}
