package wallet

import (
	"context"
	"time"

	"mealpay/internal/models"

	"github.com/shopspring/decimal"
)

// LedgerConfig holds configuration for ledger operations
type LedgerConfig struct {
	// PlatformUserID owns the admin wallet that collects order payments and
	// funds settlements and refunds.
	PlatformUserID   string
	DefaultCurrency  string
	MaxRetries       int
	OperationTimeout time.Duration
}

func (c LedgerConfig) withDefaults() LedgerConfig {
	if c.PlatformUserID == "" {
		c.PlatformUserID = DefaultPlatformUserID
	}
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = DefaultCurrency
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.OperationTimeout == 0 {
		c.OperationTimeout = DefaultOperationTimeout
	}
	return c
}

type OrderPaymentRequest struct {
	CustomerID  string          `json:"customer_id"`
	OrderID     string          `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type SettlementRequest struct {
	DeliveryOrderID string                `json:"delivery_order_id"`
	ProviderID      string                `json:"provider_id"`
	OrderID         string                `json:"order_id"`
	CustomerID      string                `json:"customer_id"`
	MealAmount      decimal.Decimal       `json:"meal_amount"`
	DeliveryDate    time.Time             `json:"delivery_date"`
	SettlementType  models.SettlementType `json:"settlement_type"`
}

type RefundRequest struct {
	CustomerID      string          `json:"customer_id"`
	OrderID         string          `json:"order_id"`
	DeliveryOrderID string          `json:"delivery_order_id"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Reason          string          `json:"reason"`
}

type AddMoneyRequest struct {
	UserID  string          `json:"user_id"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	AdminID string          `json:"admin_id,omitempty"`
	// Category defaults to admin_adjustment; promotional_credit is the only
	// other accepted value.
	Category models.TransactionCategory `json:"category,omitempty"`
}

type HistoryQuery struct {
	UserID   string
	Page     int
	Limit    int
	Category models.TransactionCategory
}

// TransferResult is the outcome of a paired movement. The wallets are
// snapshots taken right after the movement was applied.
type TransferResult struct {
	TransferID string                    `json:"transfer_id"`
	Debit      *models.WalletTransaction `json:"debit"`
	Credit     *models.WalletTransaction `json:"credit"`
	FromWallet *models.Wallet            `json:"from_wallet"`
	ToWallet   *models.Wallet            `json:"to_wallet"`
}

type SettlementResult struct {
	Settlement *models.DeliverySettlement `json:"settlement"`
	*TransferResult
}

type CreditResult struct {
	Transaction *models.WalletTransaction `json:"transaction"`
	Wallet      *models.Wallet            `json:"wallet"`
}

type TransactionPage struct {
	Items []models.WalletTransaction `json:"items"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
	Total int64                      `json:"total"`
}

// MetricsCollector defines the interface for collecting ledger metrics
type MetricsCollector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Cache metrics
	RecordCacheHit(entity string)
	RecordCacheMiss(entity string)

	// Error metrics
	RecordError(operation, errType string)

	// Transaction metrics
	RecordTransaction(category string, amount float64)

	// Reconciliation metrics
	RecordReconciliation(walletMismatches, unbalancedTransfers int)
}

// Cache stores read-through wallet snapshots.
type Cache interface {
	GetWallet(ctx context.Context, userID string) (*models.Wallet, bool, error)
	CacheWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userIDs ...string) error
}

// NormalizePage clamps page and limit to sane bounds and returns the offset.
func NormalizePage(page, limit int) (int, int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit, (page - 1) * limit
}
