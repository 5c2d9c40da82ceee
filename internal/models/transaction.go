package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// EntryType is the direction of a ledger entry relative to its wallet.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// TransactionCategory explains why a ledger entry exists.
type TransactionCategory string

const (
	CategoryOrderPayment       TransactionCategory = "order_payment"
	CategoryDeliverySettlement TransactionCategory = "delivery_settlement"
	CategoryCancellationRefund TransactionCategory = "cancellation_refund"
	CategoryWithdrawalRequest  TransactionCategory = "withdrawal_request"
	CategoryAdminAdjustment    TransactionCategory = "admin_adjustment"
	CategoryPromotionalCredit  TransactionCategory = "promotional_credit"
)

func (c TransactionCategory) Valid() bool {
	switch c {
	case CategoryOrderPayment, CategoryDeliverySettlement, CategoryCancellationRefund,
		CategoryWithdrawalRequest, CategoryAdminAdjustment, CategoryPromotionalCredit:
		return true
	}
	return false
}

// TransactionSource tags the flow that produced an entry.
type TransactionSource string

const (
	SourceOrder        TransactionSource = "order"
	SourceDelivery     TransactionSource = "delivery"
	SourceCancellation TransactionSource = "cancellation"
	SourceWithdrawal   TransactionSource = "withdrawal"
	SourceAdmin        TransactionSource = "admin"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionReversed  TransactionStatus = "reversed"
)

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// WalletTransaction is one leg of a ledger movement. Paired legs share a
// TransferID; single-leg entries leave it empty.
type WalletTransaction struct {
	ID             string              `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TransferID     string              `gorm:"type:varchar(36);index" json:"transfer_id,omitempty"`
	WalletID       string              `gorm:"type:varchar(36);not null;index" json:"wallet_id"`
	UserID         string              `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Type           EntryType           `gorm:"type:varchar(8);not null" json:"type"`
	Amount         decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"amount"`
	BalanceAfter   decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"balance_after"`
	Category       TransactionCategory `gorm:"type:varchar(32);not null;index" json:"category"`
	Source         TransactionSource   `gorm:"type:varchar(16);not null" json:"source"`
	Reference      Reference           `gorm:"embedded;embeddedPrefix:reference_" json:"reference"`
	Status         TransactionStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	ApprovalStatus ApprovalStatus      `gorm:"type:varchar(16)" json:"approval_status,omitempty"`
	Description    string              `gorm:"type:text" json:"description"`
	ApprovedBy     string              `gorm:"type:varchar(64)" json:"approved_by,omitempty"`
	ProcessedAt    *time.Time          `json:"processed_at,omitempty"`
	CreatedAt      time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

func (t *WalletTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = NewID()
	}
	return nil
}

// SignedAmount is the entry's effect on its wallet's balance.
func (t *WalletTransaction) SignedAmount() decimal.Decimal {
	if t.Type == EntryDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsFinal reports whether the entry can no longer change.
func (t *WalletTransaction) IsFinal() bool {
	return t.Status != TransactionPending
}
