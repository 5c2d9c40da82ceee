package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletRole is the kind of account owner a wallet belongs to.
type WalletRole string

const (
	RoleCustomer WalletRole = "customer"
	RoleProvider WalletRole = "provider"
	RoleAdmin    WalletRole = "admin"
)

func (r WalletRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// WalletStatus gates which mutations a wallet accepts.
type WalletStatus string

const (
	WalletActive WalletStatus = "active"
	WalletFrozen WalletStatus = "frozen"
	WalletClosed WalletStatus = "closed"
)

type Wallet struct {
	ID                string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID            string          `gorm:"uniqueIndex;not null;type:varchar(64)" json:"user_id"`
	Role              WalletRole      `gorm:"type:varchar(16);not null;index" json:"role"`
	Currency          string          `gorm:"type:varchar(3);not null" json:"currency"`
	AvailableBalance  decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"available_balance"`
	PendingBalance    decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"pending_balance"`
	TotalEarned       decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"total_earned"`
	TotalSpent        decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"total_spent"`
	Status            WalletStatus    `gorm:"type:varchar(16);not null;index" json:"status"`
	FreezeReason      string          `gorm:"type:varchar(255)" json:"freeze_reason,omitempty"`
	StatusChangedBy   string          `gorm:"type:varchar(64)" json:"status_changed_by,omitempty"`
	StatusChangedAt   *time.Time      `json:"status_changed_at,omitempty"`
	LastTransactionAt *time.Time      `json:"last_transaction_at,omitempty"`
	Version           int64           `gorm:"not null" json:"version"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	if w.Version == 0 {
		w.Version = 1
	}
	return nil
}

// IsActive reports whether the wallet may be debited.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletActive
}

// CanReceive reports whether the wallet may be credited. Frozen wallets
// still accept incoming funds.
func (w *Wallet) CanReceive() bool {
	return w.Status == WalletActive || w.Status == WalletFrozen
}

// Covers reports whether the available balance can absorb a debit of amount.
func (w *Wallet) Covers(amount decimal.Decimal) bool {
	return w.AvailableBalance.GreaterThanOrEqual(amount)
}

// NewID returns a time-ordered identifier for ledger rows.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
