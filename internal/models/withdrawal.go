package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s WithdrawalStatus) IsTerminal() bool {
	return s == WithdrawalApproved || s == WithdrawalRejected || s == WithdrawalCancelled
}

// CanTransitionTo encodes pending -> {approved, rejected, cancelled}.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	return s == WithdrawalPending && next.IsTerminal()
}

func (s WithdrawalStatus) Valid() bool {
	return s == WithdrawalPending || s.IsTerminal()
}

type WithdrawalRequest struct {
	ID                        string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID                    string           `gorm:"type:varchar(64);not null;index" json:"user_id"`
	WalletID                  string           `gorm:"type:varchar(36);not null;index" json:"wallet_id"`
	Role                      WalletRole       `gorm:"type:varchar(16);not null;index" json:"role"`
	Amount                    decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"amount"`
	AvailableBalanceAtRequest decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"available_balance_at_request"`
	BankDetails               BankDetails      `gorm:"type:text;not null" json:"bank_details"`
	Reason                    string           `gorm:"type:text" json:"reason,omitempty"`
	Status                    WithdrawalStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	ReviewedBy                string           `gorm:"type:varchar(64)" json:"reviewed_by,omitempty"`
	ReviewedAt                *time.Time       `json:"reviewed_at,omitempty"`
	ReviewNotes               string           `gorm:"type:text" json:"review_notes,omitempty"`
	RejectionReason           string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	DebitTransactionID        string           `gorm:"type:varchar(36)" json:"debit_transaction_id,omitempty"`
	CancelledAt               *time.Time       `json:"cancelled_at,omitempty"`
	CreatedAt                 time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}

func (w *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = NewID()
	}
	return nil
}
