package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SettlementStatus string

const (
	SettlementSettled SettlementStatus = "settled"
	SettlementPending SettlementStatus = "pending"
	SettlementFailed  SettlementStatus = "failed"
)

type SettlementType string

const (
	SettlementAutomatic SettlementType = "automatic"
	SettlementManual    SettlementType = "manual"
)

func (t SettlementType) Valid() bool {
	return t == SettlementAutomatic || t == SettlementManual
}

// DeliverySettlement records that a provider was paid for one delivery.
// DeliveryOrderID is unique so a delivery can be settled at most once.
type DeliverySettlement struct {
	ID                  string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	DeliveryOrderID     string           `gorm:"uniqueIndex;not null;type:varchar(64)" json:"delivery_order_id"`
	OrderID             string           `gorm:"type:varchar(64);not null;index" json:"order_id"`
	ProviderID          string           `gorm:"type:varchar(64);not null;index" json:"provider_id"`
	CustomerID          string           `gorm:"type:varchar(64);not null" json:"customer_id"`
	DeliveryDate        time.Time        `gorm:"not null;index" json:"delivery_date"`
	MealAmount          decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"meal_amount"`
	SettlementAmount    decimal.Decimal  `gorm:"type:numeric(20,2);not null" json:"settlement_amount"`
	Status              SettlementStatus `gorm:"type:varchar(16);not null" json:"status"`
	SettlementType      SettlementType   `gorm:"type:varchar(16);not null" json:"settlement_type"`
	TransferID          string           `gorm:"type:varchar(36)" json:"transfer_id"`
	DebitTransactionID  string           `gorm:"type:varchar(36)" json:"debit_transaction_id"`
	CreditTransactionID string           `gorm:"type:varchar(36)" json:"credit_transaction_id"`
	CreatedAt           time.Time        `json:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at"`
}

func (s *DeliverySettlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = NewID()
	}
	return nil
}
