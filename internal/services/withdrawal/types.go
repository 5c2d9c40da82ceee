package withdrawal

import (
	"context"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/services/wallet"

	"github.com/shopspring/decimal"
)

// Service is the cash-out workflow. Requests move from pending to exactly
// one of approved, rejected or cancelled.
type Service interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*RequestResult, error)
	Approve(ctx context.Context, requestID, adminID, notes string) (*RequestResult, error)
	Reject(ctx context.Context, requestID, adminID, reason string) (*RequestResult, error)
	Cancel(ctx context.Context, requestID, userID string) (*RequestResult, error)

	GetRequest(ctx context.Context, requestID string) (*models.WithdrawalRequest, error)
	GetUserRequests(ctx context.Context, userID string, q RequestQuery) (*RequestPage, error)
	GetAllRequests(ctx context.Context, q RequestQuery) (*RequestPage, error)
}

// Config holds the withdrawal rules
type Config struct {
	// Minimums is the smallest amount each role may withdraw. Roles missing
	// from the map have no floor.
	Minimums map[models.WalletRole]decimal.Decimal
	Ledger   wallet.LedgerConfig
}

// DefaultConfig returns the standard floors: 100 for providers, 50 for
// customers.
func DefaultConfig() Config {
	return Config{
		Minimums: map[models.WalletRole]decimal.Decimal{
			models.RoleProvider: decimal.NewFromInt(100),
			models.RoleCustomer: decimal.NewFromInt(50),
		},
	}
}

type CreateRequestInput struct {
	UserID      string             `json:"user_id"`
	Role        models.WalletRole  `json:"role"`
	Amount      decimal.Decimal    `json:"amount"`
	BankDetails models.BankDetails `json:"bank_details"`
	Reason      string             `json:"reason,omitempty"`
}

type RequestQuery struct {
	Status models.WithdrawalStatus
	Role   models.WalletRole
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

// RequestResult carries the request together with its ledger entry. Wallet
// is set only when the balance changed.
type RequestResult struct {
	Request     *models.WithdrawalRequest `json:"request"`
	Transaction *models.WalletTransaction `json:"transaction"`
	Wallet      *models.Wallet            `json:"wallet,omitempty"`
}

type RequestPage struct {
	Items []models.WithdrawalRequest `json:"items"`
	Page  int                        `json:"page"`
	Limit int                        `json:"limit"`
	Total int64                      `json:"total"`
}
