package wallet

import (
	"context"

	"mealpay/internal/models"
)

// Service defines the ledger engine
type Service interface {
	// Wallet management
	CreateWallet(ctx context.Context, userID string, role models.WalletRole) (*models.Wallet, error)
	GetWallet(ctx context.Context, userID string) (*models.Wallet, error)
	FreezeWallet(ctx context.Context, userID, reason, adminID string) (*models.Wallet, error)
	UnfreezeWallet(ctx context.Context, userID, adminID string) (*models.Wallet, error)
	CloseWallet(ctx context.Context, userID, adminID string) (*models.Wallet, error)

	// Money movement
	ProcessOrderPayment(ctx context.Context, req OrderPaymentRequest) (*TransferResult, error)
	ProcessDeliverySettlement(ctx context.Context, req SettlementRequest) (*SettlementResult, error)
	ProcessCancellationRefund(ctx context.Context, req RefundRequest) (*TransferResult, error)
	AddMoney(ctx context.Context, req AddMoneyRequest) (*CreditResult, error)

	// Reads
	GetTransactionHistory(ctx context.Context, q HistoryQuery) (*TransactionPage, error)
	GetSettlement(ctx context.Context, deliveryOrderID string) (*models.DeliverySettlement, error)
}
