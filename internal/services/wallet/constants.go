package wallet

import "time"

// Default configuration values
const (
	DefaultPlatformUserID   = "platform"
	DefaultCurrency         = "INR"
	DefaultMaxRetries       = 3
	DefaultOperationTimeout = 15 * time.Second
	DefaultPageSize         = 20
	MaxPageSize             = 100
)

// Operation names used for metrics and logs
const (
	OpCreateWallet      = "create_wallet"
	OpGetWallet         = "get_wallet"
	OpOrderPayment      = "order_payment"
	OpDeliverySettle    = "delivery_settlement"
	OpCancellation      = "cancellation_refund"
	OpAddMoney          = "add_money"
	OpHistory           = "transaction_history"
	OpFreeze            = "freeze_wallet"
	OpUnfreeze          = "unfreeze_wallet"
	OpClose             = "close_wallet"
	OpGetSettlement     = "get_settlement"
	OpCreateWithdrawal  = "create_withdrawal"
	OpApproveWithdrawal = "approve_withdrawal"
	OpRejectWithdrawal  = "reject_withdrawal"
	OpCancelWithdrawal  = "cancel_withdrawal"
	OpListWithdrawals   = "list_withdrawals"
)
