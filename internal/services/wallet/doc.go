/*
Package wallet implements the wallet ledger engine.

The engine moves money between exactly two wallets per operation and records
every movement as a pair of ledger entries that share a transfer ID: a debit
on the paying wallet and a credit on the receiving wallet. Balances, entries
and settlement rows are written inside one unit of work, so a failure at any
step leaves no trace.

Usage:

	svc := wallet.NewService(repo, cacheService, publisher, wallet.LedgerConfig{
	    PlatformUserID: "platform",
	}, metrics, logger)

	// customer pays for an order
	res, err := svc.ProcessOrderPayment(ctx, wallet.OrderPaymentRequest{
	    CustomerID: "cust-1",
	    OrderID:    "order-1",
	    Amount:     decimal.NewFromInt(500),
	})

	// the platform pays the provider once the meal is delivered
	_, err = svc.ProcessDeliverySettlement(ctx, wallet.SettlementRequest{...})

Concurrency:

Wallet rows are locked in ascending user ID order and written with a version
check. A lost version check restarts the whole unit of work, up to
LedgerConfig.MaxRetries times.

Error Handling:

Every failure is an *errors.DomainError. Precondition failures are reported
before anything is written. Storage failures roll back and surface as
TransactionAborted.

Frozen wallets cannot be debited but still receive credits. Closed wallets
accept neither.
*/
package wallet
