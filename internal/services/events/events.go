// Package events publishes ledger events after a unit of work commits.
// Publishing is best effort: the ledger is the source of truth and a failed
// publish never undoes a committed movement.
package events

import (
	"context"
	"time"

	"mealpay/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types
const (
	WalletCreated       = "wallet.created"
	WalletFrozen        = "wallet.frozen"
	WalletUnfrozen      = "wallet.unfrozen"
	WalletClosed        = "wallet.closed"
	WalletCredited      = "wallet.credited"
	OrderPaid           = "order.paid"
	DeliverySettled     = "delivery.settled"
	OrderRefunded       = "order.refunded"
	WithdrawalRequested = "withdrawal.requested"
	WithdrawalApproved  = "withdrawal.approved"
	WithdrawalRejected  = "withdrawal.rejected"
	WithdrawalCancelled = "withdrawal.cancelled"
)

type Event struct {
	ID             string                     `json:"id"`
	Type           string                     `json:"event_type"`
	UserID         string                     `json:"user_id"`
	CounterpartyID string                     `json:"counterparty_id,omitempty"`
	TransferID     string                     `json:"transfer_id,omitempty"`
	Category       models.TransactionCategory `json:"category,omitempty"`
	Reference      *models.Reference          `json:"reference,omitempty"`
	Amount         decimal.Decimal            `json:"amount"`
	BalanceAfter   *decimal.Decimal           `json:"balance_after,omitempty"`
	Status         string                     `json:"status,omitempty"`
	Metadata       map[string]string          `json:"metadata,omitempty"`
	Timestamp      time.Time                  `json:"timestamp"`
}

// Publisher delivers ledger events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// stamp fills the envelope fields every sink relies on.
func stamp(event *Event) {
	if event.ID == "" {
		event.ID = models.NewID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	stamp(&event)
	p.logger.Info("ledger event",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("user_id", event.UserID),
		zap.String("counterparty_id", event.CounterpartyID),
		zap.String("transfer_id", event.TransferID),
		zap.String("amount", event.Amount.StringFixed(2)),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
