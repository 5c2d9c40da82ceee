package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	derrors "mealpay/internal/errors"
	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/services/events"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// transferSpec describes one paired movement between two wallets.
type transferSpec struct {
	fromUserID string
	toUserID   string
	amount     decimal.Decimal
	category   models.TransactionCategory
	source     models.TransactionSource
	reference  models.Reference
	debitNote  string
	creditNote string
}

func (s *service) ProcessOrderPayment(ctx context.Context, req OrderPaymentRequest) (*TransferResult, error) {
	if err := required("customer_id", req.CustomerID, "order_id", req.OrderID); err != nil {
		return nil, err
	}
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = fmt.Sprintf("Payment for order %s", req.OrderID)
	}

	spec := transferSpec{
		fromUserID: req.CustomerID,
		toUserID:   s.config.PlatformUserID,
		amount:     req.Amount,
		category:   models.CategoryOrderPayment,
		source:     models.SourceOrder,
		reference:  models.OrderRef(req.OrderID),
		debitNote:  description,
		creditNote: fmt.Sprintf("Order payment received from customer %s", req.CustomerID),
	}

	var result *TransferResult
	err := s.uow.Do(ctx, OpOrderPayment, func(tx repositories.LedgerRepository) error {
		r, err := s.transfer(ctx, tx, spec)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}

	s.completed(ctx, events.OrderPaid, spec, result)
	return result, nil
}

func (s *service) ProcessDeliverySettlement(ctx context.Context, req SettlementRequest) (*SettlementResult, error) {
	if err := required("delivery_order_id", req.DeliveryOrderID, "provider_id", req.ProviderID); err != nil {
		return nil, err
	}
	if err := ValidateAmount(req.MealAmount); err != nil {
		return nil, err
	}
	settlementType := req.SettlementType
	if settlementType == "" {
		settlementType = models.SettlementAutomatic
	}
	if !settlementType.Valid() {
		return nil, derrors.InvalidInput("unknown settlement type %q", settlementType)
	}
	deliveryDate := req.DeliveryDate
	if deliveryDate.IsZero() {
		deliveryDate = time.Now().UTC()
	}

	spec := transferSpec{
		fromUserID: s.config.PlatformUserID,
		toUserID:   req.ProviderID,
		amount:     req.MealAmount,
		category:   models.CategoryDeliverySettlement,
		source:     models.SourceDelivery,
		reference:  models.DeliveryOrderRef(req.DeliveryOrderID),
		debitNote:  fmt.Sprintf("Settlement to provider %s for delivery %s", req.ProviderID, req.DeliveryOrderID),
		creditNote: fmt.Sprintf("Meal settlement for delivery %s", req.DeliveryOrderID),
	}

	var result *SettlementResult
	err := s.uow.Do(ctx, OpDeliverySettle, func(tx repositories.LedgerRepository) error {
		// The existence check runs before any wallet is touched
		_, err := tx.GetSettlementByDeliveryOrderID(ctx, req.DeliveryOrderID)
		if err == nil {
			return derrors.ErrAlreadySettled.WithMessage("delivery %s has already been settled", req.DeliveryOrderID)
		}
		if !errors.Is(err, repositories.ErrSettlementNotFound) {
			return err
		}

		transfer, err := s.transfer(ctx, tx, spec)
		if err != nil {
			return err
		}

		settlement := &models.DeliverySettlement{
			ID:                  models.NewID(),
			DeliveryOrderID:     req.DeliveryOrderID,
			OrderID:             req.OrderID,
			ProviderID:          req.ProviderID,
			CustomerID:          req.CustomerID,
			DeliveryDate:        deliveryDate,
			MealAmount:          req.MealAmount,
			SettlementAmount:    req.MealAmount,
			Status:              models.SettlementSettled,
			SettlementType:      settlementType,
			TransferID:          transfer.TransferID,
			DebitTransactionID:  transfer.Debit.ID,
			CreditTransactionID: transfer.Credit.ID,
		}
		if err := tx.CreateSettlement(ctx, settlement); err != nil {
			if errors.Is(err, repositories.ErrDuplicateSettlement) {
				return derrors.ErrAlreadySettled.WithMessage("delivery %s has already been settled", req.DeliveryOrderID)
			}
			return err
		}

		result = &SettlementResult{Settlement: settlement, TransferResult: transfer}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.completed(ctx, events.DeliverySettled, spec, result.TransferResult)
	return result, nil
}

func (s *service) ProcessCancellationRefund(ctx context.Context, req RefundRequest) (*TransferResult, error) {
	if err := required("customer_id", req.CustomerID); err != nil {
		return nil, err
	}
	if req.OrderID == "" && req.DeliveryOrderID == "" {
		return nil, derrors.InvalidInput("order_id or delivery_order_id is required")
	}
	if err := ValidateAmount(req.RefundAmount); err != nil {
		return nil, err
	}

	ref := models.OrderRef(req.OrderID)
	if req.DeliveryOrderID != "" {
		ref = models.DeliveryOrderRef(req.DeliveryOrderID)
	}
	note := fmt.Sprintf("Refund for cancelled order %s", req.OrderID)
	if req.OrderID == "" {
		note = fmt.Sprintf("Refund for cancelled delivery %s", req.DeliveryOrderID)
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		note = note + ": " + reason
	}

	spec := transferSpec{
		fromUserID: s.config.PlatformUserID,
		toUserID:   req.CustomerID,
		amount:     req.RefundAmount,
		category:   models.CategoryCancellationRefund,
		source:     models.SourceCancellation,
		reference:  ref,
		debitNote:  fmt.Sprintf("Refund issued to customer %s", req.CustomerID),
		creditNote: note,
	}

	var result *TransferResult
	err := s.uow.Do(ctx, OpCancellation, func(tx repositories.LedgerRepository) error {
		r, err := s.transfer(ctx, tx, spec)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}

	s.completed(ctx, events.OrderRefunded, spec, result)
	return result, nil
}

func (s *service) AddMoney(ctx context.Context, req AddMoneyRequest) (*CreditResult, error) {
	if err := required("user_id", req.UserID); err != nil {
		return nil, err
	}
	if err := ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	category := req.Category
	switch category {
	case "":
		category = models.CategoryAdminAdjustment
	case models.CategoryAdminAdjustment, models.CategoryPromotionalCredit:
	default:
		return nil, derrors.InvalidInput("category %q cannot be used for a direct credit", category)
	}
	description := strings.TrimSpace(req.Reason)
	if description == "" {
		description = "Admin credit"
	}

	var result *CreditResult
	err := s.uow.Do(ctx, OpAddMoney, func(tx repositories.LedgerRepository) error {
		w, err := LockWallet(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if !w.CanReceive() {
			return derrors.ErrWalletNotActive.WithMessage("wallet of user %s is %s", w.UserID, w.Status)
		}

		now := time.Now().UTC()
		if err := credit(ctx, tx, w, req.Amount, now); err != nil {
			return err
		}
		entry := &models.WalletTransaction{
			ID:           models.NewID(),
			WalletID:     w.ID,
			UserID:       w.UserID,
			Type:         models.EntryCredit,
			Amount:       req.Amount,
			BalanceAfter: w.AvailableBalance,
			Category:     category,
			Source:       models.SourceAdmin,
			Status:       models.TransactionCompleted,
			Description:  description,
			ApprovedBy:   req.AdminID,
			ProcessedAt:  &now,
		}
		if err := tx.CreateTransaction(ctx, entry); err != nil {
			return err
		}

		result = &CreditResult{Transaction: entry, Wallet: w}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransaction(string(category), req.Amount.InexactFloat64())
	balance := result.Wallet.AvailableBalance
	s.afterCommit(ctx, events.Event{
		Type:         events.WalletCredited,
		UserID:       req.UserID,
		Category:     category,
		Amount:       req.Amount,
		BalanceAfter: &balance,
		Metadata:     map[string]string{"admin_id": req.AdminID},
	}, req.UserID)

	s.logger.Info("wallet credited",
		zap.String("user_id", req.UserID),
		zap.String("admin_id", req.AdminID),
		zap.String("category", string(category)),
		zap.String("amount", req.Amount.StringFixed(2)))
	return result, nil
}

// transfer moves spec.amount between the two wallets inside tx and writes
// both legs under one transfer ID. Writes happen in a fixed order: debit
// wallet, debit entry, credit wallet, credit entry.
func (s *service) transfer(ctx context.Context, tx repositories.LedgerRepository, spec transferSpec) (*TransferResult, error) {
	if spec.fromUserID == spec.toUserID {
		return nil, derrors.InvalidInput("cannot transfer from a wallet to itself")
	}

	from, to, err := lockPair(ctx, tx, spec.fromUserID, spec.toUserID)
	if err != nil {
		return nil, err
	}
	if err := CheckDebit(from, spec.amount); err != nil {
		return nil, err
	}
	if !to.CanReceive() {
		return nil, derrors.ErrWalletNotActive.WithMessage("wallet of user %s is %s", to.UserID, to.Status)
	}

	now := time.Now().UTC()
	transferID := models.NewID()

	if from.Role == models.RoleCustomer {
		from.TotalSpent = from.TotalSpent.Add(spec.amount)
	}
	if err := Debit(ctx, tx, from, spec.amount, now); err != nil {
		return nil, err
	}
	debit := s.entry(transferID, from, models.EntryDebit, spec, spec.debitNote, now)
	if err := tx.CreateTransaction(ctx, debit); err != nil {
		return nil, err
	}

	if to.Role == models.RoleProvider {
		to.TotalEarned = to.TotalEarned.Add(spec.amount)
	}
	if err := credit(ctx, tx, to, spec.amount, now); err != nil {
		return nil, err
	}
	creditEntry := s.entry(transferID, to, models.EntryCredit, spec, spec.creditNote, now)
	if err := tx.CreateTransaction(ctx, creditEntry); err != nil {
		return nil, err
	}

	return &TransferResult{
		TransferID: transferID,
		Debit:      debit,
		Credit:     creditEntry,
		FromWallet: from,
		ToWallet:   to,
	}, nil
}

func (s *service) entry(transferID string, w *models.Wallet, typ models.EntryType, spec transferSpec, note string, at time.Time) *models.WalletTransaction {
	return &models.WalletTransaction{
		ID:           models.NewID(),
		TransferID:   transferID,
		WalletID:     w.ID,
		UserID:       w.UserID,
		Type:         typ,
		Amount:       spec.amount,
		BalanceAfter: w.AvailableBalance,
		Category:     spec.category,
		Source:       spec.source,
		Reference:    spec.reference,
		Status:       models.TransactionCompleted,
		Description:  note,
		ProcessedAt:  &at,
	}
}

// completed runs the post-commit work of a paired movement.
func (s *service) completed(ctx context.Context, eventType string, spec transferSpec, result *TransferResult) {
	s.metrics.RecordTransaction(string(spec.category), spec.amount.InexactFloat64())

	ref := spec.reference
	balance := result.FromWallet.AvailableBalance
	s.afterCommit(ctx, events.Event{
		Type:           eventType,
		UserID:         spec.fromUserID,
		CounterpartyID: spec.toUserID,
		TransferID:     result.TransferID,
		Category:       spec.category,
		Reference:      &ref,
		Amount:         spec.amount,
		BalanceAfter:   &balance,
	}, spec.fromUserID, spec.toUserID)

	s.logger.Info("ledger transfer committed",
		zap.String("transfer_id", result.TransferID),
		zap.String("category", string(spec.category)),
		zap.String("from", spec.fromUserID),
		zap.String("to", spec.toUserID),
		zap.String("amount", spec.amount.StringFixed(2)))
}

// lockPair locks both wallets in ascending user ID order so that two
// transfers over the same pair can never wait on each other.
func lockPair(ctx context.Context, tx repositories.LedgerRepository, fromUserID, toUserID string) (*models.Wallet, *models.Wallet, error) {
	first, second := fromUserID, toUserID
	if second < first {
		first, second = second, first
	}

	a, err := LockWallet(ctx, tx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := LockWallet(ctx, tx, second)
	if err != nil {
		return nil, nil, err
	}

	if first == fromUserID {
		return a, b, nil
	}
	return b, a, nil
}

// LockWallet reads a wallet with a row lock held until tx ends.
func LockWallet(ctx context.Context, tx repositories.LedgerRepository, userID string) (*models.Wallet, error) {
	w, err := tx.GetWalletByUserIDForUpdate(ctx, userID)
	if err != nil {
		return nil, walletNotFound(err, userID)
	}
	return w, nil
}

// CheckDebit reports why w cannot be debited by amount, if it cannot.
func CheckDebit(w *models.Wallet, amount decimal.Decimal) error {
	if !w.IsActive() {
		return derrors.ErrWalletNotActive.WithMessage("wallet of user %s is %s", w.UserID, w.Status)
	}
	if !w.Covers(amount) {
		return derrors.ErrInsufficientBalance.WithMessage("available balance %s is less than %s",
			w.AvailableBalance.StringFixed(2), amount.StringFixed(2))
	}
	return nil
}

// Debit lowers the available balance and persists the wallet. The caller
// must hold the row lock and have called CheckDebit.
func Debit(ctx context.Context, tx repositories.LedgerRepository, w *models.Wallet, amount decimal.Decimal, at time.Time) error {
	w.AvailableBalance = w.AvailableBalance.Sub(amount)
	w.LastTransactionAt = &at
	return tx.UpdateWallet(ctx, w)
}

func credit(ctx context.Context, tx repositories.LedgerRepository, w *models.Wallet, amount decimal.Decimal, at time.Time) error {
	w.AvailableBalance = w.AvailableBalance.Add(amount)
	w.LastTransactionAt = &at
	return tx.UpdateWallet(ctx, w)
}

// ValidateAmount accepts positive amounts with at most two decimal places.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return derrors.ErrInvalidAmount
	}
	if !amount.Equal(amount.Round(2)) {
		return derrors.InvalidInput("amount %s has more than two decimal places", amount.String())
	}
	return nil
}

// required checks name/value pairs for blank values.
func required(pairs ...string) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			return derrors.InvalidInput("%s is required", pairs[i])
		}
	}
	return nil
}
