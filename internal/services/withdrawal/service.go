// Package withdrawal implements the request, approve, reject and cancel
// workflow for cashing out wallet balances. The balance is only debited when
// an admin approves, using the same locking and debit path as the ledger.
package withdrawal

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
	"mealpay/internal/services/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const cancelNote = " (Cancelled by user)"

type service struct {
	repo    repositories.LedgerRepository
	uow     *wallet.UnitOfWork
	cache   wallet.Cache
	events  events.Publisher
	config  Config
	metrics wallet.MetricsCollector
	logger  *zap.Logger
}

func NewService(
	repo repositories.LedgerRepository,
	cache wallet.Cache,
	publisher events.Publisher,
	config Config,
	metrics wallet.MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if cache == nil {
		cache = wallet.NoopCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = &wallet.NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Minimums == nil {
		config.Minimums = DefaultConfig().Minimums
	}

	return &service{
		repo:    repo,
		uow:     wallet.NewUnitOfWork(repo, config.Ledger, metrics, logger),
		cache:   cache,
		events:  publisher,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *service) CreateRequest(ctx context.Context, in CreateRequestInput) (*RequestResult, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return nil, derrors.InvalidInput("user_id is required")
	}
	if !in.Role.Valid() {
		return nil, derrors.InvalidInput("unknown wallet role %q", in.Role)
	}
	if in.Role == models.RoleAdmin {
		return nil, derrors.InvalidInput("admin wallets cannot request withdrawals")
	}
	if err := wallet.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if missing := in.BankDetails.Missing(); len(missing) > 0 {
		return nil, derrors.InvalidInput("bank details missing %s", strings.Join(missing, ", "))
	}

	var result *RequestResult
	err := s.uow.Do(ctx, wallet.OpCreateWithdrawal, func(tx repositories.LedgerRepository) error {
		w, err := wallet.LockWallet(ctx, tx, in.UserID)
		if err != nil {
			return err
		}
		if w.Role != in.Role {
			return derrors.InvalidInput("wallet of user %s belongs to role %s", w.UserID, w.Role)
		}
		if !w.IsActive() {
			return derrors.ErrWalletNotActive.WithMessage("wallet of user %s is %s", w.UserID, w.Status)
		}
		if floor, ok := s.config.Minimums[w.Role]; ok && in.Amount.LessThan(floor) {
			return derrors.ErrBelowMinimum.WithMessage("minimum withdrawal for %s is %s", w.Role, floor.StringFixed(2))
		}
		if !w.Covers(in.Amount) {
			return derrors.ErrInsufficientBalance.WithMessage("available balance %s is less than %s",
				w.AvailableBalance.StringFixed(2), in.Amount.StringFixed(2))
		}

		req := &models.WithdrawalRequest{
			ID:                        models.NewID(),
			UserID:                    w.UserID,
			WalletID:                  w.ID,
			Role:                      w.Role,
			Amount:                    in.Amount,
			AvailableBalanceAtRequest: w.AvailableBalance,
			BankDetails:               in.BankDetails,
			Reason:                    strings.TrimSpace(in.Reason),
			Status:                    models.WithdrawalPending,
		}
		if err := tx.CreateWithdrawal(ctx, req); err != nil {
			return err
		}

		// The entry is recorded now but the balance is untouched until approval
		entry := &models.WalletTransaction{
			ID:             models.NewID(),
			WalletID:       w.ID,
			UserID:         w.UserID,
			Type:           models.EntryDebit,
			Amount:         in.Amount,
			BalanceAfter:   w.AvailableBalance,
			Category:       models.CategoryWithdrawalRequest,
			Source:         models.SourceWithdrawal,
			Reference:      models.WithdrawalRef(req.ID),
			Status:         models.TransactionPending,
			ApprovalStatus: models.ApprovalPending,
			Description:    fmt.Sprintf("Withdrawal request for %s", in.Amount.StringFixed(2)),
		}
		if err := tx.CreateTransaction(ctx, entry); err != nil {
			return err
		}

		result = &RequestResult{Request: req, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal requested",
		zap.String("request_id", result.Request.ID),
		zap.String("user_id", in.UserID),
		zap.String("amount", in.Amount.StringFixed(2)))
	s.publish(ctx, events.WithdrawalRequested, result.Request, nil)
	return result, nil
}

func (s *service) Approve(ctx context.Context, requestID, adminID, notes string) (*RequestResult, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, derrors.InvalidInput("admin id is required")
	}

	var result *RequestResult
	err := s.uow.Do(ctx, wallet.OpApproveWithdrawal, func(tx repositories.LedgerRepository) error {
		req, err := s.lockPending(ctx, tx, requestID, models.WithdrawalApproved)
		if err != nil {
			return err
		}
		if req.UserID == adminID {
			return derrors.ErrSelfReview
		}

		// The balance may have dropped since the request was filed
		w, err := wallet.LockWallet(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if err := wallet.CheckDebit(w, req.Amount); err != nil {
			return err
		}
		entry, err := s.pendingEntry(ctx, tx, req)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := wallet.Debit(ctx, tx, w, req.Amount, now); err != nil {
			return err
		}

		entry.Status = models.TransactionCompleted
		entry.ApprovalStatus = models.ApprovalApproved
		entry.BalanceAfter = w.AvailableBalance
		entry.ApprovedBy = adminID
		entry.ProcessedAt = &now
		if err := tx.FinalizeTransaction(ctx, entry); err != nil {
			return err
		}

		req.Status = models.WithdrawalApproved
		req.ReviewedBy = adminID
		req.ReviewedAt = &now
		req.ReviewNotes = strings.TrimSpace(notes)
		req.DebitTransactionID = entry.ID
		if err := tx.FinalizeWithdrawal(ctx, req); err != nil {
			return err
		}

		result = &RequestResult{Request: req, Transaction: entry, Wallet: w}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransaction(string(models.CategoryWithdrawalRequest), result.Request.Amount.InexactFloat64())
	if err := s.cache.InvalidateWallet(ctx, result.Request.UserID); err != nil {
		s.logger.Warn("failed to invalidate wallet cache", zap.String("user_id", result.Request.UserID), zap.Error(err))
	}
	balance := result.Wallet.AvailableBalance
	s.logger.Info("withdrawal approved",
		zap.String("request_id", requestID),
		zap.String("admin_id", adminID),
		zap.String("amount", result.Request.Amount.StringFixed(2)))
	s.publish(ctx, events.WithdrawalApproved, result.Request, &balance)
	return result, nil
}

func (s *service) Reject(ctx context.Context, requestID, adminID, reason string) (*RequestResult, error) {
	if strings.TrimSpace(adminID) == "" {
		return nil, derrors.InvalidInput("admin id is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, derrors.InvalidInput("rejection reason is required")
	}

	var result *RequestResult
	err := s.uow.Do(ctx, wallet.OpRejectWithdrawal, func(tx repositories.LedgerRepository) error {
		req, err := s.lockPending(ctx, tx, requestID, models.WithdrawalRejected)
		if err != nil {
			return err
		}
		if req.UserID == adminID {
			return derrors.ErrSelfReview
		}
		entry, err := s.pendingEntry(ctx, tx, req)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		entry.Status = models.TransactionFailed
		entry.ApprovalStatus = models.ApprovalRejected
		entry.ApprovedBy = adminID
		entry.ProcessedAt = &now
		if err := tx.FinalizeTransaction(ctx, entry); err != nil {
			return err
		}

		req.Status = models.WithdrawalRejected
		req.ReviewedBy = adminID
		req.ReviewedAt = &now
		req.RejectionReason = reason
		if err := tx.FinalizeWithdrawal(ctx, req); err != nil {
			return err
		}

		result = &RequestResult{Request: req, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal rejected", zap.String("request_id", requestID), zap.String("admin_id", adminID))
	s.publish(ctx, events.WithdrawalRejected, result.Request, nil)
	return result, nil
}

func (s *service) Cancel(ctx context.Context, requestID, userID string) (*RequestResult, error) {
	var result *RequestResult
	err := s.uow.Do(ctx, wallet.OpCancelWithdrawal, func(tx repositories.LedgerRepository) error {
		req, err := s.lockRequest(ctx, tx, requestID)
		if err != nil {
			return err
		}
		// Other users' requests are invisible to the caller
		if req.UserID != userID {
			return derrors.ErrWithdrawalNotFound
		}
		if !req.Status.CanTransitionTo(models.WithdrawalCancelled) {
			return derrors.ErrInvalidWithdrawalState.WithMessage("cannot cancel %s request", req.Status)
		}
		entry, err := s.pendingEntry(ctx, tx, req)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		entry.Status = models.TransactionFailed
		entry.ApprovalStatus = models.ApprovalRejected
		entry.Description += cancelNote
		entry.ProcessedAt = &now
		if err := tx.FinalizeTransaction(ctx, entry); err != nil {
			return err
		}

		req.Status = models.WithdrawalCancelled
		req.CancelledAt = &now
		if err := tx.FinalizeWithdrawal(ctx, req); err != nil {
			return err
		}

		result = &RequestResult{Request: req, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal cancelled", zap.String("request_id", requestID), zap.String("user_id", userID))
	s.publish(ctx, events.WithdrawalCancelled, result.Request, nil)
	return result, nil
}

func (s *service) GetRequest(ctx context.Context, requestID string) (*models.WithdrawalRequest, error) {
	var req *models.WithdrawalRequest
	err := s.uow.Read(ctx, wallet.OpListWithdrawals, func(repo repositories.LedgerRepository) error {
		r, err := repo.GetWithdrawalByID(ctx, requestID)
		if errors.Is(err, repositories.ErrWithdrawalNotFound) {
			return derrors.ErrWithdrawalNotFound
		}
		req = r
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *service) GetUserRequests(ctx context.Context, userID string, q RequestQuery) (*RequestPage, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, derrors.InvalidInput("user_id is required")
	}
	return s.list(ctx, userID, q)
}

func (s *service) GetAllRequests(ctx context.Context, q RequestQuery) (*RequestPage, error) {
	return s.list(ctx, "", q)
}

func (s *service) list(ctx context.Context, userID string, q RequestQuery) (*RequestPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, derrors.InvalidInput("unknown withdrawal status %q", q.Status)
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, derrors.InvalidInput("unknown wallet role %q", q.Role)
	}
	page, limit, offset := wallet.NormalizePage(q.Page, q.Limit)

	result := &RequestPage{Page: page, Limit: limit, Items: []models.WithdrawalRequest{}}
	err := s.uow.Read(ctx, wallet.OpListWithdrawals, func(repo repositories.LedgerRepository) error {
		items, total, err := repo.ListWithdrawals(ctx, repositories.WithdrawalQuery{
			UserID: userID,
			Status: q.Status,
			Role:   q.Role,
			From:   q.From,
			To:     q.To,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return err
		}
		if items != nil {
			result.Items = items
		}
		result.Total = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) lockRequest(ctx context.Context, tx repositories.LedgerRepository, requestID string) (*models.WithdrawalRequest, error) {
	req, err := tx.GetWithdrawalByIDForUpdate(ctx, requestID)
	if errors.Is(err, repositories.ErrWithdrawalNotFound) {
		return nil, derrors.ErrWithdrawalNotFound.WithMessage("withdrawal request %s not found", requestID)
	}
	return req, err
}

// lockPending locks the request and checks that it may move to next.
func (s *service) lockPending(ctx context.Context, tx repositories.LedgerRepository, requestID string, next models.WithdrawalStatus) (*models.WithdrawalRequest, error) {
	req, err := s.lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransitionTo(next) {
		return nil, derrors.ErrInvalidWithdrawalState.WithMessage("cannot move %s request to %s", req.Status, next)
	}
	return req, nil
}

// pendingEntry finds the ledger entry written when the request was filed.
func (s *service) pendingEntry(ctx context.Context, tx repositories.LedgerRepository, req *models.WithdrawalRequest) (*models.WalletTransaction, error) {
	entry, err := tx.GetTransactionByReference(ctx, req.WalletID, models.WithdrawalRef(req.ID))
	if err != nil {
		return nil, fmt.Errorf("ledger entry for withdrawal %s: %w", req.ID, err)
	}
	if entry.IsFinal() {
		return nil, fmt.Errorf("ledger entry %s for pending withdrawal %s is already %s", entry.ID, req.ID, entry.Status)
	}
	return entry, nil
}

func (s *service) publish(ctx context.Context, eventType string, req *models.WithdrawalRequest, balance *decimal.Decimal) {
	ref := models.WithdrawalRef(req.ID)
	event := events.Event{
		Type:         eventType,
		UserID:       req.UserID,
		Category:     models.CategoryWithdrawalRequest,
		Reference:    &ref,
		Amount:       req.Amount,
		BalanceAfter: balance,
		Status:       string(req.Status),
	}
	if req.ReviewedBy != "" {
		event.Metadata = map[string]string{"reviewed_by": req.ReviewedBy}
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish withdrawal event",
			zap.String("event_type", eventType),
			zap.String("request_id", req.ID),
			zap.Error(err))
	}
}
