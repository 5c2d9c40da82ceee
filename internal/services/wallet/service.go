package wallet

import (
	"context"
	"errors"
	"strings"

	derrors "mealpay/internal/errors"
	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/services/events"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type service struct {
	repo    repositories.LedgerRepository
	uow     *UnitOfWork
	cache   Cache
	events  events.Publisher
	config  LedgerConfig
	metrics MetricsCollector
	logger  *zap.Logger
}

// NewService creates a new ledger engine
func NewService(
	repo repositories.LedgerRepository,
	cache Cache,
	publisher events.Publisher,
	config LedgerConfig,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}

	config = config.withDefaults()

	// Cache, events and metrics are optional
	if cache == nil {
		cache = NoopCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		repo:    repo,
		uow:     NewUnitOfWork(repo, config, metrics, logger),
		cache:   cache,
		events:  publisher,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

func (s *service) CreateWallet(ctx context.Context, userID string, role models.WalletRole) (*models.Wallet, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, derrors.InvalidInput("user id is required")
	}
	if !role.Valid() {
		return nil, derrors.InvalidInput("unknown wallet role %q", role)
	}

	var wallet *models.Wallet
	err := s.uow.Do(ctx, OpCreateWallet, func(tx repositories.LedgerRepository) error {
		_, err := tx.GetWalletByUserID(ctx, userID)
		if err == nil {
			return derrors.ErrWalletExists
		}
		if !errors.Is(err, repositories.ErrWalletNotFound) {
			return err
		}

		wallet = &models.Wallet{
			ID:               models.NewID(),
			UserID:           userID,
			Role:             role,
			Currency:         s.config.DefaultCurrency,
			AvailableBalance: decimal.Zero,
			PendingBalance:   decimal.Zero,
			TotalEarned:      decimal.Zero,
			TotalSpent:       decimal.Zero,
			Status:           models.WalletActive,
			Version:          1,
		}
		if err := tx.CreateWallet(ctx, wallet); err != nil {
			if errors.Is(err, repositories.ErrDuplicateWallet) {
				return derrors.ErrWalletExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("wallet created", zap.String("user_id", userID), zap.String("role", string(role)))
	s.publish(ctx, events.Event{Type: events.WalletCreated, UserID: userID, Amount: decimal.Zero, Status: string(wallet.Status)})
	return wallet, nil
}

func (s *service) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	// Try cache first
	if wallet, found, err := s.cache.GetWallet(ctx, userID); err == nil && found {
		s.metrics.RecordCacheHit("wallet")
		return wallet, nil
	} else if err != nil {
		s.logger.Warn("wallet cache read failed", zap.String("user_id", userID), zap.Error(err))
	}
	s.metrics.RecordCacheMiss("wallet")

	var wallet *models.Wallet
	err := s.uow.Read(ctx, OpGetWallet, func(repo repositories.LedgerRepository) error {
		w, err := repo.GetWalletByUserID(ctx, userID)
		if err != nil {
			return walletNotFound(err, userID)
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.CacheWallet(ctx, wallet); err != nil {
		s.logger.Warn("failed to cache wallet", zap.String("user_id", userID), zap.Error(err))
	}
	return wallet, nil
}

func (s *service) GetTransactionHistory(ctx context.Context, q HistoryQuery) (*TransactionPage, error) {
	if q.Category != "" && !q.Category.Valid() {
		return nil, derrors.InvalidInput("unknown transaction category %q", q.Category)
	}
	page, limit, offset := NormalizePage(q.Page, q.Limit)

	result := &TransactionPage{Page: page, Limit: limit, Items: []models.WalletTransaction{}}
	err := s.uow.Read(ctx, OpHistory, func(repo repositories.LedgerRepository) error {
		items, total, err := repo.ListTransactions(ctx, repositories.TransactionQuery{
			UserID:   q.UserID,
			Category: q.Category,
			Limit:    limit,
			Offset:   offset,
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

func (s *service) GetSettlement(ctx context.Context, deliveryOrderID string) (*models.DeliverySettlement, error) {
	var settlement *models.DeliverySettlement
	err := s.uow.Read(ctx, OpGetSettlement, func(repo repositories.LedgerRepository) error {
		st, err := repo.GetSettlementByDeliveryOrderID(ctx, deliveryOrderID)
		if errors.Is(err, repositories.ErrSettlementNotFound) {
			return derrors.ErrSettlementNotFound
		}
		settlement = st
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// afterCommit drops cached snapshots of every touched wallet and publishes
// the event. Neither step can fail the operation.
func (s *service) afterCommit(ctx context.Context, event events.Event, userIDs ...string) {
	if err := s.cache.InvalidateWallet(ctx, userIDs...); err != nil {
		s.logger.Warn("failed to invalidate wallet cache", zap.Strings("user_ids", userIDs), zap.Error(err))
	}
	s.publish(ctx, event)
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish ledger event",
			zap.String("event_type", event.Type),
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}
