package wallet

import (
	"context"
	"errors"
	"time"

	derrors "mealpay/internal/errors"
	"mealpay/internal/repositories"

	"go.uber.org/zap"
)

// UnitOfWork runs a function inside one storage transaction. It bounds the
// transaction with the configured timeout, retries it when a guarded row
// changed underneath it, and turns storage failures into TransactionAborted.
type UnitOfWork struct {
	repo       repositories.LedgerRepository
	maxRetries int
	timeout    time.Duration
	logger     *zap.Logger
	metrics    MetricsCollector
}

func NewUnitOfWork(repo repositories.LedgerRepository, config LedgerConfig, metrics MetricsCollector, logger *zap.Logger) *UnitOfWork {
	if repo == nil {
		panic("repo is required")
	}
	config = config.withDefaults()
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitOfWork{
		repo:       repo,
		maxRetries: config.MaxRetries,
		timeout:    config.OperationTimeout,
		logger:     logger,
		metrics:    metrics,
	}
}

// Do executes fn. fn must be safe to run more than once: results captured
// by the closure are overwritten on each attempt.
func (u *UnitOfWork) Do(ctx context.Context, op string, fn func(tx repositories.LedgerRepository) error) error {
	start := time.Now()
	if u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	var err error
	for attempt := 1; attempt <= u.maxRetries; attempt++ {
		err = u.repo.ExecuteInTransaction(ctx, fn)
		if !errors.Is(err, repositories.ErrVersionConflict) {
			break
		}
		u.logger.Warn("concurrent wallet update, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt))
	}

	u.metrics.RecordOperationDuration(op, time.Since(start))
	return u.classify(op, err)
}

// Read wraps a non-transactional read with the same error handling.
func (u *UnitOfWork) Read(ctx context.Context, op string, fn func(repo repositories.LedgerRepository) error) error {
	start := time.Now()
	err := fn(u.repo)
	u.metrics.RecordOperationDuration(op, time.Since(start))
	return u.classify(op, err)
}

func (u *UnitOfWork) classify(op string, err error) error {
	switch {
	case err == nil:
		u.metrics.RecordOperationResult(op, "success")
		return nil
	case derrors.IsDomain(err):
		u.metrics.RecordOperationResult(op, string(derrors.KindOf(err)))
		return err
	default:
		u.logger.Error("ledger transaction aborted",
			zap.String("operation", op),
			zap.Error(err))
		u.metrics.RecordError(op, string(derrors.KindTransactionAborted))
		u.metrics.RecordOperationResult(op, string(derrors.KindTransactionAborted))
		return derrors.Aborted(op, err)
	}
}
