// Package reconciliation checks that stored balances agree with the ledger.
// For every wallet, completed credits minus completed debits must equal the
// available balance, and every completed transfer must consist of exactly
// two legs that net to zero.
package reconciliation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/services/wallet"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const walletBatchSize = 200

type WalletMismatch struct {
	UserID    string          `json:"user_id"`
	WalletID  string          `json:"wallet_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerNet decimal.Decimal `json:"ledger_net"`
}

type Report struct {
	StartedAt           time.Time        `json:"started_at"`
	FinishedAt          time.Time        `json:"finished_at"`
	WalletsChecked      int              `json:"wallets_checked"`
	Mismatches          []WalletMismatch `json:"mismatches"`
	UnbalancedTransfers []string         `json:"unbalanced_transfers"`
}

// Healthy reports whether the audit found nothing wrong.
func (r *Report) Healthy() bool {
	return len(r.Mismatches) == 0 && len(r.UnbalancedTransfers) == 0
}

type Auditor struct {
	repo    repositories.LedgerRepository
	metrics wallet.MetricsCollector
	logger  *zap.Logger

	mu   sync.Mutex
	last *Report
}

func NewAuditor(repo repositories.LedgerRepository, metrics wallet.MetricsCollector, logger *zap.Logger) *Auditor {
	if metrics == nil {
		metrics = &wallet.NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Auditor{repo: repo, metrics: metrics, logger: logger}
}

// Run audits every wallet. Wallets are read in batches outside any
// transaction, so a movement committed mid-run can show up as a transient
// mismatch; a mismatch that persists across runs is real.
func (a *Auditor) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		StartedAt:           time.Now().UTC(),
		Mismatches:          []WalletMismatch{},
		UnbalancedTransfers: []string{},
	}

	for offset := 0; ; offset += walletBatchSize {
		wallets, _, err := a.repo.ListWallets(ctx, repositories.WalletQuery{Limit: walletBatchSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list wallets: %w", err)
		}
		for i := range wallets {
			if err := a.checkWallet(ctx, &wallets[i], report); err != nil {
				return nil, err
			}
		}
		if len(wallets) < walletBatchSize {
			break
		}
	}

	unbalanced, err := a.repo.UnbalancedTransfers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check transfers: %w", err)
	}
	if len(unbalanced) > 0 {
		report.UnbalancedTransfers = unbalanced
	}
	report.FinishedAt = time.Now().UTC()

	a.metrics.RecordReconciliation(len(report.Mismatches), len(report.UnbalancedTransfers))
	if report.Healthy() {
		a.logger.Info("ledger reconciliation passed",
			zap.Int("wallets", report.WalletsChecked),
			zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	} else {
		a.logger.Error("ledger reconciliation found discrepancies",
			zap.Int("wallets", report.WalletsChecked),
			zap.Int("wallet_mismatches", len(report.Mismatches)),
			zap.Strings("unbalanced_transfers", report.UnbalancedTransfers))
	}

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()
	return report, nil
}

// Last returns the most recent completed report, or nil.
func (a *Auditor) Last() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Auditor) checkWallet(ctx context.Context, w *models.Wallet, report *Report) error {
	totals, err := a.repo.SumCompleted(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("failed to sum ledger for wallet %s: %w", w.ID, err)
	}
	report.WalletsChecked++

	if net := totals.Net(); !net.Equal(w.AvailableBalance) {
		report.Mismatches = append(report.Mismatches, WalletMismatch{
			UserID:    w.UserID,
			WalletID:  w.ID,
			Balance:   w.AvailableBalance,
			LedgerNet: net,
		})
		a.logger.Warn("wallet balance disagrees with ledger",
			zap.String("user_id", w.UserID),
			zap.String("balance", w.AvailableBalance.StringFixed(2)),
			zap.String("ledger_net", net.StringFixed(2)))
	}
	return nil
}
