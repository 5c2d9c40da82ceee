package reconciliation

import (
	"context"
	"testing"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/repositories/memory"
	"mealpay/internal/services/wallet"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingMetrics struct {
	wallet.NoopMetricsCollector
	mismatches int
	unbalanced int
}

func (m *recordingMetrics) RecordReconciliation(mismatches, unbalanced int) {
	m.mismatches = mismatches
	m.unbalanced = unbalanced
}

func seedLedger(t *testing.T) *memory.Repository {
	t.Helper()
	repo := memory.New()
	ledger := wallet.NewService(repo, nil, nil, wallet.LedgerConfig{}, nil, zap.NewNop())
	ctx := context.Background()

	for userID, role := range map[string]models.WalletRole{
		wallet.DefaultPlatformUserID: models.RoleAdmin,
		"cust-1":                     models.RoleCustomer,
		"prov-1":                     models.RoleProvider,
	} {
		_, err := ledger.CreateWallet(ctx, userID, role)
		require.NoError(t, err)
	}
	_, err := ledger.AddMoney(ctx, wallet.AddMoneyRequest{UserID: "cust-1", Amount: decimal.NewFromInt(300)})
	require.NoError(t, err)
	_, err = ledger.ProcessOrderPayment(ctx, wallet.OrderPaymentRequest{CustomerID: "cust-1", OrderID: "o1", Amount: decimal.NewFromInt(200)})
	require.NoError(t, err)
	_, err = ledger.ProcessDeliverySettlement(ctx, wallet.SettlementRequest{DeliveryOrderID: "d1", ProviderID: "prov-1", MealAmount: decimal.NewFromInt(150)})
	require.NoError(t, err)
	return repo
}

func TestAuditor_HealthyLedger(t *testing.T) {
	repo := seedLedger(t)
	metrics := &recordingMetrics{mismatches: -1, unbalanced: -1}
	auditor := NewAuditor(repo, metrics, zap.NewNop())

	report, err := auditor.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 3, report.WalletsChecked)
	assert.Zero(t, metrics.mismatches)
	assert.Zero(t, metrics.unbalanced)
	assert.Same(t, report, auditor.Last())
}

func TestAuditor_DetectsDrift(t *testing.T) {
	repo := seedLedger(t)
	ctx := context.Background()

	// Balance changed without a ledger entry.
	w, err := repo.GetWalletByUserID(ctx, "prov-1")
	require.NoError(t, err)
	w.AvailableBalance = w.AvailableBalance.Add(decimal.NewFromInt(10))
	require.NoError(t, repo.UpdateWallet(ctx, w))

	// A transfer with only one leg.
	require.NoError(t, repo.CreateTransaction(ctx, &models.WalletTransaction{
		TransferID: "orphan",
		WalletID:   "none",
		UserID:     "none",
		Type:       models.EntryCredit,
		Amount:     decimal.NewFromInt(5),
		Status:     models.TransactionCompleted,
	}))

	metrics := &recordingMetrics{}
	report, err := NewAuditor(repo, metrics, zap.NewNop()).Run(ctx)
	require.NoError(t, err)

	assert.False(t, report.Healthy())
	require.Len(t, report.Mismatches, 1)
	assert.Equal(t, "prov-1", report.Mismatches[0].UserID)
	assert.True(t, decimal.NewFromInt(160).Equal(report.Mismatches[0].Balance))
	assert.True(t, decimal.NewFromInt(150).Equal(report.Mismatches[0].LedgerNet))
	assert.Equal(t, []string{"orphan"}, report.UnbalancedTransfers)
	assert.Equal(t, 1, metrics.mismatches)
	assert.Equal(t, 1, metrics.unbalanced)
}

func TestScheduler_RunsAuditor(t *testing.T) {
	auditor := NewAuditor(seedLedger(t), nil, zap.NewNop())

	_, err := NewScheduler(auditor, 0, zap.NewNop())
	assert.Error(t, err)

	sched, err := NewScheduler(auditor, 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)
	sched.Start()

	require.Eventually(t, func() bool {
		return auditor.Last() != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, sched.Stop())
	assert.True(t, auditor.Last().Healthy())
}
