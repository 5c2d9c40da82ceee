package report

import (
	"context"
	"testing"
	"time"

	"mealpay/internal/models"
	"mealpay/internal/repositories/memory"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func TestExporter_Build(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	ledger := wallet.NewService(repo, nil, nil, wallet.LedgerConfig{}, nil, zap.NewNop())
	payouts := withdrawal.NewService(repo, nil, nil, withdrawal.DefaultConfig(), nil, zap.NewNop())

	_, err := ledger.CreateWallet(ctx, wallet.DefaultPlatformUserID, models.RoleAdmin)
	require.NoError(t, err)
	_, err = ledger.CreateWallet(ctx, "prov-1", models.RoleProvider)
	require.NoError(t, err)
	_, err = ledger.AddMoney(ctx, wallet.AddMoneyRequest{UserID: wallet.DefaultPlatformUserID, Amount: decimal.NewFromInt(1000)})
	require.NoError(t, err)

	now := time.Now().UTC()
	for _, id := range []string{"d1", "d2"} {
		_, err = ledger.ProcessDeliverySettlement(ctx, wallet.SettlementRequest{
			DeliveryOrderID: id,
			ProviderID:      "prov-1",
			OrderID:         "o-" + id,
			MealAmount:      decimal.NewFromInt(150),
			DeliveryDate:    now,
		})
		require.NoError(t, err)
	}

	created, err := payouts.CreateRequest(ctx, withdrawal.CreateRequestInput{
		UserID: "prov-1",
		Role:   models.RoleProvider,
		Amount: decimal.NewFromInt(200),
		BankDetails: models.BankDetails{
			AccountHolderName: "Prov One",
			AccountNumber:     "123",
			RoutingCode:       "IFSC0001",
			BankName:          "Bank",
		},
	})
	require.NoError(t, err)
	_, err = payouts.Approve(ctx, created.Request.ID, "admin-1", "paid")
	require.NoError(t, err)

	buf, err := NewExporter(repo).Build(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SettlementsSheet, WithdrawalsSheet}, f.GetSheetList())

	rows, err := f.GetRows(SettlementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Delivery Order", rows[0][0])
	assert.Equal(t, "Total", rows[3][0])
	assert.Equal(t, "300", rows[3][6])

	rows, err = f.GetRows(WithdrawalsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, created.Request.ID, rows[1][0])
	assert.Equal(t, "approved", rows[1][5])
	assert.Equal(t, "admin-1", rows[1][7])
	assert.Equal(t, "200", rows[2][3])
}

func TestExporter_EmptyRange(t *testing.T) {
	now := time.Now()
	_, err := NewExporter(memory.New()).Build(context.Background(), now, now)
	assert.Error(t, err)
}
