package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mealpay/internal/handlers"
	"mealpay/internal/models"
	"mealpay/internal/repositories/memory"
	"mealpay/internal/services/reconciliation"
	"mealpay/internal/services/report"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"
	"mealpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type apiFixture struct {
	app    *fiber.App
	ledger wallet.Service
}

type apiResponse struct {
	Success bool             `json:"success"`
	Data    json.RawMessage  `json:"data"`
	Error   *utils.ErrorBody `json:"error"`
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	repo := memory.New()
	reg := prometheus.NewRegistry()
	metrics := wallet.NewPrometheusMetrics(reg)

	ledger := wallet.NewService(repo, nil, nil, wallet.LedgerConfig{}, metrics, zap.NewNop())
	payouts := withdrawal.NewService(repo, nil, nil, withdrawal.DefaultConfig(), metrics, zap.NewNop())

	_, err := ledger.CreateWallet(context.Background(), wallet.DefaultPlatformUserID, models.RoleAdmin)
	require.NoError(t, err)
	_, err = ledger.AddMoney(context.Background(), wallet.AddMoneyRequest{
		UserID: wallet.DefaultPlatformUserID,
		Amount: decimal.NewFromInt(10000),
	})
	require.NoError(t, err)

	app := fiber.New()
	SetupRoutes(app, Dependencies{
		Wallet:      ledger,
		Withdrawals: payouts,
		Auditor:     reconciliation.NewAuditor(repo, metrics, zap.NewNop()),
		Exporter:    report.NewExporter(repo),
		Health: map[string]handlers.Pinger{
			"database": repo,
			"redis":    nil,
		},
		Gatherer:        reg,
		JWTSecret:       testSecret,
		WithdrawalLimit: 3,
	})
	return &apiFixture{app: app, ledger: ledger}
}

func token(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.GenerateToken(&models.UserClaims{UserID: userID, Role: role}, testSecret, time.Hour)
	require.NoError(t, err)
	return tok
}

func (f *apiFixture) do(t *testing.T, method, path, tok string, body interface{}) (int, apiResponse) {
	t.Helper()
	resp := f.raw(t, method, path, tok, body)
	defer resp.Body.Close()

	var out apiResponse
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) raw(t *testing.T, method, path, tok string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if tok != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
	}
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (f *apiFixture) fund(t *testing.T, userID string, role models.WalletRole, amount int64) {
	t.Helper()
	_, err := f.ledger.CreateWallet(context.Background(), userID, role)
	require.NoError(t, err)
	if amount > 0 {
		_, err = f.ledger.AddMoney(context.Background(), wallet.AddMoneyRequest{UserID: userID, Amount: decimal.NewFromInt(amount)})
		require.NoError(t, err)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newAPI(t)

	resp := f.raw(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, map[string]interface{}{"database": "connected", "redis": "disabled"}, health["services"])

	metrics := f.raw(t, http.MethodGet, "/metrics", "", nil)
	defer metrics.Body.Close()
	body, err := io.ReadAll(metrics.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, metrics.StatusCode)
	assert.Contains(t, string(body), "ledger_operations_total")
}

func TestAuthentication(t *testing.T) {
	f := newAPI(t)

	status, body := f.do(t, http.MethodGet, "/api/wallet", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.False(t, body.Success)

	status, _ = f.do(t, http.MethodGet, "/api/wallet", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	forged, err := utils.GenerateToken(&models.UserClaims{UserID: "cust-1", Role: "customer"}, "other-secret", time.Hour)
	require.NoError(t, err)
	status, _ = f.do(t, http.MethodGet, "/api/wallet", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	expired, err := utils.GenerateToken(&models.UserClaims{UserID: "cust-1", Role: "customer"}, testSecret, -time.Minute)
	require.NoError(t, err)
	status, _ = f.do(t, http.MethodGet, "/api/wallet", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestWalletRoutes(t *testing.T) {
	f := newAPI(t)
	cust := token(t, "cust-1", models.TokenRoleCustomer)

	status, body := f.do(t, http.MethodGet, "/api/wallet", cust, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "WALLET_NOT_FOUND", body.Error.Code)

	status, body = f.do(t, http.MethodPost, "/api/wallet", cust, nil)
	require.Equal(t, http.StatusCreated, status)
	var w models.Wallet
	require.NoError(t, json.Unmarshal(body.Data, &w))
	assert.Equal(t, models.RoleCustomer, w.Role)
	assert.True(t, w.AvailableBalance.IsZero())

	status, body = f.do(t, http.MethodPost, "/api/wallet", cust, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_exists", body.Error.Kind)

	status, body = f.do(t, http.MethodGet, "/api/wallet/transactions?category=bogus", cust, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "category")

	// Service accounts hold no wallet.
	svc := token(t, "orders", models.TokenRoleService)
	status, _ = f.do(t, http.MethodGet, "/api/wallet", svc, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestLedgerRoutes(t *testing.T) {
	f := newAPI(t)
	f.fund(t, "cust-1", models.RoleCustomer, 100)
	f.fund(t, "prov-1", models.RoleProvider, 0)
	svc := token(t, "orders", models.TokenRoleService)

	status, _ := f.do(t, http.MethodPost, "/api/ledger/orders/payment", token(t, "cust-1", models.TokenRoleCustomer),
		map[string]interface{}{"customer_id": "cust-1", "order_id": "o1", "amount": "10"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := f.do(t, http.MethodPost, "/api/ledger/orders/payment", svc,
		map[string]interface{}{"customer_id": "cust-1", "order_id": "o1", "amount": "40.50"})
	require.Equal(t, http.StatusCreated, status)
	var transfer wallet.TransferResult
	require.NoError(t, json.Unmarshal(body.Data, &transfer))
	assert.True(t, decimal.RequireFromString("59.50").Equal(transfer.FromWallet.AvailableBalance))
	assert.Equal(t, transfer.TransferID, transfer.Credit.TransferID)

	status, body = f.do(t, http.MethodPost, "/api/ledger/orders/payment", svc,
		map[string]interface{}{"customer_id": "cust-1", "order_id": "o2", "amount": 500})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "INSUFFICIENT_BALANCE", body.Error.Code)

	status, body = f.do(t, http.MethodPost, "/api/ledger/orders/payment", svc,
		map[string]interface{}{"customer_id": "cust-1", "order_id": "o3", "amount": "1.005"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "amount")

	settle := map[string]interface{}{"delivery_order_id": "d1", "provider_id": "prov-1", "order_id": "o1", "meal_amount": 150}
	status, _ = f.do(t, http.MethodPost, "/api/ledger/deliveries/settlement", svc, settle)
	require.Equal(t, http.StatusCreated, status)
	status, body = f.do(t, http.MethodPost, "/api/ledger/deliveries/settlement", svc, settle)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_SETTLED", body.Error.Code)

	status, body = f.do(t, http.MethodGet, "/api/ledger/settlements/d1", svc, nil)
	require.Equal(t, http.StatusOK, status)
	var settlement models.DeliverySettlement
	require.NoError(t, json.Unmarshal(body.Data, &settlement))
	assert.Equal(t, "prov-1", settlement.ProviderID)

	status, _ = f.do(t, http.MethodGet, "/api/ledger/settlements/missing", svc, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = f.do(t, http.MethodPost, "/api/ledger/orders/refund", svc,
		map[string]interface{}{"customer_id": "cust-1", "refund_amount": 5})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "order_id")

	status, _ = f.do(t, http.MethodPost, "/api/ledger/orders/refund", svc,
		map[string]interface{}{"customer_id": "cust-1", "order_id": "o1", "refund_amount": 40.5, "reason": "cancelled"})
	assert.Equal(t, http.StatusCreated, status)
}

func TestWithdrawalRoutes(t *testing.T) {
	f := newAPI(t)
	f.fund(t, "prov-1", models.RoleProvider, 500)
	prov := token(t, "prov-1", models.TokenRoleProvider)
	admin := token(t, "admin-1", models.TokenRoleAdmin)
	bank := models.BankDetails{AccountHolderName: "Prov", AccountNumber: "1", RoutingCode: "R", BankName: "B"}

	status, body := f.do(t, http.MethodPost, "/api/withdrawals", prov, map[string]interface{}{"amount": 200})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "bank_details.account_number")

	status, body = f.do(t, http.MethodPost, "/api/withdrawals", prov, map[string]interface{}{"amount": 50, "bank_details": bank})
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "below_minimum", body.Error.Kind)

	status, body = f.do(t, http.MethodPost, "/api/withdrawals", prov, map[string]interface{}{"amount": 200, "bank_details": bank})
	require.Equal(t, http.StatusCreated, status)
	var created withdrawal.RequestResult
	require.NoError(t, json.Unmarshal(body.Data, &created))
	assert.Equal(t, models.WithdrawalPending, created.Request.Status)

	status, body = f.do(t, http.MethodGet, "/api/withdrawals?status=pending", prov, nil)
	require.Equal(t, http.StatusOK, status)
	var page utils.PaginatedResponse
	require.NoError(t, json.Unmarshal(body.Data, &page))
	assert.EqualValues(t, 1, page.Pagination.Total)

	// Providers cannot review.
	status, _ = f.do(t, http.MethodPost, "/api/admin/withdrawals/"+created.Request.ID+"/approve", prov, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = f.do(t, http.MethodPost, "/api/admin/withdrawals/"+created.Request.ID+"/reject", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "reason")

	status, body = f.do(t, http.MethodPost, "/api/admin/withdrawals/"+created.Request.ID+"/approve", admin, map[string]string{"notes": "paid"})
	require.Equal(t, http.StatusOK, status)
	var approved withdrawal.RequestResult
	require.NoError(t, json.Unmarshal(body.Data, &approved))
	assert.Equal(t, models.WithdrawalApproved, approved.Request.Status)
	assert.True(t, decimal.NewFromInt(300).Equal(approved.Wallet.AvailableBalance))

	status, body = f.do(t, http.MethodPost, "/api/withdrawals/"+created.Request.ID+"/cancel", prov, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_state", body.Error.Kind)

	status, _ = f.do(t, http.MethodGet, "/api/admin/withdrawals?status=approved&from=2000-01-01", admin, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/api/admin/withdrawals?from=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestWithdrawalRateLimit(t *testing.T) {
	f := newAPI(t)
	f.fund(t, "cust-1", models.RoleCustomer, 0)
	cust := token(t, "cust-1", models.TokenRoleCustomer)
	bank := models.BankDetails{AccountHolderName: "C", AccountNumber: "1", RoutingCode: "R", BankName: "B"}

	for i := 0; i < 3; i++ {
		status, _ := f.do(t, http.MethodPost, "/api/withdrawals", cust, map[string]interface{}{"amount": 60, "bank_details": bank})
		assert.Equal(t, http.StatusUnprocessableEntity, status)
	}
	status, body := f.do(t, http.MethodPost, "/api/withdrawals", cust, map[string]interface{}{"amount": 60, "bank_details": bank})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
}

func TestAdminRoutes(t *testing.T) {
	f := newAPI(t)
	admin := token(t, "admin-1", models.TokenRoleAdmin)
	cust := token(t, "cust-1", models.TokenRoleCustomer)

	status, _ := f.do(t, http.MethodPost, "/api/admin/wallets", cust, map[string]string{"user_id": "x", "role": "customer"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body := f.do(t, http.MethodPost, "/api/admin/wallets", admin, map[string]string{"user_id": "cust-1", "role": "courier"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "role")

	status, _ = f.do(t, http.MethodPost, "/api/admin/wallets", admin, map[string]string{"user_id": "cust-1", "role": "customer"})
	require.Equal(t, http.StatusCreated, status)

	status, body = f.do(t, http.MethodPost, "/api/admin/wallets/cust-1/credit", admin,
		map[string]interface{}{"amount": "25.00", "category": "promotional_credit"})
	require.Equal(t, http.StatusCreated, status)
	var credit wallet.CreditResult
	require.NoError(t, json.Unmarshal(body.Data, &credit))
	assert.Equal(t, models.CategoryPromotionalCredit, credit.Transaction.Category)

	status, _ = f.do(t, http.MethodPost, "/api/admin/wallets/cust-1/freeze", admin, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, status)
	status, body = f.do(t, http.MethodPost, "/api/admin/wallets/cust-1/freeze", admin, map[string]string{"reason": "chargeback"})
	require.Equal(t, http.StatusOK, status)
	var frozen models.Wallet
	require.NoError(t, json.Unmarshal(body.Data, &frozen))
	assert.Equal(t, models.WalletFrozen, frozen.Status)

	status, _ = f.do(t, http.MethodPost, "/api/admin/wallets/cust-1/close", admin, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, _ = f.do(t, http.MethodPost, "/api/admin/wallets/cust-1/unfreeze", admin, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = f.do(t, http.MethodGet, "/api/admin/wallets/cust-1/transactions?limit=500", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var page utils.PaginatedResponse
	require.NoError(t, json.Unmarshal(body.Data, &page))
	assert.Equal(t, wallet.MaxPageSize, page.Pagination.Limit)
	assert.EqualValues(t, 1, page.Pagination.Total)

	status, _ = f.do(t, http.MethodGet, "/api/admin/reconciliation/last", admin, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, body = f.do(t, http.MethodPost, "/api/admin/reconciliation/run", admin, nil)
	require.Equal(t, http.StatusOK, status)
	var audit reconciliation.Report
	require.NoError(t, json.Unmarshal(body.Data, &audit))
	assert.Empty(t, audit.Mismatches)
	assert.Equal(t, 2, audit.WalletsChecked)
	status, _ = f.do(t, http.MethodGet, "/api/admin/reconciliation/last", admin, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestSettlementReportRoute(t *testing.T) {
	f := newAPI(t)
	f.fund(t, "prov-1", models.RoleProvider, 0)
	_, err := f.ledger.ProcessDeliverySettlement(context.Background(), wallet.SettlementRequest{
		DeliveryOrderID: "d1",
		ProviderID:      "prov-1",
		MealAmount:      decimal.NewFromInt(150),
	})
	require.NoError(t, err)
	admin := token(t, "admin-1", models.TokenRoleAdmin)

	status, body := f.do(t, http.MethodGet, "/api/admin/reports/settlements?from=2024-02-10&to=2024-02-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body.Error.Fields, "to")

	today := time.Now().UTC().Format("2006-01-02")
	resp := f.raw(t, http.MethodGet, "/api/admin/reports/settlements?from="+today+"&to="+today, admin, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentDisposition), "attachment"))

	wb, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(report.SettlementsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "d1", rows[1][0])
}
