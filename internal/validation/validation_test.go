package validation

import (
	"testing"

	"mealpay/internal/models"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		value string
		ok    bool
	}{
		{"0.01", true},
		{"100", true},
		{"12.50", true},
		{"12.500", true},
		{"0", false},
		{"-5", false},
		{"1.005", false},
		{"1000000000000000000", false},
	}
	for _, tt := range tests {
		v := New()
		v.Amount("amount", decimal.RequireFromString(tt.value))
		assert.Equal(t, tt.ok, v.Valid(), tt.value)
	}
}

func TestOrderPayment(t *testing.T) {
	v := New()
	v.OrderPayment(&wallet.OrderPaymentRequest{Amount: decimal.NewFromInt(10)})
	assert.False(t, v.Valid())
	assert.Contains(t, v.Errors, "customer_id")
	assert.Contains(t, v.Errors, "order_id")
	assert.NotContains(t, v.Errors, "amount")
}

func TestSettlementType(t *testing.T) {
	req := &wallet.SettlementRequest{DeliveryOrderID: "d1", ProviderID: "p1", MealAmount: decimal.NewFromInt(1)}
	v := New()
	v.Settlement(req)
	assert.True(t, v.Valid())

	req.SettlementType = models.SettlementType("bonus")
	v = New()
	v.Settlement(req)
	assert.Contains(t, v.Errors, "settlement_type")
}

func TestRefundNeedsAnOrder(t *testing.T) {
	v := New()
	v.Refund(&wallet.RefundRequest{CustomerID: "c1", RefundAmount: decimal.NewFromInt(5)})
	assert.Contains(t, v.Errors, "order_id")

	v = New()
	v.Refund(&wallet.RefundRequest{CustomerID: "c1", DeliveryOrderID: "d1", RefundAmount: decimal.NewFromInt(5)})
	assert.True(t, v.Valid())
}

func TestWithdrawalBankDetails(t *testing.T) {
	v := New()
	v.Withdrawal(&withdrawal.CreateRequestInput{
		Amount:      decimal.NewFromInt(100),
		BankDetails: models.BankDetails{AccountHolderName: "A", BankName: "B"},
	})
	assert.Equal(t, map[string]string{
		"bank_details.account_number": "must not be empty",
		"bank_details.routing_code":   "must not be empty",
	}, v.Errors)
}

func TestDateAndFirstErrorWins(t *testing.T) {
	v := New()
	assert.True(t, v.Date("from", "").IsZero())
	assert.Equal(t, 2024, v.Date("from", "2024-03-01").Year())
	assert.True(t, v.Valid())

	v.Date("to", "03/01/2024")
	v.AddError("to", "second")
	assert.Equal(t, "must be a date in YYYY-MM-DD format", v.Errors["to"])
}
