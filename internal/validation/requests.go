package validation

import (
	"mealpay/internal/models"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"
)

// OrderPayment validates an order payment request
func (v *Validator) OrderPayment(req *wallet.OrderPaymentRequest) {
	v.id("customer_id", req.CustomerID)
	v.id("order_id", req.OrderID)
	v.Amount("amount", req.Amount)
	v.MaxLength("description", req.Description, MaxDescriptionLength)
}

// Settlement validates a delivery settlement request
func (v *Validator) Settlement(req *wallet.SettlementRequest) {
	v.id("delivery_order_id", req.DeliveryOrderID)
	v.id("provider_id", req.ProviderID)
	v.MaxLength("order_id", req.OrderID, MaxIDLength)
	v.MaxLength("customer_id", req.CustomerID, MaxIDLength)
	v.Amount("meal_amount", req.MealAmount)
	v.OneOf("settlement_type", string(req.SettlementType),
		string(models.SettlementAutomatic), string(models.SettlementManual))
}

// Refund validates a cancellation refund request
func (v *Validator) Refund(req *wallet.RefundRequest) {
	v.id("customer_id", req.CustomerID)
	v.MaxLength("order_id", req.OrderID, MaxIDLength)
	v.MaxLength("delivery_order_id", req.DeliveryOrderID, MaxIDLength)
	v.Check(req.OrderID != "" || req.DeliveryOrderID != "", "order_id", "order_id or delivery_order_id is required")
	v.Amount("refund_amount", req.RefundAmount)
	v.MaxLength("reason", req.Reason, MaxReasonLength)
}

// Credit validates an admin credit
func (v *Validator) Credit(req *wallet.AddMoneyRequest) {
	v.Amount("amount", req.Amount)
	v.MaxLength("reason", req.Reason, MaxReasonLength)
	v.OneOf("category", string(req.Category),
		string(models.CategoryAdminAdjustment), string(models.CategoryPromotionalCredit))
}

// Withdrawal validates a withdrawal request
func (v *Validator) Withdrawal(req *withdrawal.CreateRequestInput) {
	v.Amount("amount", req.Amount)
	for _, field := range req.BankDetails.Missing() {
		v.AddError("bank_details."+field, "must not be empty")
	}
	v.MaxLength("reason", req.Reason, MaxReasonLength)
}

func (v *Validator) id(field, value string) {
	v.Required(field, value)
	v.MaxLength(field, value, MaxIDLength)
}
