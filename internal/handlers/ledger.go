package handlers

import (
	"mealpay/internal/services/wallet"
	"mealpay/internal/utils"
	"mealpay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// LedgerHandler is called by the order, delivery and cancellation systems.
type LedgerHandler struct {
	walletService wallet.Service
}

func NewLedgerHandler(walletService wallet.Service) *LedgerHandler {
	return &LedgerHandler{walletService: walletService}
}

func (h *LedgerHandler) ProcessOrderPayment(c *fiber.Ctx) error {
	var req wallet.OrderPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.OrderPayment(&req)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.walletService.ProcessOrderPayment(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, result)
}

func (h *LedgerHandler) ProcessDeliverySettlement(c *fiber.Ctx) error {
	var req wallet.SettlementRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.Settlement(&req)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.walletService.ProcessDeliverySettlement(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, result)
}

func (h *LedgerHandler) ProcessCancellationRefund(c *fiber.Ctx) error {
	var req wallet.RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.Refund(&req)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.walletService.ProcessCancellationRefund(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, result)
}

func (h *LedgerHandler) GetSettlement(c *fiber.Ctx) error {
	settlement, err := h.walletService.GetSettlement(c.UserContext(), c.Params("deliveryOrderId"))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, settlement)
}
