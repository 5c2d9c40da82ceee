package handlers

import (
	"fmt"

	derrors "mealpay/internal/errors"
	"mealpay/internal/models"
	"mealpay/internal/services/reconciliation"
	"mealpay/internal/services/report"
	"mealpay/internal/services/wallet"
	"mealpay/internal/utils"
	"mealpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var errNoAudit = derrors.New(derrors.KindNotFound, "AUDIT_NOT_FOUND", "no reconciliation has run yet")

// AdminHandler serves wallet administration, reports and audits.
type AdminHandler struct {
	walletService wallet.Service
	auditor       *reconciliation.Auditor
	exporter      *report.Exporter
	logger        *zap.Logger
}

func NewAdminHandler(walletService wallet.Service, auditor *reconciliation.Auditor, exporter *report.Exporter, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{
		walletService: walletService,
		auditor:       auditor,
		exporter:      exporter,
		logger:        logger,
	}
}

func (h *AdminHandler) CreateWallet(c *fiber.Ctx) error {
	var body struct {
		UserID string            `json:"user_id"`
		Role   models.WalletRole `json:"role"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	v := validation.New()
	v.Required("user_id", body.UserID)
	v.MaxLength("user_id", body.UserID, validation.MaxIDLength)
	v.Required("role", string(body.Role))
	v.OneOf("role", string(body.Role), string(models.RoleCustomer), string(models.RoleProvider), string(models.RoleAdmin))
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	w, err := h.walletService.CreateWallet(c.UserContext(), body.UserID, body.Role)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, w)
}

func (h *AdminHandler) GetWallet(c *fiber.Ctx) error {
	w, err := h.walletService.GetWallet(c.UserContext(), c.Params("userId"))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, w)
}

func (h *AdminHandler) GetTransactions(c *fiber.Ctx) error {
	return transactionHistory(c, h.walletService, c.Params("userId"))
}

// Credit adds money to a wallet from the platform float.
func (h *AdminHandler) Credit(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var req wallet.AddMoneyRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	req.UserID = c.Params("userId")
	req.AdminID = claims.UserID

	v := validation.New()
	v.Credit(&req)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.walletService.AddMoney(c.UserContext(), req)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, result)
}

func (h *AdminHandler) Freeze(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	v.Required("reason", body.Reason)
	v.MaxLength("reason", body.Reason, validation.MaxReasonLength)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	w, err := h.walletService.FreezeWallet(c.UserContext(), c.Params("userId"), body.Reason, claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, w)
}

func (h *AdminHandler) Unfreeze(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.UnfreezeWallet(c.UserContext(), c.Params("userId"), claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, w)
}

func (h *AdminHandler) Close(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.CloseWallet(c.UserContext(), c.Params("userId"), claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, w)
}

// SettlementReport streams an XLSX workbook for the inclusive date range.
func (h *AdminHandler) SettlementReport(c *fiber.Ctx) error {
	v := validation.New()
	v.Required("from", c.Query("from"))
	v.Required("to", c.Query("to"))
	from := v.Date("from", c.Query("from"))
	to := v.Date("to", c.Query("to"))
	if v.Valid() {
		v.Check(!to.Before(from), "to", "must not be before from")
	}
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	buf, err := h.exporter.Build(c.UserContext(), from, to.AddDate(0, 0, 1))
	if err != nil {
		h.logger.Error("settlement report failed", zap.Error(err))
		return utils.InternalError(c, "Failed to build report")
	}

	filename := fmt.Sprintf("settlements_%s_%s.xlsx", from.Format(validation.DateLayout), to.Format(validation.DateLayout))
	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Send(buf.Bytes())
}

// RunReconciliation runs the ledger audit now and returns its report.
func (h *AdminHandler) RunReconciliation(c *fiber.Ctx) error {
	result, err := h.auditor.Run(c.UserContext())
	if err != nil {
		h.logger.Error("manual reconciliation failed", zap.Error(err))
		return utils.InternalError(c, "Failed to run reconciliation")
	}
	return utils.Success(c, result)
}

// LastReconciliation returns the most recent audit, scheduled or manual.
func (h *AdminHandler) LastReconciliation(c *fiber.Ctx) error {
	last := h.auditor.Last()
	if last == nil {
		return utils.Error(c, errNoAudit)
	}
	return utils.Success(c, last)
}
