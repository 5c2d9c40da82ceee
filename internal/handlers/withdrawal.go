package handlers

import (
	"mealpay/internal/models"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"
	"mealpay/internal/utils"
	"mealpay/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type WithdrawalHandler struct {
	withdrawalService withdrawal.Service
}

func NewWithdrawalHandler(withdrawalService withdrawal.Service) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawalService: withdrawalService}
}

type createWithdrawalInput struct {
	Amount      decimal.Decimal    `json:"amount"`
	BankDetails models.BankDetails `json:"bank_details"`
	Reason      string             `json:"reason"`
}

type reviewInput struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
}

// CreateRequest files a withdrawal for the caller's own wallet.
func (h *WithdrawalHandler) CreateRequest(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var body createWithdrawalInput
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}

	in := withdrawal.CreateRequestInput{
		UserID:      claims.UserID,
		Role:        claims.WalletRole(),
		Amount:      body.Amount,
		BankDetails: body.BankDetails,
		Reason:      body.Reason,
	}
	v := validation.New()
	v.Withdrawal(&in)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.withdrawalService.CreateRequest(c.UserContext(), in)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, result)
}

func (h *WithdrawalHandler) GetUserRequests(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	q, fields := parseRequestQuery(c)
	if fields != nil {
		return utils.ValidationFailed(c, fields)
	}
	page, err := h.withdrawalService.GetUserRequests(c.UserContext(), claims.UserID, q)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Page, page.Limit, page.Total))
}

func (h *WithdrawalHandler) Cancel(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	result, err := h.withdrawalService.Cancel(c.UserContext(), c.Params("id"), claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, result)
}

// GetAllRequests is the admin review queue.
func (h *WithdrawalHandler) GetAllRequests(c *fiber.Ctx) error {
	q, fields := parseRequestQuery(c)
	if fields != nil {
		return utils.ValidationFailed(c, fields)
	}
	page, err := h.withdrawalService.GetAllRequests(c.UserContext(), q)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Page, page.Limit, page.Total))
}

func (h *WithdrawalHandler) Approve(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var body reviewInput
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return utils.BadRequest(c, "Invalid request format")
		}
	}

	result, err := h.withdrawalService.Approve(c.UserContext(), c.Params("id"), claims.UserID, body.Notes)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, result)
}

func (h *WithdrawalHandler) Reject(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var body reviewInput
	if err := c.BodyParser(&body); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	v := validation.New()
	v.Required("reason", body.Reason)
	v.MaxLength("reason", body.Reason, validation.MaxReasonLength)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	result, err := h.withdrawalService.Reject(c.UserContext(), c.Params("id"), claims.UserID, body.Reason)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, result)
}

func parseRequestQuery(c *fiber.Ctx) (withdrawal.RequestQuery, map[string]string) {
	status := c.Query("status")
	role := c.Query("role")

	v := validation.New()
	v.OneOf("status", status,
		string(models.WithdrawalPending),
		string(models.WithdrawalApproved),
		string(models.WithdrawalRejected),
		string(models.WithdrawalCancelled),
	)
	v.OneOf("role", role, string(models.RoleCustomer), string(models.RoleProvider))
	from := v.Date("from", c.Query("from"))
	to := v.Date("to", c.Query("to"))
	if !v.Valid() {
		return withdrawal.RequestQuery{}, v.Errors
	}

	p := utils.GetPagination(c, 1, wallet.DefaultPageSize)
	q := withdrawal.RequestQuery{
		Status: models.WithdrawalStatus(status),
		Role:   models.WalletRole(role),
		Page:   p.Page,
		Limit:  p.Limit,
	}
	if !from.IsZero() {
		q.From = &from
	}
	if !to.IsZero() {
		// to is inclusive for callers
		end := to.AddDate(0, 0, 1)
		q.To = &end
	}
	return q, nil
}
