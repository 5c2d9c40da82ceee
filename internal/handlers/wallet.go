package handlers

import (
	"mealpay/internal/models"
	"mealpay/internal/services/wallet"
	"mealpay/internal/utils"
	"mealpay/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// WalletHandler serves the wallet holder's own wallet.
type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// CreateWallet opens a wallet for the caller. The role comes from the token.
func (h *WalletHandler) CreateWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.CreateWallet(c.UserContext(), claims.UserID, claims.WalletRole())
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, w)
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	w, err := h.walletService.GetWallet(c.UserContext(), claims.UserID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, w)
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	return transactionHistory(c, h.walletService, claims.UserID)
}

// transactionHistory is shared by the owner and admin routes.
func transactionHistory(c *fiber.Ctx, svc wallet.Service, userID string) error {
	category := c.Query("category")
	v := validation.New()
	v.OneOf("category", category,
		string(models.CategoryOrderPayment),
		string(models.CategoryDeliverySettlement),
		string(models.CategoryCancellationRefund),
		string(models.CategoryWithdrawalRequest),
		string(models.CategoryAdminAdjustment),
		string(models.CategoryPromotionalCredit),
	)
	if !v.Valid() {
		return utils.ValidationFailed(c, v.Errors)
	}

	p := utils.GetPagination(c, 1, wallet.DefaultPageSize)
	page, err := svc.GetTransactionHistory(c.UserContext(), wallet.HistoryQuery{
		UserID:   userID,
		Page:     p.Page,
		Limit:    p.Limit,
		Category: models.TransactionCategory(category),
	})
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(page.Items, page.Page, page.Limit, page.Total))
}
