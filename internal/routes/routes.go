// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"time"

	"mealpay/internal/handlers"
	"mealpay/internal/middleware"
	"mealpay/internal/models"
	"mealpay/internal/services/reconciliation"
	"mealpay/internal/services/report"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"
	"mealpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const Version = "1.0.0"

// Dependencies are the wired services the routes dispatch to.
type Dependencies struct {
	Wallet      wallet.Service
	Withdrawals withdrawal.Service
	Auditor     *reconciliation.Auditor
	Exporter    *report.Exporter
	// Health maps a dependency name to its probe.
	Health   map[string]handlers.Pinger
	Gatherer prometheus.Gatherer

	JWTSecret string
	// WithdrawalLimit caps withdrawal requests per user per minute. Zero
	// disables the limiter.
	WithdrawalLimit int
	Logger          *zap.Logger
}

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	healthHandler := handlers.NewHealthHandler(Version, deps.Health)
	walletHandler := handlers.NewWalletHandler(deps.Wallet)
	ledgerHandler := handlers.NewLedgerHandler(deps.Wallet)
	withdrawalHandler := handlers.NewWithdrawalHandler(deps.Withdrawals)
	adminHandler := handlers.NewAdminHandler(deps.Wallet, deps.Auditor, deps.Exporter, logger)

	// Public endpoints (no auth required)
	app.Get("/health", healthHandler.HealthCheck)
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMiddleware := middleware.NewAuthMiddleware(deps.JWTSecret, logger)
	api := app.Group("/api", authMiddleware.Handler)

	setupWalletRoutes(api, walletHandler)
	setupWithdrawalRoutes(api, withdrawalHandler, deps.WithdrawalLimit)
	setupLedgerRoutes(api, ledgerHandler)
	setupAdminRoutes(api, adminHandler, withdrawalHandler)
}

func setupWalletRoutes(router fiber.Router, h *handlers.WalletHandler) {
	w := router.Group("/wallet", middleware.WalletOwner)
	w.Post("/", middleware.HasPermission(models.PermissionWalletWrite), h.CreateWallet)
	w.Get("/", middleware.HasPermission(models.PermissionWalletRead), h.GetWallet)
	w.Get("/transactions", middleware.HasPermission(models.PermissionWalletRead), h.GetTransactions)
}

func setupWithdrawalRoutes(router fiber.Router, h *handlers.WithdrawalHandler, perMinute int) {
	w := router.Group("/withdrawals", middleware.WalletOwner)

	create := []fiber.Handler{middleware.HasPermission(models.PermissionWithdrawalWrite)}
	if perMinute > 0 {
		create = append(create, limiter.New(limiter.Config{
			Max:        perMinute,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				if userID, ok := c.Locals("userID").(string); ok {
					return userID
				}
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"success": false,
					"error": utils.ErrorBody{
						Code:    "RATE_LIMITED",
						Kind:    "rate_limited",
						Message: "Too many requests. Please try again later.",
					},
				})
			},
		}))
	}
	create = append(create, h.CreateRequest)

	w.Post("/", create...)
	w.Get("/", middleware.HasPermission(models.PermissionWalletRead), h.GetUserRequests)
	w.Post("/:id/cancel", middleware.HasPermission(models.PermissionWithdrawalWrite), h.Cancel)
}

func setupLedgerRoutes(router fiber.Router, h *handlers.LedgerHandler) {
	ledger := router.Group("/ledger", middleware.HasPermission(models.PermissionLedgerTransfer))
	ledger.Post("/orders/payment", h.ProcessOrderPayment)
	ledger.Post("/orders/refund", h.ProcessCancellationRefund)
	ledger.Post("/deliveries/settlement", h.ProcessDeliverySettlement)
	ledger.Get("/settlements/:deliveryOrderId", h.GetSettlement)
}

func setupAdminRoutes(router fiber.Router, h *handlers.AdminHandler, withdrawals *handlers.WithdrawalHandler) {
	admin := router.Group("/admin", middleware.AdminAuthMiddleware)

	read := middleware.HasPermission(models.PermissionReadAdmin)
	write := middleware.HasPermission(models.PermissionWriteAdmin)

	admin.Post("/wallets", write, h.CreateWallet)
	admin.Get("/wallets/:userId", read, h.GetWallet)
	admin.Get("/wallets/:userId/transactions", read, h.GetTransactions)
	admin.Post("/wallets/:userId/credit", write, h.Credit)
	admin.Post("/wallets/:userId/freeze", write, h.Freeze)
	admin.Post("/wallets/:userId/unfreeze", write, h.Unfreeze)
	admin.Post("/wallets/:userId/close", write, h.Close)

	admin.Get("/withdrawals", read, withdrawals.GetAllRequests)
	admin.Post("/withdrawals/:id/approve", write, withdrawals.Approve)
	admin.Post("/withdrawals/:id/reject", write, withdrawals.Reject)

	admin.Get("/reports/settlements", read, h.SettlementReport)
	admin.Post("/reconciliation/run", write, h.RunReconciliation)
	admin.Get("/reconciliation/last", read, h.LastReconciliation)
}
