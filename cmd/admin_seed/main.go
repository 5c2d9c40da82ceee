// Command admin_seed prepares a fresh ledger database: it opens the platform
// wallet, optionally funds it, and prints an admin token for local use.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"mealpay/internal/config"
	derrors "mealpay/internal/errors"
	"mealpay/internal/logger"
	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/services/wallet"
	"mealpay/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	config.LoadEnv()

	log, err := logger.New(false, "info")
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if err := seed(log); err != nil {
		log.Fatal("seed failed", zap.Error(err))
	}
}

func seed(log *zap.Logger) error {
	secret := os.Getenv("JWT_SECRET")
	adminID := os.Getenv("ADMIN_USER_ID")
	if secret == "" || adminID == "" {
		return errors.New("JWT_SECRET and ADMIN_USER_ID must be set in environment")
	}

	if err := repositories.InitDB(repositories.LoadDBConfig()); err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(); err != nil {
			log.Warn("failed to close database connection", zap.Error(err))
		}
	}()

	platformID := config.GetEnv("PLATFORM_USER_ID", wallet.DefaultPlatformUserID)
	ledger := wallet.NewService(
		repositories.NewLedgerRepository(repositories.DB),
		nil,
		nil,
		wallet.LedgerConfig{PlatformUserID: platformID},
		nil,
		log,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := ledger.CreateWallet(ctx, platformID, models.RoleAdmin)
	switch {
	case err == nil:
		log.Info("platform wallet created", zap.String("user_id", platformID))
	case errors.Is(err, derrors.ErrWalletExists):
		log.Info("platform wallet already exists", zap.String("user_id", platformID))
	default:
		return err
	}

	if amount := config.GetDecimalEnv("SEED_PLATFORM_FLOAT", decimal.Zero); amount.IsPositive() {
		result, err := ledger.AddMoney(ctx, wallet.AddMoneyRequest{
			UserID:  platformID,
			Amount:  amount,
			Reason:  "Initial platform float",
			AdminID: adminID,
		})
		if err != nil {
			return err
		}
		log.Info("platform wallet funded", zap.String("balance", result.Wallet.AvailableBalance.StringFixed(2)))
	}

	token, err := utils.GenerateToken(&models.UserClaims{
		UserID:      adminID,
		Role:        models.TokenRoleAdmin,
		Permissions: models.GetDefaultPermissions(models.TokenRoleAdmin),
	}, secret, config.GetDurationEnv("ADMIN_TOKEN_TTL", 24*time.Hour))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
