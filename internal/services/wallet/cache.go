package wallet

import (
	"context"

	"mealpay/internal/models"
)

// NoopCache never stores anything.
type NoopCache struct{}

func (NoopCache) GetWallet(context.Context, string) (*models.Wallet, bool, error) {
	return nil, false, nil
}

func (NoopCache) CacheWallet(context.Context, *models.Wallet) error {
	return nil
}

func (NoopCache) InvalidateWallet(context.Context, ...string) error {
	return nil
}
