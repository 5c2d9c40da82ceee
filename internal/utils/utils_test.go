package utils

import (
	"errors"
	"testing"
	"time"

	derrors "mealpay/internal/errors"
	"mealpay/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{derrors.ErrWalletNotFound, fiber.StatusNotFound},
		{derrors.ErrWithdrawalNotFound, fiber.StatusNotFound},
		{derrors.ErrWalletExists, fiber.StatusConflict},
		{derrors.ErrAlreadySettled, fiber.StatusConflict},
		{derrors.ErrInvalidWithdrawalState, fiber.StatusConflict},
		{derrors.ErrInsufficientBalance, fiber.StatusUnprocessableEntity},
		{derrors.ErrBelowMinimum, fiber.StatusUnprocessableEntity},
		{derrors.ErrWalletNotActive, fiber.StatusUnprocessableEntity},
		{derrors.ErrInvalidAmount, fiber.StatusBadRequest},
		{derrors.ErrSelfReview, fiber.StatusForbidden},
		{derrors.Aborted("order_payment", errors.New("connection reset")), fiber.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(derrors.KindOf(tt.err)))
		})
	}
	assert.Equal(t, fiber.StatusInternalServerError, StatusFor(""))
}

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken(&models.UserClaims{UserID: "prov-9", Role: models.TokenRoleProvider}, "s3cret", time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(tok, "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "prov-9", claims.UserID)
	assert.Equal(t, models.WalletRole("provider"), claims.WalletRole())

	_, err = ParseToken(tok, "other")
	assert.Error(t, err)

	_, err = GenerateToken(&models.UserClaims{UserID: "x"}, "", time.Minute)
	assert.Error(t, err)
}

func TestParseTokenFallsBackToSubject(t *testing.T) {
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "cust-7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	tok, err := raw.SignedString([]byte("k"))
	require.NoError(t, err)

	claims, err := ParseToken(tok, "k")
	require.NoError(t, err)
	assert.Equal(t, "cust-7", claims.UserID)
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(5, 0))
	assert.Equal(t, 2, NewPaginatedResponse(nil, 1, 20, 21).Pagination.LastPage)
}
