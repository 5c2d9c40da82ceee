package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTypedGetters(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty")
	t.Setenv("TEST_DURATION", "45s")
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_DECIMAL", "99.50")
	t.Setenv("TEST_LIST", "a:9092, b:9092 ,,")

	assert.Equal(t, 42, GetIntEnv("TEST_INT", 1))
	assert.Equal(t, 1, GetIntEnv("TEST_BAD_INT", 1))
	assert.Equal(t, 45*time.Second, GetDurationEnv("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, GetDurationEnv("TEST_MISSING", time.Second))
	assert.True(t, GetBoolEnv("TEST_BOOL", false))
	assert.True(t, GetDecimalEnv("TEST_DECIMAL", decimal.Zero).Equal(decimal.RequireFromString("99.5")))
	assert.Equal(t, []string{"a:9092", "b:9092"}, GetListEnv("TEST_LIST", nil))
	assert.Equal(t, []string{"x"}, GetListEnv("TEST_MISSING", []string{"x"}))
	assert.Equal(t, "fallback", GetEnv("TEST_MISSING", "fallback"))
}

func TestIsProduction(t *testing.T) {
	t.Setenv("ENV", "production")
	assert.True(t, IsProduction())

	t.Setenv("ENV", "staging")
	assert.False(t, IsProduction())
}
