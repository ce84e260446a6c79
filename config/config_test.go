package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("WITHDRAWAL_CHARGE_RATE", "")
	t.Setenv("DAILY_SPIN_LIMIT", "")
	t.Setenv("SPIN_RANDOM_SEED", "")

	cfg, err := load()
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("0.001").Equal(cfg.WithdrawalChargeRate))
	assert.Equal(t, int64(10000), cfg.MinWithdrawalAmount)
	assert.Equal(t, 3, cfg.DailySpinLimit)
	assert.Nil(t, cfg.SpinRandomSeed)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("WITHDRAWAL_CHARGE_RATE", "0.025")
	t.Setenv("MIN_WITHDRAWAL_AMOUNT", "500")
	t.Setenv("DAILY_SPIN_LIMIT", "0")
	t.Setenv("SPIN_RANDOM_SEED", "42")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://ops.example.com")

	cfg, err := load()
	require.NoError(t, err)

	assert.Equal(t, "0.025", cfg.WithdrawalChargeRate.String())
	assert.Equal(t, int64(500), cfg.MinWithdrawalAmount)
	assert.Equal(t, 0, cfg.DailySpinLimit)
	require.NotNil(t, cfg.SpinRandomSeed)
	assert.Equal(t, uint64(42), *cfg.SpinRandomSeed)
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoad_InvalidChargeRate(t *testing.T) {
	t.Setenv("ENVIRONMENT", "test")

	t.Setenv("WITHDRAWAL_CHARGE_RATE", "abc")
	_, err := load()
	assert.Error(t, err)

	t.Setenv("WITHDRAWAL_CHARGE_RATE", "1.5")
	_, err = load()
	assert.Error(t, err)
}

func TestLoad_InvalidAmountsAndLimits(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unparsable minimum", "MIN_WITHDRAWAL_AMOUNT", "ten"},
		{"zero minimum", "MIN_WITHDRAWAL_AMOUNT", "0"},
		{"negative minimum", "MIN_WITHDRAWAL_AMOUNT", "-5"},
		{"unparsable spin limit", "DAILY_SPIN_LIMIT", "3x"},
		{"negative spin limit", "DAILY_SPIN_LIMIT", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", "test")
			t.Setenv("WITHDRAWAL_CHARGE_RATE", "")
			t.Setenv("MIN_WITHDRAWAL_AMOUNT", "")
			t.Setenv("DAILY_SPIN_LIMIT", "")
			t.Setenv(tt.key, tt.value)

			_, err := load()
			assert.ErrorContains(t, err, tt.key)
		})
	}
}

func TestLoad_RequiresDatabaseURLOutsideTests(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := load()
	assert.Error(t, err)
}

func TestSetTestConfig(t *testing.T) {
	cfg := NewTestConfig()
	cfg.DailySpinLimit = 7
	SetTestConfig(cfg)
	defer ResetConfig()

	assert.Same(t, cfg, Get())
}
