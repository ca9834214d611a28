package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("MONETIZATION_PROVIDER", " Local ")
	t.Setenv("IDEMPOTENCY_BACKEND", "REDIS")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("DATABASE_TYPE", "sqlite")
	t.Setenv("TRACING_ENABLED", "yes")

	cfg := Load()

	assert.Equal(t, "local", cfg.Provider)
	assert.Equal(t, IdempotencyBackendRedis, cfg.Idempotency.Backend)
	assert.Equal(t, 3, cfg.Idempotency.RedisDB)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	t.Setenv("IDEMPOTENCY_BACKEND", "memcached")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("METRICS_ENABLED", "maybe")
	t.Setenv("ENVIRONMENT", "development")

	cfg := Load()

	assert.Equal(t, IdempotencyBackendMemory, cfg.Idempotency.Backend)
	assert.Equal(t, 0, cfg.Idempotency.RedisDB)
	assert.False(t, cfg.MetricsEnabled)
}

func TestValidateBillingConfig(t *testing.T) {
	require.NoError(t, validateBillingConfig(DefaultBillingConfig()))

	cfg := DefaultBillingConfig()
	cfg.CheckoutSessionTTL = 0
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.CreditPageSizeLimit = 5
	assert.Error(t, validateBillingConfig(cfg))

	cfg = DefaultBillingConfig()
	cfg.CurrencyExponents = map[string]int32{"XTS": 9}
	assert.Error(t, validateBillingConfig(cfg))
}

func TestNewBillingConfigHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`billing:
  currencyExponents:
    USDC: 6
  checkoutSessionTTL: 30m
  creditPageSize: 20
  creditPageSizeLimit: 50
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "billing.yml"), content, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	holder, err := NewBillingConfigHolder()
	require.NoError(t, err)

	cfg := holder.Get()
	assert.Equal(t, 30*time.Minute, cfg.CheckoutSessionTTL)
	assert.Equal(t, 20, cfg.CreditPageSize)
	assert.Equal(t, 50, cfg.CreditPageSizeLimit)
	assert.Equal(t, int32(6), cfg.CurrencyExponents["usdc"])
}

func TestBillingConfigHolderOnChange(t *testing.T) {
	holder := NewStaticBillingConfigHolder(DefaultBillingConfig())

	var seen []int
	holder.OnChange(func(cfg BillingConfig) { seen = append(seen, cfg.CreditPageSize) })

	updated := DefaultBillingConfig()
	updated.CreditPageSize = 25
	holder.store(updated)

	assert.Equal(t, []int{10, 25}, seen)
	assert.Equal(t, 25, holder.Get().CreditPageSize)
}
