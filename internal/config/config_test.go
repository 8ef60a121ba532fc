package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, CatalogStatic, cfg.Catalog.Source)
	assert.Equal(t, 2*time.Second, cfg.Session.ProcessingDelay)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second}, cfg.Session.StatusOffsets)
	assert.Equal(t, "5.99", cfg.Session.DeliveryFee)
	assert.Equal(t, 18, cfg.Session.MinimumAge)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clicknsip.yaml")
	data := `
http_addr: ":9090"
catalog:
  source: mysql
  mysql_dsn: "u:p@tcp(db:3306)/shop"
  seed: true
redis:
  addr: "cache:6379"
session:
  processing_delay: 500ms
  status_offsets: [1s, 2s, 3s]
  delivery_fee: "3.50"
  admin_emails: [boss@example.com]
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg := Default()
	require.NoError(t, cfg.LoadFromFile(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, CatalogMySQL, cfg.Catalog.Source)
	assert.True(t, cfg.Catalog.Seed)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, "clicknsip:orders", cfg.Redis.OrderChannel)
	assert.Equal(t, 500*time.Millisecond, cfg.Session.ProcessingDelay)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, cfg.Session.StatusOffsets)
	assert.Equal(t, []string{"boss@example.com"}, cfg.Session.AdminEmails)
}

func TestLoadFromFile_Missing(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CLICKNSIP_HTTP_ADDR", ":7070")
	t.Setenv("CLICKNSIP_CATALOG_SOURCE", "MySQL")
	t.Setenv("CLICKNSIP_REDIS_ADDR", "localhost:6379")
	t.Setenv("CLICKNSIP_PROCESSING_DELAY", "0s")
	t.Setenv("CLICKNSIP_STATUS_OFFSETS", "100ms, 200ms, 300ms")
	t.Setenv("CLICKNSIP_ADMIN_EMAILS", "a@x.com, ,b@x.com")
	t.Setenv("CLICKNSIP_MINIMUM_AGE", "21")
	t.Setenv("CLICKNSIP_REQUEST_LOG", "off")

	cfg := Default()
	require.NoError(t, cfg.LoadFromEnv())
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":7070", cfg.HTTPAddr)
	assert.Equal(t, CatalogMySQL, cfg.Catalog.Source)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Zero(t, cfg.Session.ProcessingDelay)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 300 * time.Millisecond}, cfg.Session.StatusOffsets)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, cfg.Session.AdminEmails)
	assert.Equal(t, 21, cfg.Session.MinimumAge)
	assert.False(t, cfg.RequestLog)
}

func TestLoadFromEnv_BadValues(t *testing.T) {
	t.Setenv("CLICKNSIP_PROCESSING_DELAY", "soon")
	assert.Error(t, Default().LoadFromEnv())

	t.Setenv("CLICKNSIP_PROCESSING_DELAY", "")
	t.Setenv("CLICKNSIP_MINIMUM_AGE", "eighteen")
	assert.Error(t, Default().LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Catalog.Source = "csv" }},
		{"mysql without dsn", func(c *Config) { c.Catalog.Source = CatalogMySQL; c.Catalog.MySQLDSN = "" }},
		{"no http addr", func(c *Config) { c.HTTPAddr = "" }},
		{"two offsets", func(c *Config) { c.Session.StatusOffsets = []time.Duration{time.Second, 2 * time.Second} }},
		{"decreasing offsets", func(c *Config) {
			c.Session.StatusOffsets = []time.Duration{time.Second, 3 * time.Second, 2 * time.Second}
		}},
		{"bad fee", func(c *Config) { c.Session.DeliveryFee = "free" }},
		{"negative fee", func(c *Config) { c.Session.DeliveryFee = "-1" }},
		{"negative delay", func(c *Config) { c.Session.ProcessingDelay = -time.Second }},
		{"zero age", func(c *Config) { c.Session.MinimumAge = 0 }},
		{"zero inbox", func(c *Config) { c.Session.InboxSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestSessionOptions(t *testing.T) {
	cfg := Default()
	cfg.Session.DeliveryFee = "7.25"
	cfg.Session.AdminEmails = []string{"admin@example.com"}

	opts, err := cfg.SessionOptions()
	require.NoError(t, err)
	require.True(t, opts.DeliveryFee.Valid)
	assert.True(t, opts.DeliveryFee.Decimal.Equal(decimal.RequireFromString("7.25")))
	assert.Equal(t, 2*time.Second, opts.ProcessingDelay)
	assert.Equal(t, []string{"admin@example.com"}, opts.AdminEmails)
	assert.Len(t, opts.StatusOffsets, 3)
}

func TestSessionOptions_ZeroFeeStaysZero(t *testing.T) {
	cfg := Default()
	cfg.Session.DeliveryFee = "0"
	require.NoError(t, cfg.Validate())

	opts, err := cfg.SessionOptions()
	require.NoError(t, err)
	require.True(t, opts.DeliveryFee.Valid)
	assert.True(t, opts.DeliveryFee.Decimal.IsZero())
}

func TestLoad(t *testing.T) {
	t.Setenv("CLICKNSIP_CATALOG_SOURCE", "bogus")
	_, err := Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
