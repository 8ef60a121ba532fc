package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/click-n-sip/internal/adapter/notifier"
	"github.com/rl1809/click-n-sip/internal/adapter/storage"
	"github.com/rl1809/click-n-sip/internal/core/service"
)

const envPrefix = "CLICKNSIP_"

const (
	CatalogStatic = "static"
	CatalogMySQL  = "mysql"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	HTTPAddr   string `yaml:"http_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
	RequestLog bool   `yaml:"request_log"`

	Catalog CatalogConfig `yaml:"catalog"`
	Redis   RedisConfig   `yaml:"redis"`
	Session SessionConfig `yaml:"session"`
}

type CatalogConfig struct {
	// Source is "static" or "mysql".
	Source   string `yaml:"source"`
	MySQLDSN string `yaml:"mysql_dsn"`
	// Seed writes the built-in catalog into MySQL before loading it.
	Seed bool `yaml:"seed"`
}

// RedisConfig enables the Redis publisher when Addr is set.
type RedisConfig struct {
	Addr                string `yaml:"addr"`
	NotificationChannel string `yaml:"notification_channel"`
	OrderChannel        string `yaml:"order_channel"`
}

type SessionConfig struct {
	ProcessingDelay time.Duration   `yaml:"processing_delay"`
	StatusOffsets   []time.Duration `yaml:"status_offsets"`
	DeliveryFee     string          `yaml:"delivery_fee"`
	EstimatedTime   string          `yaml:"estimated_time"`
	MinimumAge      int             `yaml:"minimum_age"`
	AdminEmails     []string        `yaml:"admin_emails"`
	InboxSize       int             `yaml:"inbox_size"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:   ":8080",
		GRPCAddr:   ":50051",
		RequestLog: true,
		Catalog: CatalogConfig{
			Source:   CatalogStatic,
			MySQLDSN: "root:root@tcp(localhost:3306)/clicknsip?parseTime=true&multiStatements=true",
		},
		Redis: RedisConfig{
			NotificationChannel: storage.DefaultNotificationChannel,
			OrderChannel:        storage.DefaultOrderChannel,
		},
		Session: SessionConfig{
			ProcessingDelay: service.DefaultProcessingDelay,
			StatusOffsets:   append([]time.Duration(nil), service.DefaultStatusOffsets...),
			DeliveryFee:     service.DefaultDeliveryFee.StringFixed(2),
			EstimatedTime:   service.DefaultEstimatedTime,
			MinimumAge:      service.MinimumAge,
			InboxSize:       notifier.DefaultInboxSize,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and CLICKNSIP_* environment variables, in that order.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) LoadFromEnv() error {
	if v := getenv("HTTP_ADDR"); v != "" {
		c.HTTPAddr = v
	}
	if v := getenv("GRPC_ADDR"); v != "" {
		c.GRPCAddr = v
	}
	if v := getenv("REQUEST_LOG"); v != "" {
		c.RequestLog = parseBool(v)
	}

	if v := getenv("CATALOG_SOURCE"); v != "" {
		c.Catalog.Source = strings.ToLower(v)
	}
	if v := getenv("MYSQL_DSN"); v != "" {
		c.Catalog.MySQLDSN = v
	}
	if v := getenv("SEED_CATALOG"); v != "" {
		c.Catalog.Seed = parseBool(v)
	}

	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("NOTIFICATION_CHANNEL"); v != "" {
		c.Redis.NotificationChannel = v
	}
	if v := getenv("ORDER_CHANNEL"); v != "" {
		c.Redis.OrderChannel = v
	}

	if v := getenv("PROCESSING_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sPROCESSING_DELAY: %w", envPrefix, err)
		}
		c.Session.ProcessingDelay = d
	}
	if v := getenv("STATUS_OFFSETS"); v != "" {
		offsets, err := parseDurations(v)
		if err != nil {
			return fmt.Errorf("%sSTATUS_OFFSETS: %w", envPrefix, err)
		}
		c.Session.StatusOffsets = offsets
	}
	if v := getenv("DELIVERY_FEE"); v != "" {
		c.Session.DeliveryFee = v
	}
	if v := getenv("ESTIMATED_TIME"); v != "" {
		c.Session.EstimatedTime = v
	}
	if v := getenv("MINIMUM_AGE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMINIMUM_AGE: %w", envPrefix, err)
		}
		c.Session.MinimumAge = n
	}
	if v := getenv("ADMIN_EMAILS"); v != "" {
		c.Session.AdminEmails = parseList(v)
	}
	if v := getenv("INBOX_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sINBOX_SIZE: %w", envPrefix, err)
		}
		c.Session.InboxSize = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" || c.GRPCAddr == "" {
		return fmt.Errorf("http and grpc addresses are required: %w", ErrInvalidConfig)
	}
	switch c.Catalog.Source {
	case CatalogStatic:
	case CatalogMySQL:
		if c.Catalog.MySQLDSN == "" {
			return fmt.Errorf("mysql catalog needs a dsn: %w", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("unknown catalog source %q: %w", c.Catalog.Source, ErrInvalidConfig)
	}

	s := c.Session
	if s.ProcessingDelay < 0 {
		return fmt.Errorf("negative processing delay: %w", ErrInvalidConfig)
	}
	if len(s.StatusOffsets) != 3 {
		return fmt.Errorf("need 3 status offsets, got %d: %w", len(s.StatusOffsets), ErrInvalidConfig)
	}
	for i, d := range s.StatusOffsets {
		if d <= 0 || (i > 0 && d <= s.StatusOffsets[i-1]) {
			return fmt.Errorf("status offsets must be positive and increasing: %w", ErrInvalidConfig)
		}
	}
	if _, err := c.deliveryFee(); err != nil {
		return err
	}
	if s.MinimumAge <= 0 {
		return fmt.Errorf("minimum age must be positive: %w", ErrInvalidConfig)
	}
	if s.InboxSize <= 0 {
		return fmt.Errorf("inbox size must be positive: %w", ErrInvalidConfig)
	}
	return nil
}

// SessionOptions converts the session block for the service layer.
func (c *Config) SessionOptions() (service.SessionOptions, error) {
	fee, err := c.deliveryFee()
	if err != nil {
		return service.SessionOptions{}, err
	}
	return service.SessionOptions{
		ProcessingDelay: c.Session.ProcessingDelay,
		DeliveryFee:     decimal.NewNullDecimal(fee),
		MinimumAge:      c.Session.MinimumAge,
		AdminEmails:     append([]string(nil), c.Session.AdminEmails...),
		StatusOffsets:   append([]time.Duration(nil), c.Session.StatusOffsets...),
		EstimatedTime:   c.Session.EstimatedTime,
	}, nil
}

func (c *Config) deliveryFee() (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(c.Session.DeliveryFee)
	if err != nil {
		return decimal.Zero, fmt.Errorf("delivery fee %q: %w", c.Session.DeliveryFee, ErrInvalidConfig)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative delivery fee: %w", ErrInvalidConfig)
	}
	return fee, nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func parseList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDurations(s string) ([]time.Duration, error) {
	parts := parseList(s)
	out := make([]time.Duration, 0, len(parts))
	for _, p := range parts {
		d, err := time.ParseDuration(p)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
