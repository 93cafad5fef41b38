package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Kmzf777/foodshorts/internal/domain/order"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (FOODSHORTS_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (FOODSHORTS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RabbitURL   string `usage:"RabbitMQ URL for order events; events are dropped when empty" flag:"rabbit-url"`
	Auth        AuthConfig
	Orders      OrdersConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Graceful    GracefulConfig
}

// AuthConfig holds operator token verification settings.
type AuthConfig struct {
	JWTSecret string `usage:"HS256 secret for dashboard operator tokens" flag:"jwt-secret"`
}

// OrdersConfig holds order policy settings.
type OrdersConfig struct {
	DeliveryFee       string        `default:"0" usage:"Fee added to delivery orders" flag:"delivery-fee"`
	TrustClientPrices bool          `default:"true" usage:"Total orders from submitted prices instead of the catalog" flag:"trust-client-prices"`
	IdempotencyWindow time.Duration `default:"24h" usage:"How long an idempotency key replays its order (0 disables expiry)" flag:"idempotency-window"`
}

// RateLimitConfig controls the per-client sliding window rate limiter on
// order submission.
type RateLimitConfig struct {
	Max    int           `default:"30" usage:"Max order submissions per window"`
	Window time.Duration `default:"1m" usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files, then applies platform defaults and validates the result.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "FOODSHORTS",
		Files:     []string{"config.yaml", "/etc/foodshorts/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set FOODSHORTS_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("operator token secret is required: set FOODSHORTS_AUTH_JWT_SECRET")
	}
	if _, err := c.OrderPolicy(); err != nil {
		return err
	}
	return nil
}

// OrderPolicy converts the orders section to the service configuration.
func (c *Config) OrderPolicy() (order.Config, error) {
	fee, err := decimal.NewFromString(c.Orders.DeliveryFee)
	if err != nil {
		return order.Config{}, errors.Wrapf(err, "parse delivery fee %q", c.Orders.DeliveryFee)
	}
	if fee.IsNegative() {
		return order.Config{}, errors.Errorf("delivery fee must not be negative, got %s", fee)
	}
	return order.Config{
		DeliveryFee:       fee,
		TrustClientPrices: c.Orders.TrustClientPrices,
		IdempotencyWindow: c.Orders.IdempotencyWindow,
	}, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's FOODSHORTS_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
