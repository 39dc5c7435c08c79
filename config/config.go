package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting of the storefront service.
type Config struct {
	Port    string
	AppEnv  string
	Version string

	DBDriver    string
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	SQLitePath  string

	JWTSecret   string
	AdminAPIKey string

	APIBaseURL      string
	APITimeout      time.Duration
	APIRetries      int
	APIRetryBackoff time.Duration
	CartMirror      bool

	CheckoutSuccessURL   string
	PaymentWebhookSecret string
	PaymentMode          string

	ShippingConfigPath string
	ShopLocation       *time.Location

	PrometheusEnabled bool
	RateLimitRPS      float64
	RateLimitBurst    int

	SessionTTL  time.Duration
	CleanupHour int
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "production"),
		Version: getEnv("APP_VERSION", "1.0.0"),

		DBDriver:    getEnv("DB_DRIVER", "postgres"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", "postgres"),
		DBName:      getEnv("DB_NAME", "floreria"),
		SQLitePath:  getEnv("SQLITE_PATH", "floreria.db"),

		JWTSecret:   os.Getenv("JWT_SECRET"),
		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),

		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8000/api"),
		CartMirror: getEnvBool("CART_MIRROR_ENABLED", false),

		CheckoutSuccessURL:   getEnv("CHECKOUT_SUCCESS_URL", "/checkout/exito"),
		PaymentWebhookSecret: os.Getenv("PAYMENT_WEBHOOK_SECRET"),
		PaymentMode:          getEnv("PAYMENT_MODE", "production"),

		ShippingConfigPath: os.Getenv("SHIPPING_CONFIG"),

		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),
	}

	var err error
	if cfg.APITimeout, err = getEnvDuration("API_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.APIRetryBackoff, err = getEnvDuration("API_RETRY_BACKOFF", 500*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.APIRetries, err = getEnvInt("API_RETRY_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getEnvInt("RATE_LIMIT_BURST", 10); err != nil {
		return nil, err
	}
	if cfg.CleanupHour, err = getEnvInt("CLEANUP_HOUR", 3); err != nil {
		return nil, err
	}
	tz := getEnv("SHOP_TIMEZONE", "America/Argentina/Buenos_Aires")
	if cfg.ShopLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SHOP_TIMEZONE %q: %w", tz, err)
	}
	rps := getEnv("RATE_LIMIT_RPS", "5")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", rps, err)
	}

	if cfg.APIRetries < 1 {
		cfg.APIRetries = 1
	}
	if cfg.CleanupHour < 0 || cfg.CleanupHour > 23 {
		return nil, fmt.Errorf("CLEANUP_HOUR must be between 0 and 23, got %d", cfg.CleanupHour)
	}
	return cfg, nil
}

// IsDevelopment reports whether the service runs with developer logging.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

// PostgresDSN builds the DSN used when DATABASE_URL is not set.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort,
	)
}

// getEnv obtiene una variable de entorno o devuelve un valor por defecto
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}
