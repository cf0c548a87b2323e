package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	HTTP         ServerConfig
	MySQL        MySQLConfig
	Log          LogConfig
	Stripe       StripeConfig
	Carrier      CarrierConfig
	Provisioning ProvisioningConfig
	Auth         AuthConfig
	Jobs         JobsConfig
}

type AppConfig struct {
	ServiceName string
}

type ServerConfig struct {
	Host string
	Port string
}

type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type StripeConfig struct {
	SecretKey   string
	BaseURL     string
	HTTPTimeout time.Duration
}

type CarrierConfig struct {
	BaseURL          string
	AppKey           string
	AppSecret        string
	PurchaseDeadline time.Duration
	QueryTimeout     time.Duration
	ExecutionBudget  time.Duration
	SafetyMargin     time.Duration
}

type ProvisioningConfig struct {
	DefaultLocationCode string
	DefaultPackageCode  string
	PollInterval        time.Duration
	PollMaxAttempts     int
	PendingTimeout      time.Duration
	ReconcileStaleAfter time.Duration
	JobBatchSize        int32
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

type JobsConfig struct {
	ReconcileInterval     time.Duration
	ExpirePendingInterval time.Duration
}

// EffectivePurchaseDeadline bounds the carrier purchase call so the handler
// can still build and return a pending outcome before the hosting platform's
// own execution limit kills the invocation.
func (c CarrierConfig) EffectivePurchaseDeadline() time.Duration {
	headroom := c.ExecutionBudget - c.SafetyMargin
	if headroom <= 0 {
		return c.PurchaseDeadline
	}
	if c.PurchaseDeadline <= 0 || c.PurchaseDeadline > headroom {
		return headroom
	}
	return c.PurchaseDeadline
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		return nil, errors.New("MYSQL_DSN environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "esim-service"),
		},
		HTTP: ServerConfig{
			Host: getEnv("HTTP_HOST", "0.0.0.0"),
			Port: getEnv("HTTP_PORT", "8080"),
		},
		MySQL: MySQLConfig{
			DSN:             mysqlDSN,
			MaxOpenConns:    getIntEnv("MYSQL_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getIntEnv("MYSQL_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getMinutesEnv("MYSQL_CONN_MAX_LIFETIME_MINUTES", 30*time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Stripe: StripeConfig{
			SecretKey:   getEnv("STRIPE_SECRET_KEY", ""),
			BaseURL:     getEnv("STRIPE_BASE_URL", "https://api.stripe.com"),
			HTTPTimeout: getSecondsEnv("STRIPE_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Carrier: CarrierConfig{
			BaseURL:          getEnv("ESIM_ACCESS_BASE_URL", "https://api.esimaccess.com"),
			AppKey:           getEnv("ESIM_ACCESS_APP_KEY", ""),
			AppSecret:        getEnv("ESIM_ACCESS_APP_SECRET", ""),
			PurchaseDeadline: getMillisEnv("CARRIER_PURCHASE_DEADLINE_MS", 8*time.Second),
			QueryTimeout:     getMillisEnv("CARRIER_QUERY_TIMEOUT_MS", 5*time.Second),
			ExecutionBudget:  getMillisEnv("CARRIER_EXECUTION_BUDGET_MS", 10*time.Second),
			SafetyMargin:     getMillisEnv("CARRIER_SAFETY_MARGIN_MS", 1500*time.Millisecond),
		},
		Provisioning: ProvisioningConfig{
			DefaultLocationCode: getEnv("PROVISIONING_DEFAULT_LOCATION", "US"),
			DefaultPackageCode:  getEnv("PROVISIONING_DEFAULT_PACKAGE", "US_5GB_30D"),
			PollInterval:        getSecondsEnv("PROVISIONING_POLL_INTERVAL_SECONDS", 8*time.Second),
			PollMaxAttempts:     getIntEnv("PROVISIONING_POLL_MAX_ATTEMPTS", 20),
			PendingTimeout:      getMinutesEnv("PROVISIONING_PENDING_TIMEOUT_MINUTES", 60*time.Minute),
			ReconcileStaleAfter: getMinutesEnv("PROVISIONING_RECONCILE_STALE_AFTER_MINUTES", 2*time.Minute),
			JobBatchSize:        int32(getIntEnv("PROVISIONING_JOB_BATCH_SIZE", 100)),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			TokenTTL:  getMinutesEnv("AUTH_TOKEN_TTL_MINUTES", 24*60*time.Minute),
		},
		Jobs: JobsConfig{
			ReconcileInterval:     getMinutesEnv("JOBS_RECONCILE_INTERVAL_MINUTES", 2*time.Minute),
			ExpirePendingInterval: getMinutesEnv("JOBS_EXPIRE_PENDING_INTERVAL_MINUTES", 5*time.Minute),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getMinutesEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
