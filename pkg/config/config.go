package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "MODACART"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Cart         CartConfig
	Discounts    DiscountsConfig
	Orders       OrdersConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MODACART_APP_ENV" required:"true"`
	Port         string `envconfig:"MODACART_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"MODACART_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MODACART_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"MODACART_DB_DSN"`

	Host     string `envconfig:"MODACART_DB_HOST"`
	Port     int    `envconfig:"MODACART_DB_PORT" default:"5432"`
	User     string `envconfig:"MODACART_DB_USER"`
	Password string `envconfig:"MODACART_DB_PASSWORD"`
	Name     string `envconfig:"MODACART_DB_NAME"`
	SSLMode  string `envconfig:"MODACART_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MODACART_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MODACART_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MODACART_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MODACART_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either MODACART_DB_DSN or MODACART_DB_HOST/USER/NAME must be set")
	}
	userInfo := url.User(d.User)
	if d.Password != "" {
		userInfo = url.UserPassword(d.User, d.Password)
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     userInfo,
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"MODACART_REDIS_URL"`
	Address      string        `envconfig:"MODACART_REDIS_ADDR"`
	Password     string        `envconfig:"MODACART_REDIS_PASSWORD"`
	DB           int           `envconfig:"MODACART_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MODACART_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MODACART_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MODACART_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MODACART_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MODACART_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CartConfig struct {
	// StateTTL bounds how long an idle cart session survives in the
	// persistence store before the keys expire.
	StateTTL      time.Duration `envconfig:"MODACART_CART_STATE_TTL" default:"720h"`
	SessionHeader string        `envconfig:"MODACART_CART_SESSION_HEADER" default:"X-Cart-Session"`
}

type DiscountsConfig struct {
	// ValidationLatency simulates the promo validation round-trip so the UI
	// exercises its pending state in dev environments.
	ValidationLatency time.Duration `envconfig:"MODACART_DISCOUNT_VALIDATION_LATENCY" default:"0"`
}

type OrdersConfig struct {
	SubmitURL string        `envconfig:"MODACART_ORDERS_SUBMIT_URL" required:"true"`
	Timeout   time.Duration `envconfig:"MODACART_ORDERS_TIMEOUT" default:"10s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MODACART_FEATURE_AUTO_MIGRATE" default:"true"`
}
