package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string        `envconfig:"HTTP_PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	MaxRequestBodySize int64         `envconfig:"MAX_REQUEST_BODY_SIZE" default:"1048576"`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	JWTSecret          string        `envconfig:"JWT_SECRET" required:"true"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Mongo    MongoConfig
	Kafka    KafkaConfig
	Tax      ProviderConfig `envconfig:"TAX"`
	Payment  ProviderConfig `envconfig:"PAYMENT"`
	Shipping ProviderConfig `envconfig:"SHIPPING"`

	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"marketplace-checkout"`

	Currency              string  `envconfig:"CURRENCY" default:"usd"`
	CommissionFloor       float64 `envconfig:"COMMISSION_FLOOR" default:"0.03"`
	DefaultCommissionRate float64 `envconfig:"DEFAULT_COMMISSION_RATE" default:"15"`
	ShippingConcurrency   int     `envconfig:"SHIPPING_CONCURRENCY" default:"8"`
}

type PostgresConfig struct {
	Host           string `envconfig:"DB_HOST" default:"localhost"`
	Port           int    `envconfig:"DB_PORT" default:"5432"`
	User           string `envconfig:"DB_USER" default:"postgres"`
	Password       string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName         string `envconfig:"DB_NAME" default:"checkout"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"./internal/repository/migrations"`
}

type RedisConfig struct {
	Addr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"PRODUCT_CACHE_TTL" default:"5m"`
}

type MongoConfig struct {
	URI      string `envconfig:"MONGO_URI" default:"mongodb://localhost:27017"`
	Database string `envconfig:"MONGO_DATABASE" default:"cart_db"`
}

type KafkaConfig struct {
	Brokers []string      `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	Topic   string        `envconfig:"KAFKA_ORDERS_TOPIC" default:"checkout-orders"`
	Tick    time.Duration `envconfig:"OUTBOX_TICK" default:"1s"`
}

// ProviderConfig describes one external HTTP provider.
// Fields are read with the provider prefix, e.g. TAX_BASE_URL.
type ProviderConfig struct {
	BaseURL string        `envconfig:"BASE_URL"`
	APIKey  string        `envconfig:"API_KEY"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.CommissionFloor < 0 || c.CommissionFloor >= 1 {
		return fmt.Errorf("commission floor must be in [0,1), got %v", c.CommissionFloor)
	}
	if c.DefaultCommissionRate < 0 || c.DefaultCommissionRate > 100 {
		return fmt.Errorf("default commission rate must be a percentage, got %v", c.DefaultCommissionRate)
	}
	if c.ShippingConcurrency < 1 {
		return errors.New("shipping concurrency must be positive")
	}
	return nil
}

func (c *Config) Floor() decimal.Decimal {
	return decimal.NewFromFloat(c.CommissionFloor)
}

func (c *Config) DefaultRate() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultCommissionRate)
}
