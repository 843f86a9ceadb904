package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Email providers understood by utils.NewMailer.
const (
	EmailProviderPostmark = "postmark"
	EmailProviderSendGrid = "sendgrid"
	EmailProviderLog      = "log"
)

type Config struct {
	Server   ServerConfig
	Mongo    MongoConfig
	JWT      JWTConfig
	Email    EmailConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
}

type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"4000"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	SecureCookies   bool          `env:"SECURE_COOKIES" envDefault:"false"`
}

type MongoConfig struct {
	URI      string        `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	Database string        `env:"MONGODB_DATABASE" envDefault:"storefront"`
	Timeout  time.Duration `env:"MONGODB_TIMEOUT" envDefault:"10s"`
}

type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET,required,notEmpty"`
	Expiration time.Duration `env:"JWT_EXPIRATION" envDefault:"24h"`
	// AllowAdminSignup lets POST /user/register create admin accounts.
	AllowAdminSignup bool `env:"ALLOW_ADMIN_SIGNUP" envDefault:"false"`
}

type EmailConfig struct {
	Provider          string `env:"EMAIL_PROVIDER" envDefault:"log"`
	PostmarkToken     string `env:"POSTMARK_API_TOKEN"`
	SendGridKey       string `env:"SENDGRID_API_KEY"`
	Sender            string `env:"EMAIL_SENDER" envDefault:"orders@storefront.local"`
	SenderName        string `env:"EMAIL_SENDER_NAME" envDefault:"Storefront"`
	OrderNotification string `env:"ORDER_NOTIFICATION_EMAIL" envDefault:"quotes@storefront.local"`
}

type RedisConfig struct {
	Addr            string        `env:"REDIS_ADDR"`
	Password        string        `env:"REDIS_PASSWORD"`
	DB              int           `env:"REDIS_DB" envDefault:"0"`
	ProductCacheTTL time.Duration `env:"PRODUCT_CACHE_TTL" envDefault:"60s"`
}

// Enabled reports whether a Redis address was configured.
func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type RabbitMQConfig struct {
	URL string `env:"RABBITMQ_URL"`
}

// Enabled reports whether order notifications go through RabbitMQ.
func (c RabbitMQConfig) Enabled() bool { return c.URL != "" }

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	switch c.Email.Provider {
	case EmailProviderPostmark:
		if c.Email.PostmarkToken == "" {
			return errors.New("config: POSTMARK_API_TOKEN is required for the postmark provider")
		}
	case EmailProviderSendGrid:
		if c.Email.SendGridKey == "" {
			return errors.New("config: SENDGRID_API_KEY is required for the sendgrid provider")
		}
	case EmailProviderLog:
	default:
		return fmt.Errorf("config: unknown EMAIL_PROVIDER %q", c.Email.Provider)
	}
	if c.JWT.Expiration <= 0 {
		return errors.New("config: JWT_EXPIRATION must be positive")
	}
	return nil
}
