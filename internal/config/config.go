package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL     string `mapstructure:"DATABASE_URL"`
	JWTSecret       string `mapstructure:"JWT_SECRET"`
	HTTPAddr        string `mapstructure:"HTTP_ADDR"`
	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisChannel    string `mapstructure:"REDIS_CHANNEL"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
	Environment     string `mapstructure:"ENVIRONMENT"`
	HubQueueSize    int    `mapstructure:"HUB_QUEUE_SIZE"`
	ClientQueueSize int    `mapstructure:"CLIENT_QUEUE_SIZE"`
	CORSOrigins     string `mapstructure:"CORS_ORIGINS"`

	// EnvFile is the .env file that was read, empty when only the
	// environment was used.
	EnvFile string `mapstructure:"-"`
}

var keys = []string{
	"DATABASE_URL", "JWT_SECRET", "HTTP_ADDR", "REDIS_ADDR", "REDIS_CHANNEL",
	"LOG_LEVEL", "ENVIRONMENT", "HUB_QUEUE_SIZE", "CLIENT_QUEUE_SIZE", "CORS_ORIGINS",
}

// Load reads configuration from a .env file in dir (if present) and the
// environment. Environment variables win over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("REDIS_CHANNEL", "matchsocial.events")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HUB_QUEUE_SIZE", 1024)
	v.SetDefault("CLIENT_QUEUE_SIZE", 256)

	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about during Unmarshal.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "config.Load.ReadInConfig")
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "config.Load.Unmarshal")
	}
	c.EnvFile = v.ConfigFileUsed()
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "config.Load")
	}
	return &c, nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.HubQueueSize <= 0 || c.ClientQueueSize <= 0 {
		return errors.New("queue sizes must be positive")
	}
	return nil
}

// Production reports whether the server runs in production mode.
func (c *Config) Production() bool {
	return strings.EqualFold(c.Environment, "production")
}

// AllowedOrigins splits CORS_ORIGINS into a list.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
