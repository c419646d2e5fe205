// Package config loads application configuration via Viper from environment
// variables and an optional config file.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config groups all application configuration.
type Config struct {
	App       AppConfig
	DB        DBConfig
	HTTP      HTTPConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Inventory InventoryConfig
}

// AppConfig holds general application settings.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig holds PostgreSQL settings. If DatabaseURL is set it is used as
// the full connection string, otherwise a DSN is built from the parts.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
}

// ConnectionString returns DatabaseURL when set, otherwise the built DSN.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN builds a PostgreSQL connection string with URL-encoded credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// JWTConfig holds token settings.
type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// RedisConfig holds the optional item read cache settings.
// Empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// InventoryConfig holds ledger and conversion policy knobs.
type InventoryConfig struct {
	// StrictUnits makes an unresolvable unit label a hard error instead of
	// falling back to the generic default table.
	StrictUnits bool

	// DefaultMarkup multiplies cost when no selling price can be derived
	// from the item's packaging units.
	DefaultMarkup float64
}

// Load reads configuration from environment variables (and optionally a
// config file named pharmstock.yaml in the working directory).
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("pharmstock")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PHARMSTOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; env-only deployments are fine.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:      v.GetString("app.env"),
			Name:     v.GetString("app.name"),
			LogLevel: v.GetString("app.log_level"),
		},
		DB: DBConfig{
			DatabaseURL: v.GetString("db.url"),
			Host:        v.GetString("db.host"),
			Port:        v.GetInt("db.port"),
			User:        v.GetString("db.user"),
			Password:    v.GetString("db.password"),
			DBName:      v.GetString("db.name"),
			SSLMode:     v.GetString("db.sslmode"),
			MaxConns:    v.GetInt32("db.max_conns"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("http.host"),
			Port: v.GetInt("http.port"),
		},
		JWT: JWTConfig{
			Secret:         v.GetString("jwt.secret"),
			Issuer:         v.GetString("jwt.issuer"),
			AccessTokenTTL: v.GetDuration("jwt.access_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Inventory: InventoryConfig{
			StrictUnits:   v.GetBool("inventory.strict_units"),
			DefaultMarkup: v.GetFloat64("inventory.default_markup"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "pharmstock")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "pharmstock")
	v.SetDefault("db.name", "pharmstock")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 25)

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)

	v.SetDefault("jwt.issuer", "pharmstock")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)

	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("inventory.strict_units", false)
	v.SetDefault("inventory.default_markup", 1.3)
}

func (c *Config) validate() error {
	if c.App.Env == "production" && c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in production")
	}
	if c.Inventory.DefaultMarkup <= 0 {
		return fmt.Errorf("inventory.default_markup must be positive")
	}
	return nil
}
