package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	JWTSecret                string `mapstructure:"JWT_SECRET"`
	AccessTokenExpireMinutes int    `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	ServerAddr               string `mapstructure:"SERVER_ADDR"`

	DBMaxOpenConns       int `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns       int `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMin int `mapstructure:"DB_CONN_MAX_LIFETIME_MIN"`

	RabbitURL       string `mapstructure:"RABBIT_URL"`
	BookingExchange string `mapstructure:"BOOKING_EXCHANGE"`

	LoginRatePerMinute int    `mapstructure:"LOGIN_RATE_PER_MINUTE"`
	SeedAdminPassword  string `mapstructure:"SEED_ADMIN_PASSWORD"`
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// ConnMaxLifetime is the maximum age of a pooled database connection.
func (c *Config) ConnMaxLifetime() time.Duration {
	return time.Duration(c.DBConnMaxLifetimeMin) * time.Minute
}

var AppConfig *Config

var defaults = map[string]any{
	"DATABASE_URL":                "",
	"JWT_SECRET":                  "",
	"ACCESS_TOKEN_EXPIRE_MINUTES": 30,
	"SERVER_ADDR":                 ":8080",
	"DB_MAX_OPEN_CONNS":           10,
	"DB_MAX_IDLE_CONNS":           5,
	"DB_CONN_MAX_LIFETIME_MIN":    30,
	"RABBIT_URL":                  "",
	"BOOKING_EXCHANGE":            "booking.exchange",
	"LOGIN_RATE_PER_MINUTE":       10,
	"SEED_ADMIN_PASSWORD":         "admin123",
}

// Load reads a .env file from dir (if present) and environment variables.
// Environment variables win over the file.
func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	// Defaults make every key visible to AutomaticEnv during Unmarshal.
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		log.Println("Warning: .env file not found, loading from environment variables")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadConfig loads the configuration from a .env file and environment variables.
func LoadConfig() {
	cfg, err := Load(".")
	if err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}
	AppConfig = cfg
}
