package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	JWTSecret string        `env:"JWT_SECRET"`
	JWTIssuer string        `env:"JWT_ISSUER"    envDefault:"bulkgate"`
	JWTTTL    time.Duration `env:"JWT_TTL"       envDefault:"24h"`

	ProviderBaseURL   string `env:"PROVIDER_BASE_URL"   envDefault:"https://graph.facebook.com/v17.0"`
	ProviderAccountID string `env:"PROVIDER_ACCOUNT_ID"`
	ProviderToken     string `env:"PROVIDER_TOKEN"`
	WebhookSecret     string `env:"WEBHOOK_SECRET"`
	BridgeBaseURL     string `env:"BRIDGE_BASE_URL"     envDefault:"http://localhost:3000"`

	DefaultCountryCode string        `env:"DEFAULT_COUNTRY_CODE" envDefault:"91"`
	CommissionInterval time.Duration `env:"COMMISSION_INTERVAL"  envDefault:"24h"`
}

func LoadConfig() (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	loadFlags(&flagsConfig)

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTSecret == "" {
		return nil, errors.New("JWT secret is not set")
	}
	if conf.WebhookSecret == "" {
		return nil, errors.New("webhook secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(flagConfig *Config) {
	flag.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	flag.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	flag.StringVar(&flagConfig.MigrationsDir, "m", "migrations", "Database migrations directory")

	flag.Parse()
}

// mergeConfig значения из окружения приоритетнее флагов; поля без флагов берутся
// из окружения как есть.
func mergeConfig(envConfig, flagsConfig *Config) *Config {
	merged := *envConfig
	merged.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	merged.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	merged.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	return &merged
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
