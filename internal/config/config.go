package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	StorageCSV      = "csv"
	StoragePostgres = "postgres"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	DataDir           string        `mapstructure:"DATA_DIR"`
	PatientsFile      string        `mapstructure:"PATIENTS_FILE"`
	DoctorsFile       string        `mapstructure:"DOCTORS_FILE"`
	CatalogFile       string        `mapstructure:"CATALOG_FILE"`
	LedgerFile        string        `mapstructure:"LEDGER_FILE"`
	Storage           string        `mapstructure:"STORAGE"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	BillingPolicyFile string        `mapstructure:"BILLING_POLICY_FILE"`
	SpecialistService string        `mapstructure:"SPECIALIST_SERVICE"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATA_DIR", "PATIENTS_FILE", "DOCTORS_FILE",
	"CATALOG_FILE", "LEDGER_FILE", "STORAGE", "DATABASE_URL", "DB_MAX_CONNS",
	"DB_MIN_CONNS", "BILLING_POLICY_FILE", "SPECIALIST_SERVICE", "CORS_ORIGINS",
	"REQUEST_TIMEOUT", "BODY_LIMIT",
}

// Load reads the environment and an optional .env file in the working
// directory. Relative data file names are resolved against DATA_DIR.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATA_DIR", "data")
	v.SetDefault("PATIENTS_FILE", "patients.csv")
	v.SetDefault("DOCTORS_FILE", "doctors.csv")
	v.SetDefault("CATALOG_FILE", "billing.csv")
	v.SetDefault("LEDGER_FILE", "payment_history.csv")
	v.SetDefault("STORAGE", StorageCSV)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	cfg.Storage = strings.ToLower(strings.TrimSpace(cfg.Storage))
	cfg.PatientsFile = cfg.resolve(cfg.PatientsFile)
	cfg.DoctorsFile = cfg.resolve(cfg.DoctorsFile)
	cfg.CatalogFile = cfg.resolve(cfg.CatalogFile)
	cfg.LedgerFile = cfg.resolve(cfg.LedgerFile)
	if cfg.BillingPolicyFile != "" {
		cfg.BillingPolicyFile = cfg.resolve(cfg.BillingPolicyFile)
	}

	return cfg, nil
}

func (c *Config) resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) UsePostgres() bool {
	return c.Storage == StoragePostgres
}

// Level parses LOG_LEVEL, falling back to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Validate checks the settings the server and CLI cannot run without.
func (c *Config) Validate() error {
	switch c.Storage {
	case StorageCSV:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE is %q", StoragePostgres)
		}
		if c.DBMaxConns < 1 {
			return fmt.Errorf("DB_MAX_CONNS must be at least 1, got %d", c.DBMaxConns)
		}
		if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS, got %d", c.DBMinConns)
		}
	default:
		return fmt.Errorf("STORAGE must be %q or %q, got %q", StorageCSV, StoragePostgres, c.Storage)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative")
	}
	return nil
}
