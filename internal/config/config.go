package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// Config holds all configuration
type Config struct {
	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	HTTP           HTTPConfig
	Log            LogConfig
	Library        LibraryConfig
	OverdueScanner OverdueScannerConfig
	Report         ReportConfig
	WS             WSConfig
	Migrate        bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string // mysql, postgres or sqlite
	DSN    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Issuer        string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr              string
	RequestTimeoutSec int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // text or json
}

// LibraryConfig holds circulation rules
type LibraryConfig struct {
	DefaultLoanDays int
	MaxLoanDays     int
	DailyLateRate   int64
	BorrowFee       int64
	AutoLateFee     bool
}

// OverdueScannerConfig holds overdue scanner configuration
type OverdueScannerConfig struct {
	Enabled     bool
	IntervalSec int
}

// ReportConfig holds reporting configuration
type ReportConfig struct {
	CacheSec int
}

// WSConfig holds Socket.IO push configuration
type WSConfig struct {
	Enabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "mysql"),
			DSN:    getEnv("DATABASE_DSN", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASS", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        os.Getenv("JWT_SECRET"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 1440),
			Issuer:        getEnv("JWT_ISSUER", "go_library"),
		},
		HTTP: HTTPConfig{
			Addr:              getEnv("HTTP_ADDR", ":8080"),
			RequestTimeoutSec: getEnvInt("HTTP_REQUEST_TIMEOUT_SEC", 15),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Library: LibraryConfig{
			DefaultLoanDays: getEnvInt("LIBRARY_DEFAULT_LOAN_DAYS", 14),
			MaxLoanDays:     getEnvInt("LIBRARY_MAX_LOAN_DAYS", 30),
			DailyLateRate:   int64(getEnvInt("LIBRARY_DAILY_LATE_RATE", 5000)),
			BorrowFee:       int64(getEnvInt("LIBRARY_BORROW_FEE", 0)),
			AutoLateFee:     getEnvBool("LIBRARY_AUTO_LATE_FEE", true),
		},
		OverdueScanner: OverdueScannerConfig{
			Enabled:     getEnvBool("OVERDUE_SCANNER_ENABLED", true),
			IntervalSec: getEnvInt("OVERDUE_SCANNER_INTERVAL_SEC", 300),
		},
		Report: ReportConfig{
			CacheSec: getEnvInt("REPORT_CACHE_SEC", 30),
		},
		WS: WSConfig{
			Enabled: getEnvBool("WS_ENABLED", true),
		},
		Migrate: getEnvBool("MIGRATE", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Database.Driver)
	}
	if cfg.Library.DefaultLoanDays < 1 || cfg.Library.MaxLoanDays < cfg.Library.DefaultLoanDays {
		return fmt.Errorf("loan days must satisfy 1 <= default (%d) <= max (%d)",
			cfg.Library.DefaultLoanDays, cfg.Library.MaxLoanDays)
	}
	if cfg.Library.DailyLateRate < 0 || cfg.Library.BorrowFee < 0 {
		return fmt.Errorf("fee rates must not be negative")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "1" || value == "true"
	}
	return defaultValue
}

// LoadFromINI loads configuration from INI file with environment variable override
func LoadFromINI(iniPath string) (*Config, error) {
	cfgFile, err := ini.Load(iniPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load INI file: %w", err)
	}

	// Priority: ENV > INI > default
	getValue := func(envKey, iniSection, iniKey, defaultValue string) string {
		if value := os.Getenv(envKey); value != "" {
			return value
		}
		if value := cfgFile.Section(iniSection).Key(iniKey).String(); value != "" {
			return value
		}
		return defaultValue
	}

	getValueInt := func(envKey, iniSection, iniKey string, defaultValue int) int {
		if value := os.Getenv(envKey); value != "" {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Int(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	getValueBool := func(envKey, iniSection, iniKey string, defaultValue bool) bool {
		if value := os.Getenv(envKey); value != "" {
			return value == "1" || value == "true"
		}
		if cfgFile.Section(iniSection).HasKey(iniKey) {
			if value, err := cfgFile.Section(iniSection).Key(iniKey).Bool(); err == nil {
				return value
			}
		}
		return defaultValue
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: getValue("DATABASE_DRIVER", "database", "driver", "mysql"),
			DSN:    getValue("DATABASE_DSN", "database", "dsn", ""),
		},
		Redis: RedisConfig{
			Enabled:  getValueBool("REDIS_ENABLED", "redis", "enabled", true),
			Addr:     getValue("REDIS_ADDR", "redis", "addr", "localhost:6379"),
			Password: getValue("REDIS_PASS", "redis", "pass", ""),
			DB:       getValueInt("REDIS_DB", "redis", "db", 0),
		},
		JWT: JWTConfig{
			Secret:        getValue("JWT_SECRET", "jwt", "secret", ""),
			ExpireMinutes: getValueInt("JWT_EXPIRE_MINUTES", "jwt", "expire_minutes", 1440),
			Issuer:        getValue("JWT_ISSUER", "jwt", "issuer", "go_library"),
		},
		HTTP: HTTPConfig{
			Addr:              getValue("HTTP_ADDR", "http", "addr", ":8080"),
			RequestTimeoutSec: getValueInt("HTTP_REQUEST_TIMEOUT_SEC", "http", "request_timeout_sec", 15),
		},
		Log: LogConfig{
			Level:  getValue("LOG_LEVEL", "log", "level", "info"),
			Format: getValue("LOG_FORMAT", "log", "format", "text"),
		},
		Library: LibraryConfig{
			DefaultLoanDays: getValueInt("LIBRARY_DEFAULT_LOAN_DAYS", "library", "default_loan_days", 14),
			MaxLoanDays:     getValueInt("LIBRARY_MAX_LOAN_DAYS", "library", "max_loan_days", 30),
			DailyLateRate:   int64(getValueInt("LIBRARY_DAILY_LATE_RATE", "library", "daily_late_rate", 5000)),
			BorrowFee:       int64(getValueInt("LIBRARY_BORROW_FEE", "library", "borrow_fee", 0)),
			AutoLateFee:     getValueBool("LIBRARY_AUTO_LATE_FEE", "library", "auto_late_fee", true),
		},
		OverdueScanner: OverdueScannerConfig{
			Enabled:     getValueBool("OVERDUE_SCANNER_ENABLED", "overdue_scanner", "enabled", true),
			IntervalSec: getValueInt("OVERDUE_SCANNER_INTERVAL_SEC", "overdue_scanner", "interval_sec", 300),
		},
		Report: ReportConfig{
			CacheSec: getValueInt("REPORT_CACHE_SEC", "report", "cache_sec", 30),
		},
		WS: WSConfig{
			Enabled: getValueBool("WS_ENABLED", "ws", "enabled", true),
		},
		Migrate: getValueBool("MIGRATE", "app", "migrate", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
