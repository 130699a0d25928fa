package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	HTTP     ServerConfig
	GRPC     ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Hashing  HashingConfig
	Log      LogConfig
}

type ServerConfig struct {
	Host string
	Port string
	// TrustedProxies lists CIDR ranges whose X-Forwarded-For is honoured.
	TrustedProxies []string
}

type DatabaseConfig struct {
	Driver      string
	MySQLDSN    string
	SQLitePath  string
	AutoMigrate bool
}

// JWTConfig covers the owner session tokens. They are issued by the
// dashboard login flow; this service only verifies them.
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type HashingConfig struct {
	BcryptCost int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	jwt, err := loadJWT()
	if err != nil {
		return nil, err
	}

	database, err := loadDatabase()
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTP: ServerConfig{
			Host:           getEnv("HTTP_HOST", ""),
			Port:           getEnv("HTTP_PORT", "8080"),
			TrustedProxies: getListEnv("HTTP_TRUSTED_PROXIES"),
		},
		GRPC: ServerConfig{
			Host: getEnv("GRPC_HOST", ""),
			Port: getEnv("GRPC_PORT", "9090"),
		},
		Database: database,
		JWT:      jwt,
		Hashing:  loadHashing(),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}, nil
}

// LoadDatabase reads only the database section. CLI commands that never
// verify sessions use it so they do not need JWT_SECRET.
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()
	return loadDatabase()
}

// LoadHashing reads only the hashing section.
func LoadHashing() HashingConfig {
	_ = godotenv.Load()
	return loadHashing()
}

func loadHashing() HashingConfig {
	return HashingConfig{BcryptCost: getIntEnv("BCRYPT_COST", 10)}
}

// LoadJWT reads only the session token section.
func LoadJWT() (JWTConfig, error) {
	_ = godotenv.Load()
	return loadJWT()
}

func loadJWT() (JWTConfig, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return JWTConfig{}, errors.New("JWT_SECRET environment variable is required")
	}
	return JWTConfig{
		Secret:         secret,
		AccessTokenTTL: getDurationEnv("JWT_ACCESS_TOKEN_TTL", 15*time.Minute),
	}, nil
}

func loadDatabase() (DatabaseConfig, error) {
	driver := strings.ToLower(getEnv("DB_DRIVER", DriverMySQL))
	cfg := DatabaseConfig{
		Driver:      driver,
		MySQLDSN:    os.Getenv("MYSQL_DSN"),
		SQLitePath:  getEnv("SQLITE_PATH", "apikeys.db"),
		AutoMigrate: getBoolEnv("DB_AUTO_MIGRATE", false),
	}

	switch driver {
	case DriverMySQL:
		if cfg.MySQLDSN == "" {
			return DatabaseConfig{}, errors.New("MYSQL_DSN environment variable is required")
		}
	case DriverSQLite:
	default:
		return DatabaseConfig{}, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	return cfg, nil
}

// DSN returns the connection string for the configured driver.
func (c DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getListEnv(key string) []string {
	var values []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	return values
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
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
