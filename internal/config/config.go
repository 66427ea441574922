package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StoreConfig struct {
	Driver string
}

// RedisConfig with an empty Addr disables caching, rate limiting and
// idempotency keys.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User        string
	Password    string
	Name        string
	Host        string
	Port        int
	SSLMode     string
	AutoMigrate bool
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User,
		p.Password,
		p.Host,
		p.Port,
		p.Name,
		p.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret  string
	JWTTTL     time.Duration
	BcryptCost int
}

type BookingConfig struct {
	MaxAttempts int
	// RateLimit is the number of booking attempts per user per minute.
	RateLimit          int
	ResetRequiresAdmin bool
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: strEnv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	driver := strEnv("STORE_DRIVER", DriverPostgres)
	if driver != DriverPostgres && driver != DriverMemory {
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, driver)
	}

	postgresCfg := PostgresConfig{
		Host:     strEnv("POSTGRES_HOST", "localhost"),
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		SSLMode:  strEnv("POSTGRES_SSLMODE", "disable"),
	}

	postgresCfg.Port, err = intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresCfg.AutoMigrate, err = boolEnv("POSTGRES_AUTO_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if driver == DriverPostgres {
		if postgresCfg.User == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
		}
		if postgresCfg.Password == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
		}
		if postgresCfg.Name == "" {
			return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
		}
	}

	redisCfg := RedisConfig{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	}

	redisCfg.DB, err = intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authCfg := AuthConfig{
		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	if authCfg.JWTSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	authCfg.JWTTTL, err = durationEnv("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	authCfg.BcryptCost, err = intEnv("BCRYPT_COST", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if authCfg.BcryptCost < 4 || authCfg.BcryptCost > 31 {
		return nil, fmt.Errorf("%s: BCRYPT_COST must be between 4 and 31", op)
	}

	var bookingCfg BookingConfig

	bookingCfg.MaxAttempts, err = intEnv("BOOKING_MAX_ATTEMPTS", 3)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if bookingCfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("%s: BOOKING_MAX_ATTEMPTS must be positive", op)
	}

	bookingCfg.RateLimit, err = intEnv("BOOKING_RATE_LIMIT", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	bookingCfg.ResetRequiresAdmin, err = boolEnv("RESET_REQUIRES_ADMIN", false)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Store:    StoreConfig{Driver: driver},
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Auth:     authCfg,
		Booking:  bookingCfg,
	}, nil
}

func strEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
