package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds every runtime setting of the server.
type Config struct {
	Env  string
	Host string
	Port int

	DBDriver       string
	DatabaseDSN    string
	SQLitePath     string
	DBMaxConns     int32
	ReadyAttempts  int
	ReadyDelay     time.Duration
	QueryTimeout   time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
	EnableHSTS     bool
	RateLimitRPS   float64
	RateLimitBurst int

	StrictAPIValidation bool
	LogLevel            string
}

// LoadEnvFiles reads .env and .env.local. Values already present in the
// process environment (e.g. from Docker) are never overridden.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load builds a Config from the environment, falling back to defaults.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		Env:                 strings.ToLower(v.GetString("APP_ENV")),
		Host:                v.GetString("HOST"),
		Port:                v.GetInt("PORT"),
		DBDriver:            strings.ToLower(v.GetString("DB_DRIVER")),
		DatabaseDSN:         v.GetString("DB_DSN"),
		SQLitePath:          v.GetString("SQLITE_PATH"),
		DBMaxConns:          v.GetInt32("DB_MAX_CONNS"),
		ReadyAttempts:       v.GetInt("DB_READY_ATTEMPTS"),
		ReadyDelay:          v.GetDuration("DB_READY_DELAY"),
		QueryTimeout:        v.GetDuration("DB_QUERY_TIMEOUT"),
		MaxBodyBytes:        v.GetInt64("MAX_BODY_BYTES"),
		CORSOrigins:         splitList(v.GetString("CORS_ORIGINS")),
		EnableHSTS:          v.GetBool("ENABLE_HSTS"),
		RateLimitRPS:        v.GetFloat64("RATE_LIMIT_RPS"),
		RateLimitBurst:      v.GetInt("RATE_LIMIT_BURST"),
		StrictAPIValidation: v.GetBool("STRICT_API_VALIDATION"),
		LogLevel:            v.GetString("LOG_LEVEL"),
	}

	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = buildDSN(
			v.GetString("DB_HOST"),
			v.GetString("DB_PORT"),
			v.GetString("DB_USER"),
			v.GetString("DB_PASSWORD"),
			v.GetString("DB_NAME"),
		)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", 3001)
	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "books_db")
	v.SetDefault("SQLITE_PATH", "bookshelf.db")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_READY_ATTEMPTS", 30)
	v.SetDefault("DB_READY_DELAY", time.Second)
	v.SetDefault("DB_QUERY_TIMEOUT", 5*time.Second)
	v.SetDefault("MAX_BODY_BYTES", 1<<20)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("ENABLE_HSTS", false)
	v.SetDefault("RATE_LIMIT_RPS", 0)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("STRICT_API_VALIDATION", false)
	v.SetDefault("LOG_LEVEL", "info")
}

func (c Config) validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Env)
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("config: unknown DB_DRIVER %q", c.DBDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if c.ReadyAttempts < 1 {
		return fmt.Errorf("config: DB_READY_ATTEMPTS must be at least 1")
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// IsProduction reports whether error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func buildDSN(host, port, user, password, name string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
