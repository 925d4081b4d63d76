package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/iliyamo/ticket-marketplace/internal/model"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Addresses are parsed once here so that the rest
// of the application never sees malformed hex.
type Config struct {
	Env          string        // application environment (e.g. "dev", "prod")
	Port         string        // HTTP port to listen on
	JWTSecret    string        // secret used to sign JWTs
	AccessTTLMin int           // access token time-to-live in minutes
	LoginMaxAge  time.Duration // how old a signed login message may be

	DB       DBConfig // MySQL settings; empty Host disables persistence
	RabbitMQ string   // broker URL; empty disables the activity queue

	PlatformOwner   common.Address // initial owner of the platform
	PlatformAddress common.Address // platform account (allowance spender)
	EventsAddress   common.Address // event registry address
	PlatformWallet  common.Address // fee recipient; defaults to the owner
	PlatformFeeBps  uint16         // purchase fee in basis points
}

// DBConfig is the MySQL connection settings.
type DBConfig struct {
	User string
	Pass string
	Host string
	Port string
	Name string
}

// Enabled reports whether a database was configured.
func (d DBConfig) Enabled() bool { return d.Host != "" }

// IsDev reports whether the server runs in a development environment, where
// the faucet endpoint is exposed and logs are human-readable.
func (c Config) IsDev() bool { return c.Env == "dev" || c.Env == "test" }

// Load reads configuration values from environment variables.  Missing
// required variables and malformed values are reported as an error naming
// the offending key.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:          l.must("APP_ENV"),
		Port:         l.must("APP_PORT"),
		JWTSecret:    l.must("JWT_SECRET"),
		AccessTTLMin: l.intOr("ACCESS_TOKEN_TTL_MIN", 60),
		LoginMaxAge:  l.durOr("LOGIN_MAX_AGE", 5*time.Minute),
		DB: DBConfig{
			User: os.Getenv("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: os.Getenv("DB_HOST"),
			Port: getenv("DB_PORT", "3306"),
			Name: os.Getenv("DB_NAME"),
		},
		RabbitMQ:        os.Getenv("RABBITMQ_URL"),
		PlatformOwner:   l.address("PLATFORM_OWNER", true),
		PlatformAddress: l.address("PLATFORM_ADDRESS", true),
		EventsAddress:   l.address("EVENTS_ADDRESS", true),
		PlatformWallet:  l.address("PLATFORM_WALLET", false),
	}
	fee := l.intOr("PLATFORM_FEE_BPS", 0)
	if l.err == nil && (fee < 0 || fee > model.MaxBasisPoints) {
		l.err = fmt.Errorf("invalid PLATFORM_FEE_BPS %d: must be within 0..%d", fee, model.MaxBasisPoints)
	}
	cfg.PlatformFeeBps = uint16(fee)
	if l.err == nil && cfg.DB.Enabled() && (cfg.DB.User == "" || cfg.DB.Name == "") {
		l.err = fmt.Errorf("DB_HOST is set but DB_USER or DB_NAME is missing")
	}
	if l.err != nil {
		return Config{}, l.err
	}
	return cfg, nil
}

// loader keeps the first error so Load can read every key in one pass.
type loader struct{ err error }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if (!ok || v == "") && l.err == nil {
		l.err = fmt.Errorf("missing required env var: %s", key)
	}
	return v
}

func (l *loader) intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid int for %s: %q", key, s)
	}
	return n
}

func (l *loader) durOr(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid duration for %s: %q", key, s)
	}
	return d
}

func (l *loader) address(key string, required bool) common.Address {
	var s string
	if required {
		s = l.must(key)
	} else {
		s = os.Getenv(key)
	}
	if s == "" {
		return common.Address{}
	}
	a, err := model.ParseAddress(s)
	if err != nil && l.err == nil {
		l.err = fmt.Errorf("invalid address for %s: %q", key, s)
	}
	return a
}
