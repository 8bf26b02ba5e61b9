// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
)

// Config holds the runtime configuration.  Each field corresponds to
// an environment variable; strings for identifiers and secrets, ints
// for durations, costs and limits.
type Config struct {
	Env            string // application environment (dev/test/prod)
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	BcryptCost     int    // bcrypt cost for password hashing

	OrderMaxItems      int   // max line items per checkout
	OrderMaxTotalCents int64 // max order value in cents
	OrderPendingLimit  int   // max concurrently pending orders per user
	AgentCommissionBps int   // agent commission in basis points, 0 disables
}

// Load reads configuration from the environment.  Required variables
// are enforced by must(); missing values exit with a fatal log.
// Order limits fall back to the engine defaults when unset.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         must("DB_PORT"),
		DBName:         must("DB_NAME"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),

		OrderMaxItems:      optInt("ORDER_MAX_ITEMS", 0),
		OrderMaxTotalCents: int64(optInt("ORDER_MAX_TOTAL_CENTS", 0)),
		OrderPendingLimit:  optInt("ORDER_PENDING_LIMIT", 0),
		AgentCommissionBps: optInt("AGENT_COMMISSION_BPS", 0),
	}
}

// must retrieves a required environment variable or exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts to an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// optInt reads an optional integer variable, returning def when the
// variable is unset or malformed.
func optInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("invalid int for %s: %q; using default %d", key, v, def)
		return def
	}
	return n
}
