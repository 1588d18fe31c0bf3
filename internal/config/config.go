// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

// Config holds all runtime configuration values. Each field corresponds
// to an environment variable. Required variables are enforced by must()
// and missing values cause the program to exit with a fatal log message.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
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

	// AllowDoubleAllocation permits an item to carry more than one
	// active allocation at a time. Off by default; a second active
	// allocation for the same item then fails with a conflict.
	AllowDoubleAllocation bool

	// BootstrapAdminEmail, when set, promotes the registration with
	// this email to admin. Used to seed the first admin on a fresh
	// database; further admins are promoted through the user API.
	BootstrapAdminEmail string
}

// Load reads configuration values from environment variables.
func Load() Config {
	return Config{
		Env:                   must("APP_ENV"),
		Port:                  must("APP_PORT"),
		DBUser:                must("DB_USER"),
		DBPass:                os.Getenv("DB_PASS"),
		DBHost:                must("DB_HOST"),
		DBPort:                must("DB_PORT"),
		DBName:                must("DB_NAME"),
		JWTSecret:             must("JWT_SECRET"),
		AccessTTLMin:          mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays:        mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:            mustInt("BCRYPT_COST"),
		AllowDoubleAllocation: envBool("ALLOW_DOUBLE_ALLOCATION", false),
		BootstrapAdminEmail:   strings.ToLower(strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_EMAIL"))),
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and
// exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an
// integer. If conversion fails, the application logs a fatal error and
// exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
