package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time expresses the TTL and sweep durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, durations for the
// hold TTL and the sweep cadence.
type Config struct {
	Env           string        // application environment (e.g. "dev", "prod")
	Port          string        // HTTP port to listen on
	DBUser        string        // database username
	DBPass        string        // database password (optional)
	DBHost        string        // database host address
	DBPort        string        // database port number
	DBName        string        // database name
	JWTSecret     string        // secret shared with the identity provider for verifying bearer tokens
	HoldTTL       time.Duration // how long an unconfirmed seat hold lives
	SweepInterval time.Duration // cadence of the expiry reconciler
	SweepBatch    int           // max reservations expired per sweep pass
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The hold TTL and
// sweep settings have defaults so a bare environment still runs.
func Load() Config {
	return Config{
		Env:           must("APP_ENV"),      // environment (dev/test/prod)
		Port:          must("APP_PORT"),     // port to bind the HTTP server
		DBUser:        must("DB_USER"),      // database user
		DBPass:        os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:        must("DB_HOST"),      // database host
		DBPort:        must("DB_PORT"),      // database port
		DBName:        must("DB_NAME"),      // database name
		JWTSecret:     must("JWT_SECRET"),   // secret for verifying access tokens
		HoldTTL:       minutes("HOLD_TTL_MIN", 10),
		SweepInterval: seconds("SWEEP_INTERVAL_SEC", 30),
		SweepBatch:    envIntFatal("SWEEP_BATCH", 100),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// minutes reads an integer env var expressed in minutes, falling back
// to the given default.
func minutes(key string, def int) time.Duration {
	return time.Duration(envIntFatal(key, def)) * time.Minute
}

// seconds reads an integer env var expressed in seconds, falling back
// to the given default.
func seconds(key string, def int) time.Duration {
	return time.Duration(envIntFatal(key, def)) * time.Second
}

// envIntFatal reads an optional integer env var, exiting on malformed
// values rather than silently falling back.
func envIntFatal(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, v)
	}
	return n
}
