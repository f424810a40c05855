package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The types reflect how the values are used
// in the application: strings for identifiers and secrets, ints for
// durations and sizes.
type Config struct {
	Env               string // application environment (e.g. "dev", "prod")
	Port              string // HTTP port to listen on
	DBUser            string // database username
	DBPass            string // database password (optional)
	DBHost            string // database host address
	DBPort            string // database port number
	DBName            string // database name
	HoldTTLSec        int    // seconds a new reservation holds its seats
	ReaperIntervalSec int    // seconds between expiry sweeps
	ReaperBatchSize   int    // max reservations reclaimed per sweep
	PaymentBaseURL    string // base URL of the payment gateway API
	PaymentAPIKey     string // secret key for the payment gateway API
	WebhookSecret     string // shared secret for webhook signature verification
	ConsumerEnabled   bool   // run the booking audit-log consumer in-process
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Tunables with
// sensible defaults use intOr().
func Load() Config {
	return Config{
		Env:               must("APP_ENV"),                    // environment (dev/test/prod)
		Port:              must("APP_PORT"),                   // port to bind the HTTP server
		DBUser:            must("DB_USER"),                    // database user
		DBPass:            os.Getenv("DB_PASS"),               // database password (empty allowed)
		DBHost:            must("DB_HOST"),                    // database host
		DBPort:            must("DB_PORT"),                    // database port
		DBName:            must("DB_NAME"),                    // database name
		HoldTTLSec:        intOr("HOLD_TTL_SEC", 600),         // default hold window
		ReaperIntervalSec: intOr("REAPER_INTERVAL_SEC", 30),   // sweep cadence
		ReaperBatchSize:   intOr("REAPER_BATCH_SIZE", 100),    // sweep batch size
		PaymentBaseURL:    must("PAYMENT_GATEWAY_URL"),        // gateway API base URL
		PaymentAPIKey:     must("PAYMENT_GATEWAY_API_KEY"),    // gateway API key
		WebhookSecret:     must("PAYMENT_WEBHOOK_SECRET"),     // webhook HMAC secret
		ConsumerEnabled:   boolOr("BOOKING_CONSUMER_ENABLED"), // audit-log consumer toggle
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

// intOr converts an optional environment variable into an integer,
// falling back to def when unset.  Invalid values are fatal.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

// boolOr reports whether an optional environment variable is set to a
// truthy value.
func boolOr(key string) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}
