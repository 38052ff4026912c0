// Package config loads application configuration from environment
// variables.
package config

import (
	"log"
	"os"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required variables are enforced by must();
// missing values cause the process to exit with a fatal log message.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret string // HS256 secret shared with the external identity provider

	OpenAIKey       string        // API key for completion/transcription/synthesis
	CallTimeout     time.Duration // per-call bound on every external call in a turn
	CompletionModel string        // chat model override (empty keeps the client default)

	StripeSecretKey     string // secret key for checkout-session creation
	StripeWebhookSecret string // signing secret for webhook verification
	StripePriceMonthly  string // price ID for the monthly plan
	StripePriceYearly   string // price ID for the yearly plan
	CheckoutSuccessURL  string // redirect after successful checkout
	CheckoutCancelURL   string // redirect after cancelled checkout
}

// Load reads configuration from the environment.  Billing variables are
// optional: without them the billing endpoints report themselves as not
// configured while the rest of the service runs.
func Load() Config {
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		JWTSecret: must("JWT_SECRET"),

		OpenAIKey:       must("OPENAI_API_KEY"),
		CallTimeout:     envDur("EXTERNAL_CALL_TIMEOUT", 30*time.Second),
		CompletionModel: os.Getenv("COMPLETION_MODEL"),

		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripePriceMonthly:  os.Getenv("STRIPE_PRICE_MONTHLY"),
		StripePriceYearly:   os.Getenv("STRIPE_PRICE_YEARLY"),
		CheckoutSuccessURL:  os.Getenv("CHECKOUT_SUCCESS_URL"),
		CheckoutCancelURL:   os.Getenv("CHECKOUT_CANCEL_URL"),
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

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Fatalf("invalid duration for %s: %q", key, v)
	}
	return d
}
