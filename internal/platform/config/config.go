// Package config loads environment-driven configuration so main stays lean.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures the full server configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string

	Redis Redis
	Kafka Kafka

	// NormalizeYearly controls whether yearly recurring amounts count as
	// amount/12 in monthly aggregates.
	NormalizeYearly bool

	// CheckoutBaseURL is the payment provider endpoint; empty disables the
	// checkout path.
	CheckoutBaseURL string
}

// Redis captures cache configuration. An empty URL disables caching.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TotalTTL     time.Duration
	DismissalTTL time.Duration
}

// Kafka captures activity event publishing. Empty brokers disable it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables. A .env file in
// the working directory is loaded first when present, for local development.
func FromEnv() Server {
	_ = godotenv.Load()

	addr := os.Getenv("GIVERS_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}
	topic := os.Getenv("KAFKA_ACTIVITY_TOPIC")
	if topic == "" {
		topic = "givers.activity"
	}

	return Server{
		Addr:          addr,
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSigningKey: jwtSigningKey,
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			TotalTTL:     time.Minute,
			DismissalTTL: 24 * time.Hour,
		},
		Kafka: Kafka{
			Brokers: brokers,
			Topic:   topic,
		},
		NormalizeYearly: os.Getenv("NORMALIZE_YEARLY") != "false",
		CheckoutBaseURL: os.Getenv("CHECKOUT_BASE_URL"),
	}
}
