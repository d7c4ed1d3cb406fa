package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ServiceName string
	Env         string
	HTTPAddr    string

	// Optional backing stores; the in-memory implementations are used when
	// these are left empty.
	PostgresDSN string
	RedisAddr   string
	CartTTL     time.Duration

	// Optional event relay.
	KafkaBrokers []string
	KafkaTopic   string

	// Simulated gateway tuning.
	PaymentSuccessRate  float64
	ShippingSuccessRate float64

	// Zero disables the per-line quantity cap.
	MaxUnitsPerLine int

	SeedDemoData bool
}

func Load() Config {
	return Config{
		ServiceName:         getenv("SERVICE_NAME", "marketplace-checkout"),
		Env:                 getenv("ENV", "dev"),
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		PostgresDSN:         os.Getenv("POSTGRES_DSN"),
		RedisAddr:           os.Getenv("REDIS_ADDR"),
		CartTTL:             getduration("CART_TTL", 14*24*time.Hour),
		KafkaBrokers:        splitCSV(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:          getenv("KAFKA_TOPIC", "checkout.events"),
		PaymentSuccessRate:  getfloat("PAYMENT_SUCCESS_RATE", 0.95),
		ShippingSuccessRate: getfloat("SHIPPING_SUCCESS_RATE", 0.98),
		MaxUnitsPerLine:     getint("MAX_UNITS_PER_LINE", 0),
		SeedDemoData:        getbool("SEED_DEMO_DATA", false),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
