package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName string
	ServerPort  int
	LogLevel    string

	StorageDriver   string
	DatabaseURL     string
	SQLitePath      string
	StoragePrefix   string
	StorageMaxBytes int

	SessionSecret []byte
	CookieSecure  bool
	CSRFEnabled   bool

	SessionMax     int
	SessionIdleTTL time.Duration

	CatalogSeed int64
	PageSize    int

	TaxRate               float64
	FreeShippingThreshold float64
	ShippingFee           float64

	KafkaBrokers []string
	CartTopic    string

	ESURL      string
	ESUser     string
	ESPassword string
	ESIndex    string

	MockMinDelay    time.Duration
	MockMaxDelay    time.Duration
	MockFailureRate float64
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("notice: .env file not found: %v. Using system environment variables", err)
	}

	return Config{
		ServiceName: EnvDefault("SERVICE_NAME", "topspin"),
		ServerPort:  EnvIntDefault("SERVER_PORT", 8080),
		LogLevel:    EnvDefault("LOG_LEVEL", "info"),

		StorageDriver:   strings.ToLower(EnvDefault("STORAGE_DRIVER", "memory")),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      EnvDefault("SQLITE_PATH", "topspin.db"),
		StoragePrefix:   EnvDefault("STORAGE_PREFIX", "topspin_"),
		StorageMaxBytes: EnvIntDefault("STORAGE_MAX_BYTES", 5*1024*1024),

		SessionSecret: []byte(os.Getenv("SESSION_SECRET")),
		CookieSecure:  EnvBoolDefault("COOKIE_SECURE", false),
		CSRFEnabled:   EnvBoolDefault("CSRF_ENABLED", true),

		SessionMax:     EnvIntDefault("SESSION_MAX", 10000),
		SessionIdleTTL: time.Duration(EnvIntDefault("SESSION_IDLE_MINUTES", 24*60)) * time.Minute,

		CatalogSeed: int64(EnvIntDefault("CATALOG_SEED", 0)),
		PageSize:    EnvIntDefault("PAGE_SIZE", 12),

		TaxRate:               EnvFloatDefault("TAX_RATE", 0.08),
		FreeShippingThreshold: EnvFloatDefault("FREE_SHIPPING_THRESHOLD", 75),
		ShippingFee:           EnvFloatDefault("SHIPPING_FEE", 9.99),

		KafkaBrokers: CSV(os.Getenv("KAFKA_BROKERS")),
		CartTopic:    EnvDefault("CART_TOPIC", "cart_events"),

		ESURL:      os.Getenv("ES_URL"),
		ESUser:     os.Getenv("ES_USER"),
		ESPassword: os.Getenv("ES_PASSWORD"),
		ESIndex:    EnvDefault("ES_INDEX", "products"),

		MockMinDelay:    time.Duration(EnvIntDefault("MOCK_MIN_DELAY_MS", 500)) * time.Millisecond,
		MockMaxDelay:    time.Duration(EnvIntDefault("MOCK_MAX_DELAY_MS", 1500)) * time.Millisecond,
		MockFailureRate: EnvFloatDefault("MOCK_FAILURE_RATE", 0.05),
	}
}

func CSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func EnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func EnvIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func EnvFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func EnvBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}
