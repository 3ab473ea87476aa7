package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Product & update server
	ProductFile    string        // path to the product.yaml manifest
	APITimeout     time.Duration // timeout for get_version / plugin_information (default: 120s)
	LicenseTimeout time.Duration // timeout for activate / deactivate (default: 60s)
	SkipTLSVerify  bool          // disable certificate checks on update server calls (default: true)
	Beta           bool          // follow the beta channel
	CacheTTL       time.Duration // version cache freshness window (default: 3h)
	CheckInterval  time.Duration // interval between update check cycles (default: 12h)
	StateTTL       time.Duration // lifetime of the persisted cycle state (default: 12h)

	// Storage
	Store         string        // "redis" | "memory" (memory: nothing survives a restart)
	SweepInterval time.Duration // memory store: interval between expired transient sweeps

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts
	RedisKeyPrefix        string        // namespace for every key (default: "updater:")

	// Admin surface
	AllowedHosts      []string // optional, restrict access to specific Host headers
	AllowedCIDRS      []string // optional, restrict access to specific IP (e.g. "1.2.3.4, 5.6.7.8")
	TrustProxy        bool     // true => trust X-Forwarded-For headers
	LicenseBurst      int      // license endpoint rate limit burst
	LicenseRefillRate int      // license endpoint tokens per IP per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("UPDATER_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("UPDATER_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("UPDATER_LOG_LEVEL", "info"),
		PrettyLog: mustBool("UPDATER_PRETTY_LOG", true),

		// Product & update server
		ProductFile:    getenv("UPDATER_PRODUCT_FILE", "/app/product.yaml"),
		APITimeout:     mustDuration("UPDATER_API_TIMEOUT", 120*time.Second),
		LicenseTimeout: mustDuration("UPDATER_LICENSE_TIMEOUT", 60*time.Second),
		SkipTLSVerify:  mustBool("UPDATER_SKIP_TLS_VERIFY", true),
		Beta:           mustBool("UPDATER_BETA", false),
		CacheTTL:       mustDuration("UPDATER_CACHE_TTL", 3*time.Hour),
		CheckInterval:  mustDuration("UPDATER_CHECK_INTERVAL", 12*time.Hour),
		StateTTL:       mustDuration("UPDATER_STATE_TTL", 12*time.Hour),

		// Storage
		Store:         getenv("UPDATER_STORE", StoreRedis),
		SweepInterval: mustDuration("UPDATER_SWEEP_INTERVAL", 10*time.Minute),

		// Redis settings
		RedisUser:             getenv("UPDATER_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("UPDATER_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("UPDATER_REDIS_PASSWORD", ""),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),
		RedisKeyPrefix:        getenv("UPDATER_REDIS_KEY_PREFIX", "updater:"),

		// Access restrictions
		AllowedHosts:      splitAndTrim(getenv("UPDATER_ALLOWED_HOSTS", "")),
		AllowedCIDRS:      splitAndTrim(getenv("UPDATER_ALLOWED_CIDRS", "")),
		TrustProxy:        mustBool("UPDATER_TRUST_PROXY", false),
		LicenseBurst:      getenvInt("UPDATER_LICENSE_BURST", 5),
		LicenseRefillRate: getenvInt("UPDATER_LICENSE_REFILL_PER_MIN", 10),
	}

	switch cfg.Store {
	case StoreRedis:
		cfg.RedisAddr = requireEnv("UPDATER_REDIS_ADDR")
		cfg.RedisDB = requireEnvInt("UPDATER_REDIS_DB")

		// Validate Redis password configuration
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: UPDATER_REDIS_PASSWORD is required when UPDATER_REDIS_PASSWORD_REQUIRED=true")
		}
	case StoreMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: UPDATER_STORE must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.Store))
	}

	if cfg.CacheTTL <= 0 {
		panic(fmt.Sprintf("❌ FATAL: UPDATER_CACHE_TTL must be > 0, got %v", cfg.CacheTTL))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
