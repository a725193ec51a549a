package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends the Gateway can run on.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Backend    string // "memory" | "redis" | "sqlite"
	SQLitePath string // database file for the sqlite backend
	SeedFile   string // optional YAML fixture written at startup

	// Library and Today view
	TodayRefreshInterval  time.Duration // 0 = manual refresh only
	LibraryReloadInterval time.Duration // 0 = never re-read the library in the background
	FetchTimeout          time.Duration // bound for each Today item fetch, 0 = none
	LoadTimeout           time.Duration // bound for loading a library on sign-in
	DiscardSuperseded     bool          // drop fetch results overtaken by a newer refresh

	// Redis
	RedisAddr           string        // ex: "localhost:6379", required for the redis backend
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Access restrictions
	AllowedHosts   []string // optional, restrict /readyz to specific Host headers
	AllowedCIDRS   []string // optional, restrict /readyz to specific networks (e.g. "10.0.0.0/8, 1.2.3.4")
	TrustProxy     bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	AuthRateBurst  int      // auth requests a client may burst
	AuthRatePerMin int      // auth tokens refilled per minute
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("SHELF_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("SHELF_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("SHELF_LOG_LEVEL", "info"),
		PrettyLog: mustBool("SHELF_PRETTY_LOG", true),

		// Storage
		Backend:    mustOneOf("SHELF_BACKEND", BackendMemory, BackendMemory, BackendRedis, BackendSQLite),
		SQLitePath: getenv("SHELF_SQLITE_PATH", "/data/shelf.db"),
		SeedFile:   getenv("SHELF_SEED_FILE", ""),

		// Library and Today view
		TodayRefreshInterval:  mustDuration("SHELF_TODAY_REFRESH_INTERVAL", 15*time.Minute),
		LibraryReloadInterval: mustDuration("SHELF_LIBRARY_RELOAD_INTERVAL", 0),
		FetchTimeout:          mustDuration("SHELF_FETCH_TIMEOUT", 5*time.Second),
		LoadTimeout:           mustDuration("SHELF_LOAD_TIMEOUT", 10*time.Second),
		DiscardSuperseded:     mustBool("SHELF_DISCARD_SUPERSEDED", false),

		// Redis settings
		RedisUser:           getenv("SHELF_REDIS_USERNAME", "default"),
		RedisPassword:       getenv("SHELF_REDIS_PASSWORD", ""),
		RedisDB:             getenvInt("SHELF_REDIS_DB", 0),
		RedisDT:             mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:   splitAndTrim(getenv("SHELF_ALLOWED_HOSTS", "")),
		AllowedCIDRS:   parseAllowedIPs(getenv("SHELF_ALLOWED_CIDRS", "")),
		TrustProxy:     mustBool("SHELF_TRUST_PROXY", false),
		AuthRateBurst:  getenvInt("SHELF_AUTH_RATE_BURST", 10),
		AuthRatePerMin: getenvInt("SHELF_AUTH_RATE_PER_MIN", 30),
	}

	if cfg.Backend == BackendRedis {
		cfg.RedisAddr = requireEnv("SHELF_REDIS_ADDR")
	}
	if cfg.AuthRateBurst <= 0 || cfg.AuthRatePerMin <= 0 {
		panic("❌ FATAL: SHELF_AUTH_RATE_BURST and SHELF_AUTH_RATE_PER_MIN must be positive")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		log.Printf("[DEBUG] cfg: %+v\n", cfg.Redacted())
	}

	return cfg
}

// Redacted returns a copy safe to print.
func (c *Config) Redacted() Config {
	cp := *c
	if cp.RedisPassword != "" {
		cp.RedisPassword = "***REDACTED***"
	}
	if cp.RedisUser != "" {
		cp.RedisUser = "***REDACTED***"
	}
	return cp
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

func mustOneOf(key, def string, allowed ...string) string {
	v := strings.ToLower(getenv(key, def))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	panic(fmt.Sprintf("❌ FATAL: Invalid value for %s: %q (want one of %s)", key, v, strings.Join(allowed, ", ")))
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

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
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
