package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Profile store backends.
const (
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
	StoreMemory    = "memory"
)

type Config struct {
	//App
	Env string // dev / staging / prod
	//HTTP
	HTTPAddr         string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	FrontendOrigins  []string

	// Identity provider
	FirebaseAPIKey   string
	AuthEmulatorHost string
	IdPRequestURI    string
	ProviderTimeout  time.Duration

	// Profile store
	ProfileStore      string // firestore / postgres / memory
	FirebaseProjectID string
	GoogleCredentials string
	ProfileCacheTTL   time.Duration

	//Auth / Security
	JWTSecret      string
	AccessTokenTTL time.Duration
	SessionTTL     time.Duration

	// Rate limiting on credential endpoints (per client IP)
	AuthRateLimit  int
	AuthRateWindow time.Duration

	// Infrastructure
	DBAddr         string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RabbitURL      string
	RabbitExchange string
}

// IsDev is true for local development; cookies drop the Secure flag and
// unavailable backing services fall back to in-memory ones.
func (c *Config) IsDev() bool {
	return c.Env == "" || c.Env == "dev" || c.Env == "local"
}

// LoadDotEnv reads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:               getEnv("ENV", "dev"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		AuthEmulatorHost:  os.Getenv("FIREBASE_AUTH_EMULATOR_HOST"),
		IdPRequestURI:     getEnv("IDP_REQUEST_URI", "http://localhost"),
		ProfileStore:      strings.ToLower(getEnv("PROFILE_STORE", StoreFirestore)),
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		GoogleCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		DBAddr:            os.Getenv("DB_ADDR"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RabbitURL:         os.Getenv("RABBIT_URL"),
		RabbitExchange:    getEnv("RABBIT_EXCHANGE", "identity.events"),
		FrontendOrigins:   splitList(getEnv("FRONTEND_ORIGINS", "http://localhost:4200")),
	}

	// required values
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("missing required env var: JWT_SECRET")
	}
	cfg.FirebaseAPIKey = os.Getenv("FIREBASE_API_KEY")
	if cfg.FirebaseAPIKey == "" && cfg.AuthEmulatorHost == "" {
		return nil, fmt.Errorf("missing required env var: FIREBASE_API_KEY")
	}

	switch cfg.ProfileStore {
	case StoreFirestore:
		if cfg.FirebaseProjectID == "" {
			return nil, fmt.Errorf("missing required env var: FIREBASE_PROJECT_ID (PROFILE_STORE=firestore)")
		}
	case StorePostgres:
		if cfg.DBAddr == "" {
			return nil, fmt.Errorf("missing required env var: DB_ADDR (PROFILE_STORE=postgres)")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("invalid PROFILE_STORE %q: want firestore, postgres or memory", cfg.ProfileStore)
	}

	// Outside dev the session store and event bus must be real.
	if !cfg.IsDev() {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("missing required env var: REDIS_ADDR")
		}
		if cfg.RabbitURL == "" {
			return nil, fmt.Errorf("missing required env var: RABBIT_URL")
		}
	}

	var err error
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AuthRateLimit, err = getInt("AUTH_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"ACCESS_TOKEN_TTL", 15 * time.Minute, &cfg.AccessTokenTTL},
		{"SESSION_TTL", 7 * 24 * time.Hour, &cfg.SessionTTL},
		{"PROFILE_CACHE_TTL", 5 * time.Minute, &cfg.ProfileCacheTTL},
		{"PROVIDER_TIMEOUT", 10 * time.Second, &cfg.ProviderTimeout},
		{"AUTH_RATE_WINDOW", time.Minute, &cfg.AuthRateWindow},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
