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
	Port           string
	APIBaseURL     string
	TokenStore     string // sqlite | memory | redis
	DBDSN          string
	RedisAddr      string
	TokenSecret    string
	LogFile        string
	APITimeout     time.Duration
	SearchDebounce time.Duration
	PageSize       int
	AdminPageSize  int
}

// Load reads the environment, after an optional .env file in the working
// directory.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Printf("[config] loaded .env")
	}

	cfg := Config{
		Port:           env("PORT", "8080"),
		APIBaseURL:     strings.TrimRight(env("API_BASE_URL", "http://localhost:5000/api"), "/"),
		TokenStore:     strings.ToLower(env("TOKEN_STORE", "sqlite")),
		DBDSN:          env("DB_DSN", "mobilestore.db"),
		RedisAddr:      env("REDIS_ADDR", "localhost:6379"),
		TokenSecret:    os.Getenv("TOKEN_SECRET"),
		LogFile:        env("LOG_FILE", "./mobilestore.log"),
		APITimeout:     duration("API_TIMEOUT", 15*time.Second),
		SearchDebounce: duration("SEARCH_DEBOUNCE", 300*time.Millisecond),
		PageSize:       number("PAGE_SIZE", 12),
		AdminPageSize:  number("ADMIN_PAGE_SIZE", 20),
	}
	switch cfg.TokenStore {
	case "sqlite", "memory", "redis":
	default:
		log.Printf("[config] unknown TOKEN_STORE=%q, using sqlite", cfg.TokenStore)
		cfg.TokenStore = "sqlite"
	}

	sealed := "off"
	if cfg.TokenSecret != "" {
		sealed = "on"
	}
	log.Printf("[config] PORT=%s API_BASE_URL=%s TOKEN_STORE=%s DB_DSN=%s SEALED=%s LOG_FILE=%s API_TIMEOUT=%s",
		cfg.Port, cfg.APIBaseURL, cfg.TokenStore, cfg.DBDSN, sealed, cfg.LogFile, cfg.APITimeout)
	return cfg
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

func number(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}
