package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	InboxDir  string
	OutputDir string

	DefaultFolder    string
	QuantityFallback int
	ImportMaxBytes   int64
	SkipDetailLimit  int

	ScryfallAPIBaseURL   string
	ScryfallRateLimitRPS int
	ScryfallTimeoutMs    int

	WatcherIntervalSec   int
	WatcherBatchMax      int
	WatcherOwner         string
	WatcherWriteSummary  bool
	WatcherDeleteHandled bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "vault.db")),
		InboxDir:  getEnv("IMPORT_INBOX_DIR", filepath.Join(cwd, "data", "inbox")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		DefaultFolder:    getEnv("IMPORT_DEFAULT_FOLDER", "Unsorted"),
		QuantityFallback: getEnvInt("IMPORT_QUANTITY_FALLBACK", 1),
		ImportMaxBytes:   int64(getEnvInt("IMPORT_MAX_BYTES", 10*1024*1024)),
		SkipDetailLimit:  getEnvInt("IMPORT_SKIP_DETAIL_LIMIT", 50),

		ScryfallAPIBaseURL:   getEnv("SCRYFALL_API_BASE_URL", "https://api.scryfall.com"),
		ScryfallRateLimitRPS: getEnvInt("SCRYFALL_RATE_LIMIT_RPS", 8),
		ScryfallTimeoutMs:    getEnvInt("SCRYFALL_TIMEOUT_MS", 60000),

		WatcherIntervalSec:   getEnvInt("WATCHER_INTERVAL_SEC", 30),
		WatcherBatchMax:      getEnvInt("WATCHER_BATCH_MAX", 10),
		WatcherOwner:         getEnv("WATCHER_OWNER", ""),
		WatcherWriteSummary:  getEnvBool("WATCHER_WRITE_SUMMARY", true),
		WatcherDeleteHandled: getEnvBool("WATCHER_DELETE_HANDLED", false),
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
