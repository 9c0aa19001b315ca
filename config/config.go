package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds configuration for the blog service. Secrets have no
// in-code defaults and must come from the config file or the environment.
type AppConfig struct {
	AppPort       string
	BaseURL       string
	SessionSecret string
	SessionTTLH   int

	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string

	// Redis is optional; an empty host disables caching, registration
	// throttling and shared token revocation.
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	GitHubClientID     string
	GitHubClientSecret string
	GoogleClientID     string
	GoogleClientSecret string

	PostsPerPage int
	MediaRoot    string
	MaxUploadMB  int

	CSRFEnabled        bool
	RateLimitPerMinute int
	AllowedOrigins     []string
	CacheTTLSeconds    int

	RegisterAttemptCooldownSec    int
	RegisterMaxPerIPPerDay        int
	RegisterFailedMaxPerIPPerHour int
	RegisterTempBanMinutes        int

	GinMode string
	GinPath string

	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads config/config.json, fills defaults, then applies environment
// variable overrides. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	cfg.CSRFEnabled = true
	_ = loadJSONConfig(filepath.Join("config", "config.json"), &cfg)
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Tests use it to run without a
// config file or environment.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8000"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:" + c.AppPort
	}
	if c.SessionTTLH == 0 {
		c.SessionTTLH = 72
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "blogicum"
	}
	if c.DBName == "" {
		c.DBName = "blogicum"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.PostsPerPage == 0 {
		c.PostsPerPage = 10
	}
	if c.MediaRoot == "" {
		c.MediaRoot = "media"
	}
	if c.MaxUploadMB == 0 {
		c.MaxUploadMB = 5
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.CacheTTLSeconds == 0 {
		c.CacheTTLSeconds = 300
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 10
	}
	if c.RegisterFailedMaxPerIPPerHour == 0 {
		c.RegisterFailedMaxPerIPPerHour = 20
	}
	if c.RegisterTempBanMinutes == 0 {
		c.RegisterTempBanMinutes = 60
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// loadJSONConfig reads a flat JSON object into out if the file exists.
// Keys match the env names below, e.g. {"APP_PORT": "8000"}.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // missing file is fine
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}
	for key, value := range raw {
		assign(out, key, toString(value))
	}
	return nil
}

func applyEnvOverrides(c *AppConfig) {
	for _, key := range configKeys {
		if val := os.Getenv(key); val != "" {
			assign(c, key, val)
		}
	}
}

var configKeys = []string{
	"APP_PORT", "BASE_URL", "SESSION_SECRET", "SESSION_TTL_HOURS",
	"DATABASE_URI", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME",
	"REDIS_HOST", "REDIS_PORT", "REDIS_DB", "REDIS_PASSWORD",
	"GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET",
	"POSTS_PER_PAGE", "MEDIA_ROOT", "MAX_UPLOAD_MB",
	"CSRF_ENABLED", "RATE_LIMIT_PER_MINUTE", "ALLOWED_ORIGINS", "CACHE_TTL_SECONDS",
	"REGISTER_ATTEMPT_COOLDOWN_SEC", "REGISTER_MAX_PER_IP_PER_DAY",
	"REGISTER_FAILED_MAX_PER_IP_PER_HOUR", "REGISTER_TEMP_BAN_MINUTES",
	"GIN_MODE", "GIN_LOG_PATH",
	"LOG_LEVEL", "LOG_PATH", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS", "LOG_COMPRESS",
}

func assign(c *AppConfig, key, val string) {
	switch key {
	case "APP_PORT":
		c.AppPort = val
	case "BASE_URL":
		c.BaseURL = val
	case "SESSION_SECRET":
		c.SessionSecret = val
	case "SESSION_TTL_HOURS":
		c.SessionTTLH = atoi(val, c.SessionTTLH)
	case "DATABASE_URI":
		c.DatabaseURI = val
	case "DB_HOST":
		c.DBHost = val
	case "DB_PORT":
		c.DBPort = val
	case "DB_USER":
		c.DBUser = val
	case "DB_PASSWORD":
		c.DBPassword = val
	case "DB_NAME":
		c.DBName = val
	case "REDIS_HOST":
		c.RedisHost = val
	case "REDIS_PORT":
		c.RedisPort = atoi(val, c.RedisPort)
	case "REDIS_DB":
		c.RedisDB = atoi(val, c.RedisDB)
	case "REDIS_PASSWORD":
		c.RedisPassword = val
	case "GITHUB_CLIENT_ID":
		c.GitHubClientID = val
	case "GITHUB_CLIENT_SECRET":
		c.GitHubClientSecret = val
	case "GOOGLE_CLIENT_ID":
		c.GoogleClientID = val
	case "GOOGLE_CLIENT_SECRET":
		c.GoogleClientSecret = val
	case "POSTS_PER_PAGE":
		c.PostsPerPage = atoi(val, c.PostsPerPage)
	case "MEDIA_ROOT":
		c.MediaRoot = val
	case "MAX_UPLOAD_MB":
		c.MaxUploadMB = atoi(val, c.MaxUploadMB)
	case "CSRF_ENABLED":
		c.CSRFEnabled = parseBool(val, c.CSRFEnabled)
	case "RATE_LIMIT_PER_MINUTE":
		c.RateLimitPerMinute = atoi(val, c.RateLimitPerMinute)
	case "ALLOWED_ORIGINS":
		c.AllowedOrigins = splitCSV(val)
	case "CACHE_TTL_SECONDS":
		c.CacheTTLSeconds = atoi(val, c.CacheTTLSeconds)
	case "REGISTER_ATTEMPT_COOLDOWN_SEC":
		c.RegisterAttemptCooldownSec = atoi(val, c.RegisterAttemptCooldownSec)
	case "REGISTER_MAX_PER_IP_PER_DAY":
		c.RegisterMaxPerIPPerDay = atoi(val, c.RegisterMaxPerIPPerDay)
	case "REGISTER_FAILED_MAX_PER_IP_PER_HOUR":
		c.RegisterFailedMaxPerIPPerHour = atoi(val, c.RegisterFailedMaxPerIPPerHour)
	case "REGISTER_TEMP_BAN_MINUTES":
		c.RegisterTempBanMinutes = atoi(val, c.RegisterTempBanMinutes)
	case "GIN_MODE":
		c.GinMode = val
	case "GIN_LOG_PATH":
		c.GinPath = val
	case "LOG_LEVEL":
		c.LogLevel = val
	case "LOG_PATH":
		c.LogPath = val
	case "LOG_MAX_SIZE_MB":
		c.LogMaxSizeMB = atoi(val, c.LogMaxSizeMB)
	case "LOG_MAX_BACKUPS":
		c.LogMaxBackups = atoi(val, c.LogMaxBackups)
	case "LOG_MAX_AGE_DAYS":
		c.LogMaxAgeDays = atoi(val, c.LogMaxAgeDays)
	case "LOG_COMPRESS":
		c.LogCompress = parseBool(val, c.LogCompress)
	}
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return def
}

func parseBool(s string, def bool) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		return b
	}
	return def
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
