package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via config files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	JWTExpireHours     int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Feed reads require a bearer token when true; anonymous browsing otherwise
	FeedRequiresAuth bool
	// Gin framework configuration
	GinMode string
	GinPath string
	// Storage backend: mysql, mongo or memory
	StoreDriver string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	MongoURI    string
	MongoDB     string
	// Redis for preview metadata cache and token blacklist
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Static assets (previews, avatars, uploads)
	AssetsDir   string
	UploadMaxMB int
	// Link preview pipeline
	PreviewStrategy    string
	PreviewTimeoutSec  int
	PreviewWorkers     int
	PreviewMaxImageMB  int
	PreviewThumbWidth  int
	PreviewUserAgent   string
	PreviewCacheTTLMin int
	ChromePath         string
	ScreenshotWidth    int
	ScreenshotHeight   int
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
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

// Set replaces the cached configuration. Tests use it to avoid touching the filesystem.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads a grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) (bool, bool) {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b, true
			}
		}
		return false, false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.JWTExpireHours = getInt(app, "JWTExpireHours")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		if list := getStringSlice(app, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		out.FeedRequiresAuth, _ = getBool(app, "FeedRequiresAuth")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if st, ok := raw["store"].(map[string]any); ok {
		out.StoreDriver = getString(st, "Driver")
		out.DatabaseURI = getString(st, "DatabaseURI")
		out.DBHost = getString(st, "DBHost")
		out.DBPort = getString(st, "DBPort")
		out.DBUser = getString(st, "DBUser")
		out.DBPassword = getString(st, "DBPassword")
		out.DBName = getString(st, "DBName")
		out.MongoURI = getString(st, "MongoURI")
		out.MongoDB = getString(st, "MongoDB")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress, _ = getBool(lg, "Compress")
	}

	if as, ok := raw["assets"].(map[string]any); ok {
		out.AssetsDir = getString(as, "Dir")
		out.UploadMaxMB = getInt(as, "UploadMaxMB")
	}

	if pv, ok := raw["preview"].(map[string]any); ok {
		out.PreviewStrategy = getString(pv, "Strategy")
		out.PreviewTimeoutSec = getInt(pv, "TimeoutSec")
		out.PreviewWorkers = getInt(pv, "Workers")
		out.PreviewMaxImageMB = getInt(pv, "MaxImageMB")
		out.PreviewThumbWidth = getInt(pv, "ThumbWidth")
		out.PreviewUserAgent = getString(pv, "UserAgent")
		out.PreviewCacheTTLMin = getInt(pv, "CacheTTLMin")
		out.ChromePath = getString(pv, "ChromePath")
		out.ScreenshotWidth = getInt(pv, "ScreenshotWidth")
		out.ScreenshotHeight = getInt(pv, "ScreenshotHeight")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "6001"
	}
	if c.JWTExpireHours == 0 {
		c.JWTExpireHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "linkfeed"
	}
	if c.MongoURI == "" {
		c.MongoURI = "mongodb://127.0.0.1:27017"
	}
	if c.MongoDB == "" {
		c.MongoDB = "linkfeed"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
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
	if c.AssetsDir == "" {
		c.AssetsDir = filepath.Join("public", "assets")
	}
	if c.UploadMaxMB == 0 {
		c.UploadMaxMB = 30
	}
	if c.PreviewStrategy == "" {
		c.PreviewStrategy = "opengraph"
	}
	if c.PreviewTimeoutSec == 0 {
		c.PreviewTimeoutSec = 12
	}
	if c.PreviewWorkers == 0 {
		c.PreviewWorkers = 4
	}
	if c.PreviewMaxImageMB == 0 {
		c.PreviewMaxImageMB = 10
	}
	if c.PreviewThumbWidth == 0 {
		c.PreviewThumbWidth = 800
	}
	if c.PreviewUserAgent == "" {
		c.PreviewUserAgent = "LinkfeedBot/1.0"
	}
	if c.PreviewCacheTTLMin == 0 {
		c.PreviewCacheTTLMin = 24 * 60
	}
	if c.ScreenshotWidth == 0 {
		c.ScreenshotWidth = 1280
	}
	if c.ScreenshotHeight == 0 {
		c.ScreenshotHeight = 800
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("JWT_EXPIRE_HOURS", ""); v != "" {
		c.JWTExpireHours = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("FEED_REQUIRES_AUTH", ""); v != "" {
		c.FeedRequiresAuth = v == "true"
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("STORE_DRIVER", ""); v != "" {
		c.StoreDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("MONGO_URI", ""); v != "" {
		c.MongoURI = v
	}
	if v := getEnv("MONGO_DB", ""); v != "" {
		c.MongoDB = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("ASSETS_DIR", ""); v != "" {
		c.AssetsDir = v
	}
	if v := getEnv("UPLOAD_MAX_MB", ""); v != "" {
		c.UploadMaxMB = mustParseInt(v)
	}
	if v := getEnv("PREVIEW_STRATEGY", ""); v != "" {
		c.PreviewStrategy = strings.ToLower(v)
	}
	if v := getEnv("PREVIEW_TIMEOUT_SEC", ""); v != "" {
		c.PreviewTimeoutSec = mustParseInt(v)
	}
	if v := getEnv("PREVIEW_WORKERS", ""); v != "" {
		c.PreviewWorkers = mustParseInt(v)
	}
	if v := getEnv("PREVIEW_MAX_IMAGE_MB", ""); v != "" {
		c.PreviewMaxImageMB = mustParseInt(v)
	}
	if v := getEnv("PREVIEW_THUMB_WIDTH", ""); v != "" {
		c.PreviewThumbWidth = mustParseInt(v)
	}
	if v := getEnv("PREVIEW_USER_AGENT", ""); v != "" {
		c.PreviewUserAgent = v
	}
	if v := getEnv("PREVIEW_CACHE_TTL_MIN", ""); v != "" {
		c.PreviewCacheTTLMin = mustParseInt(v)
	}
	if v := getEnv("CHROME_PATH", ""); v != "" {
		c.ChromePath = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
