package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is read when no -config flag is given. It may be absent.
const ConfigPath = "config.yaml"

// Session backends.
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	APIBaseURL               string  `yaml:"apiBaseURL"`
	LogLevel                 string  `yaml:"logLevel"`
	RequestTimeout           string  `yaml:"requestTimeout"`
	RequestsPerSecond        float64 `yaml:"requestsPerSecond"`
	SharedRateLimitPerMinute int     `yaml:"sharedRateLimitPerMinute"`
	PageSize                 int     `yaml:"pageSize"`
	GenresPath               string  `yaml:"genresPath"`
	GenresFallbackPath       string  `yaml:"genresFallbackPath"`
	SessionBackend           string  `yaml:"sessionBackend"`
	SessionDir               string  `yaml:"sessionDir"`
	SessionProfile           string  `yaml:"sessionProfile"`
	SessionKey               string  `yaml:"sessionKey"`
	RedisAddr                string  `yaml:"redisAddr"`
	RedisPassword            string  `yaml:"redisPassword"`
	DatabaseURL              string  `yaml:"databaseURL"`
	CoverDir                 string  `yaml:"coverDir"`
	MinioEndpoint            string  `yaml:"minioEndpoint"`
	MinioAccessKey           string  `yaml:"minioAccessKey"`
	MinioSecretKey           string  `yaml:"minioSecretKey"`
	MinioUseSSL              bool    `yaml:"minioUseSSL"`
}

// LoadDotEnv loads KEY=VALUE pairs from path into the environment without
// overriding variables already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads config from path. With an empty path ConfigPath is tried and
// defaults apply when it does not exist; an explicit path must exist.
// Environment variables override file values.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	explicit := path != ""
	if !explicit {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString("LIBCAT_API_BASE_URL", &cfg.APIBaseURL)
	setString("LIBCAT_LOG_LEVEL", &cfg.LogLevel)
	setString("LIBCAT_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	setString("LIBCAT_GENRES_PATH", &cfg.GenresPath)
	setString("LIBCAT_GENRES_FALLBACK_PATH", &cfg.GenresFallbackPath)
	setString("LIBCAT_SESSION_BACKEND", &cfg.SessionBackend)
	setString("LIBCAT_SESSION_DIR", &cfg.SessionDir)
	setString("LIBCAT_SESSION_PROFILE", &cfg.SessionProfile)
	setString("LIBCAT_SESSION_KEY", &cfg.SessionKey)
	setString("LIBCAT_COVER_DIR", &cfg.CoverDir)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("DATABASE_URL", &cfg.DatabaseURL)
	setString("MINIO_ENDPOINT", &cfg.MinioEndpoint)
	setString("MINIO_ACCESS_KEY", &cfg.MinioAccessKey)
	setString("MINIO_SECRET_KEY", &cfg.MinioSecretKey)
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("LIBCAT_REQUESTS_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			cfg.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("LIBCAT_SHARED_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SharedRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("LIBCAT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.PageSize = n
		}
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warn"
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 12
	}
	if cfg.GenresPath == "" {
		cfg.GenresPath = "/genres"
	}
	if cfg.GenresFallbackPath == "" {
		cfg.GenresFallbackPath = "/genre"
	}
	cfg.SessionBackend = strings.ToLower(strings.TrimSpace(cfg.SessionBackend))
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = BackendFile
	}
	if cfg.SessionProfile == "" {
		cfg.SessionProfile = "default"
	}
	if cfg.SessionDir == "" {
		cfg.SessionDir = defaultSessionDir()
	}
}

func defaultSessionDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, "libcat")
	}
	return ".libcat"
}

func validateConfig(cfg FileConfig) error {
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("config: apiBaseURL must be an http(s) URL (set in config.yaml or LIBCAT_API_BASE_URL)")
	}
	if _, err := ParseRequestTimeout(cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.PageSize < 1 {
		return errors.New("config: pageSize must be >= 1")
	}
	if cfg.RequestsPerSecond < 0 || cfg.SharedRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if !strings.HasPrefix(cfg.GenresPath, "/") || !strings.HasPrefix(cfg.GenresFallbackPath, "/") {
		return errors.New("config: genre paths must start with /")
	}
	switch cfg.SessionBackend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis session backend")
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: databaseURL is required for the postgres session backend")
		}
	default:
		return fmt.Errorf("config: unknown sessionBackend %q (file, redis, postgres, memory)", cfg.SessionBackend)
	}
	if cfg.SharedRateLimitPerMinute > 0 && strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for sharedRateLimitPerMinute")
	}
	if cfg.MinioEndpoint != "" && (cfg.MinioAccessKey == "" || cfg.MinioSecretKey == "") {
		return errors.New("config: minioAccessKey and minioSecretKey are required with minioEndpoint")
	}
	return nil
}

// ParseRequestTimeout parses the request timeout. Empty means 10s; zero
// disables the client timeout.
func ParseRequestTimeout(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 10 * time.Second, nil
	}
	if value == "0" {
		return 0, nil
	}
	dur, err := time.ParseDuration(value)
	if err != nil || dur < 0 {
		return 0, fmt.Errorf("invalid requestTimeout duration: %q", value)
	}
	return dur, nil
}
