package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"librarycatalog/internal/ratelimit"
	"librarycatalog/pkg/storage"
	"librarycatalog/pkg/store"
	"librarycatalog/services/client/internal/apiclient"
	"librarycatalog/services/client/internal/catalog"
	"librarycatalog/services/client/internal/config"
	"librarycatalog/services/client/internal/gate"
	"librarycatalog/services/client/internal/loans"
	"librarycatalog/services/client/internal/session"
)

// Config holds runtime configuration for the client application.
type Config struct {
	APIBaseURL               string
	RequestTimeout           time.Duration
	RequestsPerSecond        float64
	SharedRateLimitPerMinute int
	PageSize                 int
	GenresPath               string
	GenresFallbackPath       string

	SessionBackend string
	SessionDir     string
	SessionProfile string
	SessionKey     string
	RedisAddr      string
	RedisPassword  string
	DatabaseURL    string

	CoverDir       string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioUseSSL    bool

	// Store replaces the configured session backend when set.
	Store     store.KV
	Transport http.RoundTripper
	Confirmer loans.Confirmer
	Logger    *slog.Logger
}

// ConfigFromFile maps the loaded file config onto Config.
func ConfigFromFile(fc config.FileConfig) (Config, error) {
	timeout, err := config.ParseRequestTimeout(fc.RequestTimeout)
	if err != nil {
		return Config{}, err
	}
	if timeout == 0 {
		timeout = -1
	}
	return Config{
		APIBaseURL:               fc.APIBaseURL,
		RequestTimeout:           timeout,
		RequestsPerSecond:        fc.RequestsPerSecond,
		SharedRateLimitPerMinute: fc.SharedRateLimitPerMinute,
		PageSize:                 fc.PageSize,
		GenresPath:               fc.GenresPath,
		GenresFallbackPath:       fc.GenresFallbackPath,
		SessionBackend:           fc.SessionBackend,
		SessionDir:               fc.SessionDir,
		SessionProfile:           fc.SessionProfile,
		SessionKey:               fc.SessionKey,
		RedisAddr:                fc.RedisAddr,
		RedisPassword:            fc.RedisPassword,
		DatabaseURL:              fc.DatabaseURL,
		CoverDir:                 fc.CoverDir,
		MinioEndpoint:            fc.MinioEndpoint,
		MinioAccessKey:           fc.MinioAccessKey,
		MinioSecretKey:           fc.MinioSecretKey,
		MinioUseSSL:              fc.MinioUseSSL,
	}, nil
}

// App wires the session, gate, catalog and loan components over one API client.
type App struct {
	API     *apiclient.Client
	Session *session.Store
	Gate    *gate.Gate
	Catalog *catalog.Engine
	Loans   *loans.Workflow

	logger  *slog.Logger
	closers []func() error
}

// New builds the application and restores the persisted session. A restore
// failure is logged and the client starts logged out.
func New(ctx context.Context, cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{logger: logger}

	kv := cfg.Store
	if kv == nil {
		var err error
		kv, err = newSessionKV(cfg)
		if err != nil {
			return nil, err
		}
		if c, ok := kv.(store.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	limiter, err := a.newLimiter(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	covers, err := newCoverResolver(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.API = apiclient.NewClient(cfg.APIBaseURL, apiclient.Options{
		Timeout:            cfg.RequestTimeout,
		Limiter:            limiter,
		Transport:          cfg.Transport,
		GenresPath:         cfg.GenresPath,
		GenresFallbackPath: cfg.GenresFallbackPath,
	})
	a.Session = session.NewStore(kv, a.API, logger.With("component", "session"))
	if err := a.Session.Restore(ctx); err != nil {
		logger.Warn("session restore failed", "err", err)
	}
	a.Gate = gate.New(a.Session, logger.With("component", "gate"))
	a.Catalog = catalog.NewEngine(a.API, a.Session, covers, cfg.PageSize, logger.With("component", "catalog"))
	a.Loans = loans.NewWorkflow(a.API, a.Session, cfg.Confirmer, a.Catalog, logger.With("component", "loans"))
	return a, nil
}

// Close releases backend connections.
func (a *App) Close() error {
	if a.Gate != nil {
		a.Gate.Close()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func newSessionKV(cfg Config) (store.KV, error) {
	var (
		kv  store.KV
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.SessionBackend)) {
	case "", config.BackendFile:
		kv, err = store.NewFileStore(cfg.SessionDir, cfg.SessionProfile)
	case config.BackendRedis:
		kv, err = store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionProfile)
	case config.BackendPostgres:
		kv, err = store.NewGormStore(cfg.DatabaseURL, cfg.SessionProfile)
	case config.BackendMemory:
		kv = store.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s session store: %w", cfg.SessionBackend, err)
	}
	if strings.TrimSpace(cfg.SessionKey) == "" {
		return kv, nil
	}
	key, err := store.ParseKey(cfg.SessionKey)
	if err != nil {
		closeKV(kv)
		return nil, fmt.Errorf("session key: %w", err)
	}
	return sealKV(kv, key)
}

// sealKV wraps kv with at-rest sealing. kv is closed when sealing cannot start.
func sealKV(kv store.KV, key []byte) (store.KV, error) {
	sealed, err := store.NewSealedStore(kv, key)
	if err != nil {
		closeKV(kv)
		return nil, fmt.Errorf("session key: %w", err)
	}
	return sealed, nil
}

func closeKV(kv store.KV) {
	if c, ok := kv.(store.Closer); ok {
		_ = c.Close()
	}
}

func (a *App) newLimiter(cfg Config) (ratelimit.Limiter, error) {
	chain := ratelimit.Chain{}
	if bucket := ratelimit.NewTokenBucket(cfg.RequestsPerSecond, 1); bucket != nil {
		chain = append(chain, bucket)
	}
	if cfg.SharedRateLimitPerMinute > 0 {
		shared, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.SessionProfile, cfg.SharedRateLimitPerMinute, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init shared rate limit: %w", err)
		}
		a.closers = append(a.closers, shared.Close)
		chain = append(chain, shared)
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

func newCoverResolver(cfg Config) (*storage.Resolver, error) {
	var remote storage.ObjectReader
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		minioStore, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioUseSSL)
		if err != nil {
			return nil, err
		}
		remote = minioStore
	}
	return storage.NewResolver(storage.NewFileStore(cfg.CoverDir), remote), nil
}
