package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/security"
	sqliteadapter "github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/domain"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/licenseapi/migrations"
)

var ErrMissingJWTSecret = errors.New("jwt secret is required")

type Config struct {
	Addr       string
	DBPath     string
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
	// RateLimit caps public API calls per second per client IP; zero disables it.
	RateLimit float64
	RateBurst int
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// openDB opens the database and brings its schema up to date.
func openDB(ctx context.Context, path string, log *zap.Logger) (*gormsqlite.DB, error) {
	db, err := gormsqlite.Open(path, log)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func buildServices(repos sqliteadapter.Repositories, cfg Config) (httpapi.Services, error) {
	if cfg.JWTSecret == "" {
		return httpapi.Services{}, ErrMissingJWTSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = security.DefaultTokenTTL
	}
	tokens, err := security.NewJWTIssuer(cfg.JWTSecret, ttl)
	if err != nil {
		return httpapi.Services{}, err
	}
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	keys := security.NewKeyGenerator()

	return httpapi.Services{
		Client:       usecase.NewClientService(repos.Applications, repos.Licenses, repos.Settings, repos.Logs, hasher),
		Auth:         usecase.NewAuthService(repos.Accounts, hasher, tokens),
		Applications: usecase.NewApplicationService(repos.Applications, repos.Settings, keys),
		Licenses:     usecase.NewLicenseService(repos.Applications, repos.Licenses, keys),
		EndUsers:     usecase.NewEndUserService(repos.Applications, repos.Licenses, hasher, keys),
		Settings:     usecase.NewSettingsService(repos.Applications, repos.Settings),
		Audit:        usecase.NewAuditService(repos.Applications, repos.Logs),
		Admin:        usecase.NewAdminService(repos.Accounts, repos.Applications, repos.Licenses, repos.Logs, repos.Stats),
	}, nil
}

func newRegistry(db *gormsqlite.DB) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	readSQLDB, err := db.R.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve reader sql db: %w", err)
	}
	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}
	reg.MustRegister(
		collectors.NewDBStatsCollector(readSQLDB, "reader"),
		collectors.NewDBStatsCollector(writeSQLDB, "writer"),
	)
	return reg, nil
}

func NewServer(ctx context.Context, cfg Config, log *zap.Logger) (*http.Server, io.Closer, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := openDB(ctx, cfg.DBPath, log)
	if err != nil {
		return nil, nil, err
	}

	services, err := buildServices(sqliteadapter.NewRepositories(db), cfg)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	reg, err := newRegistry(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	metrics, err := httpapi.NewMetrics(reg)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	handler, err := httpapi.NewHandler(services, httpapi.Options{
		Logger:    log.Named("http"),
		Metrics:   metrics,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Health:    db.Ping,
	})
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(log.Named("http.server")),
	}

	return server, resourceCloser{closers: []io.Closer{db}}, nil
}

// Migrate applies pending migrations and reports the resulting version.
func Migrate(ctx context.Context, dbPath string, log *zap.Logger) (int64, error) {
	db, err := openDB(ctx, dbPath, log)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		return 0, fmt.Errorf("resolve writer sql db: %w", err)
	}
	return migrations.Version(ctx, writeSQLDB)
}

// CreateAdmin provisions an administrator account. Accounts created through
// the dashboard are always plain users.
func CreateAdmin(ctx context.Context, cfg Config, log *zap.Logger, in usecase.SignUpInput) (domain.Account, error) {
	db, err := openDB(ctx, cfg.DBPath, log)
	if err != nil {
		return domain.Account{}, err
	}
	defer db.Close()

	auth := usecase.NewAuthService(sqliteadapter.NewAccountRepository(db), security.NewBcryptHasher(cfg.BcryptCost), nil)
	return auth.CreateAdmin(ctx, in)
}
