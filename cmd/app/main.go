package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/logging"
	"github.com/atvirokodosprendimai/licenseapi/internal/adapters/security"
	"github.com/atvirokodosprendimai/licenseapi/internal/app"
	"github.com/atvirokodosprendimai/licenseapi/internal/core/usecase"
)

func main() {
	// A missing .env is fine; real environment variables still apply.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "licenseapi",
		Usage: "Multi-tenant license key authentication service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./licenseapi.sqlite",
				Sources: cli.EnvVars("LICENSEAPI_DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "log-env",
				Value:   "dev",
				Sources: cli.EnvVars("LICENSEAPI_LOG_ENV"),
				Usage:   "Log encoding: dev (console) or prod (JSON)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: cli.EnvVars("LICENSEAPI_LOG_LEVEL"),
				Usage:   "Minimum log level",
			},
			&cli.IntFlag{
				Name:    "bcrypt-cost",
				Value:   security.DefaultBcryptCost,
				Sources: cli.EnvVars("LICENSEAPI_BCRYPT_COST"),
				Usage:   "bcrypt work factor for stored passwords",
			},
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			createAdminCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(c *cli.Command) (*zap.Logger, error) {
	return logging.New(logging.Config{Env: c.String("log-env"), Level: c.String("log-level")})
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("LICENSEAPI_ADDR"),
				Usage:   "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "jwt-secret",
				Sources: cli.EnvVars("LICENSEAPI_JWT_SECRET", "JWT_SECRET"),
				Usage:   "HMAC secret for dashboard bearer tokens",
			},
			&cli.DurationFlag{
				Name:    "token-ttl",
				Value:   security.DefaultTokenTTL,
				Sources: cli.EnvVars("LICENSEAPI_TOKEN_TTL"),
				Usage:   "Lifetime of dashboard bearer tokens",
			},
			&cli.FloatFlag{
				Name:    "rate-limit",
				Value:   10,
				Sources: cli.EnvVars("LICENSEAPI_RATE_LIMIT"),
				Usage:   "Public API requests per second per client IP (0 disables)",
			},
			&cli.IntFlag{
				Name:    "rate-burst",
				Value:   20,
				Sources: cli.EnvVars("LICENSEAPI_RATE_BURST"),
				Usage:   "Public API burst size per client IP",
			},
		},
		Action: serve,
	}
}

func serve(ctx context.Context, c *cli.Command) error {
	log, err := newLogger(c)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	cfg := app.Config{
		Addr:       c.String("addr"),
		DBPath:     c.String("db-path"),
		JWTSecret:  c.String("jwt-secret"),
		TokenTTL:   c.Duration("token-ttl"),
		BcryptCost: int(c.Int("bcrypt-cost")),
		RateLimit:  c.Float("rate-limit"),
		RateBurst:  int(c.Int("rate-burst")),
	}

	server, closer, err := app.NewServer(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			log.Error("close resources", zap.Error(closeErr))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBPath))
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		return shutdown(server)
	case sig := <-sigCh:
		log.Info("received signal", zap.String("signal", sig.String()))
		return shutdown(server)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending database migrations",
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := newLogger(c)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			version, err := app.Migrate(ctx, c.String("db-path"), log)
			if err != nil {
				return err
			}
			log.Info("schema up to date", zap.Int64("version", version))
			return nil
		},
	}
}

func createAdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "create-admin",
		Usage: "Create an administrator account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "Admin email"},
			&cli.StringFlag{Name: "username", Required: true, Usage: "Admin username"},
			&cli.StringFlag{
				Name:     "password",
				Required: true,
				Sources:  cli.EnvVars("LICENSEAPI_ADMIN_PASSWORD"),
				Usage:    "Admin password",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			log, err := newLogger(c)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			account, err := app.CreateAdmin(ctx, app.Config{
				DBPath:     c.String("db-path"),
				BcryptCost: int(c.Int("bcrypt-cost")),
			}, log, usecase.SignUpInput{
				Email:    c.String("email"),
				Username: c.String("username"),
				Password: c.String("password"),
			})
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			log.Info("admin created", zap.Int64("id", account.ID), zap.String("username", account.Username))
			return nil
		},
	}
}
