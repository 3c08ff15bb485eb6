package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tendant/chi-demo/app"
	"golang.org/x/sync/errgroup"

	"github.com/tendant/simple-mfa/pkg/audit"
	"github.com/tendant/simple-mfa/pkg/clock"
	"github.com/tendant/simple-mfa/pkg/config"
	"github.com/tendant/simple-mfa/pkg/delivery"
	"github.com/tendant/simple-mfa/pkg/directory"
	"github.com/tendant/simple-mfa/pkg/mfa"
	"github.com/tendant/simple-mfa/pkg/mfa/api"
	"github.com/tendant/simple-mfa/pkg/notification"
	"github.com/tendant/simple-mfa/pkg/passcode"
	"github.com/tendant/simple-mfa/pkg/ratelimit"
)

type Config struct {
	Passcode  config.PasscodeConfig
	RateLimit config.RateLimitConfig
	Database  config.DatabaseConfig
	Redis     config.RedisConfig
	Email     config.EmailConfig
	Twilio    config.TwilioConfig
	Log       config.LogConfig
}

func loadEnvFile() {
	envFile := ".env"
	if cwd, err := os.Getwd(); err == nil {
		envFile = filepath.Join(cwd, ".env")
	}
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		slog.Debug("No .env file found, using environment", "path", envFile)
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		slog.Error("Failed to load .env file", "err", err, "path", envFile)
		return
	}
	slog.Info("Configuration loaded from .env file", "path", envFile)
}

func (c Config) Validate() error {
	return config.Validate(
		validatorOf(c.Passcode.Validate),
		validatorOf(c.RateLimit.Validate),
		validatorOf(c.Email.Validate),
		validatorOf(func() error { return config.ValidateTransports(config.GetEnvironment(), c.Email) }),
		func() config.ValidationErrors {
			switch c.Passcode.Persistence {
			case "postgres", "postgresql":
				return asValidationErrors(c.Database.Validate())
			case "redis":
				return asValidationErrors(c.Redis.Validate())
			}
			return nil
		},
	)
}

func validatorOf(validate func() error) config.Validator {
	return func() config.ValidationErrors {
		return asValidationErrors(validate())
	}
}

func asValidationErrors(err error) config.ValidationErrors {
	if err == nil {
		return nil
	}
	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return verrs
	}
	return config.ValidationErrors{{Field: "config", Message: err.Error()}}
}

// newRepository opens the backing store selected by MFA_PERSISTENCE. The
// returned cleanup closes whatever connection was opened.
func newRepository(ctx context.Context, cfg Config) (passcode.Repository, func(), error) {
	repoConfig := passcode.RepositoryConfig{
		DataDir:     cfg.Passcode.DataDir,
		RedisPrefix: cfg.Redis.Prefix,
	}
	cleanup := func() {}

	switch cfg.Passcode.Persistence {
	case "postgres", "postgresql":
		pool, err := pgxpool.New(ctx, cfg.Database.ToDatabaseURL())
		if err != nil {
			return nil, nil, fmt.Errorf("create db pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		repoConfig.Pool = pool
		cleanup = pool.Close
	case "redis":
		rdb := redis.NewClient(cfg.Redis.ToOptions())
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		repoConfig.Redis = rdb
		cleanup = func() { _ = rdb.Close() }
	}

	repo, err := passcode.NewRepository(cfg.Passcode.Persistence, repoConfig)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return repo, cleanup, nil
}

func newNotificationManager(cfg Config, logger *slog.Logger) (*notification.NotificationManager, error) {
	opts := []notification.NotificationManagerOption{notification.WithDefaultTemplates()}

	if cfg.Email.IsConfigured() {
		opts = append(opts, notification.WithSMTP(cfg.Email.ToSMTPConfig()))
	} else {
		logger.Warn("EMAIL_HOST not set, email passcodes will only be logged")
	}
	if cfg.Twilio.IsConfigured() {
		opts = append(opts, notification.WithTwilio(cfg.Twilio.ToNotificationTwilioConfig()))
	} else if config.IsProduction() {
		logger.Error("Twilio not configured in production, SMS passcodes will only be logged")
	} else {
		logger.Warn("Twilio not configured, SMS passcodes will only be logged")
	}

	return notification.NewNotificationManagerWithOptions(opts...)
}

func newDirectory(path string) (*directory.InMemoryDirectory, error) {
	if path == "" {
		return directory.NewInMemoryDirectory(), nil
	}
	return directory.NewFileDirectory(path)
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
	slog.SetDefault(logger)

	loadEnvFile()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		slog.Error("Failed to read configuration", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "err", err)
		os.Exit(1)
	}

	env := config.GetEnvironment()
	logger = cfg.Log.NewLogger(os.Stdout, env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := newRepository(ctx, cfg)
	if err != nil {
		slog.Error("Failed creating passcode repository", "persistence", cfg.Passcode.Persistence, "err", err)
		os.Exit(1)
	}
	defer closeRepo()

	manager, err := newNotificationManager(cfg, logger)
	if err != nil {
		slog.Error("Failed creating notification manager", "err", err)
		os.Exit(1)
	}

	deliveryConfig, err := cfg.Passcode.DeliveryConfig()
	if err != nil {
		slog.Error("Invalid delivery configuration", "err", err)
		os.Exit(1)
	}
	dispatcher, err := delivery.NewDispatcher(manager, deliveryConfig, logger)
	if err != nil {
		slog.Error("Failed creating dispatcher", "err", err)
		os.Exit(1)
	}

	users, err := newDirectory(cfg.Passcode.UsersFile)
	if err != nil {
		slog.Error("Failed loading user directory", "path", cfg.Passcode.UsersFile, "err", err)
		os.Exit(1)
	}

	service := mfa.NewService(repo, dispatcher,
		mfa.WithTTL(cfg.Passcode.TTL),
		mfa.WithLogger(logger),
		mfa.WithUserDirectory(users),
	)

	sweeper := passcode.NewSweeper(repo, clock.Real(), cfg.Passcode.SweepInterval, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sweeper.Run(gctx) })

	var verifyLimiter func(next http.Handler) http.Handler
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewMiddleware(cfg.RateLimit.ToMiddlewareConfig())
		verifyLimiter = limiter.Handler
		g.Go(func() error { return limiter.Run(gctx) })
	}

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)
	app.RoutesHealthzReady(server.R)

	auditor := audit.NewMiddleware(audit.Config{Logger: logger})
	server.R.With(auditor.Handler).Mount("/api/v1/mfa", api.Routes(api.NewHandler(service), verifyLimiter))

	slog.Info("Starting simple-mfa",
		"env", env,
		"persistence", cfg.Passcode.Persistence,
		"ttl", cfg.Passcode.TTL,
		"email", cfg.Email.IsConfigured(),
		"sms", cfg.Twilio.IsConfigured(),
		"users", users.Len(),
	)

	// blocks until the server is shut down
	server.Run()

	stop()
	if err := g.Wait(); err != nil {
		slog.Error("Background worker failed", "err", err)
	}
}
