// Package app initializes and runs the session daemon. It builds the storage
// backend from configuration, restores persisted session state, exercises the
// state manager, and handles graceful shutdown.
package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/dmitrijs2005/sessionstate/internal/adapters"
	"github.com/dmitrijs2005/sessionstate/internal/config"
	"github.com/dmitrijs2005/sessionstate/internal/logging"
	"github.com/dmitrijs2005/sessionstate/internal/session"
	"github.com/dmitrijs2005/sessionstate/internal/storage"
	"github.com/dmitrijs2005/sessionstate/internal/tokenstore"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	manager *session.Manager
	backend storage.Backend
	client  *http.Client
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	zl, err := logging.NewProductionZap(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}
	logger := logging.NewZapLogger(zl)

	kv, err := openKV(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	backend, err := buildBackend(ctx, cfg, kv)
	if err != nil {
		return nil, fmt.Errorf("backend init error: %w", err)
	}

	tokens := buildTokenStore(cfg, kv)

	transport := &adapters.BearerTransport{}
	client := &http.Client{Transport: transport}

	manager, err := session.New(session.Config{
		Backend:     backend,
		Tokens:      tokens,
		Attribution: &adapters.LoggingAttribution{Log: logger},
		Campaigns:   &adapters.LoggingCampaign{Log: logger},
		RequestAuth: transport,
		Logger:      logger,
	})
	if err != nil {
		return nil, fmt.Errorf("manager init error: %w", err)
	}

	return &App{config: cfg, logger: logger, manager: manager, backend: backend, client: client}, nil
}

// openKV builds the raw key-value store selected by cfg.Driver.
func openKV(ctx context.Context, cfg *config.Config) (storage.KV, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return storage.NewMemoryKV(), nil
	case config.DriverSQLite:
		return storage.OpenSQLite(ctx, cfg.DatabaseDSN)
	case config.DriverPostgres:
		return storage.OpenPostgres(ctx, cfg.DatabaseDSN)
	case config.DriverRedis:
		return storage.OpenRedis(ctx, storage.RedisConfig{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// buildBackend wraps kv in the session state codec, optionally with at-rest
// encryption.
func buildBackend(ctx context.Context, cfg *config.Config, kv storage.KV) (storage.Backend, error) {
	if !cfg.Encrypt {
		return storage.NewBackend(kv), nil
	}

	passphrase := []byte(cfg.Passphrase)
	if len(passphrase) == 0 {
		p, err := readPassphrase()
		if err != nil {
			return nil, err
		}
		passphrase = p
	}
	return storage.NewEncryptedBackend(ctx, kv, passphrase)
}

// buildTokenStore prefers the transactional sqlite store when the sqlite
// driver is active so the token and its timestamp commit together.
func buildTokenStore(cfg *config.Config, kv storage.KV) tokenstore.Store {
	if cfg.Driver == config.DriverSQLite {
		if s, ok := kv.(*storage.SQLiteKV); ok {
			return tokenstore.NewSQLiteStore(s.DB())
		}
	}
	return tokenstore.NewKVStore(kv)
}

func readPassphrase() ([]byte, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("encryption enabled but no passphrase configured and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	p, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("passphrase read error: %w", err)
	}
	return p, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	app.logger.Info(ctx, "Starting session daemon...", "driver", app.config.Driver, "encrypted", app.config.Encrypt)

	if err := app.exercise(ctx); err != nil {
		app.logger.Error(ctx, "lifecycle error", "error", err)
		cancelFunc()
	}

	<-ctx.Done()
	app.shutdown()
}

// exercise restores persisted session state and walks the manager through a
// sign-in, concurrent data merges, and onboarding completion. On restart
// against the same backend the restored state short-circuits the sign-in.
func (app *App) exercise(ctx context.Context) error {
	m := app.manager

	if m.CheckAuthenticationStatus(ctx) {
		u := m.CurrentUser()
		app.logger.Info(ctx, "session restored", "user_id", u.ID, "onboarding_completed", m.IsOnboardingCompleted())
	} else {
		u, err := m.SignIn(ctx, tokenstore.Mint(), session.SignInOptions{
			Email: "demo@example.com",
			Name:  "Demo User",
		})
		if err != nil {
			return err
		}
		if err := m.SetSessionToken(ctx, tokenstore.Mint()); err != nil {
			return err
		}
		app.logger.Info(ctx, "signed in", "user_id", u.ID)
	}

	// Concurrent merges from independent flows must all land.
	g, gctx := errgroup.WithContext(ctx)
	answers := []map[string]any{
		{"onboarding_answer_goal": "fitness"},
		{"onboarding_answer_level": "beginner"},
		{"notifications_enabled": true},
	}
	for _, a := range answers {
		a := a
		g.Go(func() error {
			m.UpdateUserData(a)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := m.Flush(ctx); err != nil {
		return err
	}
	app.logger.Info(ctx, "user data merged", "keys", len(m.UserData()))

	if !m.IsOnboardingCompleted() {
		if err := m.CompleteOnboarding(ctx); err != nil {
			return err
		}
	}

	app.logger.Info(ctx, "session ready", "state", m.State().String())
	return nil
}

func (app *App) shutdown() {
	ctx := context.Background()

	app.logger.Info(ctx, "Shutting down...")

	if err := app.manager.Flush(ctx); err != nil {
		app.logger.Error(ctx, "flush error", "error", err)
	}
	if err := app.backend.Close(); err != nil {
		app.logger.Error(ctx, "backend close error", "error", err)
	}

	app.logger.Info(ctx, "Shutdown complete")
}
