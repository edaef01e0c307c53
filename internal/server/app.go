// Package server initializes and runs the token custody server. It derives
// the encryption key, connects storage, applies migrations, and starts the
// HTTP endpoint together with the handshake-state janitor.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/spotivault/internal/cryptox"
	"github.com/dmitrijs2005/spotivault/internal/logging"
	"github.com/dmitrijs2005/spotivault/internal/server/config"
	"github.com/dmitrijs2005/spotivault/internal/server/httpapi"
	"github.com/dmitrijs2005/spotivault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/spotivault/internal/server/services"
	"github.com/dmitrijs2005/spotivault/internal/server/spotify"
)

const janitorInterval = 1 * time.Minute

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	repos   repomanager.RepositoryManager
	custody *services.CustodyService
	httpSrv *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := c.Validate(); err != nil {
		return nil, err
	}

	cipher, err := buildCipher(c, logger)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()

	client := spotify.NewClient(spotify.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
	})

	custody := services.NewCustodyService(db, repos, cipher, client, logger)

	httpSrv := httpapi.NewServer(custody, client, logger, httpapi.Options{
		Addr:          c.EndpointAddr,
		FrontendURL:   c.FrontendURL,
		SessionSecret: []byte(c.SessionSecret),
		SessionTTL:    c.SessionTTL,
	})

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		repos:   repos,
		custody: custody,
		httpSrv: httpSrv,
	}, nil
}

// buildCipher derives the at-rest encryption key per the configured policy.
// A production passphrase without an explicit salt refuses to start; in
// development a hostname-derived salt fills in. Any other derivation failure
// leaves the cipher disabled so token operations fail closed instead of
// storing plaintext.
func buildCipher(c *config.Config, logger logging.Logger) (*cryptox.TokenCipher, error) {
	ctx := context.Background()

	if c.EncryptionSecret == "" {
		logger.Warn(ctx, "no encryption secret configured, token storage disabled")
		return cryptox.NewTokenCipher(nil), nil
	}

	salt := c.EncryptionSalt
	if salt == "" && !cryptox.IsHexKey(c.EncryptionSecret) {
		if c.Production {
			return nil, fmt.Errorf("production requires an explicit key-derivation salt for passphrase secrets")
		}
		var err error
		salt, err = cryptox.FallbackSalt()
		if err != nil {
			logger.Error(ctx, "fallback salt derivation failed, token storage disabled", "error", err)
			return cryptox.NewTokenCipher(nil), nil
		}
		logger.Warn(ctx, "using hostname-derived key salt, not suitable for production")
	}

	key, err := cryptox.DeriveKey(c.EncryptionSecret, salt)
	if err != nil {
		logger.Error(ctx, "key derivation failed, token storage disabled", "error", err)
		return cryptox.NewTokenCipher(nil), nil
	}
	return cryptox.NewTokenCipher(key), nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// runJanitor periodically removes expired handshake states.
func (app *App) runJanitor(ctx context.Context) {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := app.custody.CleanupStates(ctx); err != nil {
				app.logger.Error(ctx, "auth state cleanup failed", "error", err)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repos.RunMigrations(ctx, app.db); err != nil {
		app.logger.Error(ctx, "migration error", "error", err)
		return
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpSrv.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runJanitor(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "error closing db", "error", err)
	}
}
