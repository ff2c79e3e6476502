package app

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"suggestbox/pkg/browse"
	"suggestbox/pkg/config"
	"suggestbox/pkg/logger"
	"suggestbox/pkg/session"
	"suggestbox/pkg/storage"
	"suggestbox/pkg/store"
	"suggestbox/pkg/telemetry"

	"suggestbox/internal/sweeper"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	sessions *session.Manager
	browser  *browse.Manager

	srv *http.Server
}

// New initializes resources that do not require a running context: the
// storage backend, the suggestion store and the two session managers.
// It does not start the HTTP server or the sweeper; call Run to start
// those and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	cfg := eff.Config

	backend, err := storage.Open(eff.Backend, eff.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage at %s: %w", eff.Backend, eff.Path, err)
	}
	if err := store.Open(backend, store.Options{
		MaxPerAuthor:  cfg.Quota(),
		AllowSelfVote: cfg.Suggestions.AllowSelfVote,
	}); err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}

	sessions := session.NewManager(session.Config{
		Timeout:           cfg.Sessions.Timeout.Duration(),
		CancelWords:       cfg.Sessions.CancelWords,
		MaxTitleLen:       cfg.Suggestions.MaxTitleLength,
		MaxDescriptionLen: cfg.Suggestions.MaxDescriptionLength,
	})
	browser := browse.NewManager(cfg.Suggestions.PageSize)

	if cfg.Logging.AuditDir != "" {
		if err := logger.AttachAuditFileSink(cfg.Logging.AuditDir); err != nil {
			return nil, fmt.Errorf("failed to attach audit sink: %w", err)
		}
	}
	telemetry.SetStateDir(filepath.Dir(eff.Path))

	a := &App{eff: eff, version: version, commit: commit, buildDate: buildDate, sessions: sessions, browser: browser}
	return a, nil
}

// Run starts the sweeper and the HTTP server, and blocks until ctx is
// canceled or a fatal server error occurs. On cancellation the server
// drains in-flight requests and the store is flushed closed.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	stopSweeper, err := sweeper.Start(ctx, a.eff.Config, a.sessions, a.browser)
	if err != nil {
		return err
	}
	defer stopSweeper()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		a.shutdown()
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			a.shutdown()
			return err
		}
		return nil
	}
}

func (a *App) shutdown() {
	if a.srv != nil {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.srv.Shutdown(sctx); err != nil {
			logger.Warn("http_shutdown_error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store_close_failed", "error", err)
	}
}
