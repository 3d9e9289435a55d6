package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"quill/app/config"
	"quill/app/metrics"
	"quill/app/routes"
)

// RunAppServer serves the blog until ctx is cancelled or the process
// receives SIGINT or SIGTERM, then shuts down gracefully
func RunAppServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := openRepository(cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	store, closeStore, err := newSessionStore(ctx, cfg, repo)
	if err != nil {
		return err
	}
	defer closeStore()

	router, err := routes.Setup(routes.Deps{
		Posts:    repo.Posts,
		Authors:  repo.Authors,
		Users:    repo.Users,
		Sessions: store,
		Metrics:  metrics.New(),
		Session:  cfg.Session,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to set up routes: %w", err)
	}

	srv := newServer(cfg.Server, router)
	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("session_backend", cfg.Session.Backend).
			Msg("starting blog service")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Dur("timeout", cfg.Server.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func newServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
