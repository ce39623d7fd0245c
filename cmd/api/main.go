// cmd/api/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/postboard/internal/app"
	"github.com/briangreenhill/postboard/internal/config"
	"github.com/briangreenhill/postboard/internal/http/routes"
	"github.com/briangreenhill/postboard/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger = logger.Level(cfg.Level())
	logger.Info().Str("port", cfg.Port).Str("api", cfg.APIBaseURL).Msg("starting app")

	// Board service over the remote API
	svc := app.NewBoard(cfg, logger, prometheus.DefaultRegisterer)

	// Keep the board's post list and users warm across writes
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	svc.Watch(ctx)

	// Sessions carry flash messages only
	sess := routes.NewSessionManager()

	// Templates
	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse templates")
	}

	// Router / server
	s := routes.New(routes.ServerOptions{
		Sess:     sess,
		Tmpl:     tmpl,
		Board:    svc,
		PageSize: cfg.PageSize,
		Logger:   logger,
	})
	h := hlog.NewHandler(logger)(s.Router)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: sess.LoadAndSave(h)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown")
		}
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server stopped")
		return
	}
	logger.Info().Msg("server stopped")
}
