// Package app wires configuration into a ready board service.
package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/postboard/board"
	"github.com/briangreenhill/postboard/cache"
	"github.com/briangreenhill/postboard/gateway"
	"github.com/briangreenhill/postboard/internal/config"
	"github.com/briangreenhill/postboard/jsonplaceholder"
)

var _ board.Resources = (*jsonplaceholder.Client)(nil)

// NewBoard builds the gateway, resource client, cache and board service
// described by cfg. Store metrics are registered with reg unless it is nil.
func NewBoard(cfg config.Config, logger zerolog.Logger, reg prometheus.Registerer) *board.Service {
	gw := gateway.New(
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		gateway.WithLogger(logger.With().Str("component", "gateway").Logger()),
	)
	client := jsonplaceholder.New(
		jsonplaceholder.WithBaseURL(cfg.APIBaseURL),
		jsonplaceholder.WithGateway(gw),
		jsonplaceholder.WithLogger(logger),
	)

	opts := []cache.Option{
		cache.WithStaleTime(cfg.StaleTime),
		cache.WithRetryPolicy(cfg.RetryPolicy()),
		cache.WithLogger(logger.With().Str("component", "cache").Logger()),
	}
	if reg != nil {
		opts = append(opts, cache.WithMetrics(cache.NewMetrics(reg)))
	}
	return board.New(client, cache.New(opts...), board.WithLogger(logger))
}
