package health

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/dsmirnov/retouch/internal/config"
)

// Params for creating the health server
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating the health server
type Result struct {
	fx.Out

	Stats *Stats
}

// New starts the health/metrics HTTP server on the configured port.
func New(lc fx.Lifecycle, p Params) (Result, error) {
	stats := NewStats()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", p.Config.Port),
		Handler: Handler(stats),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info().Str("addr", srv.Addr).Msg("starting health server")
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error().Err(err).Msg("health server stopped")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			p.Logger.Info().Msg("stopping health server")
			return srv.Shutdown(ctx)
		},
	})

	return Result{Stats: stats}, nil
}

// Module provides the health server and stats
func Module() fx.Option {
	return fx.Module(
		"health",
		fx.Provide(
			New,
		),
	)
}
