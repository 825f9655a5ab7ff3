package session

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/dsmirnov/retouch/internal/config"
)

// Params for creating a session store
type Params struct {
	fx.In

	Config *config.Config
	Logger zerolog.Logger
}

// Result of creating a session store
type Result struct {
	fx.Out

	Store Store
}

// NewStore selects the store backend: Postgres when DATABASE_URL is
// set, otherwise in-memory.
func NewStore(lc fx.Lifecycle, p Params) (Result, error) {
	if p.Config.DatabaseURL != "" {
		pg, err := NewPostgresStore(context.Background(), p.Config.DatabaseURL, p.Config.SessionTTL)
		if err != nil {
			return Result{}, err
		}

		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				p.Logger.Info().Msg("using postgres session store")
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Logger.Info().Msg("closing database connection")
				pg.Close()
				return nil
			},
		})

		return Result{Store: pg}, nil
	}

	mem := NewMemoryStore(p.Config.SessionTTL)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			p.Logger.Info().Dur("ttl", p.Config.SessionTTL).Msg("using in-memory session store")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			mem.Close()
			return nil
		},
	})

	return Result{Store: mem}, nil
}

// Module provides the session store
func Module() fx.Option {
	return fx.Module(
		"session",
		fx.Provide(
			NewStore,
		),
	)
}
