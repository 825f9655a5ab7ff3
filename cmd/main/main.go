package main

import (
	"github.com/ipfans/fxlogger"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/dsmirnov/retouch/internal/bot"
	"github.com/dsmirnov/retouch/internal/config"
	"github.com/dsmirnov/retouch/internal/editor"
	"github.com/dsmirnov/retouch/internal/health"
	"github.com/dsmirnov/retouch/internal/log"
	"github.com/dsmirnov/retouch/internal/session"
)

func main() {

	fx.New(
		config.Module(),
		log.Module(),
		session.Module(),
		editor.Module(),
		health.Module(),
		bot.Module(),
		fx.WithLogger(
			func(logger zerolog.Logger) fxevent.Logger {
				return fxlogger.WithZerolog(logger)()
			},
		),
	).Run()
}
