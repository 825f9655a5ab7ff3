// Package bot wires the Telegram transport to the conversation
// controller.
package bot

import (
	"context"
	"strings"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/dsmirnov/retouch/internal/config"
	"github.com/dsmirnov/retouch/internal/editor"
	"github.com/dsmirnov/retouch/internal/health"
	"github.com/dsmirnov/retouch/internal/media"
	"github.com/dsmirnov/retouch/internal/session"
)

type Params struct {
	fx.In

	Config *config.Config
	Store  session.Store
	Client *editor.Client
	Stats  *health.Stats
}

type Result struct {
	fx.Out

	Bot        *tbot.Bot
	Controller *Controller
}

func New(lc fx.Lifecycle, p Params, log zerolog.Logger) (Result, error) {
	h := &handlers{log: log}

	opts := []tbot.Option{
		tbot.WithDefaultHandler(h.route),
		tbot.WithMessageTextHandler("/start", tbot.MatchTypePrefix, h.start),
		tbot.WithMessageTextHandler("/help", tbot.MatchTypePrefix, h.help),
		tbot.WithMessageTextHandler("/cancel", tbot.MatchTypePrefix, h.cancel),
		tbot.WithCallbackQueryDataHandler("", tbot.MatchTypePrefix, h.callback),
	}

	tg, err := tbot.New(p.Config.Token, opts...)
	if err != nil {
		return Result{}, err
	}

	transport := NewTransport(tg)
	fetcher := media.NewFetcher(tg, p.Config.DownloadTimeout)
	ctrl := NewController(transport, p.Store, fetcher, p.Client, p.Stats, log)

	h.ctrl = ctrl
	h.transport = transport

	pollCtx, stopPolling := context.WithCancel(context.Background())

	lc.Append(
		fx.Hook{
			OnStart: func(ctx context.Context) error {
				log.Info().Msg("starting telegram bot...")
				go tg.Start(pollCtx)
				return nil
			},
			OnStop: func(ctx context.Context) error {
				log.Info().Msg("stopping telegram bot...")
				stopPolling()
				return nil
			},
		},
	)

	return Result{
		Bot:        tg,
		Controller: ctrl,
	}, nil
}

func Module() fx.Option {
	return fx.Module(
		"bot",
		fx.Provide(
			New,
		),
		fx.Invoke(
			func(bot *tbot.Bot) {},
		),
	)
}

// handlers adapts Telegram updates to controller events.
type handlers struct {
	ctrl      *Controller
	transport Transport
	log       zerolog.Logger
}

// route dispatches everything not caught by a command handler:
// documents, photos, menu buttons, and plain-text instructions.
func (h *handlers) route(ctx context.Context, _ *tbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	m := update.Message
	chatID := m.Chat.ID

	if m.From == nil {
		h.log.Warn().Int64("chat_id", chatID).Msg("received message without user info")
		return
	}
	userID := m.From.ID

	switch {
	case m.Document != nil:
		h.ctrl.HandleDocument(ctx, chatID, userID, m.Document)
	case len(m.Photo) > 0:
		h.ctrl.HandlePhoto(ctx, chatID)
	case m.Text == btnUpload:
		h.send(ctx, chatID, msgUploadHint, editingKeyboard)
	case m.Text == btnCancel:
		h.ctrl.HandleCancel(ctx, chatID, userID)
	case strings.HasPrefix(m.Text, "/"):
		h.send(ctx, chatID, msgUnknownCommand, mainKeyboard)
	case m.Text != "":
		h.ctrl.HandleText(ctx, chatID, userID, m.Text)
	}
}

func (h *handlers) start(ctx context.Context, _ *tbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, update.Message.Chat.ID, msgWelcome, mainKeyboard)
	h.send(ctx, update.Message.Chat.ID, "Choose an action:", examplesInline)
}

func (h *handlers) help(ctx context.Context, _ *tbot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, update.Message.Chat.ID, msgHelp, nil)
}

func (h *handlers) cancel(ctx context.Context, _ *tbot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	h.ctrl.HandleCancel(ctx, update.Message.Chat.ID, update.Message.From.ID)
}

// callback handles inline keyboard presses.
func (h *handlers) callback(ctx context.Context, tg *tbot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID
	userID := cb.From.ID

	tg.AnswerCallbackQuery(ctx, &tbot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch cb.Data {
	case "examples":
		h.send(ctx, chatID, msgExamples, nil)
	case "help_document":
		h.send(ctx, chatID, msgUploadHint, nil)
	case "upload_new":
		h.ctrl.Reset(ctx, userID)
		h.send(ctx, chatID, msgUploadHint, editingKeyboard)
	case "try_again":
		h.send(ctx, chatID, msgTryAgain, editingKeyboard)
	case "cancel_operation":
		h.ctrl.HandleCancel(ctx, chatID, userID)
	}
}

func (h *handlers) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	if _, err := h.transport.SendText(ctx, chatID, text, markup); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("unable to send message")
	}
}
