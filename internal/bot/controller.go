package bot

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/dsmirnov/retouch/internal/editor"
	"github.com/dsmirnov/retouch/internal/health"
	"github.com/dsmirnov/retouch/internal/media"
	"github.com/dsmirnov/retouch/internal/session"
)

const maxFileSize = 20 * 1024 * 1024

// supportedFormats are the declared MIME types accepted as uploads.
var supportedFormats = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Fetcher resolves a Telegram file ID to its bytes.
type Fetcher interface {
	Fetch(ctx context.Context, fileID string) (*media.File, error)
}

// Editor sends an image and instruction to the AI vendor.
type Editor interface {
	Edit(ctx context.Context, image []byte, contentType, instruction string) (*editor.Result, error)
}

// Controller is the per-user state machine. A user is either idle (no
// session) or awaiting an instruction (session present); uploads
// create or replace the session, a text message spends it, cancel
// drops it.
type Controller struct {
	transport Transport
	store     session.Store
	fetcher   Fetcher
	editor    Editor
	stats     *health.Stats
	log       zerolog.Logger

	// inflight holds users with an outstanding edit request; a second
	// instruction from the same user is rejected instead of racing the
	// first against the same session.
	inflight   map[int64]struct{}
	inflightMu sync.Mutex
}

// NewController creates the conversation controller.
func NewController(
	transport Transport,
	store session.Store,
	fetcher Fetcher,
	edit Editor,
	stats *health.Stats,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		transport: transport,
		store:     store,
		fetcher:   fetcher,
		editor:    edit,
		stats:     stats,
		log:       log,
		inflight:  make(map[int64]struct{}),
	}
}

// HandleDocument processes an uploaded document: validate, download,
// store the session, and prompt for an instruction. A pending session
// is overwritten, not merged.
func (c *Controller) HandleDocument(ctx context.Context, chatID, userID int64, doc *models.Document) {
	c.stats.Touch()

	if !supportedFormats[doc.MimeType] {
		c.sendText(ctx, chatID, msgUnsupportedFormat, mainKeyboard)
		return
	}
	if doc.FileSize > maxFileSize {
		c.sendText(ctx, chatID, msgFileTooLarge, mainKeyboard)
		return
	}

	c.sendText(ctx, chatID, msgDownloading, nil)

	file, err := c.fetcher.Fetch(ctx, doc.FileID)
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to download document")
		c.sendText(ctx, chatID, "Error: "+err.Error(), mainKeyboard)
		return
	}

	sess := session.New(file.Data, file.ContentType, file.Name)
	if err := c.store.Put(ctx, userID, sess); err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to store session")
		c.sendText(ctx, chatID, msgEditFailed, mainKeyboard)
		return
	}

	c.log.Info().
		Int64("user_id", userID).
		Str("file", file.Name).
		Str("content_type", file.ContentType).
		Int("size", len(file.Data)).
		Msg("image stored, awaiting instruction")

	c.sendText(ctx, chatID, msgAwaitInstruction, examplesInline)
}

// HandleText processes an edit instruction against the user's pending
// session. On success the session is cleared; on any failure it is
// kept so the user can retry without re-uploading.
func (c *Controller) HandleText(ctx context.Context, chatID, userID int64, text string) {
	c.stats.Touch()

	sess, err := c.store.Get(ctx, userID)
	if errors.Is(err, session.ErrNotFound) {
		c.sendText(ctx, chatID, msgUploadFirst, mainKeyboard)
		return
	}
	if err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to load session")
		c.sendText(ctx, chatID, msgEditFailed, mainKeyboard)
		return
	}

	if !c.begin(userID) {
		c.sendText(ctx, chatID, msgBusy, nil)
		return
	}
	defer c.end(userID)

	placeholderID, placeholderErr := c.transport.SendText(ctx, chatID, msgProcessing, nil)
	c.transport.SendTyping(ctx, chatID)

	c.log.Info().Int64("user_id", userID).Str("session_id", sess.ID).Msg("edit request sending")

	result, err := c.editor.Edit(ctx, sess.Data, sess.ContentType, text)
	if err != nil {
		c.deletePlaceholder(ctx, chatID, placeholderID, placeholderErr)
		c.stats.Failure(err.Error())
		c.log.Error().Err(err).Int64("user_id", userID).Msg("edit request failed")
		c.sendText(ctx, chatID, failureMessage(err), retryInline)
		return
	}

	// The user may have cancelled or re-uploaded while the request was
	// in flight; a result for a stale session is discarded.
	cur, err := c.store.Get(ctx, userID)
	if err != nil || cur.ID != sess.ID {
		c.deletePlaceholder(ctx, chatID, placeholderID, placeholderErr)
		c.log.Info().Int64("user_id", userID).Str("session_id", sess.ID).Msg("discarding result for cleared session")
		return
	}

	c.deletePlaceholder(ctx, chatID, placeholderID, placeholderErr)

	filename := outputName(sess.Name, result.MediaType)
	if err := c.transport.SendDocument(ctx, chatID, result.Data, filename, msgEditDone, resultInline); err != nil {
		c.stats.Failure(err.Error())
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to deliver edited document")
		c.sendText(ctx, chatID, msgEditFailed, retryInline)
		return
	}

	if err := c.store.Clear(ctx, userID); err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to clear session")
	}
	c.stats.RequestProcessed()

	c.log.Info().Int64("user_id", userID).Str("file", filename).Msg("edit delivered")

	c.sendText(ctx, chatID, msgWhatNext, mainKeyboard)
}

// HandlePhoto tells the user to resend a compressed photo as a
// document. No state changes.
func (c *Controller) HandlePhoto(ctx context.Context, chatID int64) {
	c.stats.Touch()
	c.sendText(ctx, chatID, msgPhotoWarning, photoHelpInline)
}

// HandleCancel drops the pending session if there is one. Calling it
// again is a no-op with a distinct notice.
func (c *Controller) HandleCancel(ctx context.Context, chatID, userID int64) {
	c.stats.Touch()

	if _, err := c.store.Get(ctx, userID); err != nil {
		c.sendText(ctx, chatID, msgNothingActive, mainKeyboard)
		return
	}

	if err := c.store.Clear(ctx, userID); err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to clear session")
	}
	c.log.Info().Int64("user_id", userID).Msg("operation cancelled by user")
	c.sendText(ctx, chatID, msgCancelled, mainKeyboard)
}

// Reset drops the pending session without any notice; used when the
// user asks to upload a fresh image.
func (c *Controller) Reset(ctx context.Context, userID int64) {
	if err := c.store.Clear(ctx, userID); err != nil {
		c.log.Error().Err(err).Int64("user_id", userID).Msg("unable to clear session")
	}
}

func (c *Controller) begin(userID int64) bool {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()

	if _, busy := c.inflight[userID]; busy {
		return false
	}
	c.inflight[userID] = struct{}{}
	return true
}

func (c *Controller) end(userID int64) {
	c.inflightMu.Lock()
	defer c.inflightMu.Unlock()

	delete(c.inflight, userID)
}

func (c *Controller) sendText(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	if _, err := c.transport.SendText(ctx, chatID, text, markup); err != nil {
		c.log.Error().Err(err).Int64("chat_id", chatID).Msg("unable to send message")
	}
}

// deletePlaceholder removes the "processing" message. Cleanup failure
// is logged and swallowed.
func (c *Controller) deletePlaceholder(ctx context.Context, chatID int64, messageID int, sendErr error) {
	if sendErr != nil {
		return
	}
	if err := c.transport.DeleteMessage(ctx, chatID, messageID); err != nil {
		c.log.Warn().Err(err).Int64("chat_id", chatID).Msg("unable to delete placeholder message")
	}
}

// failureMessage maps an edit failure to the user-facing text.
func failureMessage(err error) string {
	var upstream *editor.UpstreamError
	if errors.As(err, &upstream) {
		return upstream.UserMessage()
	}
	if errors.Is(err, editor.ErrNoImage) || errors.Is(err, editor.ErrMalformedImage) {
		return msgEditFailed
	}
	return "Error: " + err.Error()
}

// outputName derives the delivered file name from the original name
// and the result's media type: edited_<base>.<ext>.
func outputName(original, mediaType string) string {
	base := strings.TrimSuffix(original, path.Ext(original))

	ext := "png"
	if _, sub, found := strings.Cut(mediaType, "/"); found && sub != "" {
		ext = sub
	}

	return "edited_" + base + "." + ext
}
