package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by Get when the user has no pending session.
var ErrNotFound = errors.New("session not found")

// Session is the per-user record of one uploaded image awaiting an
// edit instruction. It is replaced wholesale on re-upload, never
// merged; its presence is the sole signal that the bot is waiting for
// an instruction from that user.
type Session struct {
	// ID distinguishes this session from any later one for the same
	// user, so a slow edit result can be discarded after a cancel or
	// re-upload.
	ID string

	// Data is the raw image payload.
	Data []byte

	// ContentType is the media type derived from the file extension.
	ContentType string

	// Name is the uploaded file's base name; the edited document's
	// name is derived from it.
	Name string

	UpdatedAt time.Time
}

// New creates a session for a freshly uploaded image.
func New(data []byte, contentType, name string) *Session {
	return &Session{
		ID:          uuid.NewString(),
		Data:        data,
		ContentType: contentType,
		Name:        name,
		UpdatedAt:   time.Now(),
	}
}

// Store maps a user identity to at most one pending session. Access
// across different users must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, userID int64, s *Session) error
	Get(ctx context.Context, userID int64) (*Session, error)
	Clear(ctx context.Context, userID int64) error
}
