// Package media resolves Telegram file references to binary payloads.
package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	tbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// mimeTypes maps file extensions to media types. Unknown extensions
// fall back to image/jpeg, matching the upstream service's behavior.
var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ContentTypeFor derives the media type from a file name's extension.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if mime, ok := mimeTypes[ext]; ok {
		return mime
	}
	return "image/jpeg"
}

// File is a downloaded Telegram file.
type File struct {
	Data        []byte
	ContentType string
	Name        string
}

// Resolver turns an opaque file ID into a download URL. *bot.Bot
// satisfies it.
type Resolver interface {
	GetFile(ctx context.Context, params *tbot.GetFileParams) (*models.File, error)
	FileDownloadLink(f *models.File) string
}

// Fetcher downloads files from the Telegram file API.
type Fetcher struct {
	resolver Resolver
	httpc    *http.Client
}

// NewFetcher creates a fetcher with the given download timeout.
func NewFetcher(resolver Resolver, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		resolver: resolver,
		httpc:    &http.Client{Timeout: timeout},
	}
}

// Fetch resolves a file ID and downloads its bytes. The content type
// is derived from the resolved file name's extension.
func (f *Fetcher) Fetch(ctx context.Context, fileID string) (*File, error) {
	file, err := f.resolver.GetFile(ctx, &tbot.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("error downloading file: resolving file id: %w", err)
	}
	if file.FilePath == "" {
		return nil, fmt.Errorf("error downloading file: no file path returned")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.resolver.FileDownloadLink(file), nil)
	if err != nil {
		return nil, fmt.Errorf("error downloading file: %w", err)
	}

	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("error downloading file: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error downloading file: %w", err)
	}

	name := path.Base(file.FilePath)

	return &File{
		Data:        data,
		ContentType: ContentTypeFor(name),
		Name:        name,
	}, nil
}
