package bot

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/go-telegram/bot/models"
	"github.com/rs/zerolog"

	"github.com/dsmirnov/retouch/internal/editor"
	"github.com/dsmirnov/retouch/internal/health"
	"github.com/dsmirnov/retouch/internal/media"
	"github.com/dsmirnov/retouch/internal/session"
)

type sentDocument struct {
	chatID   int64
	filename string
	caption  string
	data     []byte
}

// fakeTransport records outbound messages.
type fakeTransport struct {
	mu      sync.Mutex
	texts   []string
	docs    []sentDocument
	deleted []int
	nextID  int
	docErr  error
}

func (t *fakeTransport) SendText(_ context.Context, _ int64, text string, _ models.ReplyMarkup) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.texts = append(t.texts, text)
	t.nextID++
	return t.nextID, nil
}

func (t *fakeTransport) SendDocument(_ context.Context, chatID int64, data []byte, filename, caption string, _ models.ReplyMarkup) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.docErr != nil {
		return t.docErr
	}
	t.docs = append(t.docs, sentDocument{chatID: chatID, filename: filename, caption: caption, data: data})
	return nil
}

func (t *fakeTransport) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, messageID)
	return nil
}

func (t *fakeTransport) SendTyping(_ context.Context, _ int64) {}

func (t *fakeTransport) lastText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.texts) == 0 {
		return ""
	}
	return t.texts[len(t.texts)-1]
}

func (t *fakeTransport) sawText(want string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, text := range t.texts {
		if text == want {
			return true
		}
	}
	return false
}

type fakeFetcher struct {
	file *media.File
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*media.File, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.file, nil
}

// fakeEditor returns a fixed result or error; onEdit runs while the
// request is "in flight".
type fakeEditor struct {
	result *editor.Result
	err    error
	onEdit func()
	calls  int
}

func (e *fakeEditor) Edit(_ context.Context, _ []byte, _, _ string) (*editor.Result, error) {
	e.calls++
	if e.onEdit != nil {
		e.onEdit()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type fixture struct {
	ctrl      *Controller
	transport *fakeTransport
	store     *session.MemoryStore
	fetcher   *fakeFetcher
	editor    *fakeEditor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	transport := &fakeTransport{}
	store := session.NewMemoryStore(0)
	t.Cleanup(store.Close)

	fetcher := &fakeFetcher{
		file: &media.File{Data: []byte("image-bytes"), ContentType: "image/jpeg", Name: "scan.jpg"},
	}
	edit := &fakeEditor{
		result: &editor.Result{Data: []byte("edited-bytes"), MediaType: "image/png"},
	}

	ctrl := NewController(transport, store, fetcher, edit, health.NewStats(), zerolog.Nop())

	return &fixture{ctrl: ctrl, transport: transport, store: store, fetcher: fetcher, editor: edit}
}

func document(mimeType string, size int64) *models.Document {
	return &models.Document{FileID: "file-1", FileName: "scan.jpg", MimeType: mimeType, FileSize: size}
}

func (f *fixture) mustSession(t *testing.T, userID int64) *session.Session {
	t.Helper()
	sess, err := f.store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("expected a session for user %d: %v", userID, err)
	}
	return sess
}

func TestUploadCreatesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	sess := f.mustSession(t, 1)
	if string(sess.Data) != "image-bytes" || sess.ContentType != "image/jpeg" || sess.Name != "scan.jpg" {
		t.Errorf("session = %+v, want fetched file", sess)
	}
	if f.transport.lastText() != msgAwaitInstruction {
		t.Errorf("last message = %q, want instruction prompt", f.transport.lastText())
	}
}

func TestUploadValidationShortCircuit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, mime := range []string{"image/gif", "application/pdf", "text/plain", ""} {
		f.ctrl.HandleDocument(ctx, 10, 1, document(mime, 1024))

		if _, err := f.store.Get(ctx, 1); !errors.Is(err, session.ErrNotFound) {
			t.Errorf("mime %q: session created for unsupported format", mime)
		}
		if f.transport.lastText() != msgUnsupportedFormat {
			t.Errorf("mime %q: last message = %q", mime, f.transport.lastText())
		}
	}
}

func TestUploadSizeBoundary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Exactly 20 MiB is accepted.
	f.ctrl.HandleDocument(ctx, 10, 1, document("image/png", 20*1024*1024))
	f.mustSession(t, 1)

	// One byte over is rejected and must not replace the session.
	before := f.mustSession(t, 1)
	f.ctrl.HandleDocument(ctx, 10, 1, document("image/png", 20*1024*1024+1))

	if f.transport.lastText() != msgFileTooLarge {
		t.Errorf("last message = %q, want size rejection", f.transport.lastText())
	}
	after := f.mustSession(t, 1)
	if after.ID != before.ID {
		t.Error("oversized upload mutated the session")
	}
}

func TestSecondUploadOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))
	first := f.mustSession(t, 1)

	f.fetcher.file = &media.File{Data: []byte("newer"), ContentType: "image/png", Name: "other.png"}
	f.ctrl.HandleDocument(ctx, 10, 1, document("image/png", 1024))

	second := f.mustSession(t, 1)
	if second.ID == first.ID {
		t.Error("second upload did not replace the session")
	}
	if second.Name != "other.png" || string(second.Data) != "newer" {
		t.Errorf("session = %+v, want second upload only", second)
	}
}

func TestDownloadFailureCreatesNoSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.fetcher.err = errors.New("error downloading file: no file path returned")
	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	if _, err := f.store.Get(ctx, 1); !errors.Is(err, session.ErrNotFound) {
		t.Error("session created despite download failure")
	}
	if !strings.Contains(f.transport.lastText(), "downloading") {
		t.Errorf("last message = %q, want download error", f.transport.lastText())
	}
}

func TestTextWhileIdle(t *testing.T) {
	f := newFixture(t)

	f.ctrl.HandleText(context.Background(), 10, 1, "make it blue")

	if f.editor.calls != 0 {
		t.Error("edit requested without a session")
	}
	if f.transport.lastText() != msgUploadFirst {
		t.Errorf("last message = %q, want upload prompt", f.transport.lastText())
	}
}

func TestEditSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))
	f.ctrl.HandleText(ctx, 10, 1, "make it blue")

	if len(f.transport.docs) != 1 {
		t.Fatalf("documents sent = %d, want 1", len(f.transport.docs))
	}
	doc := f.transport.docs[0]
	if doc.filename != "edited_scan.png" {
		t.Errorf("filename = %q, want edited_scan.png", doc.filename)
	}
	if string(doc.data) != "edited-bytes" {
		t.Error("document payload mismatch")
	}

	if _, err := f.store.Get(ctx, 1); !errors.Is(err, session.ErrNotFound) {
		t.Error("session not cleared after successful edit")
	}
	if len(f.transport.deleted) != 1 {
		t.Errorf("placeholder deletions = %d, want 1", len(f.transport.deleted))
	}
	if f.transport.lastText() != msgWhatNext {
		t.Errorf("last message = %q, want follow-up prompt", f.transport.lastText())
	}
}

func TestEditFailurePreservesSession(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"rate limited", editor.Classify(429, "slow"), editor.Classify(429, "slow").UserMessage()},
		{"no credit", editor.Classify(402, "empty"), editor.Classify(402, "empty").UserMessage()},
		{"bad key", editor.Classify(401, "nope"), editor.Classify(401, "nope").UserMessage()},
		{"generic", editor.Classify(500, "boom"), "API error: boom"},
		{"no image", editor.ErrNoImage, msgEditFailed},
		{"malformed image", editor.ErrMalformedImage, msgEditFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))
			before := f.mustSession(t, 1)

			f.editor.err = tt.err
			f.ctrl.HandleText(ctx, 10, 1, "make it blue")

			after := f.mustSession(t, 1)
			if after.ID != before.ID || string(after.Data) != string(before.Data) || after.ContentType != before.ContentType || after.Name != before.Name {
				t.Error("failed edit mutated the session")
			}
			if len(f.transport.docs) != 0 {
				t.Error("document sent despite failure")
			}
			if f.transport.lastText() != tt.wantMsg {
				t.Errorf("last message = %q, want %q", f.transport.lastText(), tt.wantMsg)
			}

			// Retry works without re-uploading.
			f.editor.err = nil
			f.ctrl.HandleText(ctx, 10, 1, "make it blue")
			if len(f.transport.docs) != 1 {
				t.Error("retry after failure did not deliver a document")
			}
		})
	}
}

func TestCancelIdempotence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	f.ctrl.HandleCancel(ctx, 10, 1)
	if f.transport.lastText() != msgCancelled {
		t.Errorf("first cancel message = %q, want %q", f.transport.lastText(), msgCancelled)
	}

	f.ctrl.HandleCancel(ctx, 10, 1)
	if f.transport.lastText() != msgNothingActive {
		t.Errorf("second cancel message = %q, want %q", f.transport.lastText(), msgNothingActive)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	// Cancel lands while the edit request is in flight.
	f.editor.onEdit = func() {
		f.store.Clear(ctx, 1)
	}
	f.ctrl.HandleText(ctx, 10, 1, "make it blue")

	if len(f.transport.docs) != 0 {
		t.Error("result delivered for a cancelled session")
	}
	if f.transport.sawText(msgWhatNext) {
		t.Error("follow-up prompt sent for a discarded result")
	}
}

func TestReplacedSessionResultDiscarded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	// A new upload replaces the session mid-flight.
	f.editor.onEdit = func() {
		f.store.Put(ctx, 1, session.New([]byte("other"), "image/png", "other.png"))
	}
	f.ctrl.HandleText(ctx, 10, 1, "make it blue")

	if len(f.transport.docs) != 0 {
		t.Error("result delivered against a replaced session")
	}
	// The replacement session must survive the discard untouched.
	sess := f.mustSession(t, 1)
	if sess.Name != "other.png" {
		t.Errorf("session = %+v, want the replacement", sess)
	}
}

func TestSecondInstructionWhileBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))

	editStarted := make(chan struct{})
	releaseEdit := make(chan struct{})
	f.editor.onEdit = func() {
		close(editStarted)
		<-releaseEdit
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		f.ctrl.HandleText(ctx, 10, 1, "make it blue")
	}()

	<-editStarted
	f.ctrl.HandleText(ctx, 10, 1, "also crop it")
	if !f.transport.sawText(msgBusy) {
		t.Error("second instruction was not rejected while busy")
	}

	close(releaseEdit)
	<-done

	if f.editor.calls != 1 {
		t.Errorf("edit calls = %d, want 1", f.editor.calls)
	}
	if len(f.transport.docs) != 1 {
		t.Errorf("documents = %d, want the first edit only", len(f.transport.docs))
	}
}

func TestPhotoLeavesStateAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))
	before := f.mustSession(t, 1)

	f.ctrl.HandlePhoto(ctx, 10)

	if f.transport.lastText() != msgPhotoWarning {
		t.Errorf("last message = %q, want photo warning", f.transport.lastText())
	}
	if after := f.mustSession(t, 1); after.ID != before.ID {
		t.Error("photo event mutated the session")
	}
}

func TestDeliveryFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.ctrl.HandleDocument(ctx, 10, 1, document("image/jpeg", 1024))
	f.transport.docErr = errors.New("telegram: bad gateway")

	f.ctrl.HandleText(ctx, 10, 1, "make it blue")

	if _, err := f.store.Get(ctx, 1); err != nil {
		t.Error("session cleared although the result was never delivered")
	}
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		original  string
		mediaType string
		want      string
	}{
		{"scan.jpg", "image/png", "edited_scan.png"},
		{"report.png", "image/jpeg", "edited_report.jpeg"},
		{"photo.webp", "image/webp", "edited_photo.webp"},
		{"noext", "image/png", "edited_noext.png"},
		{"archive.tar.gz", "image/png", "edited_archive.tar.png"},
		{"scan.jpg", "unexpected", "edited_scan.png"},
	}

	for _, tt := range tests {
		if got := outputName(tt.original, tt.mediaType); got != tt.want {
			t.Errorf("outputName(%q, %q) = %q, want %q", tt.original, tt.mediaType, got, tt.want)
		}
	}
}
