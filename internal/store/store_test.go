package store

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tgbridge/internal/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordDialog_Upsert(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.RecordDialog(ctx, Dialog{ID: 1, Name: "Old", Kind: "private"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := s.RecordDialog(ctx, Dialog{ID: 1, Name: "New", Kind: "private"}); err != nil {
		t.Fatalf("re-record: %v", err)
	}

	dialogs, err := s.ListDialogs(ctx, DialogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dialogs) != 1 {
		t.Fatalf("expected one dialog, got %d", len(dialogs))
	}
	if dialogs[0].Name != "New" {
		t.Fatalf("expected refreshed name, got %q", dialogs[0].Name)
	}
}

func TestDialogExists(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ok, err := s.DialogExists(ctx, 5)
	if err != nil || ok {
		t.Fatalf("unseen dialog should not exist, ok=%v err=%v", ok, err)
	}

	if err := s.RecordDialog(ctx, Dialog{ID: 5, Name: "x", Kind: "private"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	ok, err = s.DialogExists(ctx, 5)
	if err != nil || !ok {
		t.Fatalf("recorded dialog should exist, ok=%v err=%v", ok, err)
	}
}

func TestListDialogs_UnreadCounts(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordDialog(ctx, Dialog{ID: 1, Name: "busy", Kind: "private"})
	s.RecordDialog(ctx, Dialog{ID: 2, Name: "quiet", Kind: "private"})
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "one"})
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "two"})

	dialogs, err := s.ListDialogs(ctx, DialogFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	byID := map[int64]Dialog{}
	for _, d := range dialogs {
		byID[d.ID] = d
	}
	if byID[1].Unread != 2 || byID[2].Unread != 0 {
		t.Fatalf("unexpected unread counts: %+v", byID)
	}

	unreadOnly, err := s.ListDialogs(ctx, DialogFilter{UnreadOnly: true})
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unreadOnly) != 1 || unreadOnly[0].ID != 1 {
		t.Fatalf("expected only the busy dialog, got %+v", unreadOnly)
	}
}

func TestListMessages_MarksRead(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordDialog(ctx, Dialog{ID: 1, Name: "d", Kind: "private"})
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "a", SentAt: time.Now().Add(-2 * time.Second)})
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "b", SentAt: time.Now().Add(-1 * time.Second)})

	msgs, err := s.ListMessages(ctx, 1, 10, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(msgs))
	}
	if msgs[0].Text != "b" {
		t.Fatalf("expected newest first, got %q", msgs[0].Text)
	}

	// Once read, unread listing is empty; plain listing still sees them.
	msgs, err = s.ListMessages(ctx, 1, 10, true)
	if err != nil {
		t.Fatalf("relist: %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("expected no unread after reading, got %d", len(msgs))
	}
	msgs, err = s.ListMessages(ctx, 1, 10, false)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected full history, got %d", len(msgs))
	}
}

func TestListMessages_Limit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordDialog(ctx, Dialog{ID: 1, Name: "d", Kind: "private"})
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		s.RecordMessage(ctx, Message{DialogID: 1, Text: "m", SentAt: base.Add(time.Duration(i) * time.Second)})
	}

	msgs, err := s.ListMessages(ctx, 1, 3, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected limit of 3, got %d", len(msgs))
	}
}

func TestListMediaMessages_RoundTripsMedia(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordDialog(ctx, Dialog{ID: 1, Name: "d", Kind: "private"})
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "just text"})
	media := &domain.Media{
		Kind: domain.MediaVideo, Ref: "v1", MimeType: "video/mp4",
		SizeBytes: 9000, Duration: 12, Width: 640, Height: 480, ThumbRef: "t1",
	}
	s.RecordMessage(ctx, Message{DialogID: 1, Text: "clip", Media: media})

	msgs, err := s.ListMediaMessages(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list media: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected only the media message, got %d", len(msgs))
	}
	got := msgs[0].Media
	if got == nil || *got != *media {
		t.Fatalf("media did not round-trip: %+v", got)
	}
}

func TestRecordMessage_UnknownFieldsSurvive(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	s.RecordDialog(ctx, Dialog{ID: 1, Name: "d", Kind: "private"})
	media := &domain.Media{
		Kind: domain.MediaDocument, Ref: "d1",
		SizeBytes: domain.SizeUnknown, Duration: domain.SizeUnknown,
		Width: domain.SizeUnknown, Height: domain.SizeUnknown,
	}
	s.RecordMessage(ctx, Message{DialogID: 1, Media: media})

	msgs, err := s.ListMediaMessages(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if msgs[0].Media.SizeBytes != domain.SizeUnknown {
		t.Fatalf("unknown size must survive storage, got %d", msgs[0].Media.SizeBytes)
	}
}
