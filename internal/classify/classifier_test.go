package classify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"tgbridge/internal/content"
	"tgbridge/internal/domain"
)

// stubFetcher serves canned bytes per ref and records calls.
type stubFetcher struct {
	data  map[string][]byte
	fail  map[string]bool
	calls []string
}

func (f *stubFetcher) FetchMediaBytes(ctx context.Context, ref string) ([]byte, error) {
	f.calls = append(f.calls, ref)
	if f.fail[ref] {
		return nil, &domain.FetchError{Ref: ref, Err: errors.New("network down")}
	}
	if d, ok := f.data[ref]; ok {
		return d, nil
	}
	return nil, &domain.FetchError{Ref: ref, Err: errors.New("no such ref")}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestClassifier(f *stubFetcher) *Classifier {
	return New(f, HistoryLabels, testLogger())
}

func TestClassify_Photo(t *testing.T) {
	f := &stubFetcher{data: map[string][]byte{"p1": []byte("jpeg")}}
	c := newTestClassifier(f)

	items, accepted, err := c.Classify(context.Background(), &domain.Media{Kind: domain.MediaPhoto, Ref: "p1"}, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !accepted {
		t.Fatal("photo should count as accepted")
	}
	if len(items) != 1 || items[0].Type != content.TypeImage || items[0].MimeType != "image/jpeg" {
		t.Fatalf("expected one jpeg image item, got %+v", items)
	}
}

func TestClassify_PhotoFetchError_Surfaced(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"p1": true}}
	c := newTestClassifier(f)

	_, accepted, err := c.Classify(context.Background(), &domain.Media{Kind: domain.MediaPhoto, Ref: "p1"}, AcceptAll())
	if err == nil {
		t.Fatal("expected error for failed photo fetch")
	}
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if accepted {
		t.Fatal("failed photo should not count as accepted")
	}
}

func TestClassify_PhotoDisabled(t *testing.T) {
	f := &stubFetcher{}
	c := newTestClassifier(f)

	items, accepted, err := c.Classify(context.Background(), &domain.Media{Kind: domain.MediaPhoto, Ref: "p1"}, Policy{})
	if err != nil || accepted || len(items) != 0 {
		t.Fatalf("disabled photo should yield nothing, got items=%v accepted=%v err=%v", items, accepted, err)
	}
	if len(f.calls) != 0 {
		t.Fatal("disabled category must not fetch")
	}
}

func TestClassify_ImageDocument(t *testing.T) {
	f := &stubFetcher{data: map[string][]byte{"d1": []byte("png")}}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaDocument, Ref: "d1", MimeType: "image/png", SizeBytes: 100}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !accepted || len(items) != 1 {
		t.Fatalf("expected one item, got %+v", items)
	}
	if items[0].Type != content.TypeImage || items[0].MimeType != "image/png" {
		t.Fatalf("expected png image, got %+v", items[0])
	}
}

func TestClassify_DocumentSummaryAndInline(t *testing.T) {
	f := &stubFetcher{data: map[string][]byte{"d1": []byte("csv-data")}}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaDocument, Ref: "d1", MimeType: "text/csv", Name: "data.csv", SizeBytes: 8}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !accepted || len(items) != 2 {
		t.Fatalf("expected summary + embedded, got %+v", items)
	}
	if items[0].Text != "Document: data.csv, Type: text/csv, Size: 8 bytes" {
		t.Fatalf("unexpected summary: %q", items[0].Text)
	}
	if items[1].Type != content.TypeEmbedded || items[1].Name != "data.csv" {
		t.Fatalf("expected embedded resource, got %+v", items[1])
	}
}

func TestClassify_DocumentDefaults(t *testing.T) {
	f := &stubFetcher{}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaDocument, Ref: "d1", SizeBytes: domain.SizeUnknown}
	items, _, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("unknown size must not inline, got %+v", items)
	}
	want := "Document: document, Type: application/octet-stream, Size: unknown size bytes"
	if items[0].Text != want {
		t.Fatalf("expected %q, got %q", want, items[0].Text)
	}
	if len(f.calls) != 0 {
		t.Fatal("unknown size must not trigger a fetch")
	}
}

func TestClassify_DocumentSizeBoundary(t *testing.T) {
	f := &stubFetcher{data: map[string][]byte{"small": []byte("x"), "big": []byte("y")}}
	c := newTestClassifier(f)

	small := &domain.Media{Kind: domain.MediaDocument, Ref: "small", MimeType: "application/pdf", Name: "a.pdf", SizeBytes: 1024*1024 - 1}
	items, _, err := c.Classify(context.Background(), small, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("size 1048575 should inline, got %d items", len(items))
	}

	big := &domain.Media{Kind: domain.MediaDocument, Ref: "big", MimeType: "application/pdf", Name: "b.pdf", SizeBytes: 1024 * 1024}
	items, _, err = c.Classify(context.Background(), big, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("size 1048576 should not inline, got %d items", len(items))
	}
}

func TestClassify_DocumentInlineFetchError_Swallowed(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"d1": true}}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaDocument, Ref: "d1", MimeType: "text/plain", Name: "n.txt", SizeBytes: 10}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("inline fetch failure must not propagate: %v", err)
	}
	if !accepted || len(items) != 1 {
		t.Fatalf("expected summary only, got %+v", items)
	}
}

func TestClassify_Video(t *testing.T) {
	f := &stubFetcher{data: map[string][]byte{"t1": []byte("thumb")}}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaVideo, Ref: "v1", Duration: 12, Width: 640, Height: 480, ThumbRef: "t1"}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if !accepted || len(items) != 2 {
		t.Fatalf("expected summary + thumbnail, got %+v", items)
	}
	if items[0].Text != "Video: Duration: 12s, Resolution: 640x480" {
		t.Fatalf("unexpected summary: %q", items[0].Text)
	}
	if items[1].Type != content.TypeImage || items[1].MimeType != "image/jpeg" {
		t.Fatalf("expected jpeg thumbnail, got %+v", items[1])
	}
}

func TestClassify_VideoUnknownFields(t *testing.T) {
	c := newTestClassifier(&stubFetcher{})

	media := &domain.Media{
		Kind: domain.MediaVideo, Ref: "v1",
		Duration: domain.SizeUnknown, Width: domain.SizeUnknown, Height: domain.SizeUnknown,
	}
	items, _, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	want := "Video: Duration: unknown durations, Resolution: unknown widthxunknown height"
	if items[0].Text != want {
		t.Fatalf("expected %q, got %q", want, items[0].Text)
	}
}

func TestClassify_VideoThumbFetchError_Swallowed(t *testing.T) {
	f := &stubFetcher{fail: map[string]bool{"t1": true}}
	c := newTestClassifier(f)

	media := &domain.Media{Kind: domain.MediaVideo, Ref: "v1", Duration: 3, Width: 1, Height: 1, ThumbRef: "t1"}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("thumbnail failure must not propagate: %v", err)
	}
	if !accepted || len(items) != 1 {
		t.Fatalf("expected summary only, got %+v", items)
	}
}

func TestClassify_AudioFull(t *testing.T) {
	c := newTestClassifier(&stubFetcher{})

	media := &domain.Media{Kind: domain.MediaAudio, Ref: "a1", Duration: 180, Title: "Song", Performer: "Band"}
	items, accepted, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil || !accepted || len(items) != 1 {
		t.Fatalf("expected one item, got items=%v accepted=%v err=%v", items, accepted, err)
	}
	if items[0].Text != "Audio: Duration: 180s, Title: Song, Artist: Band" {
		t.Fatalf("unexpected summary: %q", items[0].Text)
	}
}

func TestClassify_VoiceMinimal(t *testing.T) {
	c := newTestClassifier(&stubFetcher{})

	media := &domain.Media{Kind: domain.MediaVoice, Ref: "a1", Duration: 5}
	items, _, err := c.Classify(context.Background(), media, AcceptAll())
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if items[0].Text != "Audio: Duration: 5s" {
		t.Fatalf("unexpected summary: %q", items[0].Text)
	}
}

func TestClassify_UserLabels(t *testing.T) {
	c := New(&stubFetcher{}, UserLabels, testLogger())

	media := &domain.Media{Kind: domain.MediaAudio, Ref: "a1", Duration: 5}
	items, _, _ := c.Classify(context.Background(), media, AcceptAll())
	if !strings.HasPrefix(items[0].Text, "User sent audio: ") {
		t.Fatalf("expected user label, got %q", items[0].Text)
	}
}

func TestClassify_DisabledCategories(t *testing.T) {
	f := &stubFetcher{}
	c := newTestClassifier(f)
	ctx := context.Background()

	cases := []*domain.Media{
		{Kind: domain.MediaDocument, Ref: "d", SizeBytes: 10},
		{Kind: domain.MediaVideo, Ref: "v"},
		{Kind: domain.MediaAudio, Ref: "a"},
		{Kind: domain.MediaVoice, Ref: "w"},
	}
	for _, m := range cases {
		items, accepted, err := c.Classify(ctx, m, Policy{Photos: true})
		if err != nil || accepted || len(items) != 0 {
			t.Fatalf("kind %s disabled should yield nothing, got items=%v accepted=%v err=%v", m.Kind, items, accepted, err)
		}
	}
}

func TestClassify_NilMedia(t *testing.T) {
	c := newTestClassifier(&stubFetcher{})
	items, accepted, err := c.Classify(context.Background(), nil, AcceptAll())
	if err != nil || accepted || items != nil {
		t.Fatalf("nil media should be a no-op, got items=%v accepted=%v err=%v", items, accepted, err)
	}
}
