package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"tgbridge/internal/content"
	"tgbridge/internal/domain"
)

// Policy selects which media categories produce content items.
type Policy struct {
	Photos    bool
	Documents bool
	Videos    bool
	Audio     bool
}

// AcceptAll returns a policy with every category enabled.
func AcceptAll() Policy {
	return Policy{Photos: true, Documents: true, Videos: true, Audio: true}
}

// PhotosOnly returns a policy accepting photos and nothing else.
func PhotosOnly() Policy {
	return Policy{Photos: true}
}

// Labels select the wording of text summaries: "Document: ..." when reading
// history, "User sent document: ..." when collecting live responses.
type Labels struct {
	Document string
	Video    string
	Audio    string
}

var (
	HistoryLabels = Labels{Document: "Document", Video: "Video", Audio: "Audio"}
	UserLabels    = Labels{Document: "User sent document", Video: "User sent video", Audio: "User sent audio"}
)

// Classifier turns a single media attachment into content items according to
// a policy. It is stateless apart from the fetcher used to pull bytes.
type Classifier struct {
	fetch  domain.MediaFetcher
	labels Labels
	logger *slog.Logger
}

func New(fetch domain.MediaFetcher, labels Labels, logger *slog.Logger) *Classifier {
	return &Classifier{fetch: fetch, labels: labels, logger: logger}
}

// Classify produces zero or more items for the given attachment. The second
// return reports whether the media counted as accepted under the policy.
//
// Primary fetch failures (photo bytes, image-document bytes) are returned as
// errors since the defining content of the item cannot be produced. Secondary
// fetch failures (document inlining, video thumbnail) are logged and the
// optional item is omitted.
func (c *Classifier) Classify(ctx context.Context, media *domain.Media, policy Policy) ([]content.Item, bool, error) {
	if media == nil {
		return nil, false, nil
	}

	switch media.Kind {
	case domain.MediaPhoto:
		if !policy.Photos {
			return nil, false, nil
		}
		data, err := c.fetch.FetchMediaBytes(ctx, media.Ref)
		if err != nil {
			return nil, false, err
		}
		// Telegram photos are JPEG.
		return []content.Item{content.Image(data, "image/jpeg")}, true, nil

	case domain.MediaDocument:
		if !policy.Documents {
			return nil, false, nil
		}
		return c.classifyDocument(ctx, media)

	case domain.MediaVideo:
		if !policy.Videos {
			return nil, false, nil
		}
		return c.classifyVideo(ctx, media), true, nil

	case domain.MediaAudio, domain.MediaVoice:
		if !policy.Audio {
			return nil, false, nil
		}
		return []content.Item{content.Text(c.audioSummary(media))}, true, nil
	}

	return nil, false, nil
}

func (c *Classifier) classifyDocument(ctx context.Context, media *domain.Media) ([]content.Item, bool, error) {
	mimeType := media.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if strings.HasPrefix(mimeType, "image/") {
		data, err := c.fetch.FetchMediaBytes(ctx, media.Ref)
		if err != nil {
			return nil, false, err
		}
		return []content.Item{content.Image(data, mimeType)}, true, nil
	}

	name := media.Name
	if name == "" {
		name = "document"
	}
	size := "unknown size"
	if media.SizeBytes >= 0 {
		size = strconv.FormatInt(media.SizeBytes, 10)
	}

	items := []content.Item{
		content.Textf("%s: %s, Type: %s, Size: %s bytes", c.labels.Document, name, mimeType, size),
	}

	if media.SizeBytes >= 0 && media.SizeBytes < content.InlineLimitBytes {
		data, err := c.fetch.FetchMediaBytes(ctx, media.Ref)
		if err != nil {
			c.logger.Error("document download failed, skipping inline", "ref", media.Ref, "err", err)
		} else {
			items = append(items, content.EmbeddedBinary(name, mimeType, data))
		}
	}

	return items, true, nil
}

func (c *Classifier) classifyVideo(ctx context.Context, media *domain.Media) []content.Item {
	duration := "unknown duration"
	if media.Duration >= 0 {
		duration = strconv.Itoa(media.Duration)
	}
	width := "unknown width"
	if media.Width >= 0 {
		width = strconv.Itoa(media.Width)
	}
	height := "unknown height"
	if media.Height >= 0 {
		height = strconv.Itoa(media.Height)
	}

	items := []content.Item{
		content.Textf("%s: Duration: %ss, Resolution: %sx%s", c.labels.Video, duration, width, height),
	}

	if media.ThumbRef != "" {
		data, err := c.fetch.FetchMediaBytes(ctx, media.ThumbRef)
		if err != nil {
			c.logger.Error("video thumbnail download failed, skipping", "ref", media.ThumbRef, "err", err)
		} else {
			items = append(items, content.Image(data, "image/jpeg"))
		}
	}

	return items
}

func (c *Classifier) audioSummary(media *domain.Media) string {
	duration := "unknown duration"
	if media.Duration >= 0 {
		duration = strconv.Itoa(media.Duration)
	}

	info := fmt.Sprintf("%s: Duration: %ss", c.labels.Audio, duration)
	if media.Title != "" {
		info += fmt.Sprintf(", Title: %s", media.Title)
	}
	if media.Performer != "" {
		info += fmt.Sprintf(", Artist: %s", media.Performer)
	}
	return info
}
