// Package gateway connects the bridge to Telegram: it polls for updates,
// converts them into domain events, records them in the store, and exposes
// send / subscribe / fetch operations to the tools.
package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tgbridge/internal/domain"
	"tgbridge/internal/store"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramPollTimeout    = 30
)

// Telegram implements the messaging gateway on the Bot API.
type Telegram struct {
	bot        *tgbotapi.BotAPI
	allowFrom  []int64 // allowed sender IDs (empty = allow all)
	dispatcher *Dispatcher
	store      *store.Store
	http       *http.Client
	logger     *slog.Logger
}

type Config struct {
	Token     string
	AllowFrom []string // sender IDs as strings
	Store     *store.Store
	Logger    *slog.Logger
}

func NewTelegram(cfg Config) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}

	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}

	return &Telegram{
		bot:        bot,
		allowFrom:  allowed,
		dispatcher: NewDispatcher(cfg.Logger),
		store:      cfg.Store,
		http:       &http.Client{Timeout: 60 * time.Second},
		logger:     cfg.Logger,
	}, nil
}

// Username returns the bot account name, for diagnostics.
func (t *Telegram) Username() string {
	return t.bot.Self.UserName
}

// Start polls for updates until the context is cancelled. Every observed
// message is recorded in the store and dispatched to subscribers.
func (t *Telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "username", t.bot.Self.UserName, "id", t.bot.Self.ID)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram gateway stopping")
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message != nil {
				t.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (t *Telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	if !t.isAllowed(msg.From.ID) {
		t.logger.Warn("message from unauthorized sender dropped",
			"sender_id", msg.From.ID,
			"username", msg.From.UserName,
		)
		return
	}

	ev := eventFromMessage(msg)

	if t.store != nil {
		if err := t.store.RecordDialog(ctx, dialogFromChat(msg.Chat)); err != nil {
			t.logger.Error("failed to record dialog", "dialog", ev.DialogID, "err", err)
		}
		rec := store.Message{
			DialogID: ev.DialogID,
			SenderID: ev.SenderID,
			Text:     ev.Text,
			Media:    ev.Media,
			SentAt:   ev.Time,
		}
		if err := t.store.RecordMessage(ctx, rec); err != nil {
			t.logger.Error("failed to record message", "dialog", ev.DialogID, "err", err)
		}
	}

	t.logger.Debug("telegram message received",
		"dialog_id", ev.DialogID,
		"sender_id", ev.SenderID,
		"has_media", ev.Media != nil,
	)

	t.dispatcher.Dispatch(ev)
}

// Subscribe attaches a callback for inbound events on one dialog.
func (t *Telegram) Subscribe(dialogID int64, fn func(domain.InboundEvent)) domain.Subscription {
	return t.dispatcher.Subscribe(dialogID, fn)
}

// SendMessage delivers text to a dialog, chunking at Telegram's length limit
// and backing off on rate limits. A message that cannot be delivered after
// retries fails with a DeliveryError.
func (t *Telegram) SendMessage(ctx context.Context, dialogID int64, text string) error {
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramMaxMsgLen {
			cutAt := strings.LastIndex(chunk[:telegramMaxMsgLen], "\n")
			if cutAt < telegramMaxMsgLen/2 {
				cutAt = telegramMaxMsgLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		if err := t.sendChunk(ctx, dialogID, chunk); err != nil {
			return &domain.DeliveryError{DialogID: dialogID, Err: err}
		}
	}
	return nil
}

func (t *Telegram) sendChunk(ctx context.Context, dialogID int64, text string) error {
	var lastErr error
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := t.bot.Send(tgbotapi.NewMessage(dialogID, text))
		if err == nil {
			return nil
		}
		lastErr = err

		// Telegram rate limiting (HTTP 429).
		backoff := time.Duration(attempt+1) * time.Second
		if strings.Contains(err.Error(), "Too Many Requests") || strings.Contains(err.Error(), "429") {
			backoff = time.Duration(attempt+1) * 3 * time.Second
		}
		if attempt < telegramMaxSendRetries {
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("send failed after %d attempts: %w", telegramMaxSendRetries+1, lastErr)
}

// FetchMediaBytes downloads a file by its Telegram file ID.
func (t *Telegram) FetchMediaBytes(ctx context.Context, ref string) ([]byte, error) {
	url, err := t.bot.GetFileDirectURL(ref)
	if err != nil {
		return nil, &domain.FetchError{Ref: ref, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{Ref: ref, Err: err}
	}
	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &domain.FetchError{Ref: ref, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.FetchError{Ref: ref, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.FetchError{Ref: ref, Err: err}
	}
	return data, nil
}

func (t *Telegram) isAllowed(senderID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == senderID {
			return true
		}
	}
	return false
}

func dialogFromChat(chat *tgbotapi.Chat) store.Dialog {
	name := chat.Title
	if name == "" {
		name = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	}
	if name == "" {
		name = chat.UserName
	}
	return store.Dialog{ID: chat.ID, Name: name, Kind: chat.Type}
}

// eventFromMessage converts a Bot API message into a domain event. Telegram
// attaches at most one media object per message; the checks below mirror the
// photo > document > video > audio > voice precedence the tools assume.
func eventFromMessage(msg *tgbotapi.Message) domain.InboundEvent {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	ev := domain.InboundEvent{
		Time:     time.Unix(int64(msg.Date), 0),
		DialogID: msg.Chat.ID,
		SenderID: msg.From.ID,
		Text:     text,
	}

	switch {
	case len(msg.Photo) > 0:
		// Telegram sends multiple sizes; the last is the largest.
		photo := msg.Photo[len(msg.Photo)-1]
		ev.Media = &domain.Media{
			Kind:      domain.MediaPhoto,
			Ref:       photo.FileID,
			SizeBytes: sizeOrUnknown(photo.FileSize),
			Width:     photo.Width,
			Height:    photo.Height,
			Duration:  domain.SizeUnknown,
		}
	case msg.Document != nil:
		ev.Media = &domain.Media{
			Kind:      domain.MediaDocument,
			Ref:       msg.Document.FileID,
			MimeType:  msg.Document.MimeType,
			Name:      msg.Document.FileName,
			SizeBytes: sizeOrUnknown(msg.Document.FileSize),
			Duration:  domain.SizeUnknown,
			Width:     domain.SizeUnknown,
			Height:    domain.SizeUnknown,
		}
	case msg.Video != nil:
		media := &domain.Media{
			Kind:      domain.MediaVideo,
			Ref:       msg.Video.FileID,
			MimeType:  msg.Video.MimeType,
			SizeBytes: sizeOrUnknown(msg.Video.FileSize),
			Duration:  msg.Video.Duration,
			Width:     msg.Video.Width,
			Height:    msg.Video.Height,
		}
		if msg.Video.Thumbnail != nil {
			media.ThumbRef = msg.Video.Thumbnail.FileID
		}
		ev.Media = media
	case msg.Audio != nil:
		ev.Media = &domain.Media{
			Kind:      domain.MediaAudio,
			Ref:       msg.Audio.FileID,
			MimeType:  msg.Audio.MimeType,
			SizeBytes: sizeOrUnknown(msg.Audio.FileSize),
			Duration:  msg.Audio.Duration,
			Width:     domain.SizeUnknown,
			Height:    domain.SizeUnknown,
			Title:     msg.Audio.Title,
			Performer: msg.Audio.Performer,
		}
	case msg.Voice != nil:
		ev.Media = &domain.Media{
			Kind:      domain.MediaVoice,
			Ref:       msg.Voice.FileID,
			MimeType:  msg.Voice.MimeType,
			SizeBytes: sizeOrUnknown(msg.Voice.FileSize),
			Duration:  msg.Voice.Duration,
			Width:     domain.SizeUnknown,
			Height:    domain.SizeUnknown,
		}
	}

	return ev
}

func sizeOrUnknown(size int) int64 {
	if size <= 0 {
		return domain.SizeUnknown
	}
	return int64(size)
}
