// Package collect implements the bounded media-collection session: send a
// prompt, listen on the conversation's event stream, and gather classified
// content until the media cap, the timeout, or the caller's context ends it.
package collect

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tgbridge/internal/classify"
	"tgbridge/internal/content"
	"tgbridge/internal/domain"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultMaxMedia = 5
)

// Session is the working state of one collection run. MaxMedia <= 0 disables
// the cap, leaving the timeout as the only terminator.
type Session struct {
	DialogID int64
	Prompt   string
	Policy   classify.Policy
	MaxMedia int
	Timeout  time.Duration
}

// NewSession returns a session with the default policy, cap and timeout.
func NewSession(dialogID int64, prompt string) Session {
	return Session{
		DialogID: dialogID,
		Prompt:   prompt,
		Policy:   classify.AcceptAll(),
		MaxMedia: DefaultMaxMedia,
		Timeout:  DefaultTimeout,
	}
}

// PhotoSession returns a photos-only session, the backward-compatible entry
// point for callers that predate the per-category flags.
func PhotoSession(dialogID int64, prompt string, timeout time.Duration, maxPhotos int) Session {
	s := NewSession(dialogID, prompt)
	s.Policy = classify.PhotosOnly()
	if timeout > 0 {
		s.Timeout = timeout
	}
	s.MaxMedia = maxPhotos
	return s
}

// Collector drives collection sessions against a gateway.
type Collector struct {
	sender     domain.Sender
	stream     domain.EventStream
	classifier *classify.Classifier
	logger     *slog.Logger
}

func New(sender domain.Sender, stream domain.EventStream, classifier *classify.Classifier, logger *slog.Logger) *Collector {
	return &Collector{sender: sender, stream: stream, classifier: classifier, logger: logger}
}

// Collect runs one session and returns the accumulated items in arrival
// order: prompt acknowledgement first, then interleaved user text and media
// items, then a final status item. The event subscription never outlives the
// call, including on error and cancellation paths.
func (c *Collector) Collect(ctx context.Context, s Session) ([]content.Item, error) {
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}

	if err := c.sender.SendMessage(ctx, s.DialogID, s.Prompt); err != nil {
		if _, ok := err.(*domain.DeliveryError); !ok {
			err = &domain.DeliveryError{DialogID: s.DialogID, Err: err}
		}
		return nil, err
	}

	items := []content.Item{content.Textf("Sent request: %s", s.Prompt)}
	start := time.Now()

	// The callback and the terminator below race to decide how the session
	// ends; mu serializes them, done stops stragglers after the decision.
	var (
		mu       sync.Mutex
		accepted int
		done     bool
	)
	capReached := make(chan struct{})

	sub := c.stream.Subscribe(s.DialogID, func(ev domain.InboundEvent) {
		mu.Lock()
		defer mu.Unlock()
		if done {
			return
		}
		// Replayed history from before the prompt went out does not count.
		if ev.Time.Before(start) {
			return
		}

		if ev.Text != "" {
			items = append(items, content.Textf("User response: %s", ev.Text))
		}

		if ev.Media == nil {
			return
		}
		got, ok, err := c.classifier.Classify(ctx, ev.Media, s.Policy)
		if err != nil {
			c.logger.Error("media classification failed, skipping event",
				"dialog", s.DialogID, "kind", ev.Media.Kind, "err", err)
			return
		}
		items = append(items, got...)
		if !ok {
			return
		}
		accepted++
		if s.MaxMedia > 0 && accepted >= s.MaxMedia {
			done = true
			close(capReached)
		}
	})
	defer sub.Cancel()

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	select {
	case <-capReached:
		mu.Lock()
		defer mu.Unlock()
		items = append(items, content.Textf("Received maximum of %d media items", accepted))
		return items, nil

	case <-timer.C:
		mu.Lock()
		defer mu.Unlock()
		done = true
		if accepted == 0 {
			items = append(items, content.Text("Timeout reached without receiving any media"))
		} else {
			items = append(items, content.Textf("Timeout reached after receiving %d media items", accepted))
		}
		return items, nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
