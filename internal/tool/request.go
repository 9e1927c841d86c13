package tool

import (
	"context"
	"time"

	"tgbridge/internal/classify"
	"tgbridge/internal/collect"
	"tgbridge/internal/content"
	"tgbridge/internal/store"
)

// RequestUserMediaTool sends a prompt to a dialog and waits for the user to
// respond with media, collecting until the cap or timeout is hit.
type RequestUserMediaTool struct {
	store     *store.Store
	collector *collect.Collector
}

func NewRequestUserMediaTool(s *store.Store, c *collect.Collector) *RequestUserMediaTool {
	return &RequestUserMediaTool{store: s, collector: c}
}

func (t *RequestUserMediaTool) Name() string { return "request_user_media" }

func (t *RequestUserMediaTool) Description() string {
	return "Send a message to a user and wait for them to respond with media such as photos, documents, videos or audio."
}

func (t *RequestUserMediaTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"dialog_id":        {Type: "integer", Description: "Dialog id to send the request to"},
		"message":          {Type: "string", Description: "Message text asking the user for media"},
		"accept_photos":    {Type: "boolean", Description: "Accept photo responses"},
		"accept_documents": {Type: "boolean", Description: "Accept document responses"},
		"accept_videos":    {Type: "boolean", Description: "Accept video responses"},
		"accept_audio":     {Type: "boolean", Description: "Accept audio and voice responses"},
		"timeout":          {Type: "integer", Description: "Seconds to wait for a response"},
		"max_media":        {Type: "integer", Description: "Stop after this many media items; 0 or less waits until timeout"},
	}, []string{"dialog_id", "message"})
}

func (t *RequestUserMediaTool) Execute(ctx context.Context, args map[string]any) ([]content.Item, error) {
	dialogID, err := requireDialogID(ctx, t.Name(), args, t.store)
	if err != nil {
		return nil, err
	}
	message, err := requireMessage(t.Name(), args)
	if err != nil {
		return nil, err
	}

	s := collect.NewSession(dialogID, message)
	s.Policy = classify.Policy{
		Photos:    ArgsBool(args, "accept_photos", true),
		Documents: ArgsBool(args, "accept_documents", true),
		Videos:    ArgsBool(args, "accept_videos", true),
		Audio:     ArgsBool(args, "accept_audio", true),
	}
	if secs := ArgsInt(args, "timeout", 0); secs > 0 {
		s.Timeout = time.Duration(secs) * time.Second
	}
	if n, ok := ArgsInt64(args, "max_media"); ok {
		s.MaxMedia = int(n)
	}

	return t.collector.Collect(ctx, s)
}

// RequestUserPhotosTool is the photos-only variant kept for callers that
// predate the per-category accept flags.
type RequestUserPhotosTool struct {
	store     *store.Store
	collector *collect.Collector
}

func NewRequestUserPhotosTool(s *store.Store, c *collect.Collector) *RequestUserPhotosTool {
	return &RequestUserPhotosTool{store: s, collector: c}
}

func (t *RequestUserPhotosTool) Name() string { return "request_user_photos" }

func (t *RequestUserPhotosTool) Description() string {
	return "Send a message to a user and wait for them to respond with photos."
}

func (t *RequestUserPhotosTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"dialog_id":  {Type: "integer", Description: "Dialog id to send the request to"},
		"message":    {Type: "string", Description: "Message text asking the user for photos"},
		"timeout":    {Type: "integer", Description: "Seconds to wait for a response"},
		"max_photos": {Type: "integer", Description: "Stop after this many photos; 0 or less waits until timeout"},
	}, []string{"dialog_id", "message"})
}

func (t *RequestUserPhotosTool) Execute(ctx context.Context, args map[string]any) ([]content.Item, error) {
	dialogID, err := requireDialogID(ctx, t.Name(), args, t.store)
	if err != nil {
		return nil, err
	}
	message, err := requireMessage(t.Name(), args)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(ArgsInt(args, "timeout", 0)) * time.Second
	maxPhotos := collect.DefaultMaxMedia
	if n, ok := ArgsInt64(args, "max_photos"); ok {
		maxPhotos = int(n)
	}

	return t.collector.Collect(ctx, collect.PhotoSession(dialogID, message, timeout, maxPhotos))
}
