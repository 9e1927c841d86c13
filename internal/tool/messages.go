package tool

import (
	"context"
	"fmt"

	"tgbridge/internal/classify"
	"tgbridge/internal/content"
	"tgbridge/internal/store"
)

const (
	defaultMessageLimit = 100
	defaultMediaLimit   = 20
)

// ListMessagesTool returns recent text messages from one dialog.
type ListMessagesTool struct {
	store *store.Store
}

func NewListMessagesTool(s *store.Store) *ListMessagesTool {
	return &ListMessagesTool{store: s}
}

func (t *ListMessagesTool) Name() string { return "list_messages" }

func (t *ListMessagesTool) Description() string {
	return "List messages in a given dialog, chat or channel. Messages are listed newest first."
}

func (t *ListMessagesTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"dialog_id": {Type: "integer", Description: "Dialog id to read from"},
		"unread":    {Type: "boolean", Description: "Show only unread messages"},
		"limit":     {Type: "integer", Description: "Maximum number of messages to return"},
	}, []string{"dialog_id"})
}

func (t *ListMessagesTool) Execute(ctx context.Context, args map[string]any) ([]content.Item, error) {
	dialogID, err := requireDialogID(ctx, t.Name(), args, t.store)
	if err != nil {
		return nil, err
	}
	unread := ArgsBool(args, "unread", false)
	limit := ArgsInt(args, "limit", defaultMessageLimit)

	msgs, err := t.store.ListMessages(ctx, dialogID, limit, unread)
	if err != nil {
		return nil, fmt.Errorf("list messages for dialog %d: %w", dialogID, err)
	}

	var items []content.Item
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		items = append(items, content.Text(m.Text))
	}
	return items, nil
}

// GetMessagesWithMediaTool returns recent media-bearing messages from one
// dialog, with photos and small image documents inlined.
type GetMessagesWithMediaTool struct {
	store      *store.Store
	classifier *classify.Classifier
}

func NewGetMessagesWithMediaTool(s *store.Store, c *classify.Classifier) *GetMessagesWithMediaTool {
	return &GetMessagesWithMediaTool{store: s, classifier: c}
}

func (t *GetMessagesWithMediaTool) Name() string { return "get_messages_with_media" }

func (t *GetMessagesWithMediaTool) Description() string {
	return "Get messages containing media from a dialog. Photos are returned inline; documents, videos and audio are described."
}

func (t *GetMessagesWithMediaTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"dialog_id":         {Type: "integer", Description: "Dialog id to read from"},
		"limit":             {Type: "integer", Description: "Maximum number of media messages to return"},
		"include_documents": {Type: "boolean", Description: "Include document attachments"},
		"include_videos":    {Type: "boolean", Description: "Include video attachments"},
		"include_audio":     {Type: "boolean", Description: "Include audio attachments"},
	}, []string{"dialog_id"})
}

func (t *GetMessagesWithMediaTool) Execute(ctx context.Context, args map[string]any) ([]content.Item, error) {
	dialogID, err := requireDialogID(ctx, t.Name(), args, t.store)
	if err != nil {
		return nil, err
	}
	limit := ArgsInt(args, "limit", defaultMediaLimit)
	policy := classify.Policy{
		Photos:    true,
		Documents: ArgsBool(args, "include_documents", true),
		Videos:    ArgsBool(args, "include_videos", true),
		Audio:     ArgsBool(args, "include_audio", true),
	}

	msgs, err := t.store.ListMediaMessages(ctx, dialogID, limit)
	if err != nil {
		return nil, fmt.Errorf("list media messages for dialog %d: %w", dialogID, err)
	}

	var items []content.Item
	for _, m := range msgs {
		if m.Text != "" {
			items = append(items, content.Text(m.Text))
		}
		if m.Media == nil {
			continue
		}
		media, accepted, err := t.classifier.Classify(ctx, m.Media, policy)
		if err != nil {
			return nil, err
		}
		if accepted {
			items = append(items, media...)
		}
	}
	return items, nil
}
