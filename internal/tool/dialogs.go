package tool

import (
	"context"
	"fmt"
	"strings"

	"tgbridge/internal/content"
	"tgbridge/internal/domain"
	"tgbridge/internal/store"
)

// ListDialogsTool lists tracked conversations with unread counts.
type ListDialogsTool struct {
	store *store.Store
}

func NewListDialogsTool(s *store.Store) *ListDialogsTool {
	return &ListDialogsTool{store: s}
}

func (t *ListDialogsTool) Name() string { return "list_dialogs" }

func (t *ListDialogsTool) Description() string {
	return "List available dialogs, chats and channels."
}

func (t *ListDialogsTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{
		"unread":        {Type: "boolean", Description: "Show only conversations with unread messages"},
		"archived":      {Type: "boolean", Description: "Include archived conversations"},
		"ignore_pinned": {Type: "boolean", Description: "Exclude pinned conversations"},
	}, nil)
}

func (t *ListDialogsTool) Execute(ctx context.Context, args map[string]any) ([]content.Item, error) {
	filter := store.DialogFilter{
		UnreadOnly:   ArgsBool(args, "unread", false),
		Archived:     ArgsBool(args, "archived", false),
		IgnorePinned: ArgsBool(args, "ignore_pinned", false),
	}

	dialogs, err := t.store.ListDialogs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list dialogs: %w", err)
	}

	items := make([]content.Item, 0, len(dialogs))
	for _, d := range dialogs {
		items = append(items, content.Textf("name='%s' id=%d unread=%d", d.Name, d.ID, d.Unread))
	}
	return items, nil
}

// requireDialogID extracts the mandatory dialog_id argument and verifies the
// dialog is known to the cache.
func requireDialogID(ctx context.Context, name string, args map[string]any, s *store.Store) (int64, error) {
	id, ok := ArgsInt64(args, "dialog_id")
	if !ok {
		return 0, domain.BadArgs(name, "dialog_id is required and must be an integer")
	}
	exists, err := s.DialogExists(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("check dialog %d: %w", id, err)
	}
	if !exists {
		return 0, fmt.Errorf("dialog %d: %w", id, domain.ErrConversationNotFound)
	}
	return id, nil
}

// requireMessage extracts the mandatory message argument.
func requireMessage(name string, args map[string]any) (string, error) {
	msg := ArgsString(args, "message")
	if strings.TrimSpace(msg) == "" {
		return "", domain.BadArgs(name, "message is required")
	}
	return msg, nil
}
