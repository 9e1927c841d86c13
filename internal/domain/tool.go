package domain

import (
	"context"

	"tgbridge/internal/content"
)

// Tool is the interface for bridge operations (dialog listing, media collection, etc).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) ([]content.Item, error)
}

// ToolDefinition is the transport-facing description of a tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
