package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"tgbridge/internal/content"
	"tgbridge/internal/domain"
)

// Registry holds all available tools and executes them by name.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]domain.Tool
	names  []string
	logger *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		tools:  make(map[string]domain.Tool),
		logger: logger,
	}
}

func (r *Registry) Register(t domain.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.tools[t.Name()]; !seen {
		r.names = append(r.names, t.Name())
	}
	r.tools[t.Name()] = t
	r.logger.Debug("registered tool", "name", t.Name())
}

func (r *Registry) Get(name string) domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Execute resolves and runs a tool. An unknown name fails with
// UnsupportedArguments before anything touches the network.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) ([]content.Item, error) {
	t := r.Get(name)
	if t == nil {
		return nil, &domain.UnsupportedArgumentsError{
			Tool:   name,
			Reason: "unknown tool (available: " + strings.Join(r.Names(), ", ") + ")",
		}
	}
	return t.Execute(ctx, args)
}

// Definitions returns tool descriptions in registration order.
func (r *Registry) Definitions() []domain.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]domain.ToolDefinition, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		defs = append(defs, domain.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}

// Param describes a single tool parameter.
type Param struct {
	Type        string
	Description string
}

// ToolParameters builds a JSON Schema "parameters" object for a tool.
func ToolParameters(properties map[string]Param, required []string) map[string]any {
	props := make(map[string]any)
	for name, p := range properties {
		props[name] = map[string]any{"type": p.Type, "description": p.Description}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- argument accessors ---
// JSON decoding hands numbers over as float64; these helpers normalize that.

func ArgsString(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// ArgsInt64 returns the integer value under key, or (0, false) when it is
// absent or not a number.
func ArgsInt64(args map[string]any, key string) (int64, bool) {
	if args == nil {
		return 0, false
	}
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	}
	return 0, false
}

func ArgsInt(args map[string]any, key string, def int) int {
	if n, ok := ArgsInt64(args, key); ok {
		return int(n)
	}
	return def
}

func ArgsBool(args map[string]any, key string, def bool) bool {
	if args == nil {
		return def
	}
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}
