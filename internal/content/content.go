package content

import (
	"encoding/base64"
	"fmt"
)

// InlineLimitBytes is the largest attachment (exclusive) that gets inlined
// as an embedded binary item instead of a text summary alone.
const InlineLimitBytes = 1024 * 1024

// Type discriminates the content item variants.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeEmbedded Type = "embedded_resource"
)

// Item is one piece of tool output. Items are built through the constructors
// below and never mutated afterwards; each item serializes on its own.
type Item struct {
	Type     Type   `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"` // base64 for images, data URI for embedded resources
	MimeType string `json:"mimeType,omitempty"`
	Name     string `json:"name,omitempty"`
}

// Text returns a plain text item.
func Text(body string) Item {
	return Item{Type: TypeText, Text: body}
}

// Textf returns a plain text item from a format string.
func Textf(format string, args ...any) Item {
	return Item{Type: TypeText, Text: fmt.Sprintf(format, args...)}
}

// Image returns an image item with base64-encoded bytes.
func Image(data []byte, mimeType string) Item {
	return Item{
		Type:     TypeImage,
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
	}
}

// EmbeddedBinary returns an embedded resource item carrying the bytes as a
// data URI. Callers are expected to check InlineLimitBytes before building one.
func EmbeddedBinary(name, mimeType string, data []byte) Item {
	encoded := base64.StdEncoding.EncodeToString(data)
	return Item{
		Type:     TypeEmbedded,
		Name:     name,
		MimeType: mimeType,
		Data:     fmt.Sprintf("data:%s;base64,%s", mimeType, encoded),
	}
}
