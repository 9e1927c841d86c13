package domain

import (
	"errors"
	"fmt"
)

// ErrConversationNotFound reports a dialog ID that does not resolve.
var ErrConversationNotFound = errors.New("conversation not found")

// DeliveryError reports a failed prompt send. Collection never starts when
// the prompt cannot be delivered.
type DeliveryError struct {
	DialogID int64
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to dialog %d: %v", e.DialogID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// FetchError reports a failed media byte fetch.
type FetchError struct {
	Ref string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch media %s: %v", e.Ref, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UnsupportedArgumentsError reports an unknown tool name or a malformed
// argument payload. Raised before any network action.
type UnsupportedArgumentsError struct {
	Tool   string
	Reason string
}

func (e *UnsupportedArgumentsError) Error() string {
	return fmt.Sprintf("tool %s: %s", e.Tool, e.Reason)
}

// BadArgs builds an UnsupportedArgumentsError for the given tool.
func BadArgs(tool, format string, args ...any) error {
	return &UnsupportedArgumentsError{Tool: tool, Reason: fmt.Sprintf(format, args...)}
}
