package domain

import "context"

// Sender delivers outgoing text to a conversation.
type Sender interface {
	SendMessage(ctx context.Context, dialogID int64, text string) error
}

// Subscription is a live registration on the gateway's event stream.
// Cancel detaches the callback and is safe to call more than once.
type Subscription interface {
	Cancel()
}

// EventStream delivers inbound events for a single conversation to a callback
// until the returned subscription is cancelled. Callbacks for one subscription
// are invoked sequentially in delivery order.
type EventStream interface {
	Subscribe(dialogID int64, fn func(InboundEvent)) Subscription
}

// MediaFetcher resolves a media ref to its raw bytes.
type MediaFetcher interface {
	FetchMediaBytes(ctx context.Context, ref string) ([]byte, error)
}
