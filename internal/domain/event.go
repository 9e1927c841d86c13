package domain

import "time"

// MediaKind identifies the single media attachment carried by an event.
// Telegram delivers at most one attachment per message; the gateway picks
// the kind in photo > document > video > audio order when converting updates.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaDocument MediaKind = "document"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaVoice    MediaKind = "voice"
)

// SizeUnknown marks an absent size, duration or dimension.
const SizeUnknown = -1

// Media describes the attachment of an inbound event. Ref is the opaque
// handle the gateway resolves to bytes via FetchMediaBytes.
type Media struct {
	Kind      MediaKind
	Ref       string
	MimeType  string // documents; empty means application/octet-stream
	Name      string // documents; empty means unnamed
	SizeBytes int64  // SizeUnknown when the platform did not report it
	Duration  int    // seconds; video and audio
	Width     int    // video
	Height    int    // video
	Title     string // audio
	Performer string // audio
	ThumbRef  string // video thumbnail; empty when none exposed
}

// InboundEvent is a transient notification of new activity in a conversation.
// It is owned by the gateway; consumers read it during handling and keep only
// the content items they derive from it.
type InboundEvent struct {
	Time     time.Time
	DialogID int64
	SenderID int64
	Text     string
	Media    *Media // nil when the message carries no media
}
