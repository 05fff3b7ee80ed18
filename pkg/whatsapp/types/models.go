package types

import (
	"encoding/json"

	"go.mau.fi/whatsmeow/proto/waE2E"
)

// ConnectionState mirrors the provider's connection lifecycle notifications.
type ConnectionState string

const (
	ConnectionConnecting ConnectionState = "connecting"
	ConnectionOpen       ConnectionState = "open"
	ConnectionClose      ConnectionState = "close"
)

// ConnectionUpdate is emitted on every connectivity change. QR carries a
// pairing code when one is issued. LoggedOut marks an authoritative logout
// (credentials revoked); every other close cause is considered transient.
type ConnectionUpdate struct {
	State     ConnectionState
	QR        string
	LoggedOut bool
	Err       error
}

type MessageKey struct {
	FromMe    bool   `json:"fromMe"`
	RemoteJID string `json:"remoteJid"`
	ID        string `json:"id,omitempty"`
}

// MediaPart is one media sub-field of a message body.
type MediaPart struct {
	MimeType   string `json:"mimetype,omitempty"`
	Caption    string `json:"caption,omitempty"`
	FileName   string `json:"fileName,omitempty"`
	FileLength uint64 `json:"fileLength,omitempty"`
	Seconds    uint32 `json:"seconds,omitempty"`
	PTT        bool   `json:"ptt,omitempty"`
}

type ExtendedText struct {
	Text string `json:"text,omitempty"`
}

type DocumentWithCaption struct {
	Message *MessageBody `json:"message,omitempty"`
}

// MessageBody is the nested provider message structure. Only the fields the
// gateway inspects are modeled; everything else stays on the native handle.
type MessageBody struct {
	Conversation               string               `json:"conversation,omitempty"`
	ExtendedTextMessage        *ExtendedText        `json:"extendedTextMessage,omitempty"`
	ImageMessage               *MediaPart           `json:"imageMessage,omitempty"`
	AudioMessage               *MediaPart           `json:"audioMessage,omitempty"`
	VideoMessage               *MediaPart           `json:"videoMessage,omitempty"`
	DocumentMessage            *MediaPart           `json:"documentMessage,omitempty"`
	StickerMessage             *MediaPart           `json:"stickerMessage,omitempty"`
	DocumentWithCaptionMessage *DocumentWithCaption `json:"documentWithCaptionMessage,omitempty"`
}

// RawMessage is the provider-native message record as delivered to webhooks.
// Proto keeps the native payload for media downloads and is never serialized.
type RawMessage struct {
	Key       MessageKey   `json:"key"`
	PushName  string       `json:"pushName,omitempty"`
	Timestamp int64        `json:"messageTimestamp,omitempty"`
	Message   *MessageBody `json:"message,omitempty"`

	Proto *waE2E.Message `json:"-"`
}

// MediaRef carries resolved inline media. An empty MimeType means no media
// download was performed.
type MediaRef struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// MessageBatch groups messages delivered together. Type is the provider's
// delivery hint ("notify" for live messages).
type MessageBatch struct {
	Type     string
	Messages []*RawMessage
}

type CallEvent struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// HistorySnapshot is a bulk replay of prior chats and contacts. Records are
// opaque and accumulated as-is.
type HistorySnapshot struct {
	Chats    []json.RawMessage
	Contacts []json.RawMessage
}

type SendResponse struct {
	ID        string `json:"id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type NumberInfo struct {
	Exists bool   `json:"exists"`
	JID    string `json:"jid"`
}

// ContentKind discriminates the outbound payload variants.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentMedia    ContentKind = "media"
	ContentLocation ContentKind = "location"
	ContentPoll     ContentKind = "poll"
	ContentContact  ContentKind = "contact"
)

// OutboundContent is exactly one provider payload variant. Kind selects the
// populated field; the builder never mixes two content kinds.
type OutboundContent struct {
	Kind     ContentKind
	Text     string
	Media    *MediaContent
	Location *LocationContent
	Poll     *PollContent
	Contact  *ContactContent
}

type MediaContent struct {
	// Type keys the provider payload: image, video, document, audio.
	Type        string
	Data        []byte
	Caption     *string
	MimeType    *string
	FileName    *string
	PTT         *bool
	GifPlayback *bool
}

type LocationContent struct {
	DegreesLatitude  float64
	DegreesLongitude float64
	Name             string
	URL              string
	Address          string
}

type PollContent struct {
	Name    string
	Options []string
	// SelectableCount 0 means single-answer.
	SelectableCount int
}

type ContactContent struct {
	DisplayName string
	VCard       string
}

type SendOptions struct {
	MessageID           string
	EphemeralExpiration uint32
}
