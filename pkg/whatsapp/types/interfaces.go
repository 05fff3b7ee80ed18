package types

import (
	"context"
	"encoding/json"
)

// Client is the live provider connection handle. All operations against an
// unavailable connection return errors; callers decide whether those are
// best-effort or fatal.
type Client interface {
	SendMessage(ctx context.Context, chatID string, content *OutboundContent, opts *SendOptions) (*SendResponse, error)
	SendPresenceUpdate(ctx context.Context, action, chatID string) error
	FetchStatus(ctx context.Context, chatID string) (string, error)
	ProfilePictureURL(ctx context.Context, chatID, kind string) (string, error)
	ResolveNumber(ctx context.Context, number string) (*NumberInfo, error)
	RejectCall(ctx context.Context, callID, from string) error
	DownloadMedia(ctx context.Context, msg *RawMessage) ([]byte, error)
	IsConnected() bool
	Logout(ctx context.Context) error
	Disconnect()
}

// Connector loads persisted credentials and opens a fresh client with the
// handler bound before it returns. One connector produces many sequential
// clients over the life of the process.
type Connector interface {
	Connect(ctx context.Context, handler EventHandler) (Client, error)
}

// EventHandler receives the provider's event stream. Implementations must not
// block; slow work is queued elsewhere.
type EventHandler interface {
	HandleCredentialsUpdated(creds json.RawMessage)
	HandleConnectionUpdate(update ConnectionUpdate)
	HandleMessageBatch(batch MessageBatch)
	HandleCall(call CallEvent)
	HandleHistorySync(snapshot HistorySnapshot)
}

// CredentialSaver persists the credential blob on every credentials-updated
// event, verbatim.
type CredentialSaver interface {
	Save(creds json.RawMessage) error
}

// JIDClassifier decides which chat identifier classes are excluded from
// webhook delivery.
type JIDClassifier interface {
	IsBroadcast(jid string) bool
	IsStatusBroadcast(jid string) bool
	IsNewsletter(jid string) bool
}

// MediaDownloader fetches the full media bytes for a message.
type MediaDownloader interface {
	DownloadMedia(ctx context.Context, msg *RawMessage) ([]byte, error)
}
