package whatsapp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	watypes "wagate/pkg/whatsapp/types"

	"github.com/mdp/qrterminal/v3"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	meowstore "go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	meowtypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"

	_ "github.com/mattn/go-sqlite3"
)

// Config configures the whatsmeow-backed connector.
type Config struct {
	// StorePath is the SQLite file holding the device credential store.
	StorePath  string
	DeviceName string
	// PrintQR renders pairing codes to the terminal as they arrive.
	PrintQR bool
	Logger  *logrus.Logger
}

// Connector opens whatsmeow clients against a persistent device store. One
// connector produces a fresh client per Connect call; the previous client is
// expected to be discarded by the caller.
type Connector struct {
	cfg    Config
	logger *logrus.Logger
}

func NewConnector(cfg Config) *Connector {
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Connector{cfg: cfg, logger: logger}
}

// Connect loads the persisted device credentials, creates a client with the
// handler bound, and starts connecting. When no credentials exist yet the
// pairing flow is started and codes surface as connection updates.
func (c *Connector) Connect(ctx context.Context, handler watypes.EventHandler) (watypes.Client, error) {
	if c.cfg.StorePath == "" {
		return nil, errors.New("session store path is required")
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=10000&_journal_mode=WAL", c.cfg.StorePath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	// Serialize store access through one connection to avoid SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	container := sqlstore.NewWithDB(db, "sqlite3", waLog.Stdout("wagate-store", "WARN", true))
	if err := container.Upgrade(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to upgrade session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load device credentials: %w", err)
	}

	if c.cfg.DeviceName != "" {
		meowstore.DeviceProps.Os = proto.String(c.cfg.DeviceName)
	}

	cli := whatsmeow.NewClient(device, waLog.Stdout("wagate", "WARN", true))
	// The session manager owns recovery; the library must not race it.
	cli.EnableAutoReconnect = false

	wc := &client{
		cli:     cli,
		db:      db,
		handler: handler,
		logger:  c.logger,
		printQR: c.cfg.PrintQR,
	}
	cli.AddEventHandler(wc.translate)

	if cli.Store.ID == nil {
		qrChan, err := cli.GetQRChannel(ctx)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to open pairing channel: %w", err)
		}
		if err := cli.Connect(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect for pairing: %w", err)
		}
		go wc.consumeQR(qrChan)
	} else {
		if err := cli.Connect(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to connect: %w", err)
		}
	}

	return wc, nil
}

type client struct {
	cli     *whatsmeow.Client
	db      *sql.DB
	handler watypes.EventHandler
	logger  *logrus.Logger
	printQR bool
}

// translate is the central whatsmeow event dispatcher. It converts provider
// events into the gateway's event model; the handler must not block.
func (c *client) translate(evt interface{}) {
	switch v := evt.(type) {
	case *events.Connected:
		c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{State: watypes.ConnectionOpen})

	case *events.Disconnected:
		c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{State: watypes.ConnectionClose})

	case *events.LoggedOut:
		c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{
			State:     watypes.ConnectionClose,
			LoggedOut: true,
			Err:       fmt.Errorf("logged out: %v", v.Reason),
		})

	case *events.StreamReplaced:
		c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{
			State: watypes.ConnectionClose,
			Err:   errors.New("stream replaced by another session"),
		})

	case *events.ConnectFailure:
		c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{
			State: watypes.ConnectionClose,
			Err:   fmt.Errorf("connect failure: %s", v.Message),
		})

	case *events.PairSuccess:
		c.handler.HandleCredentialsUpdated(pairCredentials(v))

	case *events.Message:
		raw := convertMessage(v)
		if raw == nil {
			return
		}
		c.handler.HandleMessageBatch(watypes.MessageBatch{
			Type:     "notify",
			Messages: []*watypes.RawMessage{raw},
		})

	case *events.CallOffer:
		c.handler.HandleCall(watypes.CallEvent{
			ID:        v.CallID,
			From:      v.From.String(),
			Timestamp: v.Timestamp.Unix(),
		})

	case *events.HistorySync:
		snapshot := convertHistory(v)
		if len(snapshot.Chats) == 0 && len(snapshot.Contacts) == 0 {
			return
		}
		c.handler.HandleHistorySync(snapshot)
	}
}

func (c *client) consumeQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			if c.printQR {
				qrterminal.GenerateHalfBlock(evt.Code, qrterminal.L, os.Stdout)
			}
			c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{
				State: watypes.ConnectionConnecting,
				QR:    evt.Code,
			})
		case "timeout":
			c.logger.Warn("QR pairing window expired before the code was scanned")
			c.handler.HandleConnectionUpdate(watypes.ConnectionUpdate{
				State: watypes.ConnectionClose,
				Err:   errors.New("pairing code timed out"),
			})
		}
	}
}

func (c *client) SendMessage(ctx context.Context, chatID string, content *watypes.OutboundContent, opts *watypes.SendOptions) (*watypes.SendResponse, error) {
	if content == nil {
		return nil, errors.New("message content is required")
	}

	jid, err := meowtypes.ParseJID(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	msg, err := c.buildMessage(ctx, content)
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.EphemeralExpiration > 0 {
		applyEphemeral(msg, opts.EphemeralExpiration)
	}

	extra := whatsmeow.SendRequestExtra{ID: c.cli.GenerateMessageID()}
	if opts != nil && opts.MessageID != "" {
		extra.ID = meowtypes.MessageID(opts.MessageID)
	}

	resp, err := c.cli.SendMessage(ctx, jid, msg, extra)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &watypes.SendResponse{
		ID:        string(extra.ID),
		Timestamp: resp.Timestamp.Unix(),
	}, nil
}

func (c *client) buildMessage(ctx context.Context, content *watypes.OutboundContent) (*waE2E.Message, error) {
	switch content.Kind {
	case watypes.ContentText:
		return &waE2E.Message{Conversation: proto.String(content.Text)}, nil

	case watypes.ContentMedia:
		return c.buildMediaMessage(ctx, content.Media)

	case watypes.ContentLocation:
		loc := content.Location
		return &waE2E.Message{
			LocationMessage: &waE2E.LocationMessage{
				DegreesLatitude:  proto.Float64(loc.DegreesLatitude),
				DegreesLongitude: proto.Float64(loc.DegreesLongitude),
				Name:             proto.String(loc.Name),
				URL:              proto.String(loc.URL),
				Address:          proto.String(loc.Address),
			},
		}, nil

	case watypes.ContentPoll:
		return c.cli.BuildPollCreation(content.Poll.Name, content.Poll.Options, content.Poll.SelectableCount), nil

	case watypes.ContentContact:
		return &waE2E.Message{
			ContactMessage: &waE2E.ContactMessage{
				DisplayName: proto.String(content.Contact.DisplayName),
				Vcard:       proto.String(content.Contact.VCard),
			},
		}, nil
	}

	return nil, fmt.Errorf("unsupported content kind %q", content.Kind)
}

func (c *client) buildMediaMessage(ctx context.Context, media *watypes.MediaContent) (*waE2E.Message, error) {
	if media == nil || len(media.Data) == 0 {
		return nil, errors.New("media content is empty")
	}

	mimetype := http.DetectContentType(media.Data)
	if media.MimeType != nil && *media.MimeType != "" {
		mimetype = *media.MimeType
	}

	var mediaType whatsmeow.MediaType
	switch media.Type {
	case "image":
		mediaType = whatsmeow.MediaImage
	case "video":
		mediaType = whatsmeow.MediaVideo
	case "audio":
		mediaType = whatsmeow.MediaAudio
	case "document":
		mediaType = whatsmeow.MediaDocument
	default:
		return nil, fmt.Errorf("unsupported media type %q", media.Type)
	}

	uploaded, err := c.cli.Upload(ctx, media.Data, mediaType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload media: %w", err)
	}

	switch media.Type {
	case "image":
		return &waE2E.Message{
			ImageMessage: &waE2E.ImageMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(mimetype),
				Caption:       media.Caption,
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	case "video":
		return &waE2E.Message{
			VideoMessage: &waE2E.VideoMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(mimetype),
				Caption:       media.Caption,
				GifPlayback:   media.GifPlayback,
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	case "audio":
		return &waE2E.Message{
			AudioMessage: &waE2E.AudioMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(mimetype),
				PTT:           media.PTT,
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	default:
		return &waE2E.Message{
			DocumentMessage: &waE2E.DocumentMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(mimetype),
				Caption:       media.Caption,
				FileName:      media.FileName,
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		}, nil
	}
}

// applyEphemeral stamps a disappearing-message expiration onto the built
// payload. Plain text has no context slot, so it is promoted to an extended
// text message first.
func applyEphemeral(msg *waE2E.Message, expiration uint32) {
	info := &waE2E.ContextInfo{Expiration: proto.Uint32(expiration)}
	switch {
	case msg.Conversation != nil:
		msg.ExtendedTextMessage = &waE2E.ExtendedTextMessage{
			Text:        msg.Conversation,
			ContextInfo: info,
		}
		msg.Conversation = nil
	case msg.ImageMessage != nil:
		msg.ImageMessage.ContextInfo = info
	case msg.VideoMessage != nil:
		msg.VideoMessage.ContextInfo = info
	case msg.AudioMessage != nil:
		msg.AudioMessage.ContextInfo = info
	case msg.DocumentMessage != nil:
		msg.DocumentMessage.ContextInfo = info
	case msg.LocationMessage != nil:
		msg.LocationMessage.ContextInfo = info
	case msg.ContactMessage != nil:
		msg.ContactMessage.ContextInfo = info
	}
}

func (c *client) SendPresenceUpdate(ctx context.Context, action, chatID string) error {
	switch action {
	case "available":
		return c.cli.SendPresence(ctx, meowtypes.PresenceAvailable)
	case "unavailable":
		return c.cli.SendPresence(ctx, meowtypes.PresenceUnavailable)
	}

	jid, err := meowtypes.ParseJID(chatID)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	switch action {
	case "composing":
		return c.cli.SendChatPresence(ctx, jid, meowtypes.ChatPresenceComposing, meowtypes.ChatPresenceMediaText)
	case "recording":
		return c.cli.SendChatPresence(ctx, jid, meowtypes.ChatPresenceComposing, meowtypes.ChatPresenceMediaAudio)
	case "paused":
		return c.cli.SendChatPresence(ctx, jid, meowtypes.ChatPresencePaused, meowtypes.ChatPresenceMediaText)
	}
	return fmt.Errorf("unsupported presence action %q", action)
}

func (c *client) FetchStatus(ctx context.Context, chatID string) (string, error) {
	jid, err := meowtypes.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	info, err := c.cli.GetUserInfo(ctx, []meowtypes.JID{jid})
	if err != nil {
		return "", fmt.Errorf("failed to fetch user info: %w", err)
	}

	user, ok := info[jid]
	if !ok {
		return "", nil
	}
	return user.Status, nil
}

func (c *client) ProfilePictureURL(ctx context.Context, chatID, kind string) (string, error) {
	jid, err := meowtypes.ParseJID(chatID)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	params := &whatsmeow.GetProfilePictureParams{Preview: kind == "preview"}
	pic, err := c.cli.GetProfilePictureInfo(ctx, jid, params)
	if err != nil {
		return "", fmt.Errorf("failed to fetch profile picture: %w", err)
	}
	if pic == nil {
		return "", nil
	}
	return pic.URL, nil
}

func (c *client) ResolveNumber(ctx context.Context, number string) (*watypes.NumberInfo, error) {
	if !strings.HasPrefix(number, "+") {
		number = "+" + number
	}

	resp, err := c.cli.IsOnWhatsApp(ctx, []string{number})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve number: %w", err)
	}
	if len(resp) == 0 {
		return nil, nil
	}

	return &watypes.NumberInfo{
		Exists: resp[0].IsIn,
		JID:    resp[0].JID.String(),
	}, nil
}

func (c *client) RejectCall(ctx context.Context, callID, from string) error {
	caller, err := meowtypes.ParseJID(from)
	if err != nil {
		return fmt.Errorf("invalid caller ID %q: %w", from, err)
	}
	return c.cli.RejectCall(ctx, caller, callID)
}

func (c *client) DownloadMedia(ctx context.Context, msg *watypes.RawMessage) ([]byte, error) {
	part := downloadablePart(msg)
	if part == nil {
		return nil, errors.New("message has no downloadable media")
	}
	return c.cli.Download(ctx, part)
}

func (c *client) IsConnected() bool {
	return c.cli.IsConnected()
}

func (c *client) Logout(ctx context.Context) error {
	err := c.cli.Logout(ctx)
	_ = c.db.Close()
	return err
}

func (c *client) Disconnect() {
	c.cli.Disconnect()
	_ = c.db.Close()
}
