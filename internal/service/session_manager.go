package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"wagate/internal/constants"
	"wagate/internal/models"
	"wagate/internal/store"
	watypes "wagate/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
)

var errNoClient = errors.New("no active session client")

// SessionState is the session lifecycle state.
type SessionState string

const (
	StateIdle            SessionState = "idle"
	StateConnecting      SessionState = "connecting"
	StatePairingRequired SessionState = "pairing_required"
	StateConnected       SessionState = "connected"
	StateClosing         SessionState = "closing"
	StateLoggedOut       SessionState = "logged_out"
)

// SessionManager owns the single provider client instance and drives the
// connect/reconnect state machine. Disconnects not caused by an explicit
// logout re-enter Start exactly once per close event; the in-flight guard
// keeps racing close events from spawning parallel reconnects.
type SessionManager struct {
	connector watypes.Connector
	router    *EventRouter
	notifier  *NoticeBroadcaster
	chatStore *store.ChatContactStore
	logger    *logrus.Logger

	mu                sync.Mutex
	state             SessionState
	client            watypes.Client
	lastQR            string
	reconnectInFlight bool
}

func NewSessionManager(
	connector watypes.Connector,
	router *EventRouter,
	notifier *NoticeBroadcaster,
	chatStore *store.ChatContactStore,
	logger *logrus.Logger,
) *SessionManager {
	return &SessionManager{
		connector: connector,
		router:    router,
		notifier:  notifier,
		chatStore: chatStore,
		logger:    logger,
		state:     StateIdle,
	}
}

// Start opens the session. It is a no-op, with an "already connected"
// notice, when the session is already up. Event handlers are bound before
// the call returns; pairing may follow asynchronously.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnected && m.client != nil {
		m.mu.Unlock()
		m.logger.Debug("WhatsApp is already connected")
		go func() {
			time.Sleep(constants.AlreadyConnectedDelayMs * time.Millisecond)
			m.notifier.Publish(models.Notice{Text: "WhatsApp is already connected!"})
		}()
		return nil
	}
	m.state = StateConnecting
	m.mu.Unlock()

	client, err := m.connector.Connect(ctx, m)
	if err != nil {
		m.mu.Lock()
		m.state = StateIdle
		m.mu.Unlock()
		return fmt.Errorf("failed to open session: %w", err)
	}

	m.mu.Lock()
	m.client = client
	m.mu.Unlock()
	return nil
}

// Logout revokes the session with the provider, best effort. The local
// session is considered closed even when the provider call fails.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	client := m.client
	m.state = StateClosing
	m.mu.Unlock()

	if client != nil {
		if err := client.Logout(ctx); err != nil {
			m.logger.WithError(err).Debug("Provider logout failed")
		}
	}

	m.mu.Lock()
	m.state = StateLoggedOut
	m.lastQR = ""
	m.client = nil
	m.mu.Unlock()
}

// CurrentPairing returns the last known pairing code, a human-readable
// status and the connectivity flag. Callers poll this snapshot.
func (m *SessionManager) CurrentPairing() models.PairingSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return models.PairingSnapshot{
		QR:        m.lastQR,
		Text:      statusText(m.state),
		Connected: m.state == StateConnected,
	}
}

// State returns the current lifecycle state.
func (m *SessionManager) State() SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// CurrentClient returns the live client handle, or nil when no session is
// open. The EventRouter reaches the client through this accessor so that
// reconnects swap the handle atomically.
func (m *SessionManager) CurrentClient() watypes.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

// HandleConnectionUpdate implements types.EventHandler.
func (m *SessionManager) HandleConnectionUpdate(update watypes.ConnectionUpdate) {
	if update.QR != "" {
		m.mu.Lock()
		m.lastQR = update.QR
		m.state = StatePairingRequired
		m.mu.Unlock()
		m.notifier.Publish(models.Notice{QR: update.QR})
		return
	}

	switch update.State {
	case watypes.ConnectionOpen:
		m.mu.Lock()
		m.state = StateConnected
		m.lastQR = ""
		m.mu.Unlock()
		m.logger.Info("Connected to WhatsApp")
		m.notifier.Publish(models.Notice{Text: "Connected to WhatsApp!"})

	case watypes.ConnectionClose:
		m.handleClose(update)
	}
}

func (m *SessionManager) handleClose(update watypes.ConnectionUpdate) {
	text := "Connection closed, attempting to reconnect..."
	if update.Err != nil {
		text = fmt.Sprintf("Disconnection error: %v", update.Err)
	}

	if update.LoggedOut {
		m.mu.Lock()
		m.state = StateLoggedOut
		old := m.client
		m.client = nil
		m.mu.Unlock()
		m.teardown(old)
		m.logger.Info("Connection closed, not reconnecting due to logout or invalid credentials")
		m.notifier.Publish(models.Notice{Text: "Connection closed, not reconnecting due to logout or invalid credentials"})
		return
	}

	m.mu.Lock()
	if m.state == StateLoggedOut || m.state == StateClosing {
		m.mu.Unlock()
		return
	}
	if m.reconnectInFlight {
		m.mu.Unlock()
		return
	}
	m.reconnectInFlight = true
	m.state = StateConnecting
	old := m.client
	m.client = nil
	m.mu.Unlock()

	m.logger.WithField("cause", text).Info("Reconnecting session")
	m.notifier.Publish(models.Notice{Text: text})

	go func() {
		defer func() {
			m.mu.Lock()
			m.reconnectInFlight = false
			m.mu.Unlock()
		}()
		m.teardown(old)
		if err := m.Start(context.Background()); err != nil {
			m.logger.WithError(err).Error("Reconnect attempt failed")
		}
	}()
}

// teardown releases the resources of a client that is being replaced or
// abandoned. Every swap of m.client to a new value or nil routes the old
// handle through here so its store connection is closed.
func (m *SessionManager) teardown(old watypes.Client) {
	if old == nil {
		return
	}
	old.Disconnect()
}

// HandleCredentialsUpdated implements types.EventHandler.
func (m *SessionManager) HandleCredentialsUpdated(creds json.RawMessage) {
	m.router.HandleCredentialsUpdated(creds)
}

// HandleMessageBatch implements types.EventHandler.
func (m *SessionManager) HandleMessageBatch(batch watypes.MessageBatch) {
	m.router.HandleMessageBatch(batch)
}

// HandleCall implements types.EventHandler.
func (m *SessionManager) HandleCall(call watypes.CallEvent) {
	m.router.HandleCall(call)
}

// HandleHistorySync implements types.EventHandler.
func (m *SessionManager) HandleHistorySync(snapshot watypes.HistorySnapshot) {
	m.router.HandleHistorySync(snapshot)
}

// SendMessage builds the provider content for the request and sends it.
// Missing chatId, unbuildable content, a missing client or a provider error
// all degrade to an empty response, never a fault.
func (m *SessionManager) SendMessage(ctx context.Context, req *models.SendRequest) *watypes.SendResponse {
	empty := &watypes.SendResponse{}
	if req == nil || req.ChatID == "" {
		return empty
	}

	content, err := BuildContent(req)
	if err != nil {
		m.logger.WithError(err).Debug("Failed to build message content")
		return empty
	}

	client := m.CurrentClient()
	if client == nil {
		m.logger.Debug("Send attempted without an active session")
		return empty
	}

	var opts *watypes.SendOptions
	if req.Options != nil {
		opts = &watypes.SendOptions{
			MessageID:           req.Options.MessageID,
			EphemeralExpiration: req.Options.EphemeralExpiration,
		}
	}

	resp, err := client.SendMessage(ctx, req.ChatID, content, opts)
	if err != nil {
		m.logger.WithError(err).Debug("Failed to send message")
		return empty
	}
	return resp
}

// Simulate drives a presence update on a chat, best effort.
func (m *SessionManager) Simulate(ctx context.Context, chatID, action string) {
	client := m.CurrentClient()
	if client == nil {
		return
	}
	if err := client.SendPresenceUpdate(ctx, action, chatID); err != nil {
		m.logger.WithError(err).Debug("Failed to send presence update")
	}
}

// ProfileStatus returns the status text of a person or group, or "" when
// the lookup fails.
func (m *SessionManager) ProfileStatus(ctx context.Context, chatID string) string {
	client := m.CurrentClient()
	if client == nil {
		return ""
	}
	status, err := client.FetchStatus(ctx, chatID)
	if err != nil {
		m.logger.WithError(err).Debug("Failed to fetch status")
		return ""
	}
	return status
}

// ProfilePicture returns the profile picture URL of a person or group, or
// "" when the lookup fails.
func (m *SessionManager) ProfilePicture(ctx context.Context, chatID string) string {
	client := m.CurrentClient()
	if client == nil {
		return ""
	}
	url, err := client.ProfilePictureURL(ctx, chatID, "image")
	if err != nil {
		m.logger.WithError(err).Debug("Failed to fetch profile picture")
		return ""
	}
	return url
}

// ResolveNumber looks up the provider identity registered for a phone
// number. An unresolvable number yields nil.
func (m *SessionManager) ResolveNumber(ctx context.Context, number string) *watypes.NumberInfo {
	client := m.CurrentClient()
	if client == nil {
		return nil
	}
	info, err := client.ResolveNumber(ctx, number)
	if err != nil {
		m.logger.WithError(err).Debug("Failed to resolve number")
		return nil
	}
	return info
}

// Chats returns the accumulated chat records.
func (m *SessionManager) Chats() []json.RawMessage {
	snap, err := m.chatStore.Read()
	if err != nil {
		m.logger.WithError(err).Debug("Failed to read chat snapshot")
		return []json.RawMessage{}
	}
	return snap.Chats
}

// Contacts returns the accumulated contact records.
func (m *SessionManager) Contacts() []json.RawMessage {
	snap, err := m.chatStore.Read()
	if err != nil {
		m.logger.WithError(err).Debug("Failed to read contact snapshot")
		return []json.RawMessage{}
	}
	return snap.Contacts
}

func statusText(state SessionState) string {
	switch state {
	case StateConnected:
		return "Connected to WhatsApp!"
	case StatePairingRequired:
		return "Scan the pairing code to connect"
	case StateConnecting:
		return "Connecting to WhatsApp..."
	case StateClosing:
		return "Closing session..."
	case StateLoggedOut:
		return "Logged out, start a new session to reconnect"
	default:
		return "Session not started"
	}
}
