package service

import (
	"context"
	"encoding/json"
	"sync"

	watypes "wagate/pkg/whatsapp/types"

	"github.com/stretchr/testify/mock"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) SendMessage(ctx context.Context, chatID string, content *watypes.OutboundContent, opts *watypes.SendOptions) (*watypes.SendResponse, error) {
	args := m.Called(ctx, chatID, content, opts)
	if resp := args.Get(0); resp != nil {
		return resp.(*watypes.SendResponse), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) SendPresenceUpdate(ctx context.Context, action, chatID string) error {
	args := m.Called(ctx, action, chatID)
	return args.Error(0)
}

func (m *mockClient) FetchStatus(ctx context.Context, chatID string) (string, error) {
	args := m.Called(ctx, chatID)
	return args.String(0), args.Error(1)
}

func (m *mockClient) ProfilePictureURL(ctx context.Context, chatID, kind string) (string, error) {
	args := m.Called(ctx, chatID, kind)
	return args.String(0), args.Error(1)
}

func (m *mockClient) ResolveNumber(ctx context.Context, number string) (*watypes.NumberInfo, error) {
	args := m.Called(ctx, number)
	if info := args.Get(0); info != nil {
		return info.(*watypes.NumberInfo), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) RejectCall(ctx context.Context, callID, from string) error {
	args := m.Called(ctx, callID, from)
	return args.Error(0)
}

func (m *mockClient) DownloadMedia(ctx context.Context, msg *watypes.RawMessage) ([]byte, error) {
	args := m.Called(ctx, msg)
	if data := args.Get(0); data != nil {
		return data.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockClient) IsConnected() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *mockClient) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockClient) Disconnect() {
	m.Called()
}

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context, handler watypes.EventHandler) (watypes.Client, error) {
	args := m.Called(ctx, handler)
	if client := args.Get(0); client != nil {
		return client.(watypes.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

type staticRegistry struct {
	urls []string
	err  error
}

func (r *staticRegistry) ListWebhooks(ctx context.Context) ([]string, error) {
	return r.urls, r.err
}

type dispatched struct {
	urls    []string
	payload interface{}
}

// captureDispatcher records deliveries and signals each one on a channel so
// tests can wait for the router's asynchronous processing.
type captureDispatcher struct {
	mu    sync.Mutex
	calls []dispatched
	ch    chan dispatched
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{ch: make(chan dispatched, 32)}
}

func (d *captureDispatcher) Deliver(ctx context.Context, urls []string, payload interface{}) {
	call := dispatched{urls: urls, payload: payload}
	d.mu.Lock()
	d.calls = append(d.calls, call)
	d.mu.Unlock()
	d.ch <- call
}

type captureChatStore struct {
	mu       sync.Mutex
	chats    []json.RawMessage
	contacts []json.RawMessage
	merges   int
	err      error
}

func (s *captureChatStore) Merge(newChats, newContacts []json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.chats = append(s.chats, newChats...)
	s.contacts = append(s.contacts, newContacts...)
	s.merges++
	return nil
}

type captureCredSaver struct {
	mu    sync.Mutex
	saved []json.RawMessage
	ch    chan json.RawMessage
}

func newCaptureCredSaver() *captureCredSaver {
	return &captureCredSaver{ch: make(chan json.RawMessage, 8)}
}

func (s *captureCredSaver) Save(creds json.RawMessage) error {
	s.mu.Lock()
	s.saved = append(s.saved, creds)
	s.mu.Unlock()
	s.ch <- creds
	return nil
}

type stubClassifier struct {
	status     map[string]bool
	broadcast  map[string]bool
	newsletter map[string]bool
}

func (c *stubClassifier) IsStatusBroadcast(jid string) bool { return c.status[jid] }
func (c *stubClassifier) IsBroadcast(jid string) bool       { return c.broadcast[jid] }
func (c *stubClassifier) IsNewsletter(jid string) bool      { return c.newsletter[jid] }

func emptyClassifier() *stubClassifier {
	return &stubClassifier{
		status:     map[string]bool{},
		broadcast:  map[string]bool{},
		newsletter: map[string]bool{},
	}
}
