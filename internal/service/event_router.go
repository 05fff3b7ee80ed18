package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"sync"
	"time"

	"wagate/internal/constants"
	"wagate/internal/metrics"
	"wagate/internal/models"
	watypes "wagate/pkg/whatsapp/types"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// WebhookRegistry lists the currently subscribed destination URLs.
type WebhookRegistry interface {
	ListWebhooks(ctx context.Context) ([]string, error)
}

// Dispatcher fans a payload out to subscriber URLs without blocking.
type Dispatcher interface {
	Deliver(ctx context.Context, urls []string, payload interface{})
}

// ChatStore accumulates history snapshot records.
type ChatStore interface {
	Merge(newChats, newContacts []json.RawMessage) error
}

// MessagePayload is the webhook body for a qualifying inbound message.
type MessagePayload struct {
	MessageType string           `json:"messageType"`
	Message     AddressedMessage `json:"message"`
	Media       watypes.MediaRef `json:"media"`
}

// AddressedMessage is the raw message with the sender identifier lifted to a
// top-level field.
type AddressedMessage struct {
	*watypes.RawMessage
	From string `json:"from"`
}

// CallPayload is the webhook body for an incoming call.
type CallPayload struct {
	Call watypes.CallEvent `json:"call"`
}

type routedEvent struct {
	creds   json.RawMessage
	batch   *watypes.MessageBatch
	call    *watypes.CallEvent
	history *watypes.HistorySnapshot
}

// EventRouter consumes the provider event stream, classifies and filters
// events, resolves inline media and fans qualifying payloads out to every
// registered webhook. Batches are processed with bounded cross-batch
// concurrency; messages within one batch stay in order.
type EventRouter struct {
	registry   WebhookRegistry
	dispatcher Dispatcher
	chatStore  ChatStore
	creds      watypes.CredentialSaver
	classifier watypes.JIDClassifier
	clientFn   func() watypes.Client
	logger     *logrus.Logger

	queue       chan routedEvent
	concurrency int

	mu      sync.Mutex
	started bool
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

func NewEventRouter(
	cfg models.RouterConfig,
	registry WebhookRegistry,
	dispatcher Dispatcher,
	chatStore ChatStore,
	creds watypes.CredentialSaver,
	classifier watypes.JIDClassifier,
	clientFn func() watypes.Client,
	logger *logrus.Logger,
) *EventRouter {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = constants.DefaultEventQueueSize
	}
	concurrency := cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultBatchConcurrency
	}

	return &EventRouter{
		registry:    registry,
		dispatcher:  dispatcher,
		chatStore:   chatStore,
		creds:       creds,
		classifier:  classifier,
		clientFn:    clientFn,
		logger:      logger,
		queue:       make(chan routedEvent, queueSize),
		concurrency: concurrency,
		done:        make(chan struct{}),
	}
}

// Start launches the dispatch loop. It returns immediately.
func (r *EventRouter) Start(ctx context.Context) {
	r.startOnce.Do(func() {
		r.mu.Lock()
		r.started = true
		r.mu.Unlock()
		go r.run(ctx)
	})
}

// Stop drains the queue and waits for in-flight batches to finish. Provider
// callbacks may still fire during and after Stop; their events are dropped.
func (r *EventRouter) Stop() {
	r.stopOnce.Do(func() {
		r.mu.Lock()
		r.stopped = true
		r.mu.Unlock()
		close(r.queue)
	})

	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if started {
		<-r.done
	}
}

func (r *EventRouter) run(ctx context.Context) {
	defer close(r.done)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for evt := range r.queue {
		switch {
		case evt.creds != nil:
			if err := r.creds.Save(evt.creds); err != nil {
				r.logger.WithError(err).Warn("Failed to persist credentials update")
			}
		case evt.call != nil:
			r.handleCall(gctx, *evt.call)
		case evt.history != nil:
			r.handleHistory(*evt.history)
		case evt.batch != nil:
			batch := *evt.batch
			g.Go(func() error {
				r.processBatch(gctx, batch)
				return nil
			})
		}
	}

	_ = g.Wait()
}

// HandleCredentialsUpdated implements types.EventHandler.
func (r *EventRouter) HandleCredentialsUpdated(creds json.RawMessage) {
	r.enqueue(routedEvent{creds: creds})
}

// HandleMessageBatch implements types.EventHandler.
func (r *EventRouter) HandleMessageBatch(batch watypes.MessageBatch) {
	r.enqueue(routedEvent{batch: &batch})
}

// HandleCall implements types.EventHandler.
func (r *EventRouter) HandleCall(call watypes.CallEvent) {
	r.enqueue(routedEvent{call: &call})
}

// HandleHistorySync implements types.EventHandler.
func (r *EventRouter) HandleHistorySync(snapshot watypes.HistorySnapshot) {
	r.enqueue(routedEvent{history: &snapshot})
}

// enqueue never blocks the provider's event callback: when the queue is full
// the event is dropped and counted. The send happens under the same lock
// Stop takes before closing the queue, so late callbacks cannot hit a closed
// channel.
func (r *EventRouter) enqueue(evt routedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		r.logger.Debug("Router stopped, dropping event")
		return
	}

	select {
	case r.queue <- evt:
	default:
		metrics.GetRegistry().IncrementCounter("router_events_dropped_total", nil, "Events dropped because the queue was full")
		r.logger.Warn("Event queue full, dropping event")
	}
}

func (r *EventRouter) processBatch(ctx context.Context, batch watypes.MessageBatch) {
	urls, err := r.registry.ListWebhooks(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list webhooks")
		return
	}
	if len(urls) == 0 {
		return
	}

	for _, msg := range batch.Messages {
		if msg == nil || msg.Key.FromMe || msg.Message == nil {
			continue
		}

		from := msg.Key.RemoteJID
		if r.classifier.IsStatusBroadcast(from) || r.classifier.IsNewsletter(from) || r.classifier.IsBroadcast(from) {
			continue
		}

		media := watypes.MediaRef{MimeType: MediaMimeType(msg.Message)}
		if media.MimeType != "" {
			// A failed download leaves the media data empty; the message is
			// still delivered and never aborts its siblings.
			if data, err := r.downloadMedia(ctx, msg); err != nil {
				r.logger.WithError(err).WithField("from", from).Warn("Failed to download media")
			} else {
				media.Data = base64.StdEncoding.EncodeToString(data)
			}
		}

		payload := MessagePayload{
			MessageType: batch.Type,
			Message:     AddressedMessage{RawMessage: msg, From: from},
			Media:       media,
		}
		r.dispatcher.Deliver(ctx, urls, payload)
		metrics.GetRegistry().IncrementCounter("messages_routed_total", nil, "Inbound messages fanned out to webhooks")
	}
}

func (r *EventRouter) downloadMedia(ctx context.Context, msg *watypes.RawMessage) ([]byte, error) {
	client := r.clientFn()
	if client == nil {
		return nil, errNoClient
	}

	downloadCtx, cancel := context.WithTimeout(ctx, time.Duration(constants.DefaultMediaDownloadTimeoutSec)*time.Second)
	defer cancel()
	return client.DownloadMedia(downloadCtx, msg)
}

func (r *EventRouter) handleCall(ctx context.Context, call watypes.CallEvent) {
	if client := r.clientFn(); client != nil {
		if err := client.RejectCall(ctx, call.ID, call.From); err != nil {
			r.logger.WithError(err).Debug("Failed to reject call")
		}
	}

	urls, err := r.registry.ListWebhooks(ctx)
	if err != nil {
		r.logger.WithError(err).Error("Failed to list webhooks")
		return
	}
	if len(urls) == 0 {
		return
	}
	r.dispatcher.Deliver(ctx, urls, CallPayload{Call: call})
}

func (r *EventRouter) handleHistory(snapshot watypes.HistorySnapshot) {
	if err := r.chatStore.Merge(snapshot.Chats, snapshot.Contacts); err != nil {
		r.logger.WithError(err).Error("Failed to merge history snapshot")
	}
}

// MediaMimeType probes the message body's media sub-fields in a fixed order
// and returns the first non-empty MIME type, or "" when the message carries
// no recognized media. Stickers are deliberately not probed.
func MediaMimeType(body *watypes.MessageBody) string {
	if body == nil {
		return ""
	}
	if body.ImageMessage != nil && body.ImageMessage.MimeType != "" {
		return body.ImageMessage.MimeType
	}
	if body.AudioMessage != nil && body.AudioMessage.MimeType != "" {
		return body.AudioMessage.MimeType
	}
	if body.VideoMessage != nil && body.VideoMessage.MimeType != "" {
		return body.VideoMessage.MimeType
	}
	if body.DocumentMessage != nil && body.DocumentMessage.MimeType != "" {
		return body.DocumentMessage.MimeType
	}
	if dwc := body.DocumentWithCaptionMessage; dwc != nil && dwc.Message != nil && dwc.Message.DocumentMessage != nil {
		return dwc.Message.DocumentMessage.MimeType
	}
	return ""
}
