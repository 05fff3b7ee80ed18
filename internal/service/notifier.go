package service

import (
	"sync"

	"wagate/internal/models"
)

const noticeBufferSize = 16

// NoticeBroadcaster pushes connectivity notices to live subscribers. Slow
// subscribers miss notices rather than blocking the publisher.
type NoticeBroadcaster struct {
	mu   sync.Mutex
	subs map[chan models.Notice]struct{}
}

func NewNoticeBroadcaster() *NoticeBroadcaster {
	return &NoticeBroadcaster{
		subs: make(map[chan models.Notice]struct{}),
	}
}

// Subscribe registers a listener. The returned cancel function must be
// called to release the subscription.
func (b *NoticeBroadcaster) Subscribe() (<-chan models.Notice, func()) {
	ch := make(chan models.Notice, noticeBufferSize)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the notice to every subscriber without blocking.
func (b *NoticeBroadcaster) Publish(notice models.Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		select {
		case ch <- notice:
		default:
		}
	}
}
