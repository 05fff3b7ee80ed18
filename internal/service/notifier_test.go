package service

import (
	"testing"

	"wagate/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoticeBroadcaster_PublishReachesAllSubscribers(t *testing.T) {
	b := NewNoticeBroadcaster()

	one, cancelOne := b.Subscribe()
	defer cancelOne()
	two, cancelTwo := b.Subscribe()
	defer cancelTwo()

	b.Publish(models.Notice{Text: "Connected to WhatsApp!"})

	assert.Equal(t, "Connected to WhatsApp!", (<-one).Text)
	assert.Equal(t, "Connected to WhatsApp!", (<-two).Text)
}

func TestNoticeBroadcaster_CancelStopsDelivery(t *testing.T) {
	b := NewNoticeBroadcaster()

	ch, cancel := b.Subscribe()
	cancel()

	b.Publish(models.Notice{Text: "after cancel"})

	_, open := <-ch
	assert.False(t, open)
}

func TestNoticeBroadcaster_CancelIsIdempotent(t *testing.T) {
	b := NewNoticeBroadcaster()

	_, cancel := b.Subscribe()
	cancel()
	require.NotPanics(t, cancel)
}

func TestNoticeBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewNoticeBroadcaster()

	ch, cancel := b.Subscribe()
	defer cancel()

	// Overflow the buffer; Publish must never block.
	for i := 0; i < noticeBufferSize*2; i++ {
		b.Publish(models.Notice{Text: "flood"})
	}

	drained := 0
	for len(ch) > 0 {
		<-ch
		drained++
	}
	assert.Equal(t, noticeBufferSize, drained)
}
