package eventbus

import (
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
)

// Bus is the process-wide broadcast sink for state change events. It is
// handed to components as an explicit dependency so tests and multiple
// monitor instances can use isolated buses.
type Bus interface {
	Publish(topic string, event interface{})
	Subscribe(topic string) (<-chan interface{}, func())
}

// subscriberBuffer bounds how far a subscriber may fall behind before it
// starts missing events.
const subscriberBuffer = 16

type subscriber struct {
	topic string
	ch    chan interface{}
}

// EventBus fans published events out to all subscribers of a topic.
// Publishing never blocks; a subscriber whose buffer is full misses the
// event. There is no delivery acknowledgment.
type EventBus struct {
	subscribers cmap.ConcurrentMap[string, *subscriber]
	logger      zerolog.Logger
}

// NewEventBus creates an empty bus.
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: cmap.New[*subscriber](),
		logger:      logger,
	}
}

// Subscribe registers interest in a topic. The returned function removes the
// subscription; the channel is not closed, so receivers should select on
// their own shutdown signal as well.
func (b *EventBus) Subscribe(topic string) (<-chan interface{}, func()) {
	id := uuid.New().String()
	sub := &subscriber{topic: topic, ch: make(chan interface{}, subscriberBuffer)}
	b.subscribers.Set(id, sub)

	b.logger.Debug().Str("topic", topic).Str("subscription_id", id).Msg("Subscriber registered")

	return sub.ch, func() {
		b.subscribers.Remove(id)
	}
}

// Publish delivers the event to every current subscriber of the topic.
func (b *EventBus) Publish(topic string, event interface{}) {
	for item := range b.subscribers.IterBuffered() {
		sub := item.Val
		if sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn().Str("topic", topic).Msg("Subscriber buffer full, dropping event")
		}
	}
}
