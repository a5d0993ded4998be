package app

import (
	"context"
	"log"
	"time"

	"github.com/JosePanoy/Web-App-Shoe-Vendo/pkg/rabbitmq"
)

// EventPublisher publishes domain events to one exchange. Publish failures are logged
// and never surface to callers; delivery is at-least-once best effort.
type EventPublisher struct {
	publisher rabbitmq.Publisher
	exchange  string
}

// NewEventPublisher falls back to the no-op publisher when p is nil.
func NewEventPublisher(p rabbitmq.Publisher, exchange string) *EventPublisher {
	if p == nil {
		p = &rabbitmq.EventProducerFallback{}
	}
	return &EventPublisher{publisher: p, exchange: exchange}
}

func (e *EventPublisher) publish(ctx context.Context, routingKey string, body interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	// Detached from the request so a client disconnect does not drop the event.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := e.publisher.Publish(publishCtx, e.exchange, routingKey, body); err != nil {
		log.Printf("level=warn component=events msg=\"event publish failed\" exchange=%s routing_key=%s err=%v", e.exchange, routingKey, err)
	}
}
