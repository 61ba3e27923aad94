// internal/events/handler.go
package events

import (
	"context"
)

// Handler consumes events delivered by the bus. Delivery happens on the
// bus's dispatch goroutine, so a handler that blocks stalls every
// subscriber behind it.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a bare function subscribe without declaring a type.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is the detach handle returned on subscribe.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id       string
	eventBus *Bus
	typ      EventType
}

func (s *subscription) Unsubscribe() {
	s.eventBus.unsubscribe(s.id, s.typ)
}
