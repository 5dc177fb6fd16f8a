package conversation

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"meshchat/internal/domain"
)

// DefaultSeenSize bounds the duplicate-message cache.
const DefaultSeenSize = 4096

// Handler consumes transport events.
type Handler interface {
	HandleEvent(ctx context.Context, ev domain.Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, ev domain.Event)

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, ev domain.Event) { f(ctx, ev) }

// EventLoop delivers transport events to one Handler on one goroutine.
type EventLoop struct {
	handler Handler
	seen    *lru.Cache[string, struct{}]
	log     *zap.Logger
}

// NewEventLoop constructs an EventLoop remembering up to seenSize message IDs.
func NewEventLoop(h Handler, seenSize int, log *zap.Logger) (*EventLoop, error) {
	if seenSize <= 0 {
		seenSize = DefaultSeenSize
	}
	seen, err := lru.New[string, struct{}](seenSize)
	if err != nil {
		return nil, fmt.Errorf("seen cache: %w", err)
	}
	return &EventLoop{handler: h, seen: seen, log: log.Named("events")}, nil
}

// Run consumes events until ctx is done or the channel is closed.
func (l *EventLoop) Run(ctx context.Context, events <-chan domain.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if l.duplicate(ev) {
				l.log.Debug("dropping duplicate message", zap.String("id", ev.Message.ID))
				continue
			}
			l.handler.HandleEvent(ctx, ev)
		}
	}
}

// Forget clears the duplicate cache.
func (l *EventLoop) Forget() { l.seen.Purge() }

func (l *EventLoop) duplicate(ev domain.Event) bool {
	if ev.Kind != domain.EventMessageReceived || ev.Message == nil || ev.Message.ID == "" {
		return false
	}
	found, _ := l.seen.ContainsOrAdd(ev.Message.ID, struct{}{})
	return found
}
