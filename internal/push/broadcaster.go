package push

import (
	"context"
	"log/slog"

	"github.com/phrazzld/sprint-insights/internal/events"
)

// Broadcaster forwards insight events to the room of their sprint.
type Broadcaster struct {
	hub    *Hub
	logger *slog.Logger
}

var _ events.EventHandler = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster writing to hub.
func NewBroadcaster(hub *Hub, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{hub: hub, logger: logger.With("component", "push_broadcaster")}
}

// HandleEvent broadcasts the event type to sprint-insight/{sprintId}.
// Nobody listening is not an error.
func (b *Broadcaster) HandleEvent(_ context.Context, event *events.InsightEvent) error {
	room := event.Room()
	n := b.hub.Broadcast(room, string(event.Type))
	if n == 0 {
		b.logger.Debug("no push clients in room", "room", room, "event", string(event.Type))
	}
	return nil
}
