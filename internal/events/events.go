package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/sprint-insights/internal/domain"
)

// InsightEventType names what happened to a sprint's insights. The values
// double as push gateway event names.
type InsightEventType string

const (
	// InsightUpdated is emitted after insights were generated and stored.
	InsightUpdated InsightEventType = "updated"

	// InsightFailed is emitted after generation failed.
	InsightFailed InsightEventType = "failed"
)

// InsightEvent reports the result of one insight task.
type InsightEvent struct {
	ID        uuid.UUID        `json:"id"`
	Type      InsightEventType `json:"type"`
	Task      domain.Task      `json:"task"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewInsightEvent creates an event of eventType for task.
func NewInsightEvent(eventType InsightEventType, task domain.Task) *InsightEvent {
	return &InsightEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Task:      task,
		CreatedAt: time.Now().UTC(),
	}
}

// Room returns the push gateway room of the event's sprint.
func (e *InsightEvent) Room() string {
	return domain.InsightRoom(e.Task.SprintID)
}

// EventHandler processes insight events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *InsightEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *InsightEvent) error

// HandleEvent calls f(ctx, event).
func (f HandlerFunc) HandleEvent(ctx context.Context, event *InsightEvent) error {
	return f(ctx, event)
}

// EventEmitter publishes insight events to handlers.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *InsightEvent) error
}
