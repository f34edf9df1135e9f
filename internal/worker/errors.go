package worker

import "errors"

var (
	// ErrEnginePanic is returned when the insight engine panics while processing a task.
	ErrEnginePanic = errors.New("insight engine panicked")

	// ErrSubscriptionClosed is returned by Run when the wake-up subscription ends unexpectedly.
	ErrSubscriptionClosed = errors.New("wake-up subscription closed")
)
