package worker

// Outcome is the result of one consumer cycle.
type Outcome int

const (
	// OutcomeEmpty means the queue had nothing to pop.
	OutcomeEmpty Outcome = iota
	// OutcomeMalformed means the popped entry could not be decoded and was dropped.
	OutcomeMalformed
	// OutcomeDiscarded means another holder owned the key and the task was dropped.
	OutcomeDiscarded
	// OutcomeRequeued means another holder owned the key and the task was pushed back.
	OutcomeRequeued
	// OutcomeCompleted means the engine succeeded and completion was announced.
	OutcomeCompleted
	// OutcomeFailed means the task was popped but not generated.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeRequeued:
		return "requeued"
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
