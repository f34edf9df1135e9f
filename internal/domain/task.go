package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InsightRoomPrefix is the push gateway room namespace for sprint insight updates.
const InsightRoomPrefix = "sprint-insight"

// Task represents one request to compute insights for a project sprint.
// User attributes the request for personalization and audit; it does not
// take part in the identity of the work (see Key).
type Task struct {
	ProjectID int64  `json:"projectId"`
	SprintID  int64  `json:"sprintId"`
	User      string `json:"user"`
}

// TaskKey identifies a unit of exclusive work. Two tasks with the same key
// refer to the same logical job even if their users differ.
type TaskKey string

// NewTask creates a Task and validates it.
func NewTask(projectID, sprintID int64, user string) (Task, error) {
	t := Task{
		ProjectID: projectID,
		SprintID:  sprintID,
		User:      user,
	}

	if err := t.Validate(); err != nil {
		return Task{}, err
	}

	return t, nil
}

// Key returns the projectId:sprintId key of the task.
func (t Task) Key() TaskKey {
	return NewTaskKey(t.ProjectID, t.SprintID)
}

// Validate checks presence of the task fields. Values are otherwise opaque.
func (t Task) Validate() error {
	if t.ProjectID <= 0 {
		return fmt.Errorf("%w: project ID must be positive", ErrValidation)
	}

	if t.SprintID <= 0 {
		return fmt.Errorf("%w: sprint ID must be positive", ErrValidation)
	}

	if strings.TrimSpace(t.User) == "" {
		return fmt.Errorf("%w: user cannot be empty", ErrValidation)
	}

	return nil
}

// String renders the task for log lines.
func (t Task) String() string {
	return fmt.Sprintf("%d_%d_%s", t.ProjectID, t.SprintID, t.User)
}

// NewTaskKey builds the key for a project sprint pair.
func NewTaskKey(projectID, sprintID int64) TaskKey {
	return TaskKey(strconv.FormatInt(projectID, 10) + ":" + strconv.FormatInt(sprintID, 10))
}

// ParseTaskKey splits a key back into its project and sprint IDs.
func ParseTaskKey(s string) (projectID, sprintID int64, err error) {
	left, right, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTaskKey, s)
	}

	projectID, err = strconv.ParseInt(left, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidTaskKey, s, err)
	}

	sprintID, err = strconv.ParseInt(right, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q: %v", ErrInvalidTaskKey, s, err)
	}

	return projectID, sprintID, nil
}

// String returns the key as a plain string.
func (k TaskKey) String() string {
	return string(k)
}

// EncodeTask serializes a task into its wire payload,
// {"projectId":1,"sprintId":10,"user":"alice"}.
func EncodeTask(t Task) ([]byte, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}
	return b, nil
}

// DecodeTask parses a wire payload. Field presence is not checked here;
// callers decide whether a partial task is usable.
func DecodeTask(payload []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(payload, &t); err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrMalformedTask, err)
	}
	return t, nil
}

// InsightRoom returns the push gateway room for a sprint, sprint-insight/{sprintId}.
func InsightRoom(sprintID int64) string {
	return InsightRoomPrefix + "/" + strconv.FormatInt(sprintID, 10)
}
