package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		projectID int64
		sprintID  int64
		user      string
		wantErr   bool
	}{
		{name: "valid", projectID: 1, sprintID: 10, user: "alice"},
		{name: "zero project", projectID: 0, sprintID: 10, user: "alice", wantErr: true},
		{name: "negative sprint", projectID: 1, sprintID: -1, user: "alice", wantErr: true},
		{name: "blank user", projectID: 1, sprintID: 10, user: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := NewTask(tt.projectID, tt.sprintID, tt.user)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.user, task.User)
		})
	}
}

func TestTaskKey(t *testing.T) {
	t.Parallel()

	a := Task{ProjectID: 1, SprintID: 10, User: "alice"}
	b := Task{ProjectID: 1, SprintID: 10, User: "bob"}

	assert.Equal(t, TaskKey("1:10"), a.Key())
	assert.Equal(t, a.Key(), b.Key(), "user must not take part in the key")

	projectID, sprintID, err := ParseTaskKey(a.Key().String())
	require.NoError(t, err)
	assert.Equal(t, int64(1), projectID)
	assert.Equal(t, int64(10), sprintID)

	for _, bad := range []string{"", "1", "x:10", "1:y"} {
		_, _, err := ParseTaskKey(bad)
		assert.ErrorIs(t, err, ErrInvalidTaskKey, "key %q", bad)
	}
}

func TestTaskWirePayload(t *testing.T) {
	t.Parallel()

	payload, err := EncodeTask(Task{ProjectID: 1, SprintID: 10, User: "alice"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"projectId":1,"sprintId":10,"user":"alice"}`, string(payload))

	task, err := DecodeTask([]byte(`{"projectId":2,"sprintId":20,"user":"bob"}`))
	require.NoError(t, err)
	assert.Equal(t, Task{ProjectID: 2, SprintID: 20, User: "bob"}, task)

	// Missing fields decode to zero values rather than failing.
	task, err = DecodeTask([]byte(`{"user":"bob"}`))
	require.NoError(t, err)
	assert.Zero(t, task.SprintID)

	_, err = DecodeTask([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedTask)

	_, err = DecodeTask([]byte(`{"sprintId":"ten"}`))
	assert.ErrorIs(t, err, ErrMalformedTask)
}

func TestInsightRoom(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "sprint-insight/42", InsightRoom(42))
}

func TestNewSprintInsight(t *testing.T) {
	t.Parallel()

	insight, err := NewSprintInsight(10, CategoryBacklog, "all done")
	require.NoError(t, err)
	assert.False(t, insight.CreatedAt.IsZero())

	_, err = NewSprintInsight(0, CategoryBacklog, "x")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSprintInsight(10, "", "x")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewSprintInsight(10, CategoryBacklog, "")
	assert.ErrorIs(t, err, ErrEmptyContent)
}
