package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionPrune removes expired session audit rows.
	TaskSessionPrune = "sessions:prune"
)

// SessionPrunePayload bounds how long expired session audit rows are
// retained before the prune removes them.
type SessionPrunePayload struct {
	Retention time.Duration `json:"retention"`
}

// NewSessionPruneTask constructs an Asynq task.
func NewSessionPruneTask(payload SessionPrunePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionPrune, data), nil
}
