package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the only queue the console worker serves.
	QueueDefault = "default"
	// TaskPruneSessions deletes auth tokens past their expiry.
	TaskPruneSessions = "auth:prune_sessions"
)

// PruneSessionsPayload is the body of a TaskPruneSessions task.
type PruneSessionsPayload struct {
	// Reason is logged with the run: "cron", "cli" or "api".
	Reason string `json:"reason,omitempty"`
}

// NewPruneSessionsTask encodes a prune request for reason.
func NewPruneSessionsTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(PruneSessionsPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPruneSessions, data), nil
}

// DecodePruneSessionsPayload reads the task body. An empty body is a cron
// run enqueued by an older scheduler.
func DecodePruneSessionsPayload(t *asynq.Task) (PruneSessionsPayload, error) {
	var payload PruneSessionsPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return payload, fmt.Errorf("decode %s payload: %w", t.Type(), err)
		}
	}
	if payload.Reason == "" {
		payload.Reason = "cron"
	}
	return payload, nil
}
