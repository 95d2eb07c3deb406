package graphflow

import (
	"encoding/json"
	"time"

	"go.jetify.com/typeid"
)

// NewCheckpointID returns a new unique checkpoint ID. IDs sort
// lexicographically in creation order.
func NewCheckpointID() string {
	id, err := typeid.WithPrefix("ckpt")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// CheckpointInfo is the opaque handle returned when a checkpoint is
// committed. Parent IDs chain checkpoints into a lineage, so a caller can
// branch or restart from any prior step, not only the latest.
type CheckpointInfo struct {
	RunID        string `json:"run_id"`
	CheckpointID string `json:"checkpoint_id"`
	ParentID     string `json:"parent_id,omitempty"`
}

// RequestRecord is the serialized form of an outstanding external request.
type RequestRecord struct {
	RequestID  string        `json:"request_id"`
	ExecutorID string        `json:"executor_id"`
	Port       PortInfo      `json:"port"`
	Payload    MessageRecord `json:"payload"`
	SuperStep  int           `json:"super_step"`
}

// Checkpoint is a point-in-time snapshot of full run state, captured at a
// super-step boundary after all message routing for the step is finalized.
// This struct is designed to be fully serializable; the checkpoint manager's
// marshaller decides the storage representation.
type Checkpoint struct {
	RunID          string                                `json:"run_id"`
	CheckpointID   string                                `json:"checkpoint_id"`
	ParentID       string                                `json:"parent_id,omitempty"`
	WorkflowName   string                                `json:"workflow_name"`
	Status         RunStatus                             `json:"status"`
	SuperStep      int                                   `json:"super_step"`
	Mailboxes      map[string][]MessageRecord            `json:"mailboxes"`
	FanIn          map[string]map[string][]MessageRecord `json:"fan_in,omitempty"`
	ExecutorStates map[string]json.RawMessage            `json:"executor_states,omitempty"`
	Requests       []RequestRecord                       `json:"requests,omitempty"`
	Outputs        []MessageRecord                       `json:"outputs,omitempty"`
	CreatedAt      time.Time                             `json:"created_at"`
}

// Info returns the opaque handle for this checkpoint.
func (c *Checkpoint) Info() CheckpointInfo {
	return CheckpointInfo{
		RunID:        c.RunID,
		CheckpointID: c.CheckpointID,
		ParentID:     c.ParentID,
	}
}
