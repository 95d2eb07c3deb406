package graphflow

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/deepnoodle-ai/graphflow/retry"
)

// Marshaller converts checkpoints to and from their storage representation.
// The engine does not mandate a wire format; JSON is the default.
type Marshaller interface {
	Marshal(value any) ([]byte, error)
	Unmarshal(data []byte, value any) error
}

// JSONMarshaller marshals checkpoints as JSON.
type JSONMarshaller struct{}

func (JSONMarshaller) Marshal(value any) ([]byte, error) {
	return json.Marshal(value)
}

func (JSONMarshaller) Unmarshal(data []byte, value any) error {
	return json.Unmarshal(data, value)
}

// CheckpointStore persists marshalled checkpoints. Implementations must
// guarantee at-most-one in-flight save per run ID; the engine does not
// serialize calls to the store.
type CheckpointStore interface {

	// SaveCheckpoint durably stores one checkpoint. Checkpoints are immutable
	// once saved.
	SaveCheckpoint(ctx context.Context, runID, checkpointID string, data []byte) error

	// LoadCheckpoint retrieves a checkpoint by run ID and checkpoint ID.
	LoadCheckpoint(ctx context.Context, runID, checkpointID string) ([]byte, error)

	// ListCheckpoints returns the checkpoint IDs for a run, oldest first.
	ListCheckpoints(ctx context.Context, runID string) ([]string, error)

	// DeleteRun removes all checkpoint data for a run.
	DeleteRun(ctx context.Context, runID string) error
}

// CheckpointManagerOptions configures a CheckpointManager.
type CheckpointManagerOptions struct {
	Store      CheckpointStore
	Marshaller Marshaller
	Logger     *slog.Logger

	// SaveRetries is the number of retries on transient store failures when
	// committing a checkpoint. Zero means a single attempt.
	SaveRetries int
}

// CheckpointManager marshals checkpoints and delegates physical storage to a
// pluggable store. Attach one to a Runner to commit a checkpoint after every
// super-step.
type CheckpointManager struct {
	store       CheckpointStore
	marshaller  Marshaller
	logger      *slog.Logger
	saveRetries int
}

// NewCheckpointManager creates a checkpoint manager. The store is required;
// the marshaller defaults to JSON.
func NewCheckpointManager(opts CheckpointManagerOptions) (*CheckpointManager, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if opts.Marshaller == nil {
		opts.Marshaller = JSONMarshaller{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &CheckpointManager{
		store:       opts.Store,
		marshaller:  opts.Marshaller,
		logger:      opts.Logger,
		saveRetries: opts.SaveRetries,
	}, nil
}

// CommitCheckpoint persists a checkpoint and returns its opaque handle. A
// failed commit means the step is not durably checkpointed; the error is
// surfaced, never swallowed.
func (m *CheckpointManager) CommitCheckpoint(ctx context.Context, checkpoint *Checkpoint) (CheckpointInfo, error) {
	data, err := m.marshaller.Marshal(checkpoint)
	if err != nil {
		return CheckpointInfo{}, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to marshal checkpoint %s: %v", checkpoint.CheckpointID, err),
			Wrapped: err,
		}
	}
	err = retry.Do(ctx, func() error {
		return m.store.SaveCheckpoint(ctx, checkpoint.RunID, checkpoint.CheckpointID, data)
	}, retry.WithMaxRetries(m.saveRetries), retry.WithBaseWait(100*time.Millisecond))
	if err != nil {
		return CheckpointInfo{}, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to save checkpoint %s: %v", checkpoint.CheckpointID, err),
			Wrapped: err,
		}
	}
	m.logger.Debug("checkpoint committed",
		"run_id", checkpoint.RunID,
		"checkpoint_id", checkpoint.CheckpointID,
		"super_step", checkpoint.SuperStep)
	return checkpoint.Info(), nil
}

// LookupCheckpoint retrieves and unmarshals the checkpoint a handle refers to.
func (m *CheckpointManager) LookupCheckpoint(ctx context.Context, info CheckpointInfo) (*Checkpoint, error) {
	data, err := m.store.LoadCheckpoint(ctx, info.RunID, info.CheckpointID)
	if err != nil {
		return nil, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to load checkpoint %s: %v", info.CheckpointID, err),
			Wrapped: err,
		}
	}
	var checkpoint Checkpoint
	if err := m.marshaller.Unmarshal(data, &checkpoint); err != nil {
		return nil, &WorkflowError{
			Type:    ErrorTypeCheckpoint,
			Cause:   fmt.Sprintf("failed to unmarshal checkpoint %s: %v", info.CheckpointID, err),
			Wrapped: err,
		}
	}
	return &checkpoint, nil
}

// LatestCheckpoint returns the handle of the most recent checkpoint for a
// run, or false when the run has none.
func (m *CheckpointManager) LatestCheckpoint(ctx context.Context, runID string) (CheckpointInfo, bool, error) {
	infos, err := m.Checkpoints(ctx, runID)
	if err != nil || len(infos) == 0 {
		return CheckpointInfo{}, false, err
	}
	return infos[len(infos)-1], true, nil
}

// Checkpoints returns the checkpoint lineage for a run, oldest first.
func (m *CheckpointManager) Checkpoints(ctx context.Context, runID string) ([]CheckpointInfo, error) {
	ids, err := m.store.ListCheckpoints(ctx, runID)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	infos := make([]CheckpointInfo, 0, len(ids))
	for _, id := range ids {
		checkpoint, err := m.LookupCheckpoint(ctx, CheckpointInfo{RunID: runID, CheckpointID: id})
		if err != nil {
			return nil, err
		}
		infos = append(infos, checkpoint.Info())
	}
	return infos, nil
}

// DeleteRun removes all checkpoint data for a run.
func (m *CheckpointManager) DeleteRun(ctx context.Context, runID string) error {
	if err := m.store.DeleteRun(ctx, runID); err != nil {
		return err
	}
	m.logger.Info("deleted run checkpoints", "run_id", runID)
	return nil
}
