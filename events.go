package graphflow

// Event is a workflow observability event surfaced on a run's stream.
type Event interface {
	// EventType returns a stable name for the event kind.
	EventType() string
}

// ExecutorCompletedEvent is emitted when an executor finishes processing its
// inbox for a super-step.
type ExecutorCompletedEvent struct {
	ExecutorID string
	SuperStep  int
}

func (e ExecutorCompletedEvent) EventType() string { return "executor.completed" }

// ExecutorFailedEvent is emitted when an executor handler returns an error.
// The run is faulted; there is no automatic retry.
type ExecutorFailedEvent struct {
	ExecutorID string
	SuperStep  int
	Err        error
}

func (e ExecutorFailedEvent) EventType() string { return "executor.failed" }

// ExecutorEvent carries data emitted by a handler via Context.AddEvent.
type ExecutorEvent struct {
	ExecutorID string
	SuperStep  int
	Data       any
}

func (e ExecutorEvent) EventType() string { return "executor.event" }

// SuperStepCompletedEvent is emitted after a super-step's routing is
// finalized. Checkpoint is non-nil when a checkpoint manager is attached and
// the commit succeeded; callers may retain it to resume from this step later.
type SuperStepCompletedEvent struct {
	SuperStep      int
	QueuedMessages int
	Checkpoint     *CheckpointInfo
}

func (e SuperStepCompletedEvent) EventType() string { return "superstep.completed" }

// RequestInfoEvent is emitted when an executor requests external input. The
// run will not complete while the request is outstanding; respond with
// SendResponse using the same request ID.
type RequestInfoEvent struct {
	Request *ExternalRequest
}

func (e RequestInfoEvent) EventType() string { return "request.info" }

// WorkflowOutputEvent is emitted when an executor yields an output value.
type WorkflowOutputEvent struct {
	ExecutorID string
	SuperStep  int
	Output     any
}

func (e WorkflowOutputEvent) EventType() string { return "workflow.output" }

// WorkflowCompletedEvent is the terminal event of a successful run.
type WorkflowCompletedEvent struct {
	RunID      string
	SuperSteps int
	Outputs    []any
}

func (e WorkflowCompletedEvent) EventType() string { return "workflow.completed" }

// WorkflowFailedEvent is the terminal event of a faulted or canceled run.
type WorkflowFailedEvent struct {
	RunID string
	Err   error
}

func (e WorkflowFailedEvent) EventType() string { return "workflow.failed" }
