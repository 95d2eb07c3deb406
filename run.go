package graphflow

import (
	"context"
)

// Run is the caller-facing handle over a blocking run. When the run suspends
// on external requests, supply responses with SendResponse and call Resume to
// continue executing super-steps.
type Run struct {
	runner *Runner
}

// RunID returns the run's unique identifier.
func (r *Run) RunID() string {
	return r.runner.RunID()
}

// Status returns the run's current status.
func (r *Run) Status() RunStatus {
	return r.runner.Status()
}

// Events returns every event the run has emitted so far, in order.
func (r *Run) Events() []Event {
	return r.runner.Events()
}

// Outputs returns the output values yielded so far.
func (r *Run) Outputs() []any {
	return r.runner.Outputs()
}

// PendingRequests returns the outstanding external requests.
func (r *Run) PendingRequests() []*ExternalRequest {
	return r.runner.PendingRequests()
}

// SendResponse answers an outstanding external request. See
// Runner.SendResponse for validation semantics.
func (r *Run) SendResponse(ctx context.Context, response ExternalResponse) error {
	return r.runner.SendResponse(ctx, response)
}

// Resume continues a suspended run until it completes, faults, or suspends
// again on further external requests.
func (r *Run) Resume(ctx context.Context) error {
	if status := r.runner.Status(); status != RunStatusSuspended {
		return NewWorkflowError(ErrorTypeInvalidOperation,
			"only a suspended run can be resumed, status is "+string(status))
	}
	err := r.runner.loop(ctx, false)
	return r.runner.finalize(ctx, err)
}

// StreamingRun is the caller-facing handle over a run executing in the
// background. Events arrive on the Watch channel as they are emitted; the
// channel is closed when the run reaches a terminal state.
type StreamingRun struct {
	runner *Runner
	done   chan struct{}
	err    error
}

// RunID returns the run's unique identifier.
func (r *StreamingRun) RunID() string {
	return r.runner.RunID()
}

// Status returns the run's current status.
func (r *StreamingRun) Status() RunStatus {
	return r.runner.Status()
}

// Watch returns the run's event stream. The stream must be drained; the
// runner applies backpressure once the buffer fills.
func (r *StreamingRun) Watch() <-chan Event {
	return r.runner.stream
}

// PendingRequests returns the outstanding external requests.
func (r *StreamingRun) PendingRequests() []*ExternalRequest {
	return r.runner.PendingRequests()
}

// SendResponse answers an outstanding external request, waking the run if it
// is suspended. See Runner.SendResponse for validation semantics.
func (r *StreamingRun) SendResponse(ctx context.Context, response ExternalResponse) error {
	return r.runner.SendResponse(ctx, response)
}

// Outputs returns the output values yielded so far.
func (r *StreamingRun) Outputs() []any {
	return r.runner.Outputs()
}

// Wait blocks until the run reaches a terminal state and returns its error,
// if any.
func (r *StreamingRun) Wait() error {
	<-r.done
	return r.err
}
