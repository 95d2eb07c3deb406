package graphflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.jetify.com/typeid"
	"golang.org/x/sync/errgroup"
)

// NewRunID returns a new unique run identifier.
func NewRunID() string {
	id, err := typeid.WithPrefix("run")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// RunStatus represents the state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusSuspended RunStatus = "suspended"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunnerOptions configures a new Runner.
type RunnerOptions struct {
	Workflow          *Workflow
	CheckpointManager *CheckpointManager
	Logger            *slog.Logger
	Callbacks         ExecutionCallbacks
	RunID             string
	EventBufferSize   int
}

// Runner drives a single run of a workflow in discrete super-steps. Each
// super-step delivers queued messages to executors, collects their outgoing
// messages and events, routes the messages through the workflow's edges into
// the next round's mailboxes, and commits a checkpoint when a checkpoint
// manager is attached.
//
// Within a super-step, executors with pending messages run concurrently, but
// each executor drains its own inbox sequentially on one goroutine: state
// owned by an executor never sees concurrent mutation from the scheduler, and
// no executor observes another's same-step output before the step boundary.
type Runner struct {
	workflow        *Workflow
	checkpoints     *CheckpointManager
	logger          *slog.Logger
	callbacks       ExecutionCallbacks
	runID           string
	eventBufferSize int

	mutex            sync.Mutex
	status           RunStatus
	superStep        int
	mailboxes        map[string][]Envelope
	fanIn            map[string]*fanInBuffer
	pendingRequests  map[string]*ExternalRequest
	outputs          []any
	events           []Event
	lastCheckpointID string
	runErr           error
	started          bool
	startTime        time.Time

	// wake signals a suspended run loop that a response arrived
	wake   chan struct{}
	stream chan Event
}

// NewRunner creates a runner for one run of the given workflow.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.Workflow == nil {
		return nil, fmt.Errorf("workflow is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseExecutionCallbacks{}
	}
	if opts.RunID == "" {
		opts.RunID = NewRunID()
	}
	if opts.EventBufferSize <= 0 {
		opts.EventBufferSize = 256
	}
	runner := &Runner{
		workflow:        opts.Workflow,
		checkpoints:     opts.CheckpointManager,
		logger:          opts.Logger.With("run_id", opts.RunID, "workflow", opts.Workflow.Name()),
		callbacks:       opts.Callbacks,
		runID:           opts.RunID,
		eventBufferSize: opts.EventBufferSize,
		status:          RunStatusPending,
		mailboxes:       map[string][]Envelope{},
		fanIn:           map[string]*fanInBuffer{},
		pendingRequests: map[string]*ExternalRequest{},
		wake:            make(chan struct{}, 1),
	}
	for _, edge := range opts.Workflow.Edges() {
		if edge.Kind() == EdgeKindFanIn {
			runner.fanIn[edge.key()] = newFanInBuffer(edge)
		}
	}
	return runner, nil
}

// RunID returns the run's unique identifier.
func (r *Runner) RunID() string {
	return r.runID
}

// Status returns the run's current status.
func (r *Runner) Status() RunStatus {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status
}

// Run seeds the start executor with the input and executes super-steps until
// the run completes, faults, or suspends on external requests. A suspended
// run holds its state: supply responses via the returned handle and call
// Resume to continue.
func (r *Runner) Run(ctx context.Context, input any) (*Run, error) {
	if input == nil {
		return nil, fmt.Errorf("run input is required")
	}
	if err := r.start(); err != nil {
		return nil, err
	}
	r.seed(input)
	run := &Run{runner: r}
	return run, r.drive(ctx)
}

// Stream seeds the start executor with the input and executes the run in a
// background goroutine, surfacing events on the returned handle's Watch
// channel. The channel must be drained; it is closed when the run reaches a
// terminal state or suspends with no consumer responses possible.
func (r *Runner) Stream(ctx context.Context, input any) (*StreamingRun, error) {
	if input == nil {
		return nil, fmt.Errorf("run input is required")
	}
	if err := r.start(); err != nil {
		return nil, err
	}
	r.seed(input)
	return r.startStreaming(ctx), nil
}

// ResumeFromCheckpoint replaces the runner's state wholesale with a prior
// checkpoint's state and executes super-steps from there. Already-completed
// super-steps are not re-executed. Requires a checkpoint manager.
func (r *Runner) ResumeFromCheckpoint(ctx context.Context, info CheckpointInfo) (*Run, error) {
	if err := r.start(); err != nil {
		return nil, err
	}
	if err := r.restore(ctx, info); err != nil {
		return nil, err
	}
	run := &Run{runner: r}
	return run, r.drive(ctx)
}

// StreamFromCheckpoint is the streaming form of ResumeFromCheckpoint.
func (r *Runner) StreamFromCheckpoint(ctx context.Context, info CheckpointInfo) (*StreamingRun, error) {
	if err := r.start(); err != nil {
		return nil, err
	}
	if err := r.restore(ctx, info); err != nil {
		return nil, err
	}
	return r.startStreaming(ctx), nil
}

func (r *Runner) start() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.started {
		return NewWorkflowError(ErrorTypeInvalidOperation, "run already started")
	}
	r.started = true
	r.startTime = time.Now()
	return nil
}

// seed places the run input in the start executor's mailbox.
func (r *Runner) seed(input any) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	startID := r.workflow.StartExecutorID()
	r.mailboxes[startID] = append(r.mailboxes[startID], Envelope{
		Target:  startID,
		Message: input,
	})
}

// drive runs the super-step loop to quiescence for blocking runs. A run that
// goes idle with outstanding external requests is left suspended rather than
// blocked; callers respond and Resume.
func (r *Runner) drive(ctx context.Context) error {
	r.beforeRun(ctx)
	err := r.loop(ctx, false)
	return r.finalize(ctx, err)
}

func (r *Runner) startStreaming(ctx context.Context) *StreamingRun {
	r.mutex.Lock()
	if r.stream == nil {
		r.stream = make(chan Event, r.eventBufferSize)
	}
	r.mutex.Unlock()

	run := &StreamingRun{runner: r, done: make(chan struct{})}
	go func() {
		defer close(run.done)
		r.beforeRun(ctx)
		err := r.loop(ctx, true)
		run.err = r.finalize(ctx, err)
		close(r.stream)
	}()
	return run
}

// loop executes super-steps until the run is quiescent. When blocking is
// true, an idle run with outstanding external requests waits for responses
// instead of returning, so a streaming run spans human-in-the-loop pauses.
func (r *Runner) loop(ctx context.Context, blocking bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.idle() {
			if !r.hasPendingRequests() {
				return nil
			}
			if !blocking {
				r.setStatus(RunStatusSuspended)
				return nil
			}
			r.setStatus(RunStatusSuspended)
			r.logger.Info("run suspended awaiting external responses",
				"pending_requests", len(r.PendingRequests()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.wake:
				r.setStatus(RunStatusRunning)
				continue
			}
		}
		r.setStatus(RunStatusRunning)
		if err := r.step(ctx); err != nil {
			return err
		}
	}
}

// step executes one super-step: deliver every queued message, collect the
// results in deterministic executor order, route outgoing messages, and
// commit a checkpoint.
func (r *Runner) step(ctx context.Context) error {
	r.mutex.Lock()
	r.superStep++
	step := r.superStep
	inboxes := r.mailboxes
	r.mailboxes = map[string][]Envelope{}
	r.mutex.Unlock()

	ids := make([]string, 0, len(inboxes))
	for id := range inboxes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	stepStart := time.Now()
	stepEvent := &SuperStepExecutionEvent{
		RunID:        r.runID,
		WorkflowName: r.workflow.Name(),
		SuperStep:    step,
		ExecutorIDs:  ids,
		StartTime:    stepStart,
	}
	r.callbacks.BeforeSuperStep(ctx, stepEvent)

	// Invoke handlers. Executors run concurrently with each other, but each
	// executor drains its inbox sequentially on a single goroutine, so an
	// executor's state has a single owner for the whole step.
	contexts := make(map[string]*Context, len(ids))
	for _, id := range ids {
		contexts[id] = newHandlerContext(id, step, r.logger)
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		executor, ok := r.workflow.Executor(id)
		if !ok {
			return fmt.Errorf("mailbox references unknown executor %q", id)
		}
		wctx := contexts[id]
		envelopes := inboxes[id]
		g.Go(func() error {
			for _, envelope := range envelopes {
				if err := r.invoke(gctx, executor, envelope, wctx); err != nil {
					return &ExecutorError{ExecutorID: id, Err: err}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		var executorErr *ExecutorError
		if errors.As(err, &executorErr) {
			r.emit(ExecutorFailedEvent{
				ExecutorID: executorErr.ExecutorID,
				SuperStep:  step,
				Err:        executorErr.Err,
			})
		}
		return err
	}

	// Collect results in sorted executor order so routing is deterministic.
	queued := 0
	for _, id := range ids {
		wctx := contexts[id]
		r.emit(ExecutorCompletedEvent{ExecutorID: id, SuperStep: step})
		for _, data := range wctx.events {
			r.emit(ExecutorEvent{ExecutorID: id, SuperStep: step, Data: data})
		}
		for _, output := range wctx.outputs {
			r.emit(WorkflowOutputEvent{ExecutorID: id, SuperStep: step, Output: output})
			if r.workflow.OutputExecutorID() == "" || r.workflow.OutputExecutorID() == id {
				r.mutex.Lock()
				r.outputs = append(r.outputs, output)
				r.mutex.Unlock()
			}
		}
		for _, request := range wctx.requests {
			r.mutex.Lock()
			r.pendingRequests[request.RequestID] = request
			r.mutex.Unlock()
			r.emit(RequestInfoEvent{Request: request})
		}
		for _, message := range wctx.sends {
			n, err := r.route(ctx, id, message)
			if err != nil {
				return err
			}
			queued += n
		}
	}

	// Checkpoint commit happens-after all routing for the step is finalized,
	// so a checkpoint never captures a half-routed step.
	var info *CheckpointInfo
	if r.checkpoints != nil {
		committed, err := r.commitCheckpoint(ctx)
		if err != nil {
			return err
		}
		info = &committed
	}
	r.emit(SuperStepCompletedEvent{SuperStep: step, QueuedMessages: queued, Checkpoint: info})

	stepEvent.EndTime = time.Now()
	stepEvent.Duration = stepEvent.EndTime.Sub(stepStart)
	stepEvent.QueuedMessages = queued
	r.callbacks.AfterSuperStep(ctx, stepEvent)

	r.logger.Debug("super-step completed", "super_step", step,
		"executors", len(ids), "queued_messages", queued)
	return nil
}

// invoke dispatches one envelope with handler callbacks around it.
func (r *Runner) invoke(ctx context.Context, executor Executor, envelope Envelope, wctx *Context) error {
	event := &HandlerInvocationEvent{
		RunID:       r.runID,
		ExecutorID:  executor.ID(),
		SuperStep:   wctx.SuperStep(),
		MessageType: fmt.Sprintf("%T", envelope.Message),
		Source:      envelope.Source,
		StartTime:   time.Now(),
	}
	r.callbacks.BeforeHandlerInvocation(ctx, event)
	err := executor.HandleMessage(ctx, envelope.Message, wctx)
	event.EndTime = time.Now()
	event.Duration = event.EndTime.Sub(event.StartTime)
	event.Error = err
	r.callbacks.AfterHandlerInvocation(ctx, event)
	return err
}

// route evaluates every edge leaving the source against one message and
// enqueues deliveries into next-round mailboxes. Returns the number of
// messages queued.
func (r *Runner) route(ctx context.Context, source string, message any) (int, error) {
	queued := 0
	for _, edge := range r.workflow.edgesFrom(source) {
		switch edge.Kind() {
		case EdgeKindDirect:
			ok, err := edge.deliverable(ctx, message)
			if err != nil {
				return queued, err
			}
			if !ok {
				// Rejected messages are dropped for this edge, no retry
				continue
			}
			r.enqueue(Envelope{Source: source, Target: edge.sinks[0], Message: message})
			queued++
		case EdgeKindFanOut:
			for _, sink := range edge.selectSinks(message) {
				r.enqueue(Envelope{Source: source, Target: sink, Message: message})
				queued++
			}
		case EdgeKindFanIn:
			buffer := r.fanIn[edge.key()]
			buffer.add(source, message)
			for {
				join, complete := buffer.take()
				if !complete {
					break
				}
				r.enqueue(Envelope{Source: edge.key(), Target: edge.sinks[0], Message: join})
				queued++
			}
		}
	}
	return queued, nil
}

func (r *Runner) enqueue(envelope Envelope) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.mailboxes[envelope.Target] = append(r.mailboxes[envelope.Target], envelope)
}

func (r *Runner) idle() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for _, envelopes := range r.mailboxes {
		if len(envelopes) > 0 {
			return false
		}
	}
	return true
}

func (r *Runner) hasPendingRequests() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.pendingRequests) > 0
}

// PendingRequests returns the outstanding external requests, sorted by
// request ID.
func (r *Runner) PendingRequests() []*ExternalRequest {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	requests := make([]*ExternalRequest, 0, len(r.pendingRequests))
	for _, request := range r.pendingRequests {
		requests = append(requests, request)
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestID < requests[j].RequestID
	})
	return requests
}

// SendResponse answers an outstanding external request. The response is
// validated against the original request's port: a wrong-port or wrong-type
// response is rejected and the request remains pending. A valid response is
// delivered to the originating executor's handler for the response type at
// the next super-step.
func (r *Runner) SendResponse(ctx context.Context, response ExternalResponse) error {
	r.mutex.Lock()
	request, ok := r.pendingRequests[response.RequestID]
	if !ok {
		r.mutex.Unlock()
		return &WorkflowError{
			Type:  ErrorTypeUnknownRequest,
			Cause: fmt.Sprintf("no outstanding request with ID %s", response.RequestID),
		}
	}
	if err := validateResponse(request, response); err != nil {
		r.mutex.Unlock()
		return err
	}
	delete(r.pendingRequests, response.RequestID)
	r.mailboxes[request.ExecutorID] = append(r.mailboxes[request.ExecutorID], Envelope{
		Source:  request.Port.PortID,
		Target:  request.ExecutorID,
		Message: response.Payload,
	})
	r.mutex.Unlock()

	// Wake a suspended run loop
	select {
	case r.wake <- struct{}{}:
	default:
	}
	return nil
}

func (r *Runner) setStatus(status RunStatus) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.status = status
}

// emit records an event and forwards it to the stream channel if one exists.
func (r *Runner) emit(event Event) {
	r.mutex.Lock()
	r.events = append(r.events, event)
	stream := r.stream
	r.mutex.Unlock()
	if stream != nil {
		stream <- event
	}
}

// Events returns the events collected so far, in emission order.
func (r *Runner) Events() []Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]Event{}, r.events...)
}

// Outputs returns the output values yielded so far.
func (r *Runner) Outputs() []any {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return append([]any{}, r.outputs...)
}

func (r *Runner) beforeRun(ctx context.Context) {
	r.setStatus(RunStatusRunning)
	r.callbacks.BeforeWorkflowExecution(ctx, &WorkflowExecutionEvent{
		RunID:        r.runID,
		WorkflowName: r.workflow.Name(),
		Status:       RunStatusRunning,
		StartTime:    r.startTime,
	})
}

// finalize resolves the run's terminal (or suspended) status and emits the
// terminal event. No output is yielded after a fault.
func (r *Runner) finalize(ctx context.Context, err error) error {
	r.mutex.Lock()
	suspended := r.status == RunStatusSuspended && err == nil
	r.mutex.Unlock()

	var status RunStatus
	switch {
	case err != nil:
		status = RunStatusFailed
		r.mutex.Lock()
		r.runErr = err
		r.mutex.Unlock()
		r.emit(WorkflowFailedEvent{RunID: r.runID, Err: err})
		r.logger.Error("run failed", "error", err)
	case suspended:
		status = RunStatusSuspended
	default:
		status = RunStatusCompleted
		r.emit(WorkflowCompletedEvent{
			RunID:      r.runID,
			SuperSteps: r.superStep,
			Outputs:    r.Outputs(),
		})
		r.logger.Info("run completed", "super_steps", r.superStep)
	}
	r.setStatus(status)

	endTime := time.Now()
	r.callbacks.AfterWorkflowExecution(ctx, &WorkflowExecutionEvent{
		RunID:        r.runID,
		WorkflowName: r.workflow.Name(),
		Status:       status,
		StartTime:    r.startTime,
		EndTime:      endTime,
		Duration:     endTime.Sub(r.startTime),
		SuperSteps:   r.superStep,
		Outputs:      r.Outputs(),
		Error:        err,
	})
	return err
}

// commitCheckpoint snapshots the post-step state and commits it, chaining the
// new checkpoint to its parent.
func (r *Runner) commitCheckpoint(ctx context.Context) (CheckpointInfo, error) {
	checkpoint, err := r.buildCheckpoint()
	if err != nil {
		return CheckpointInfo{}, err
	}
	info, err := r.checkpoints.CommitCheckpoint(ctx, checkpoint)
	if err != nil {
		return CheckpointInfo{}, err
	}
	r.mutex.Lock()
	r.lastCheckpointID = info.CheckpointID
	r.mutex.Unlock()
	return info, nil
}

// buildCheckpoint serializes the runner's live state into a checkpoint.
func (r *Runner) buildCheckpoint() (*Checkpoint, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	registry := r.workflow.registry
	mailboxes := map[string][]MessageRecord{}
	for target, envelopes := range r.mailboxes {
		for _, envelope := range envelopes {
			record, err := registry.encode(envelope.Source, envelope.Message)
			if err != nil {
				return nil, fmt.Errorf("failed to checkpoint mailbox for %q: %w", target, err)
			}
			mailboxes[target] = append(mailboxes[target], record)
		}
	}

	fanIn := map[string]map[string][]MessageRecord{}
	for key, buffer := range r.fanIn {
		if len(buffer.pending) == 0 {
			continue
		}
		snapshot, err := buffer.snapshot(registry)
		if err != nil {
			return nil, fmt.Errorf("failed to checkpoint fan-in buffer %q: %w", key, err)
		}
		fanIn[key] = snapshot
	}

	executorStates := map[string]json.RawMessage{}
	for _, id := range r.workflow.ExecutorIDs() {
		executor, _ := r.workflow.Executor(id)
		stateful, ok := executor.(StatefulExecutor)
		if !ok {
			continue
		}
		state, err := stateful.SnapshotState()
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot state of executor %q: %w", id, err)
		}
		if state != nil {
			executorStates[id] = state
		}
	}

	var requests []RequestRecord
	for _, request := range r.pendingRequests {
		payload, err := registry.encode(request.ExecutorID, request.Payload)
		if err != nil {
			return nil, fmt.Errorf("failed to checkpoint request %s: %w", request.RequestID, err)
		}
		requests = append(requests, RequestRecord{
			RequestID:  request.RequestID,
			ExecutorID: request.ExecutorID,
			Port:       request.Port,
			Payload:    payload,
			SuperStep:  request.SuperStep,
		})
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].RequestID < requests[j].RequestID
	})

	var outputs []MessageRecord
	for _, output := range r.outputs {
		record, err := registry.encode("", output)
		if err != nil {
			return nil, fmt.Errorf("failed to checkpoint output: %w", err)
		}
		outputs = append(outputs, record)
	}

	// r.status still reads running while a step commits; record the state
	// the step actually left the run in.
	status := r.status
	if len(mailboxes) == 0 {
		status = RunStatusCompleted
		if len(r.pendingRequests) > 0 {
			status = RunStatusSuspended
		}
	}

	return &Checkpoint{
		RunID:          r.runID,
		CheckpointID:   NewCheckpointID(),
		ParentID:       r.lastCheckpointID,
		WorkflowName:   r.workflow.Name(),
		Status:         status,
		SuperStep:      r.superStep,
		Mailboxes:      mailboxes,
		FanIn:          fanIn,
		ExecutorStates: executorStates,
		Requests:       requests,
		Outputs:        outputs,
		CreatedAt:      time.Now(),
	}, nil
}

// restore replaces the runner's live state wholesale with a checkpoint's
// state. Resettable executors are reset before stateful executors are
// restored, so per-round accumulation never survives into the resumed run.
func (r *Runner) restore(ctx context.Context, info CheckpointInfo) error {
	if r.checkpoints == nil {
		return fmt.Errorf("a checkpoint manager is required to resume from a checkpoint")
	}
	checkpoint, err := r.checkpoints.LookupCheckpoint(ctx, info)
	if err != nil {
		return err
	}
	registry := r.workflow.registry

	mailboxes := map[string][]Envelope{}
	for target, records := range checkpoint.Mailboxes {
		if _, ok := r.workflow.Executor(target); !ok {
			return fmt.Errorf("checkpoint references unknown executor %q", target)
		}
		for _, record := range records {
			message, err := registry.decode(record)
			if err != nil {
				return err
			}
			mailboxes[target] = append(mailboxes[target], Envelope{
				Source:  record.Source,
				Target:  target,
				Message: message,
			})
		}
	}

	for _, id := range r.workflow.ExecutorIDs() {
		executor, _ := r.workflow.Executor(id)
		if resettable, ok := executor.(ResettableExecutor); ok {
			if err := resettable.Reset(ctx); err != nil {
				return fmt.Errorf("failed to reset executor %q: %w", id, err)
			}
		}
		if stateful, ok := executor.(StatefulExecutor); ok {
			state, exists := checkpoint.ExecutorStates[id]
			if exists {
				if err := stateful.RestoreState(state); err != nil {
					return fmt.Errorf("failed to restore state of executor %q: %w", id, err)
				}
			}
		}
	}

	pendingRequests := map[string]*ExternalRequest{}
	for _, record := range checkpoint.Requests {
		payload, err := registry.decode(record.Payload)
		if err != nil {
			return err
		}
		pendingRequests[record.RequestID] = &ExternalRequest{
			RequestID:  record.RequestID,
			ExecutorID: record.ExecutorID,
			Port:       record.Port,
			Payload:    payload,
			SuperStep:  record.SuperStep,
		}
	}

	var outputs []any
	for _, record := range checkpoint.Outputs {
		output, err := registry.decode(record)
		if err != nil {
			return err
		}
		outputs = append(outputs, output)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.runID = checkpoint.RunID
	r.superStep = checkpoint.SuperStep
	r.mailboxes = mailboxes
	r.pendingRequests = pendingRequests
	r.outputs = outputs
	r.lastCheckpointID = checkpoint.CheckpointID
	for key, buffer := range r.fanIn {
		if err := buffer.restore(registry, checkpoint.FanIn[key]); err != nil {
			return err
		}
	}
	r.logger.Info("restored run from checkpoint",
		"checkpoint_id", checkpoint.CheckpointID,
		"super_step", checkpoint.SuperStep,
		"pending_requests", len(pendingRequests))
	return nil
}
