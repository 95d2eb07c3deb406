package graphflow

import (
	"context"
	"time"
)

// ExecutionCallbacks defines the callback interface for run execution events.
// Callbacks are invoked synchronously by the runner; keep them fast.
type ExecutionCallbacks interface {
	// Run-level callbacks
	BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)
	AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent)

	// Super-step-level callbacks
	BeforeSuperStep(ctx context.Context, event *SuperStepExecutionEvent)
	AfterSuperStep(ctx context.Context, event *SuperStepExecutionEvent)

	// Handler-level callbacks
	BeforeHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent)
	AfterHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent)
}

// WorkflowExecutionEvent provides context for run-level execution events
type WorkflowExecutionEvent struct {
	RunID        string
	WorkflowName string
	Status       RunStatus
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	SuperSteps   int
	Outputs      []any
	Error        error
}

// SuperStepExecutionEvent provides context for super-step execution events
type SuperStepExecutionEvent struct {
	RunID          string
	WorkflowName   string
	SuperStep      int
	ExecutorIDs    []string
	QueuedMessages int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}

// HandlerInvocationEvent provides context for handler invocation events
type HandlerInvocationEvent struct {
	RunID       string
	ExecutorID  string
	SuperStep   int
	MessageType string
	Source      string
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	Error       error
}

// BaseExecutionCallbacks provides a default implementation that does nothing.
// Embed this in your own callbacks to get a default implementation.
type BaseExecutionCallbacks struct{}

func (n *BaseExecutionCallbacks) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) BeforeHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent) {
	// noop
}

func (n *BaseExecutionCallbacks) AfterHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent) {
	// noop
}

// CallbackChain allows chaining multiple callback implementations
type CallbackChain struct {
	callbacks []ExecutionCallbacks
}

// NewCallbackChain creates a new callback chain
func NewCallbackChain(callbacks ...ExecutionCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain
func (c *CallbackChain) Add(callback ExecutionCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterWorkflowExecution(ctx, event)
	}
}

func (c *CallbackChain) BeforeSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeSuperStep(ctx, event)
	}
}

func (c *CallbackChain) AfterSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	for _, callback := range c.callbacks {
		callback.AfterSuperStep(ctx, event)
	}
}

func (c *CallbackChain) BeforeHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeHandlerInvocation(ctx, event)
	}
}

func (c *CallbackChain) AfterHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent) {
	for _, callback := range c.callbacks {
		callback.AfterHandlerInvocation(ctx, event)
	}
}
