package graphflow

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
)

// MessageHandler processes one inbound message. The workflow context carries
// the current step's send, yield, event, and request capabilities.
type MessageHandler func(ctx context.Context, message any, wctx *Context) error

// Executor is a named unit of computation in a workflow graph. Messages are
// delivered to it one at a time; messages produced by HandleMessage are
// routed to downstream executors at the next super-step boundary.
type Executor interface {

	// ID returns the executor's unique identifier within the graph.
	ID() string

	// HandleMessage dispatches a message to the handler registered for its
	// runtime type. A message with no matching handler is an error.
	HandleMessage(ctx context.Context, message any, wctx *Context) error
}

// ResettableExecutor is implemented by executors that accumulate per-round
// state which must be discarded when a run restarts from a checkpoint.
type ResettableExecutor interface {
	Executor

	// Reset discards accumulated state.
	Reset(ctx context.Context) error
}

// StatefulExecutor is implemented by executors whose internal state should be
// captured in checkpoints and restored on resume.
type StatefulExecutor interface {
	Executor

	// SnapshotState serializes the executor's internal state.
	SnapshotState() (json.RawMessage, error)

	// RestoreState replaces the executor's internal state with a snapshot
	// previously produced by SnapshotState.
	RestoreState(data json.RawMessage) error
}

// messageTypeProvider is implemented by executors that can enumerate the
// message types they handle. The builder uses it to register mailbox message
// types for checkpoint serialization.
type messageTypeProvider interface {
	MessageTypes() []reflect.Type
}

// HandlerExecutor is an Executor built from a registry of typed message
// handlers. Register handlers with RegisterHandler or Handle before the
// workflow is built; registration is not safe once a run has started.
type HandlerExecutor struct {
	id       string
	handlers map[reflect.Type]MessageHandler
}

// NewExecutor creates an executor with the given ID and an empty handler
// registry.
func NewExecutor(id string) *HandlerExecutor {
	return &HandlerExecutor{
		id:       id,
		handlers: map[reflect.Type]MessageHandler{},
	}
}

// ID returns the executor's unique identifier.
func (e *HandlerExecutor) ID() string {
	return e.id
}

// Handle registers a handler for the given message type. Registering a type
// twice replaces the previous handler.
func (e *HandlerExecutor) Handle(messageType reflect.Type, handler MessageHandler) *HandlerExecutor {
	e.handlers[messageType] = handler
	return e
}

// MessageTypes returns the message types this executor handles.
func (e *HandlerExecutor) MessageTypes() []reflect.Type {
	types := make([]reflect.Type, 0, len(e.handlers))
	for t := range e.handlers {
		types = append(types, t)
	}
	return types
}

// HandleMessage dispatches to the handler registered for the message's
// runtime type. If no exact match exists, a handler registered for an
// interface type that the message implements is used instead.
func (e *HandlerExecutor) HandleMessage(ctx context.Context, message any, wctx *Context) error {
	if message == nil {
		return &WorkflowError{
			Type:  ErrorTypeUnsupportedMessage,
			Cause: fmt.Sprintf("executor %q received a nil message", e.id),
		}
	}
	messageType := reflect.TypeOf(message)
	if handler, ok := e.handlers[messageType]; ok {
		return handler(ctx, message, wctx)
	}
	for t, handler := range e.handlers {
		if t.Kind() == reflect.Interface && messageType.Implements(t) {
			return handler(ctx, message, wctx)
		}
	}
	return &WorkflowError{
		Type:    ErrorTypeUnsupportedMessage,
		Cause:   fmt.Sprintf("executor %q has no handler for message type %s", e.id, messageType),
		Details: messageType.String(),
	}
}

// RegisterHandler registers a typed handler on an executor. The message type
// is derived from the function signature, so callers never cast:
//
//	guesser := graphflow.NewExecutor("guesser")
//	graphflow.RegisterHandler(guesser, func(ctx context.Context, msg Feedback, wctx *graphflow.Context) error {
//	    return wctx.SendMessage(nextGuess(msg))
//	})
func RegisterHandler[T any](e *HandlerExecutor, handler func(ctx context.Context, message T, wctx *Context) error) {
	messageType := reflect.TypeFor[T]()
	e.Handle(messageType, func(ctx context.Context, message any, wctx *Context) error {
		typed, ok := message.(T)
		if !ok {
			return &WorkflowError{
				Type:  ErrorTypeUnsupportedMessage,
				Cause: fmt.Sprintf("executor %q handler expected %s, got %T", e.id, messageType, message),
			}
		}
		return handler(ctx, typed, wctx)
	})
}
