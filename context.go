package graphflow

import (
	"fmt"
	"log/slog"
	"reflect"
)

// Context is the workflow context passed to every handler invocation. It
// carries the current step's send, yield, event, and request capabilities.
//
// A Context belongs to a single executor for a single super-step and is only
// touched by that executor's goroutine, so handlers never need locks around
// it. Everything recorded here is collected and routed at the step boundary:
// no other executor observes these sends until the next super-step.
type Context struct {
	executorID string
	superStep  int
	logger     *slog.Logger

	sends    []any
	events   []any
	outputs  []any
	requests []*ExternalRequest
}

func newHandlerContext(executorID string, superStep int, logger *slog.Logger) *Context {
	return &Context{
		executorID: executorID,
		superStep:  superStep,
		logger:     logger.With("executor_id", executorID, "super_step", superStep),
	}
}

// ExecutorID returns the ID of the executor this context belongs to.
func (c *Context) ExecutorID() string {
	return c.executorID
}

// SuperStep returns the current super-step number.
func (c *Context) SuperStep() int {
	return c.superStep
}

// Logger returns a logger scoped to the current executor and super-step.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}

// SendMessage enqueues an outgoing message. It is routed through the
// executor's outbound edges at the end of the current super-step and
// delivered to downstream executors in the next one.
func (c *Context) SendMessage(message any) error {
	if message == nil {
		return fmt.Errorf("cannot send a nil message")
	}
	c.sends = append(c.sends, message)
	return nil
}

// YieldOutput yields a workflow output value. Outputs surface as
// WorkflowOutputEvents; if the workflow has an output binding, only the bound
// executor's yields become the run's outputs.
func (c *Context) YieldOutput(value any) error {
	if value == nil {
		return fmt.Errorf("cannot yield a nil output")
	}
	c.outputs = append(c.outputs, value)
	return nil
}

// AddEvent emits an observability event carrying arbitrary data.
func (c *Context) AddEvent(data any) {
	c.events = append(c.events, data)
}

// RequestInfo suspends this logical branch on a request for external input.
// The request surfaces as a RequestInfoEvent at the end of the current
// super-step; the matching response is delivered to this executor's handler
// for the port's response type in a later super-step. Returns the request ID.
func (c *Context) RequestInfo(port PortInfo, payload any) (string, error) {
	if payload == nil {
		return "", fmt.Errorf("cannot request info with a nil payload")
	}
	payloadType := messageTypeName(reflect.TypeOf(payload))
	if payloadType != port.RequestType {
		return "", fmt.Errorf("request payload type %s does not match port %q request type %s",
			payloadType, port.PortID, port.RequestType)
	}
	request := &ExternalRequest{
		RequestID:  NewRequestID(),
		ExecutorID: c.executorID,
		Port:       port,
		Payload:    payload,
		SuperStep:  c.superStep,
	}
	c.requests = append(c.requests, request)
	return request.RequestID, nil
}
