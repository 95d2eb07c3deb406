package graphflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type orderedCallbacks struct {
	BaseExecutionCallbacks
	name string
	log  *[]string
}

func (c *orderedCallbacks) BeforeSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	*c.log = append(*c.log, c.name)
}

func TestCallbackChainInvokesInOrder(t *testing.T) {
	var log []string
	chain := NewCallbackChain(
		&orderedCallbacks{name: "first", log: &log},
		&orderedCallbacks{name: "second", log: &log},
	)
	chain.Add(&orderedCallbacks{name: "third", log: &log})

	chain.BeforeSuperStep(context.Background(), &SuperStepExecutionEvent{SuperStep: 1})
	require.Equal(t, []string{"first", "second", "third"}, log)
}

func TestBaseCallbacksSatisfyInterface(t *testing.T) {
	var callbacks ExecutionCallbacks = &BaseExecutionCallbacks{}
	callbacks.BeforeWorkflowExecution(context.Background(), &WorkflowExecutionEvent{})
	callbacks.AfterHandlerInvocation(context.Background(), &HandlerInvocationEvent{})
	require.NotNil(t, callbacks)
}
