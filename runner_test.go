package graphflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunLinearPipeline(t *testing.T) {
	upper := NewExecutor("upper")
	RegisterHandler(upper, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage(strings.ToUpper(msg))
	})
	exclaim := NewExecutor("exclaim")
	RegisterHandler(exclaim, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.YieldOutput(msg + "!")
	})

	wf, err := NewWorkflowBuilder("pipeline").
		AddExecutor(upper).
		AddExecutor(exclaim).
		AddEdge("upper", "exclaim").
		WithOutputFrom("exclaim").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)

	run, err := runner.Run(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, RunStatusCompleted, run.Status())
	require.Equal(t, []any{"HELLO!"}, run.Outputs())

	// Two super-steps: one per executor with pending messages
	var last WorkflowCompletedEvent
	for _, event := range run.Events() {
		if completed, ok := event.(WorkflowCompletedEvent); ok {
			last = completed
		}
	}
	require.Equal(t, 2, last.SuperSteps)
	require.Equal(t, run.RunID(), last.RunID)
}

func TestRunDeliversFIFOPerEdge(t *testing.T) {
	splitter := NewExecutor("splitter")
	RegisterHandler(splitter, func(ctx context.Context, msg string, wctx *Context) error {
		for _, part := range strings.Split(msg, " ") {
			if err := wctx.SendMessage(part); err != nil {
				return err
			}
		}
		return nil
	})

	var received []string
	collector := NewExecutor("collector")
	RegisterHandler(collector, func(ctx context.Context, msg string, wctx *Context) error {
		received = append(received, msg)
		return nil
	})

	wf, err := NewWorkflowBuilder("fifo").
		AddExecutor(splitter).
		AddExecutor(collector).
		AddEdge("splitter", "collector").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "one two three")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, received)
}

func TestRunFanOutBroadcast(t *testing.T) {
	source := NewExecutor("source")
	RegisterHandler(source, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage(msg)
	})

	received := map[string]string{}
	makeSink := func(id string) *HandlerExecutor {
		sink := NewExecutor(id)
		RegisterHandler(sink, func(ctx context.Context, msg string, wctx *Context) error {
			received[wctx.ExecutorID()] = msg
			return nil
		})
		return sink
	}

	wf, err := NewWorkflowBuilder("broadcast").
		AddExecutor(source).
		AddExecutor(makeSink("left")).
		AddExecutor(makeSink("right")).
		AddFanOutEdge("source", []string{"left", "right"}).
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "ping")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"left": "ping", "right": "ping"}, received)
}

func TestRunFanOutAssigner(t *testing.T) {
	router := NewExecutor("router")
	RegisterHandler(router, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage(msg)
	})

	received := map[string]string{}
	makeSink := func(id string) *HandlerExecutor {
		sink := NewExecutor(id)
		RegisterHandler(sink, func(ctx context.Context, msg string, wctx *Context) error {
			received[wctx.ExecutorID()] = msg
			return nil
		})
		return sink
	}

	wf, err := NewWorkflowBuilder("routed").
		AddExecutor(router).
		AddExecutor(makeSink("evens")).
		AddExecutor(makeSink("odds")).
		AddFanOutEdge("router", []string{"evens", "odds"}, WithAssigner(
			func(message any, sinks []string) []string {
				if len(message.(string))%2 == 0 {
					return []string{"evens"}
				}
				return []string{"odds"}
			})).
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "abcd")
	require.NoError(t, err)
	require.Equal(t, map[string]string{"evens": "abcd"}, received)
}

func TestRunConditionalEdges(t *testing.T) {
	type temperature struct {
		Celsius float64 `json:"celsius"`
	}

	sensor := NewExecutor("sensor")
	RegisterHandler(sensor, func(ctx context.Context, msg temperature, wctx *Context) error {
		return wctx.SendMessage(msg)
	})

	var alerts, logs []float64
	alerting := NewExecutor("alerting")
	RegisterHandler(alerting, func(ctx context.Context, msg temperature, wctx *Context) error {
		alerts = append(alerts, msg.Celsius)
		return nil
	})
	logging := NewExecutor("logging")
	RegisterHandler(logging, func(ctx context.Context, msg temperature, wctx *Context) error {
		logs = append(logs, msg.Celsius)
		return nil
	})

	wf, err := NewWorkflowBuilder("conditional").
		AddExecutor(sensor).
		AddExecutor(alerting).
		AddExecutor(logging).
		AddEdge("sensor", "alerting", WithCondition(func(message any) bool {
			return message.(temperature).Celsius > 100
		})).
		AddEdge("sensor", "logging", WithConditionScript(`msg["celsius"] <= 100`)).
		Build()
	require.NoError(t, err)

	t.Run("hot reading routes to alerting only", func(t *testing.T) {
		alerts, logs = nil, nil
		runner, err := NewRunner(RunnerOptions{Workflow: wf})
		require.NoError(t, err)
		_, err = runner.Run(context.Background(), temperature{Celsius: 130})
		require.NoError(t, err)
		require.Equal(t, []float64{130}, alerts)
		require.Empty(t, logs)
	})

	t.Run("cool reading routes to logging only", func(t *testing.T) {
		alerts, logs = nil, nil
		runner, err := NewRunner(RunnerOptions{Workflow: wf})
		require.NoError(t, err)
		_, err = runner.Run(context.Background(), temperature{Celsius: 20})
		require.NoError(t, err)
		require.Empty(t, alerts)
		require.Equal(t, []float64{20}, logs)
	})
}

func TestRunFanInAggregation(t *testing.T) {
	// A coordinator broadcasts one question to two specialists; the writer
	// receives a single join message once both answers are in.
	coordinator := NewExecutor("coordinator")
	RegisterHandler(coordinator, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage(msg)
	})

	physicist := NewExecutor("physicist")
	RegisterHandler(physicist, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage("physics: " + msg)
	})
	chemist := NewExecutor("chemist")
	RegisterHandler(chemist, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage("chemistry: " + msg)
	})

	writer := NewExecutor("writer")
	RegisterHandler(writer, func(ctx context.Context, msg JoinMessage, wctx *Context) error {
		parts := make([]string, 0, len(msg.Contributions))
		for _, c := range msg.Contributions {
			parts = append(parts, c.Value.(string))
		}
		return wctx.YieldOutput(strings.Join(parts, " | "))
	})

	wf, err := NewWorkflowBuilder("panel").
		AddExecutor(coordinator).
		AddExecutor(physicist).
		AddExecutor(chemist).
		AddExecutor(writer).
		AddFanOutEdge("coordinator", []string{"physicist", "chemist"}).
		AddFanInEdge([]string{"physicist", "chemist"}, "writer").
		WithOutputFrom("writer").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Run(context.Background(), "what is entropy?")
	require.NoError(t, err)

	// Contribution order follows the fan-in declaration, not arrival order
	require.Equal(t, []any{"physics: what is entropy? | chemistry: what is entropy?"}, run.Outputs())
}

func TestRunFanInWaitsForAllSources(t *testing.T) {
	source := NewExecutor("source")
	RegisterHandler(source, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage(msg)
	})
	fast := NewExecutor("fast")
	RegisterHandler(fast, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.SendMessage("fast")
	})
	slow := NewExecutor("slow")
	RegisterHandler(slow, func(ctx context.Context, msg string, wctx *Context) error {
		// No send: the join can never complete
		return nil
	})

	var joins int
	join := NewExecutor("join")
	RegisterHandler(join, func(ctx context.Context, msg JoinMessage, wctx *Context) error {
		joins++
		return nil
	})

	wf, err := NewWorkflowBuilder("partial").
		AddExecutor(source).
		AddExecutor(fast).
		AddExecutor(slow).
		AddExecutor(join).
		AddFanOutEdge("source", []string{"fast", "slow"}).
		AddFanInEdge([]string{"fast", "slow"}, "join").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Run(context.Background(), "go")
	require.NoError(t, err)

	// The run quiesces without ever delivering a join message
	require.Equal(t, RunStatusCompleted, run.Status())
	require.Zero(t, joins)
}

func TestRunExecutorFailureFaultsRun(t *testing.T) {
	boom := errors.New("boom")
	faulty := NewExecutor("faulty")
	RegisterHandler(faulty, func(ctx context.Context, msg string, wctx *Context) error {
		return boom
	})

	wf, err := NewWorkflowBuilder("faulting").
		AddExecutor(faulty).
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Run(context.Background(), "hi")
	require.Error(t, err)
	require.ErrorIs(t, err, boom)
	require.Equal(t, RunStatusFailed, run.Status())

	var executorErr *ExecutorError
	require.ErrorAs(t, err, &executorErr)
	require.Equal(t, "faulty", executorErr.ExecutorID)
	require.True(t, MatchesErrorType(err, ErrorTypeExecutorFailed))

	var failed, terminal bool
	for _, event := range run.Events() {
		switch event.(type) {
		case ExecutorFailedEvent:
			failed = true
		case WorkflowFailedEvent:
			terminal = true
		}
	}
	require.True(t, failed)
	require.True(t, terminal)
}

func TestRunOutputBinding(t *testing.T) {
	first := NewExecutor("first")
	RegisterHandler(first, func(ctx context.Context, msg string, wctx *Context) error {
		if err := wctx.YieldOutput("intermediate"); err != nil {
			return err
		}
		return wctx.SendMessage(msg)
	})
	second := NewExecutor("second")
	RegisterHandler(second, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.YieldOutput("final")
	})

	wf, err := NewWorkflowBuilder("bound").
		AddExecutor(first).
		AddExecutor(second).
		AddEdge("first", "second").
		WithOutputFrom("second").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Run(context.Background(), "hi")
	require.NoError(t, err)

	// Only the bound executor's yields become run outputs, but every yield
	// still surfaces as an event.
	require.Equal(t, []any{"final"}, run.Outputs())
	var yielded []any
	for _, event := range run.Events() {
		if output, ok := event.(WorkflowOutputEvent); ok {
			yielded = append(yielded, output.Output)
		}
	}
	require.Equal(t, []any{"intermediate", "final"}, yielded)
}

func TestRunCannotStartTwice(t *testing.T) {
	e := NewExecutor("only")
	RegisterHandler(e, func(ctx context.Context, msg string, wctx *Context) error {
		return nil
	})
	wf, err := NewWorkflowBuilder("once").AddExecutor(e).Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "hi")
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "again")
	require.Error(t, err)
	require.True(t, MatchesErrorType(err, ErrorTypeInvalidOperation))
	require.Contains(t, err.Error(), "already started")
}

func TestRunRejectsNilInput(t *testing.T) {
	e := NewExecutor("only")
	RegisterHandler(e, func(ctx context.Context, msg string, wctx *Context) error {
		return nil
	})
	wf, err := NewWorkflowBuilder("seeded").AddExecutor(e).Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "input is required")

	streamer, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	_, err = streamer.Stream(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "input is required")
}

func TestRunContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	looper := NewExecutor("looper")
	RegisterHandler(looper, func(hctx context.Context, msg int, wctx *Context) error {
		if msg > 2 {
			cancel()
		}
		return wctx.SendMessage(msg + 1)
	})

	wf, err := NewWorkflowBuilder("loop").
		AddExecutor(looper).
		AddEdge("looper", "looper").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Run(ctx, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, RunStatusFailed, run.Status())
}

func TestStreamingRun(t *testing.T) {
	producer := NewExecutor("producer")
	RegisterHandler(producer, func(ctx context.Context, msg int, wctx *Context) error {
		for i := 0; i < msg; i++ {
			if err := wctx.SendMessage(fmt.Sprintf("item-%d", i)); err != nil {
				return err
			}
		}
		return nil
	})
	consumer := NewExecutor("consumer")
	RegisterHandler(consumer, func(ctx context.Context, msg string, wctx *Context) error {
		return wctx.YieldOutput(msg)
	})

	wf, err := NewWorkflowBuilder("streamed").
		AddExecutor(producer).
		AddExecutor(consumer).
		AddEdge("producer", "consumer").
		Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf})
	require.NoError(t, err)
	run, err := runner.Stream(context.Background(), 3)
	require.NoError(t, err)

	var outputs []any
	var completed bool
	for event := range run.Watch() {
		switch e := event.(type) {
		case WorkflowOutputEvent:
			outputs = append(outputs, e.Output)
		case WorkflowCompletedEvent:
			completed = true
		}
	}
	require.NoError(t, run.Wait())
	require.True(t, completed)
	require.Equal(t, []any{"item-0", "item-1", "item-2"}, outputs)
	require.Equal(t, RunStatusCompleted, run.Status())
}

func TestRunCallbacksObserveLifecycle(t *testing.T) {
	type record struct {
		kind string
		step int
	}
	var records []record
	callbacks := &testCallbacks{
		beforeStep: func(event *SuperStepExecutionEvent) {
			records = append(records, record{"before", event.SuperStep})
		},
		afterStep: func(event *SuperStepExecutionEvent) {
			records = append(records, record{"after", event.SuperStep})
		},
	}

	e := NewExecutor("solo")
	RegisterHandler(e, func(ctx context.Context, msg string, wctx *Context) error {
		return nil
	})
	wf, err := NewWorkflowBuilder("observed").AddExecutor(e).Build()
	require.NoError(t, err)

	runner, err := NewRunner(RunnerOptions{Workflow: wf, Callbacks: callbacks})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), "hi")
	require.NoError(t, err)

	require.Equal(t, []record{{"before", 1}, {"after", 1}}, records)
	require.Equal(t, 1, callbacks.workflowStarts)
	require.Equal(t, 1, callbacks.workflowEnds)
	require.Equal(t, 1, callbacks.invocations)
}

type testCallbacks struct {
	BaseExecutionCallbacks
	beforeStep     func(*SuperStepExecutionEvent)
	afterStep      func(*SuperStepExecutionEvent)
	workflowStarts int
	workflowEnds   int
	invocations    int
}

func (c *testCallbacks) BeforeWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	c.workflowStarts++
}

func (c *testCallbacks) AfterWorkflowExecution(ctx context.Context, event *WorkflowExecutionEvent) {
	c.workflowEnds++
}

func (c *testCallbacks) BeforeSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	if c.beforeStep != nil {
		c.beforeStep(event)
	}
}

func (c *testCallbacks) AfterSuperStep(ctx context.Context, event *SuperStepExecutionEvent) {
	if c.afterStep != nil {
		c.afterStep(event)
	}
}

func (c *testCallbacks) BeforeHandlerInvocation(ctx context.Context, event *HandlerInvocationEvent) {
	c.invocations++
}
