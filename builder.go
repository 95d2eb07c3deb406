package graphflow

import (
	"context"
	"fmt"
	"reflect"

	"github.com/deepnoodle-ai/graphflow/script"
)

// WorkflowBuilder accumulates executors and edges, then validates and freezes
// them into an immutable Workflow. Errors are accumulated and reported
// together by Build, so call sites can chain without per-call checks:
//
//	wf, err := graphflow.NewWorkflowBuilder("pipeline").
//	    AddExecutor(start).
//	    AddExecutor(worker).
//	    AddEdge("start", "worker").
//	    Build()
type WorkflowBuilder struct {
	name       string
	executors  map[string]Executor
	order      []string
	edges      []*Edge
	startID    string
	outputID   string
	compiler   script.Compiler
	extraTypes []reflect.Type
	errs       []error
}

// NewWorkflowBuilder creates a builder for a workflow with the given name.
func NewWorkflowBuilder(name string) *WorkflowBuilder {
	return &WorkflowBuilder{
		name:      name,
		executors: map[string]Executor{},
	}
}

// AddExecutor registers an executor as a graph node. The first executor added
// becomes the start executor unless SetStartExecutor overrides it.
func (b *WorkflowBuilder) AddExecutor(executor Executor) *WorkflowBuilder {
	if executor == nil {
		b.errs = append(b.errs, buildError("executor cannot be nil"))
		return b
	}
	id := executor.ID()
	if id == "" {
		b.errs = append(b.errs, buildError("executor ID cannot be empty"))
		return b
	}
	if _, exists := b.executors[id]; exists {
		b.errs = append(b.errs, buildError("duplicate executor ID %q", id))
		return b
	}
	b.executors[id] = executor
	b.order = append(b.order, id)
	if b.startID == "" {
		b.startID = id
	}
	return b
}

// SetStartExecutor designates the executor that receives the run's input.
func (b *WorkflowBuilder) SetStartExecutor(id string) *WorkflowBuilder {
	b.startID = id
	return b
}

// AddEdge connects a single source to a single sink. Use WithCondition or
// WithConditionScript to gate delivery.
func (b *WorkflowBuilder) AddEdge(from, to string, opts ...EdgeOption) *WorkflowBuilder {
	edge := &Edge{kind: EdgeKindDirect, sources: []string{from}, sinks: []string{to}}
	for _, opt := range opts {
		opt(edge)
	}
	b.edges = append(b.edges, edge)
	return b
}

// AddFanOutEdge connects a single source to multiple sinks. Without an
// assigner every sink receives each message; WithAssigner selects a subset.
func (b *WorkflowBuilder) AddFanOutEdge(from string, to []string, opts ...EdgeOption) *WorkflowBuilder {
	edge := &Edge{kind: EdgeKindFanOut, sources: []string{from}, sinks: append([]string{}, to...)}
	for _, opt := range opts {
		opt(edge)
	}
	b.edges = append(b.edges, edge)
	return b
}

// AddFanInEdge connects multiple sources to a single sink. The sink receives
// a JoinMessage once every source has contributed for the current epoch.
func (b *WorkflowBuilder) AddFanInEdge(from []string, to string) *WorkflowBuilder {
	edge := &Edge{kind: EdgeKindFanIn, sources: append([]string{}, from...), sinks: []string{to}}
	b.edges = append(b.edges, edge)
	return b
}

// WithOutputFrom binds the run's outputs to the named executor's yields.
func (b *WorkflowBuilder) WithOutputFrom(id string) *WorkflowBuilder {
	b.outputID = id
	return b
}

// WithScriptCompiler overrides the compiler used for edge condition scripts.
// Defaults to the risor engine.
func (b *WorkflowBuilder) WithScriptCompiler(compiler script.Compiler) *WorkflowBuilder {
	b.compiler = compiler
	return b
}

// WithMessageTypes registers additional message types for checkpoint
// serialization. Types handled by registered executors are discovered
// automatically; register here any type that only ever appears as a run input
// or inside fan-in contributions.
func (b *WorkflowBuilder) WithMessageTypes(examples ...any) *WorkflowBuilder {
	for _, example := range examples {
		if example == nil {
			continue
		}
		b.extraTypes = append(b.extraTypes, reflect.TypeOf(example))
	}
	return b
}

// Build validates the graph and freezes it. Dangling edge references,
// duplicate executor IDs, unknown start or output executors, and unreachable
// executors are all build errors; no partial graph is usable.
func (b *WorkflowBuilder) Build() (*Workflow, error) {
	errs := append([]error{}, b.errs...)

	if b.name == "" {
		errs = append(errs, buildError("workflow name required"))
	}
	if len(b.executors) == 0 {
		errs = append(errs, buildError("workflow must have at least one executor"))
	}
	if b.startID != "" {
		if _, ok := b.executors[b.startID]; !ok {
			errs = append(errs, buildError("start executor %q not found", b.startID))
		}
	}
	if b.outputID != "" {
		if _, ok := b.executors[b.outputID]; !ok {
			errs = append(errs, buildError("output executor %q not found", b.outputID))
		}
	}

	// Validate edge endpoints and edge shape
	for _, edge := range b.edges {
		for _, source := range edge.sources {
			if _, ok := b.executors[source]; !ok {
				errs = append(errs, buildError("edge references unknown source executor %q", source))
			}
		}
		for _, sink := range edge.sinks {
			if _, ok := b.executors[sink]; !ok {
				errs = append(errs, buildError("edge references unknown sink executor %q", sink))
			}
		}
		if edge.kind == EdgeKindFanIn && len(edge.sources) < 2 {
			errs = append(errs, buildError("fan-in edge to %q requires at least two sources", edge.sinks))
		}
		if edge.kind == EdgeKindFanOut && len(edge.sinks) == 0 {
			errs = append(errs, buildError("fan-out edge from %q requires at least one sink", edge.sources))
		}
	}

	// Compile edge condition scripts
	compiler := b.compiler
	if compiler == nil {
		compiler = script.NewRisorScriptingEngine(script.DefaultRisorGlobals())
	}
	for _, edge := range b.edges {
		if edge.conditionScript == "" {
			continue
		}
		compiled, err := compiler.Compile(context.Background(), edge.conditionScript)
		if err != nil {
			errs = append(errs, buildError("failed to compile edge condition %q: %v", edge.conditionScript, err))
			continue
		}
		edge.compiled = compiled
	}

	if len(errs) > 0 {
		return nil, joinBuildErrors(errs)
	}

	// Check reachability from the start executor
	if unreachable := b.unreachableExecutors(); len(unreachable) > 0 {
		return nil, buildError("executors unreachable from start %q: %v", b.startID, unreachable)
	}

	// Register message types for checkpoint round-trips
	registry := newTypeRegistry()
	for _, executor := range b.executors {
		if provider, ok := executor.(messageTypeProvider); ok {
			for _, t := range provider.MessageTypes() {
				registry.register(t)
			}
		}
	}
	for _, t := range b.extraTypes {
		registry.register(t)
	}

	edgesBySource := map[string][]*Edge{}
	for _, edge := range b.edges {
		for _, source := range edge.sources {
			edgesBySource[source] = append(edgesBySource[source], edge)
		}
	}

	return &Workflow{
		name:          b.name,
		executors:     b.executors,
		order:         append([]string{}, b.order...),
		edges:         append([]*Edge{}, b.edges...),
		edgesBySource: edgesBySource,
		startID:       b.startID,
		outputID:      b.outputID,
		registry:      registry,
	}, nil
}

// unreachableExecutors walks edges from the start executor and reports
// executor IDs no path can deliver to. Fan-in sinks are reachable when any of
// their sources is reachable.
func (b *WorkflowBuilder) unreachableExecutors() []string {
	reached := map[string]bool{b.startID: true}
	frontier := []string{b.startID}
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, edge := range b.edges {
			fromHere := false
			for _, source := range edge.sources {
				if source == id {
					fromHere = true
					break
				}
			}
			if !fromHere {
				continue
			}
			for _, sink := range edge.sinks {
				if !reached[sink] {
					reached[sink] = true
					frontier = append(frontier, sink)
				}
			}
		}
	}
	var unreachable []string
	for _, id := range b.order {
		if !reached[id] {
			unreachable = append(unreachable, id)
		}
	}
	return unreachable
}

func joinBuildErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	cause := fmt.Sprintf("%d validation errors", len(errs))
	for _, err := range errs {
		cause += "; " + err.Error()
	}
	return &WorkflowError{Type: ErrorTypeBuild, Cause: cause}
}
