package graphflow

import (
	"sort"
)

// Workflow is an immutable executor graph produced by a WorkflowBuilder. A
// single Workflow may back any number of runs; per-run state lives in the
// Runner.
type Workflow struct {
	name          string
	executors     map[string]Executor
	order         []string
	edges         []*Edge
	edgesBySource map[string][]*Edge
	startID       string
	outputID      string
	registry      *typeRegistry
}

// Name returns the workflow name.
func (w *Workflow) Name() string {
	return w.name
}

// StartExecutorID returns the ID of the executor that receives run input.
func (w *Workflow) StartExecutorID() string {
	return w.startID
}

// OutputExecutorID returns the ID of the executor whose yields become the
// run's outputs, or "" when every executor's yields count.
func (w *Workflow) OutputExecutorID() string {
	return w.outputID
}

// Executor returns a registered executor by ID.
func (w *Workflow) Executor(id string) (Executor, bool) {
	executor, ok := w.executors[id]
	return executor, ok
}

// ExecutorIDs returns the IDs of all executors in the workflow, sorted.
func (w *Workflow) ExecutorIDs() []string {
	ids := make([]string, 0, len(w.executors))
	for id := range w.executors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Edges returns the workflow's edges in declaration order.
func (w *Workflow) Edges() []*Edge {
	return w.edges
}

// edgesFrom returns all edges with the given executor among their sources.
func (w *Workflow) edgesFrom(id string) []*Edge {
	return w.edgesBySource[id]
}
