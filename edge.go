package graphflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/graphflow/script"
)

// EdgeKind identifies an edge's routing semantics.
type EdgeKind string

const (
	// EdgeKindDirect routes from a single source to a single sink, optionally
	// gated by a condition.
	EdgeKindDirect EdgeKind = "direct"

	// EdgeKindFanOut routes from a single source to multiple sinks, either
	// broadcasting or using an assigner to select a subset per message.
	EdgeKindFanOut EdgeKind = "fanout"

	// EdgeKindFanIn routes from multiple sources to a single sink, delivering
	// only once every source has contributed for the current epoch.
	EdgeKindFanIn EdgeKind = "fanin"
)

// EdgeCondition gates delivery over a direct edge. A message is delivered iff
// the condition returns true; a rejected message is dropped for this edge.
type EdgeCondition func(message any) bool

// FanOutAssigner selects the subset of sinks that should receive a message.
// It is called with the message and the declared sink IDs; returning nil or
// an empty slice drops the message for this edge.
type FanOutAssigner func(message any, sinks []string) []string

// Edge is a routing rule connecting source executor(s) to sink executor(s).
// Edges are built by the WorkflowBuilder and immutable after Build.
type Edge struct {
	kind            EdgeKind
	sources         []string
	sinks           []string
	condition       EdgeCondition
	conditionScript string
	compiled        script.Script
	assigner        FanOutAssigner
}

// Kind returns the edge's routing semantics.
func (e *Edge) Kind() EdgeKind { return e.kind }

// Sources returns the source executor IDs in declaration order.
func (e *Edge) Sources() []string { return e.sources }

// Sinks returns the sink executor IDs in declaration order.
func (e *Edge) Sinks() []string { return e.sinks }

// key identifies the edge within a workflow, used to key fan-in buffer state
// in checkpoints.
func (e *Edge) key() string {
	return fmt.Sprintf("%s:%s->%s", e.kind, strings.Join(e.sources, "+"), strings.Join(e.sinks, "+"))
}

// deliverable evaluates the edge condition, if any, against a message.
func (e *Edge) deliverable(ctx context.Context, message any) (bool, error) {
	if e.condition != nil && !e.condition(message) {
		return false, nil
	}
	if e.compiled != nil {
		result, err := e.compiled.Evaluate(ctx, map[string]any{"msg": toScriptValue(message)})
		if err != nil {
			return false, fmt.Errorf("failed to evaluate edge condition %q: %w", e.conditionScript, err)
		}
		return result.IsTruthy(), nil
	}
	return true, nil
}

// selectSinks returns the sinks a fan-out edge should deliver to.
func (e *Edge) selectSinks(message any) []string {
	if e.assigner == nil {
		return e.sinks
	}
	declared := make(map[string]bool, len(e.sinks))
	for _, sink := range e.sinks {
		declared[sink] = true
	}
	var selected []string
	for _, sink := range e.assigner(message, e.sinks) {
		if declared[sink] {
			selected = append(selected, sink)
		}
	}
	return selected
}

// EdgeOption configures an edge added to a WorkflowBuilder.
type EdgeOption func(*Edge)

// WithCondition gates a direct edge with a Go predicate.
func WithCondition(condition EdgeCondition) EdgeOption {
	return func(e *Edge) { e.condition = condition }
}

// WithConditionScript gates a direct edge with a risor expression. The
// message is bound to the "msg" global. Scripts are compiled at Build time.
func WithConditionScript(code string) EdgeOption {
	return func(e *Edge) { e.conditionScript = code }
}

// WithAssigner sets the sink selection function for a fan-out edge.
func WithAssigner(assigner FanOutAssigner) EdgeOption {
	return func(e *Edge) { e.assigner = assigner }
}

// toScriptValue converts a message into a value risor can evaluate against.
// Structs are flattened to maps through their JSON representation.
func toScriptValue(message any) any {
	switch message.(type) {
	case nil, string, bool, int, int64, float64, []any, map[string]any:
		return message
	}
	data, err := json.Marshal(message)
	if err != nil {
		return message
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return message
	}
	return value
}

// fanInBuffer accumulates fan-in contributions between super-steps. Values
// are queued FIFO per source so repeated join epochs (e.g. looped fan-outs)
// deliver in order.
type fanInBuffer struct {
	edge    *Edge
	pending map[string][]any
}

func newFanInBuffer(edge *Edge) *fanInBuffer {
	return &fanInBuffer{edge: edge, pending: map[string][]any{}}
}

// add queues a contribution from one source.
func (b *fanInBuffer) add(source string, value any) {
	b.pending[source] = append(b.pending[source], value)
}

// take assembles one JoinMessage if every configured source has contributed,
// consuming one queued value per source. It returns false when the current
// epoch is incomplete.
func (b *fanInBuffer) take() (JoinMessage, bool) {
	for _, source := range b.edge.sources {
		if len(b.pending[source]) == 0 {
			return JoinMessage{}, false
		}
	}
	contributions := make([]Contribution, 0, len(b.edge.sources))
	for _, source := range b.edge.sources {
		contributions = append(contributions, Contribution{
			Source: source,
			Value:  b.pending[source][0],
		})
		b.pending[source] = b.pending[source][1:]
		if len(b.pending[source]) == 0 {
			delete(b.pending, source)
		}
	}
	return JoinMessage{Contributions: contributions}, true
}

// snapshot serializes the buffer's pending contributions.
func (b *fanInBuffer) snapshot(registry *typeRegistry) (map[string][]MessageRecord, error) {
	out := map[string][]MessageRecord{}
	for source, values := range b.pending {
		for _, value := range values {
			record, err := registry.encode(source, value)
			if err != nil {
				return nil, err
			}
			out[source] = append(out[source], record)
		}
	}
	return out, nil
}

// restore replaces the buffer's pending contributions from a snapshot.
func (b *fanInBuffer) restore(registry *typeRegistry, records map[string][]MessageRecord) error {
	b.pending = map[string][]any{}
	for source, sourceRecords := range records {
		for _, record := range sourceRecords {
			value, err := registry.decode(record)
			if err != nil {
				return err
			}
			b.pending[source] = append(b.pending[source], value)
		}
	}
	return nil
}
