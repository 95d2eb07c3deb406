package graphflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EdgeDefinition declares one edge in a YAML topology. Exactly one routing
// shape applies per definition: from/to (direct), from/to_all (fan-out), or
// from_all/to (fan-in).
type EdgeDefinition struct {
	From      string   `json:"from,omitempty" yaml:"from,omitempty"`
	FromAll   []string `json:"from_all,omitempty" yaml:"from_all,omitempty"`
	To        string   `json:"to,omitempty" yaml:"to,omitempty"`
	ToAll     []string `json:"to_all,omitempty" yaml:"to_all,omitempty"`
	Condition string   `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// TopologyOptions declares a workflow graph's shape without its executors.
// Executor IDs referenced here are resolved against the executor instances
// passed to NewTopology.
type TopologyOptions struct {
	Name   string            `json:"name" yaml:"name"`
	Start  string            `json:"start,omitempty" yaml:"start,omitempty"`
	Output string            `json:"output,omitempty" yaml:"output,omitempty"`
	Edges  []*EdgeDefinition `json:"edges" yaml:"edges"`
}

// NewTopology builds a workflow from a declarative topology and the executor
// instances it references.
func NewTopology(opts TopologyOptions, executors ...Executor) (*Workflow, error) {
	builder := NewWorkflowBuilder(opts.Name)
	for _, executor := range executors {
		builder.AddExecutor(executor)
	}
	if opts.Start != "" {
		builder.SetStartExecutor(opts.Start)
	}
	if opts.Output != "" {
		builder.WithOutputFrom(opts.Output)
	}
	for _, def := range opts.Edges {
		switch {
		case def.From != "" && def.To != "":
			var edgeOpts []EdgeOption
			if def.Condition != "" {
				edgeOpts = append(edgeOpts, WithConditionScript(def.Condition))
			}
			builder.AddEdge(def.From, def.To, edgeOpts...)
		case def.From != "" && len(def.ToAll) > 0:
			builder.AddFanOutEdge(def.From, def.ToAll)
		case len(def.FromAll) > 0 && def.To != "":
			builder.AddFanInEdge(def.FromAll, def.To)
		default:
			return nil, buildError("edge definition must set from/to, from/to_all, or from_all/to")
		}
	}
	return builder.Build()
}

// LoadFile loads a workflow topology from a YAML file.
func LoadFile(path string, executors ...Executor) (*Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file: %w", err)
	}
	return LoadString(string(data), executors...)
}

// LoadString loads a workflow topology from a YAML string.
func LoadString(data string, executors ...Executor) (*Workflow, error) {
	var opts TopologyOptions
	if err := yaml.Unmarshal([]byte(data), &opts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topology: %w", err)
	}
	return NewTopology(opts, executors...)
}
