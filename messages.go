package graphflow

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Envelope pairs a message with the executor that sent it and the executor it
// is addressed to. Mailboxes hold envelopes in delivery order.
type Envelope struct {
	Source  string
	Target  string
	Message any
}

// Contribution is one fan-in input, tagged with the source that produced it.
type Contribution struct {
	Source string `json:"source"`
	Value  any    `json:"value"`
}

// JoinMessage is delivered to a fan-in sink once every configured source has
// contributed for the current epoch. Contributions are ordered by the source
// declaration order of the fan-in edge, not by wall-clock arrival.
type JoinMessage struct {
	Contributions []Contribution `json:"contributions"`
}

// Values returns the contribution values in source declaration order.
func (m JoinMessage) Values() []any {
	values := make([]any, len(m.Contributions))
	for i, c := range m.Contributions {
		values[i] = c.Value
	}
	return values
}

// MessageRecord is the serialized form of a message: a type tag plus the
// JSON-encoded value. Checkpoints store mailbox contents as records so they
// can be decoded back into their registered Go types on resume.
type MessageRecord struct {
	Source string          `json:"source,omitempty"`
	Type   string          `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// typeRegistry maps stable type names to Go message types. The builder
// populates it from the handler registrations of every executor in the graph,
// so any message that can sit in a mailbox can round-trip a checkpoint.
type typeRegistry struct {
	types map[string]reflect.Type
}

func newTypeRegistry() *typeRegistry {
	r := &typeRegistry{types: map[string]reflect.Type{}}
	r.register(reflect.TypeOf(JoinMessage{}))
	// Common scalar and container shapes that appear as inputs and outputs
	for _, example := range []any{"", false, 0, int64(0), 0.0, map[string]any{}, []any{}} {
		r.register(reflect.TypeOf(example))
	}
	return r
}

// messageTypeName returns the stable name used to tag serialized messages.
// Pointer types keep their leading asterisks so they round-trip as pointers.
// A nil type (the reflect.TypeOf of an untyped nil) names itself "nil".
func messageTypeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	prefix := ""
	for t.Kind() == reflect.Pointer {
		prefix += "*"
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return prefix + t.String()
	}
	return prefix + t.PkgPath() + "." + t.Name()
}

func (r *typeRegistry) register(t reflect.Type) {
	if t == nil {
		return
	}
	base := t
	for base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() == reflect.Interface {
		return
	}
	r.types[messageTypeName(t)] = t
}

// encode converts a live message into a serializable record.
func (r *typeRegistry) encode(source string, message any) (MessageRecord, error) {
	data, err := json.Marshal(message)
	if err != nil {
		return MessageRecord{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	name := messageTypeName(reflect.TypeOf(message))
	if _, ok := r.types[name]; !ok {
		return MessageRecord{}, fmt.Errorf("message type %s is not registered with the workflow", name)
	}
	return MessageRecord{Source: source, Type: name, Data: data}, nil
}

// decode converts a record back into a value of its registered type.
func (r *typeRegistry) decode(record MessageRecord) (any, error) {
	t, ok := r.types[record.Type]
	if !ok {
		return nil, fmt.Errorf("unknown message type %q in checkpoint", record.Type)
	}
	pointer := t.Kind() == reflect.Pointer
	if pointer {
		t = t.Elem()
	}
	value := reflect.New(t)
	if err := json.Unmarshal(record.Data, value.Interface()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message of type %q: %w", record.Type, err)
	}
	if pointer {
		return value.Interface(), nil
	}
	return value.Elem().Interface(), nil
}
