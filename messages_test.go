package graphflow

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

type payload struct {
	Value int `json:"value"`
}

func TestMessageTypeName(t *testing.T) {
	require.Equal(t, "string", messageTypeName(reflect.TypeOf("")))
	require.Equal(t, "map[string]interface {}", messageTypeName(reflect.TypeOf(map[string]any{})))

	name := messageTypeName(reflect.TypeOf(payload{}))
	require.Contains(t, name, "graphflow.payload")

	pointerName := messageTypeName(reflect.TypeOf(&payload{}))
	require.Equal(t, "*"+name, pointerName)

	// reflect.TypeOf(nil) is a nil reflect.Type
	require.Equal(t, "nil", messageTypeName(reflect.TypeOf(nil)))
}

func TestTypeRegistryIgnoresNilTypes(t *testing.T) {
	registry := newTypeRegistry()
	registry.register(nil)
	require.NotContains(t, registry.types, "nil")
}

func TestTypeRegistryRoundTrip(t *testing.T) {
	registry := newTypeRegistry()
	registry.register(reflect.TypeOf(payload{}))

	record, err := registry.encode("sender", payload{Value: 7})
	require.NoError(t, err)
	require.Equal(t, "sender", record.Source)

	decoded, err := registry.decode(record)
	require.NoError(t, err)
	require.Equal(t, payload{Value: 7}, decoded)
}

func TestTypeRegistryPointerRoundTrip(t *testing.T) {
	registry := newTypeRegistry()
	registry.register(reflect.TypeOf(&payload{}))

	record, err := registry.encode("", &payload{Value: 7})
	require.NoError(t, err)

	decoded, err := registry.decode(record)
	require.NoError(t, err)
	typed, ok := decoded.(*payload)
	require.True(t, ok, "decoded to %T, want *payload", decoded)
	require.Equal(t, 7, typed.Value)
}

func TestTypeRegistryRejectsUnknownTypes(t *testing.T) {
	registry := newTypeRegistry()

	_, err := registry.encode("", payload{Value: 1})
	require.Error(t, err)
	require.Contains(t, err.Error(), "not registered")

	_, err = registry.decode(MessageRecord{Type: "mystery", Data: []byte("{}")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown message type")
}

func TestJoinMessageValues(t *testing.T) {
	join := JoinMessage{Contributions: []Contribution{
		{Source: "a", Value: 1},
		{Source: "b", Value: 2},
	}}
	require.Equal(t, []any{1, 2}, join.Values())
}
