package schema

import (
	"encoding/json"
	"testing"
	"time"

	jsonschema "github.com/swaggest/jsonschema-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleType(t *testing.T, s *jsonschema.Schema) jsonschema.SimpleType {
	t.Helper()
	require.NotNil(t, s.Type)
	require.NotNil(t, s.Type.SimpleTypes)
	return *s.Type.SimpleTypes
}

func TestScalarFields(t *testing.T) {
	tests := []struct {
		name     string
		schema   *jsonschema.Schema
		wantType jsonschema.SimpleType
		wantDef  interface{}
	}{
		{"string", String("a name", "x"), "string", "x"},
		{"bool", Bool("a flag", true), "boolean", true},
		{"int", Int("a count", 3, 10), "integer", int64(3)},
		{"duration", Duration("a wait", 200*time.Millisecond), "integer", int64(200 * time.Millisecond)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, simpleType(t, tt.schema))
			require.NotNil(t, tt.schema.Default)
			assert.Equal(t, tt.wantDef, *tt.schema.Default)
			require.NotNil(t, tt.schema.Description)
		})
	}
}

func TestStringOmitsEmptyDefault(t *testing.T) {
	s := String("optional", "")
	assert.Nil(t, s.Default)
}

func TestIntBounds(t *testing.T) {
	s := Int("retries", 3, 10)
	require.NotNil(t, s.Minimum)
	require.NotNil(t, s.Maximum)
	assert.Equal(t, 0.0, *s.Minimum)
	assert.Equal(t, 10.0, *s.Maximum)

	unbounded := Int("bytes", 0, 0)
	assert.Nil(t, unbounded.Maximum)
}

func TestDurationDescribesDefault(t *testing.T) {
	s := Duration("Pause", time.Second)
	assert.Equal(t, "Pause (nanoseconds, 1s by default)", *s.Description)
}

func TestEnum(t *testing.T) {
	s := Enum("mode", []string{"final", "all"}, "final")
	assert.Equal(t, []interface{}{"final", "all"}, s.Enum)
	assert.Equal(t, "final", *s.Default)
}

func TestObjectAndDocument(t *testing.T) {
	doc := Document("test config", Object(map[string]*jsonschema.Schema{
		"url":  URI("endpoint", "https://example.com"),
		"mode": Enum("mode", []string{"a", "b"}, "a"),
	}, "mode"))

	data, err := Marshal(doc)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, Draft, got["$schema"])
	assert.Equal(t, "test config", got["title"])
	assert.Equal(t, "object", got["type"])
	assert.Equal(t, false, got["additionalProperties"])
	assert.Equal(t, []interface{}{"mode"}, got["required"])

	props := got["properties"].(map[string]interface{})
	url := props["url"].(map[string]interface{})
	assert.Equal(t, "uri", url["format"])
	assert.Equal(t, "https://example.com", url["default"])
}
