package schema

import (
	"encoding/json"
	"time"

	jsonschema "github.com/swaggest/jsonschema-go"
)

// Draft is the meta-schema generated documents declare.
const Draft = "http://json-schema.org/draft-07/schema#"

func typed(t string, description string) *jsonschema.Schema {
	simple := jsonschema.SimpleType(t)
	s := &jsonschema.Schema{Type: &jsonschema.Type{SimpleTypes: &simple}}
	if description != "" {
		s.Description = &description
	}
	return s
}

func withDefault(s *jsonschema.Schema, value interface{}) *jsonschema.Schema {
	s.Default = &value
	return s
}

// String creates a string field. An empty default is omitted.
func String(description string, defaultValue string) *jsonschema.Schema {
	s := typed("string", description)
	if defaultValue != "" {
		withDefault(s, defaultValue)
	}
	return s
}

// URI creates a string field holding an absolute URL.
func URI(description string, defaultValue string) *jsonschema.Schema {
	s := String(description, defaultValue)
	format := "uri"
	s.Format = &format
	return s
}

// Enum creates a string field restricted to values.
func Enum(description string, values []string, defaultValue string) *jsonschema.Schema {
	s := String(description, defaultValue)
	s.Enum = make([]interface{}, len(values))
	for i, v := range values {
		s.Enum[i] = v
	}
	return s
}

// Bool creates a boolean field.
func Bool(description string, defaultValue bool) *jsonschema.Schema {
	return withDefault(typed("boolean", description), defaultValue)
}

// Int creates a non-negative integer field bounded by max when max > 0.
func Int(description string, defaultValue int64, max int64) *jsonschema.Schema {
	s := withDefault(typed("integer", description), defaultValue)
	s.WithMinimum(0)
	if max > 0 {
		s.WithMaximum(float64(max))
	}
	return s
}

// Duration creates an integer field holding nanoseconds, the JSON form of time.Duration.
func Duration(description string, defaultValue time.Duration) *jsonschema.Schema {
	s := Int(description+" (nanoseconds, "+defaultValue.String()+" by default)", int64(defaultValue), 0)
	return s
}

// Object creates an object with the given properties. Unknown keys are rejected.
func Object(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	s := typed("object", "")
	s.Properties = make(map[string]jsonschema.SchemaOrBool, len(properties))
	for name, prop := range properties {
		s.Properties[name] = jsonschema.SchemaOrBool{TypeObject: prop}
	}
	s.Required = required
	s.WithAdditionalProperties(jsonschema.SchemaOrBool{TypeBoolean: boolPtr(false)})
	return s
}

// Document marks root as a top level schema.
func Document(title string, root *jsonschema.Schema) *jsonschema.Schema {
	draft := Draft
	root.Schema = &draft
	root.Title = &title
	return root
}

// Marshal renders a schema as indented JSON.
func Marshal(s *jsonschema.Schema) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}

func boolPtr(b bool) *bool { return &b }
