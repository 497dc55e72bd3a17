// Package schema builds JSON Schema fragments for the configuration file.
//
// Every constructor returns a *jsonschema.Schema from swaggest/jsonschema-go so fragments compose
// into a single document:
//
//	doc := schema.Document("claudexport configuration", schema.Object(map[string]*jsonschema.Schema{
//		"mode":   schema.Enum("Artifact versions to export", []string{"final", "all"}, "final"),
//		"delay":  schema.Duration("Pause between conversations", time.Second),
//		"strict": schema.Bool("Reject unknown keys", true),
//	}))
package schema
