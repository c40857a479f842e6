package capability

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
)

// ObjectSchema encodes a JSON schema object with the given properties.
func ObjectSchema(props map[string]*jsonschema.Schema, required ...string) json.RawMessage {
	if props == nil {
		props = map[string]*jsonschema.Schema{}
	}
	s := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	b, err := json.Marshal(s)
	if err != nil {
		// Schemas built from literals always marshal.
		panic(err)
	}
	return b
}

// StringProp is a string property with a description.
func StringProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: description}
}

// IntegerProp is an integer property with a description.
func IntegerProp(description string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: description}
}

// StringArg returns args[key] when it is a string.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

// IntArg returns args[key] as an int. JSON numbers decode as float64.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}
