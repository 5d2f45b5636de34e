package registry

import "github.com/getkin/kin-openapi/openapi3"

// Schema construction helpers shared by the agent variants. Tool argument
// schemas double as the wire schema advertised to LLM hosts, so they are kept
// as plain openapi3 objects.

// Schema aliases the openapi3 schema so agent packages do not need to import
// kin-openapi directly.
type Schema = openapi3.Schema

// ObjectParams builds the argument object schema for a tool.
func ObjectParams(props map[string]*openapi3.Schema, required ...string) *openapi3.Schema {
	s := openapi3.NewObjectSchema()
	for name, prop := range props {
		s = s.WithProperty(name, prop)
	}
	s.Required = required
	return s
}

// StringParam builds a described string parameter.
func StringParam(description string) *openapi3.Schema {
	s := openapi3.NewStringSchema()
	s.Description = description
	return s
}

// IntParam builds a described integer parameter.
func IntParam(description string) *openapi3.Schema {
	s := openapi3.NewIntegerSchema()
	s.Description = description
	return s
}

// NumberParam builds a described number parameter.
func NumberParam(description string) *openapi3.Schema {
	s := openapi3.NewFloat64Schema()
	s.Description = description
	return s
}

// BoolParam builds a described boolean parameter.
func BoolParam(description string) *openapi3.Schema {
	s := openapi3.NewBoolSchema()
	s.Description = description
	return s
}

// StringArrayParam builds a described array-of-strings parameter.
func StringArrayParam(description string) *openapi3.Schema {
	s := openapi3.NewArraySchema()
	s.Items = openapi3.NewSchemaRef("", openapi3.NewStringSchema())
	s.Description = description
	return s
}
