// Package schema holds the single argument contract of an operation. The JSON-Schema
// advertisement sent to the model and the validator are both derived from it.
package schema

import (
	"regexp"
)

type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	// KindScalar accepts a string, number, boolean or null. Used for cell values.
	KindScalar Kind = "scalar"
)

type Property struct {
	Name        string
	Description string
	Kind        Kind
	Required    bool
	Enum        []string
	Pattern     *regexp.Regexp
	Items       *Property
	Properties  []Property
	Strict      bool
}

// Schema describes the top-level arguments object of an operation.
type Schema struct {
	Properties []Property
	Strict     bool
}

// New returns a schema that ignores unknown fields.
func New(props ...Property) *Schema {
	return &Schema{Properties: props}
}

// Strict returns a schema that rejects unknown fields.
func Strict(props ...Property) *Schema {
	return &Schema{Properties: props, Strict: true}
}

func String(name, description string) Property {
	return Property{Name: name, Description: description, Kind: KindString}
}

func Number(name, description string) Property {
	return Property{Name: name, Description: description, Kind: KindNumber}
}

func Integer(name, description string) Property {
	return Property{Name: name, Description: description, Kind: KindInteger}
}

func Boolean(name, description string) Property {
	return Property{Name: name, Description: description, Kind: KindBoolean}
}

func Scalar(name, description string) Property {
	return Property{Name: name, Description: description, Kind: KindScalar}
}

func Array(name, description string, items Property) Property {
	return Property{Name: name, Description: description, Kind: KindArray, Items: &items}
}

// Object declares a nested object. With no properties it is a free-form record.
func Object(name, description string, props ...Property) Property {
	return Property{Name: name, Description: description, Kind: KindObject, Properties: props}
}

func (p Property) Req() Property {
	p.Required = true
	return p
}

func (p Property) OneOf(values ...string) Property {
	p.Enum = values
	return p
}

func (p Property) Match(pattern string) Property {
	p.Pattern = regexp.MustCompile(pattern)
	return p
}

func (p Property) Closed() Property {
	p.Strict = true
	return p
}

// Lookup returns the declared top-level property with the given name.
func (s *Schema) Lookup(name string) (Property, bool) {
	for _, p := range s.Properties {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

// JSONSchema renders the advertisement passed as tool parameters.
func (s *Schema) JSONSchema() map[string]interface{} {
	return objectSchema(s.Properties, s.Strict)
}

func objectSchema(props []Property, strict bool) map[string]interface{} {
	properties := make(map[string]interface{}, len(props))
	required := []string{}
	for _, p := range props {
		properties[p.Name] = p.jsonSchema()
		if p.Required {
			required = append(required, p.Name)
		}
	}

	out := map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
	if strict {
		out["additionalProperties"] = false
	}
	return out
}

func (p Property) jsonSchema() map[string]interface{} {
	var out map[string]interface{}

	switch p.Kind {
	case KindObject:
		if len(p.Properties) == 0 {
			out = map[string]interface{}{"type": "object"}
		} else {
			out = objectSchema(p.Properties, p.Strict)
		}
	case KindArray:
		out = map[string]interface{}{"type": "array"}
		if p.Items != nil {
			out["items"] = p.Items.jsonSchema()
		}
	case KindScalar:
		out = map[string]interface{}{"type": []string{"string", "number", "boolean", "null"}}
	default:
		out = map[string]interface{}{"type": string(p.Kind)}
	}

	if p.Description != "" {
		out["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		out["enum"] = p.Enum
	}
	if p.Pattern != nil {
		out["pattern"] = p.Pattern.String()
	}
	return out
}
