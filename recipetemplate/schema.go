// Package recipetemplate implements the reusable, parameterized recipe
// shapes declared under .bake/templates: typed parameter schemas,
// extends-based inheritance with field-wise body merging, and
// instantiation of a concrete recipe body from bound parameter values.
package recipetemplate

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ParamType is one of the five parameter kinds a template may declare.
type ParamType string

const (
	ParamString  ParamType = "string"
	ParamNumber  ParamType = "number"
	ParamBoolean ParamType = "boolean"
	ParamArray   ParamType = "array"
	ParamObject  ParamType = "object"
)

// ParamSchema describes one declared parameter, including the
// type-specific constraints spec's parameter table lists.
type ParamSchema struct {
	Type     ParamType              `yaml:"type"`
	Required bool                   `yaml:"required,omitempty"`
	Default  any                    `yaml:"default,omitempty"`
	Pattern  string                 `yaml:"pattern,omitempty"`   // string
	Min      *float64               `yaml:"min,omitempty"`       // number
	Max      *float64               `yaml:"max,omitempty"`       // number
	Items    *ParamSchema           `yaml:"items,omitempty"`     // array
	Properties map[string]*ParamSchema `yaml:"properties,omitempty"` // object
}

// toJSONSchema renders one parameter's constraints into the equivalent
// JSON Schema fragment, so the whole parameter set can be validated in
// a single gojsonschema.Validate call instead of hand-rolled per-type
// checks.
func (p *ParamSchema) toJSONSchema() map[string]any {
	schema := map[string]any{}

	switch p.Type {
	case ParamString:
		schema["type"] = "string"
		if p.Pattern != "" {
			schema["pattern"] = p.Pattern
		}
	case ParamNumber:
		schema["type"] = "number"
		if p.Min != nil {
			schema["minimum"] = *p.Min
		}
		if p.Max != nil {
			schema["maximum"] = *p.Max
		}
	case ParamBoolean:
		schema["type"] = "boolean"
	case ParamArray:
		schema["type"] = "array"
		if p.Items != nil {
			schema["items"] = p.Items.toJSONSchema()
		}
	case ParamObject:
		schema["type"] = "object"
		if len(p.Properties) > 0 {
			props := make(map[string]any, len(p.Properties))
			for name, sub := range p.Properties {
				props[name] = sub.toJSONSchema()
			}
			schema["properties"] = props
		}
	}

	return schema
}

// ValidationError names the offending parameter, the value it got, and
// which constraint it violated, matching spec's example message
// ("parameter `port` value `99999` exceeds max `65535`").
type ValidationError struct {
	Param string
	Value any
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q value %v %s", e.Param, e.Value, e.Msg)
}

// Validate checks bound against schema: applies defaults for missing
// optional parameters, fails on a missing required one, and validates
// every supplied value against its declared JSON-Schema-equivalent
// constraints. It returns the fully resolved parameter map (bound
// values plus defaults) ready to feed a restricted render context.
func Validate(schema map[string]*ParamSchema, bound map[string]any) (map[string]any, error) {
	resolved := make(map[string]any, len(schema))

	properties := make(map[string]any, len(schema))
	required := []string{}

	for name, p := range schema {
		properties[name] = p.toJSONSchema()
		if p.Required {
			required = append(required, name)
		}

		if v, ok := bound[name]; ok {
			resolved[name] = v
		} else if p.Default != nil {
			resolved[name] = p.Default
		} else if p.Required {
			return nil, &ValidationError{Param: name, Msg: "is required but was not supplied"}
		}
	}

	for name := range bound {
		if _, known := schema[name]; !known {
			return nil, &ValidationError{Param: name, Value: bound[name], Msg: "is not a declared parameter"}
		}
	}

	doc := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}

	schemaBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("recipetemplate: marshal parameter schema: %w", err)
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaBytes))
	if err != nil {
		return nil, fmt.Errorf("recipetemplate: compile parameter schema: %w", err)
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(resolved))
	if err != nil {
		return nil, fmt.Errorf("recipetemplate: validate parameters: %w", err)
	}
	if !result.Valid() {
		issue := result.Errors()[0]
		return nil, &ValidationError{
			Param: issue.Field(),
			Value: issue.Value(),
			Msg:   issue.Description(),
		}
	}

	return resolved, nil
}
