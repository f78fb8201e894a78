package qschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/quatton/qgen/pkg/qsdk"
)

type property struct {
	Type        Type              `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Format      string            `json:"format"`
	Default     json.RawMessage   `json:"default"`
	Enum        []any             `json:"enum"`
	Required    bool              `json:"required"`
	Minimum     *float64          `json:"minimum"`
	Maximum     *float64          `json:"maximum"`
	Order       *int              `json:"x-order"`
	AllOf       []json.RawMessage `json:"allOf"`
	Ref         string            `json:"$ref"`
	Items       *struct {
		Type   Type   `json:"type"`
		Format string `json:"format"`
	} `json:"items"`
}

type objectSchema struct {
	Properties json.RawMessage `json:"properties"`
	Required   []string        `json:"required"`
}

type openAPIDoc struct {
	Components struct {
		Schemas map[string]json.RawMessage `json:"schemas"`
	} `json:"components"`
}

type legacyDoc struct {
	Input *objectSchema `json:"input"`
}

// Extract parses v's input schema. The OpenAPI document
// (components.schemas.Input) wins over the legacy schema.input; a version
// carrying neither yields an empty schema.
func Extract(v *qsdk.Version) (*Schema, error) {
	if v == nil {
		return New("", nil)
	}
	params, err := extractParams(v.OpenAPISchema, v.Schema)
	if err != nil {
		return nil, fmt.Errorf("parsing schema of version %s: %w", v.ID, err)
	}
	return New(v.ID, params)
}

func present(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && !bytes.Equal(t, []byte("null"))
}

func extractParams(openapi, legacy json.RawMessage) ([]ParamSpec, error) {
	switch {
	case present(openapi):
		var doc openAPIDoc
		if err := json.Unmarshal(openapi, &doc); err != nil {
			return nil, err
		}
		rawInput, ok := doc.Components.Schemas["Input"]
		if !ok {
			return nil, nil
		}
		var input objectSchema
		if err := json.Unmarshal(rawInput, &input); err != nil {
			return nil, err
		}
		return parseProperties(input, doc.Components.Schemas)
	case present(legacy):
		var doc legacyDoc
		if err := json.Unmarshal(legacy, &doc); err != nil {
			return nil, err
		}
		if doc.Input == nil {
			return nil, nil
		}
		return parseProperties(*doc.Input, nil)
	default:
		return nil, nil
	}
}

func parseProperties(obj objectSchema, components map[string]json.RawMessage) ([]ParamSpec, error) {
	if !present(obj.Properties) {
		return nil, nil
	}
	names, err := orderedKeys(obj.Properties)
	if err != nil {
		return nil, err
	}
	var props map[string]property
	if err := json.Unmarshal(obj.Properties, &props); err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(obj.Required))
	for _, n := range obj.Required {
		required[n] = true
	}

	params := make([]ParamSpec, 0, len(names))
	for i, name := range names {
		prop := props[name]
		resolveRefs(&prop, components)

		p := ParamSpec{
			Name:        name,
			Type:        prop.Type,
			Required:    prop.Required || required[name],
			Enum:        prop.Enum,
			Title:       prop.Title,
			Description: prop.Description,
			Format:      prop.Format,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
			Order:       math.MaxInt32/2 + i,
		}
		if prop.Order != nil {
			p.Order = *prop.Order
		}
		if prop.Items != nil {
			p.ItemsFormat = prop.Items.Format
		}
		if present(prop.Default) {
			var d any
			if err := json.Unmarshal(prop.Default, &d); err != nil {
				return nil, fmt.Errorf("default of %q: %w", name, err)
			}
			p.Default, p.HasDefault = d, true
		}
		if p.Type == "" {
			p.Type = inferType(p)
		}
		params = append(params, p)
	}

	sort.SliceStable(params, func(i, j int) bool { return params[i].Order < params[j].Order })
	return params, nil
}

// resolveRefs folds an allOf/$ref to a component schema (the way cog emits
// enums) into prop, keeping prop's own fields where set.
func resolveRefs(prop *property, components map[string]json.RawMessage) {
	refs := make([]string, 0, 1)
	if prop.Ref != "" {
		refs = append(refs, prop.Ref)
	}
	for _, raw := range prop.AllOf {
		var part struct {
			Ref string `json:"$ref"`
		}
		if json.Unmarshal(raw, &part) == nil && part.Ref != "" {
			refs = append(refs, part.Ref)
		}
	}
	for _, ref := range refs {
		name := strings.TrimPrefix(ref, "#/components/schemas/")
		raw, ok := components[name]
		if !ok {
			continue
		}
		var target property
		if json.Unmarshal(raw, &target) != nil {
			continue
		}
		if prop.Type == "" {
			prop.Type = target.Type
		}
		if len(prop.Enum) == 0 {
			prop.Enum = target.Enum
		}
		if prop.Description == "" {
			prop.Description = target.Description
		}
	}
}

func inferType(p ParamSpec) Type {
	probe := p.Default
	if !p.HasDefault && len(p.Enum) > 0 {
		probe = p.Enum[0]
	}
	switch v := probe.(type) {
	case bool:
		return TypeBoolean
	case float64:
		if v == math.Trunc(v) {
			return TypeInteger
		}
		return TypeNumber
	case []any:
		return TypeArray
	case map[string]any:
		return TypeObject
	default:
		return TypeString
	}
}

// orderedKeys returns the keys of a JSON object in document order.
func orderedKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("properties is not an object")
	}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected token %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
