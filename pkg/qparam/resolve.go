// Package qparam turns a model's input schema plus the values a host supplies
// (prompt text, a media queue, explicit overrides, prior UI state) into the
// input map of a prediction request.
package qparam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/quatton/qgen/pkg/qschema"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// MediaConverter turns a media override into its wire string.
type MediaConverter func(v any) (string, error)

// Request holds everything the host supplies for one resolution.
type Request struct {
	Prompt string
	// Media holds wire strings consumed in order by media parameters that
	// have no override.
	Media []string
	// OverridesJSON is decoded first; Overrides entries win on conflict.
	OverridesJSON string
	Overrides     map[string]any
	// Prior carries the values the host UI last showed for each parameter.
	Prior map[string]any
	// ConvertMedia converts media overrides. Nil passes strings through.
	ConvertMedia MediaConverter
}

// Resolve applies the precedence policy to every parameter of s in schema
// order and returns the input map with a summary of s. The summary is
// returned even when resolution fails. An empty schema yields an empty map.
func Resolve(s *qschema.Schema, req Request) (map[string]any, Summary, error) {
	summary := Summarize(s)
	inputs := make(map[string]any, s.Len())
	if s.Empty() {
		return inputs, summary, nil
	}

	raw, err := MergeOverrides(req.OverridesJSON, req.Overrides)
	if err != nil {
		return nil, summary, err
	}
	convert := req.ConvertMedia
	if convert == nil {
		convert = passThrough
	}

	overrides := make(map[string]any, len(raw))
	mediaOverrides := make(map[string]any)
	// Schema order, so the first failing parameter is always the same one.
	// Names outside the schema are never visited.
	for _, p := range s.Params() {
		v, ok := raw[p.Name]
		if !ok {
			continue
		}
		if p.IsMedia() {
			wire, err := convertMedia(p, v, convert)
			if err != nil {
				return nil, summary, err
			}
			mediaOverrides[p.Name] = wire
			continue
		}
		cv, err := Coerce(p, v)
		if err != nil {
			return nil, summary, err
		}
		overrides[p.Name] = cv
	}

	queue := append([]string(nil), req.Media...)

	for _, p := range s.Params() {
		if v, ok := overrides[p.Name]; ok {
			inputs[p.Name] = v
			continue
		}
		if v, ok := mediaOverrides[p.Name]; ok {
			inputs[p.Name] = v
			continue
		}

		if p.IsMedia() {
			if len(queue) > 0 {
				item := queue[0]
				queue = queue[1:]
				if p.Type == qschema.TypeArray {
					inputs[p.Name] = []any{item}
				} else {
					inputs[p.Name] = item
				}
				continue
			}
			if p.HasDefault {
				inputs[p.Name] = p.Default
				continue
			}
			if p.Required {
				return nil, summary, qerr.Validation("parameter '%s' requires a media input", p.Name)
			}
			continue
		}

		prior, hasPrior := req.Prior[p.Name]
		if p.IsPrompt() {
			if req.Prompt != "" {
				inputs[p.Name] = req.Prompt
				continue
			}
			if text := toText(prior); hasPrior && text != "" {
				inputs[p.Name] = text
				continue
			}
		}

		if hasPrior {
			cv, err := Coerce(p, prior)
			if err != nil {
				return nil, summary, err
			}
			inputs[p.Name] = cv
			continue
		}

		if p.HasDefault {
			inputs[p.Name] = p.Default
			continue
		}

		if p.Required {
			return nil, summary, qerr.Validation("missing required parameter '%s'", p.Name)
		}
	}

	return inputs, summary, nil
}

// MergeOverrides decodes jsonText and layers m over it.
func MergeOverrides(jsonText string, m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	if t := strings.TrimSpace(jsonText); t != "" {
		if err := json.Unmarshal([]byte(t), &out); err != nil {
			return nil, qerr.Validation("failed to parse overrides JSON: %v", err)
		}
		if out == nil {
			out = make(map[string]any, len(m))
		}
	}
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

func convertMedia(p qschema.ParamSpec, v any, convert MediaConverter) (any, error) {
	if items, ok := v.([]any); ok {
		wire := make([]any, 0, len(items))
		for _, item := range items {
			w, err := convert(item)
			if err != nil {
				return nil, qerr.Validation("invalid media for parameter '%s': %v", p.Name, err)
			}
			wire = append(wire, w)
		}
		return wire, nil
	}
	w, err := convert(v)
	if err != nil {
		return nil, qerr.Validation("invalid media for parameter '%s': %v", p.Name, err)
	}
	if p.Type == qschema.TypeArray {
		return []any{w}, nil
	}
	return w, nil
}

func passThrough(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("expected a string, got %T", v)
	}
	return s, nil
}
