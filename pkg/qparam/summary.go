package qparam

import "github.com/quatton/qgen/pkg/qschema"

// ParamSummary describes one parameter for presentation to the host.
type ParamSummary struct {
	Name        string       `json:"name"`
	Type        qschema.Type `json:"type"`
	Required    bool         `json:"required"`
	Default     any          `json:"default,omitempty"`
	Enum        []any        `json:"enum,omitempty"`
	Description string       `json:"description,omitempty"`
	Title       string       `json:"title"`
	Format      string       `json:"format,omitempty"`
	Minimum     *float64     `json:"minimum,omitempty"`
	Maximum     *float64     `json:"maximum,omitempty"`
	IsMedia     bool         `json:"isMedia"`
	IsPrompt    bool         `json:"isPrompt"`
}

type Summary struct {
	VersionID string         `json:"versionId"`
	Params    []ParamSummary `json:"params"`
}

// Summarize lists every parameter of s in schema order.
func Summarize(s *qschema.Schema) Summary {
	sum := Summary{Params: []ParamSummary{}}
	if s == nil {
		return sum
	}
	sum.VersionID = s.VersionID
	for _, p := range s.Params() {
		sum.Params = append(sum.Params, ParamSummary{
			Name:        p.Name,
			Type:        p.Type,
			Required:    p.Required,
			Default:     p.Default,
			Enum:        p.Enum,
			Description: p.Description,
			Title:       p.DisplayTitle(),
			Format:      p.Format,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
			IsMedia:     p.IsMedia(),
			IsPrompt:    p.IsPrompt(),
		})
	}
	return sum
}

// Lookup returns the entry named name.
func (s Summary) Lookup(name string) (ParamSummary, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSummary{}, false
}
