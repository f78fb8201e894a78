// Package qschema parses the input schema of a model version into an ordered
// set of typed parameter specs, and caches parsed schemas per version for the
// life of the process.
package qschema

import (
	"fmt"
	"strings"
)

// Type is the declared JSON type of a parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

func (t Type) valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeNumber, TypeBoolean, TypeArray, TypeObject:
		return true
	}
	return false
}

// ParamSpec describes one input parameter. Values are immutable once parsed;
// Default and Enum hold decoded JSON values.
type ParamSpec struct {
	Name        string
	Type        Type
	Required    bool
	Default     any
	HasDefault  bool
	Enum        []any
	Title       string
	Description string
	Format      string
	ItemsFormat string // format of array items, e.g. "uri"
	Minimum     *float64
	Maximum     *float64
	Order       int
}

// DisplayTitle is the title, or the name when no title is declared.
func (p ParamSpec) DisplayTitle() string {
	if p.Title != "" {
		return p.Title
	}
	return p.Name
}

var (
	mediaFormats  = []string{"uri", "image", "file"}
	mediaKeywords = []string{"image", "picture", "photo", "img"}
	promptWords   = []string{"prompt", "text", "caption", "description", "query"}
)

// IsMedia reports whether the parameter expects a media payload: a uri/image/
// file format, or a title mentioning an image.
func (p ParamSpec) IsMedia() bool {
	format := strings.ToLower(p.Format)
	for _, f := range mediaFormats {
		if format == f {
			return true
		}
	}
	title := strings.ToLower(p.Title)
	for _, k := range mediaKeywords {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// IsPrompt reports whether a string parameter carries free text.
func (p ParamSpec) IsPrompt() bool {
	if p.Type != TypeString {
		return false
	}
	name := strings.ToLower(p.Name)
	title := strings.ToLower(p.Title)
	for _, k := range promptWords {
		if strings.Contains(name, k) || strings.Contains(title, k) {
			return true
		}
	}
	return false
}

// Schema is an ordered, name-unique set of ParamSpecs for one resolved
// version.
type Schema struct {
	VersionID string

	params []ParamSpec
	index  map[string]int
}

// New builds a Schema from params in the given order. Duplicate names are
// rejected.
func New(versionID string, params []ParamSpec) (*Schema, error) {
	s := &Schema{
		VersionID: versionID,
		params:    make([]ParamSpec, 0, len(params)),
		index:     make(map[string]int, len(params)),
	}
	for _, p := range params {
		if p.Name == "" {
			return nil, fmt.Errorf("parameter with empty name")
		}
		if _, dup := s.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", p.Name)
		}
		if !p.Type.valid() {
			p.Type = TypeString
		}
		s.index[p.Name] = len(s.params)
		s.params = append(s.params, p)
	}
	return s, nil
}

// Params returns the specs in schema order. The slice is a copy.
func (s *Schema) Params() []ParamSpec {
	if s == nil {
		return nil
	}
	return append([]ParamSpec(nil), s.params...)
}

// Lookup returns the parameter named name.
func (s *Schema) Lookup(name string) (ParamSpec, bool) {
	if s == nil {
		return ParamSpec{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return ParamSpec{}, false
	}
	return s.params[i], true
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.params)
}

// Empty reports whether the version declared no parameters.
func (s *Schema) Empty() bool {
	return s.Len() == 0
}

// withVersion returns a shallow copy stamped with versionID.
func (s *Schema) withVersion(versionID string) *Schema {
	cp := *s
	cp.VersionID = versionID
	return &cp
}
