package qbatch

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"maps"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var defaultPresets []byte

// Preset declares the field names and defaults a model family expects.
type Preset struct {
	Owner       string         `yaml:"owner"`
	Name        string         `yaml:"name"`
	Version     string         `yaml:"version"`
	Mode        Mode           `yaml:"mode"`
	MaxBatch    int            `yaml:"max_batch"`
	PromptField string         `yaml:"prompt_field"`
	MediaField  string         `yaml:"media_field"`
	MediaList   bool           `yaml:"media_list"`
	CountField  string         `yaml:"count_field"`
	SeedField   string         `yaml:"seed_field"`
	Defaults    map[string]any `yaml:"defaults"`
}

func (p Preset) ID() string {
	return p.Owner + "/" + p.Name
}

// Build shapes one request: defaults, then Extra, then prompt, media and
// count. Prompt and media only fill their fields when Extra leaves them
// unset, so resolved inputs keep their values. A seed is advanced by the
// iteration.
func (p Preset) Build(c Call) map[string]any {
	body := maps.Clone(p.Defaults)
	if body == nil {
		body = make(map[string]any, len(c.Extra)+3)
	}
	maps.Copy(body, c.Extra)

	if _, set := c.Extra[p.PromptField]; p.PromptField != "" && !set && c.Prompt != "" {
		body[p.PromptField] = c.Prompt
	}
	if _, set := c.Extra[p.MediaField]; p.MediaField != "" && !set && len(c.Media) > 0 {
		if p.MediaList {
			items := make([]any, len(c.Media))
			for i, m := range c.Media {
				items[i] = m
			}
			body[p.MediaField] = items
		} else {
			body[p.MediaField] = c.Media[0]
		}
	}
	if p.Mode == ModeNativeBatch && p.CountField != "" {
		body[p.CountField] = c.Count
	}
	if p.SeedField != "" && c.Iteration > 0 {
		if seed, ok := body[p.SeedField]; ok {
			if next, ok := escalateSeed(seed, c.Iteration); ok {
				body[p.SeedField] = next
			}
		}
	}
	return body
}

// Model binds the preset to its builder.
func (p Preset) Model() Model {
	return Model{
		Owner:    p.Owner,
		Name:     p.Name,
		Version:  p.Version,
		Mode:     p.Mode,
		MaxBatch: p.MaxBatch,
		Build:    p.Build,
	}
}

// Catalog indexes presets by "owner/name".
type Catalog struct {
	presets map[string]Preset
}

type catalogFile struct {
	Models []Preset `yaml:"models"`
}

// LoadCatalog parses a YAML preset file.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing preset catalog: %w", err)
	}
	c := &Catalog{presets: make(map[string]Preset, len(f.Models))}
	for _, p := range f.Models {
		if p.Owner == "" || p.Name == "" {
			return nil, fmt.Errorf("preset without owner/name")
		}
		switch p.Mode {
		case ModeNativeBatch, ModeSingleShot:
		case "":
			p.Mode = ModeSingleShot
		default:
			return nil, fmt.Errorf("preset %s: unknown mode %q", p.ID(), p.Mode)
		}
		if _, dup := c.presets[p.ID()]; dup {
			return nil, fmt.Errorf("duplicate preset %s", p.ID())
		}
		c.presets[p.ID()] = p
	}
	return c, nil
}

// DefaultCatalog returns the built-in presets.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(defaultPresets))
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Lookup(id string) (Preset, bool) {
	p, ok := c.presets[id]
	return p, ok
}

// IDs lists preset ids in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.presets))
	for id := range c.presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ModelFor returns the preset model for owner/name, or a single-shot
// passthrough model when no preset exists.
func (c *Catalog) ModelFor(owner, name, version string) Model {
	if p, ok := c.Lookup(owner + "/" + name); ok {
		m := p.Model()
		if version != "" {
			m.Version = version
		}
		return m
	}
	return Model{Owner: owner, Name: name, Version: version, Mode: ModeSingleShot, Build: Passthrough("")}
}
