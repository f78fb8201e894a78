package qbatch

import (
	"reflect"
	"strings"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	want := []string{"black-forest-labs/flux-schnell", "google/nano-banana", "qwen/qwen-image-edit", "stability-ai/sdxl"}
	if got := c.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	flux, _ := c.Lookup("black-forest-labs/flux-schnell")
	if flux.Mode != ModeNativeBatch || flux.MaxBatch != 4 || flux.Defaults["output_format"] != "webp" {
		t.Fatalf("unexpected flux preset %+v", flux)
	}
}

func TestPresetBuild_NativeBatch(t *testing.T) {
	p, _ := DefaultCatalog().Lookup("stability-ai/sdxl")
	body := p.Build(Call{
		Prompt:    "a fox",
		Media:     []string{"data:image/png;base64,AAA", "ignored"},
		Extra:     map[string]any{"seed": 10, "width": 512},
		Count:     3,
		Iteration: 2,
	})
	if body["prompt"] != "a fox" || body["image"] != "data:image/png;base64,AAA" {
		t.Errorf("prompt or media misplaced: %v", body)
	}
	if body["num_outputs"] != 3 || body["width"] != 512 || body["height"] != 1024 {
		t.Errorf("count or extras wrong: %v", body)
	}
	if body["seed"] != 12 {
		t.Errorf("expected seed escalated to 12, got %v", body["seed"])
	}
	if p.Defaults["width"] != 1024 {
		t.Error("Build mutated preset defaults")
	}
}

func TestPresetBuild_SingleShotMediaList(t *testing.T) {
	p, _ := DefaultCatalog().Lookup("google/nano-banana")
	body := p.Build(Call{Prompt: "edit", Media: []string{"a", "b"}, Count: 1})
	if !reflect.DeepEqual(body["image_input"], []any{"a", "b"}) {
		t.Errorf("expected media list, got %#v", body["image_input"])
	}
	if _, ok := body["num_outputs"]; ok {
		t.Error("single-shot payload should carry no count field")
	}
}

func TestPresetBuild_KeepsResolvedPromptAndMedia(t *testing.T) {
	p, _ := DefaultCatalog().Lookup("stability-ai/sdxl")
	body := p.Build(Call{
		Prompt: "a cat",
		Media:  []string{"data:image/png;base64,QUEUE"},
		Extra:  map[string]any{"prompt": "OVERRIDE", "image": "https://example.com/override.png"},
		Count:  1,
	})
	if body["prompt"] != "OVERRIDE" || body["image"] != "https://example.com/override.png" {
		t.Fatalf("resolved values were overwritten: %v", body)
	}

	nb, _ := DefaultCatalog().Lookup("google/nano-banana")
	body = nb.Build(Call{Prompt: "edit", Media: []string{"a"}, Extra: map[string]any{"prompt": "kept"}})
	if body["prompt"] != "kept" || !reflect.DeepEqual(body["image_input"], []any{"a"}) {
		t.Fatalf("unset media field should still be filled: %v", body)
	}
}

func TestPresetBuild_FirstIterationKeepsSeed(t *testing.T) {
	p, _ := DefaultCatalog().Lookup("qwen/qwen-image-edit")
	body := p.Build(Call{Extra: map[string]any{"seed": 7.0}})
	if body["seed"] != 7.0 {
		t.Fatalf("seed changed on first iteration: %v", body["seed"])
	}
	body = p.Build(Call{Extra: map[string]any{"seed": 7.0}, Iteration: 1})
	if body["seed"] != int64(8) {
		t.Fatalf("expected 8, got %#v", body["seed"])
	}
}

func TestLoadCatalog_Errors(t *testing.T) {
	cases := map[string]string{
		"bad mode":  "models:\n  - {owner: a, name: b, mode: turbo}\n",
		"no name":   "models:\n  - {owner: a}\n",
		"duplicate": "models:\n  - {owner: a, name: b}\n  - {owner: a, name: b}\n",
		"not yaml":  "models: [",
	}
	for name, doc := range cases {
		if _, err := LoadCatalog(strings.NewReader(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestModelFor(t *testing.T) {
	c := DefaultCatalog()
	m := c.ModelFor("stability-ai", "sdxl", "pinned")
	if m.Mode != ModeNativeBatch || m.Version != "pinned" {
		t.Fatalf("unexpected preset model %+v", m)
	}
	other := c.ModelFor("someone", "thing", "")
	if other.Mode != ModeSingleShot || other.Build == nil {
		t.Fatalf("unexpected fallback model %+v", other)
	}
	if body := other.Build(Call{Extra: map[string]any{"x": 1}}); body["x"] != 1 {
		t.Fatalf("passthrough lost extras: %v", body)
	}
}
