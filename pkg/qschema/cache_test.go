package qschema

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

type fakeSource struct {
	details  int
	versions int
	latest   string
}

func (f *fakeSource) GetModelDetails(_ context.Context, owner, name string) (*qsdk.ModelDetails, error) {
	f.details++
	return &qsdk.ModelDetails{ModelSummary: qsdk.ModelSummary{
		Owner: owner, Name: name,
		LatestVersion: &qsdk.Version{ID: f.latest, OpenAPISchema: json.RawMessage(fluxOpenAPI)},
	}}, nil
}

func (f *fakeSource) GetModelVersion(_ context.Context, _, _, id string) (*qsdk.Version, error) {
	f.versions++
	return &qsdk.Version{ID: id, OpenAPISchema: json.RawMessage(fluxOpenAPI)}, nil
}

func TestCache_LatestResolvedOnce(t *testing.T) {
	src := &fakeSource{latest: "v1"}
	cache := NewCache(src)
	ctx := context.Background()

	s, err := cache.Get(ctx, "bfl", "flux", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.VersionID != "v1" {
		t.Fatalf("expected resolved v1, got %s", s.VersionID)
	}

	// The remote moving on does not move the pinned alias.
	src.latest = "v2"
	s, _ = cache.Get(ctx, "bfl", "flux", "")
	if s.VersionID != "v1" || src.details != 1 {
		t.Fatalf("latest alias should stay cached, got %s after %d fetches", s.VersionID, src.details)
	}

	// Concrete id learned from the alias is served without a version fetch.
	if _, err := cache.Get(ctx, "bfl", "flux", "v1"); err != nil {
		t.Fatalf("Get v1 failed: %v", err)
	}
	if src.versions != 0 {
		t.Fatalf("expected no version fetch, got %d", src.versions)
	}
}

func TestCache_PinnedVersion(t *testing.T) {
	src := &fakeSource{latest: "v1"}
	cache := NewCache(src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id, err := cache.ResolveVersion(ctx, "bfl", "flux", "abc")
		if err != nil {
			t.Fatalf("ResolveVersion failed: %v", err)
		}
		if id != "abc" {
			t.Fatalf("expected abc, got %s", id)
		}
	}
	if src.versions != 1 {
		t.Fatalf("expected a single version fetch, got %d", src.versions)
	}
}

func TestCache_Seed(t *testing.T) {
	src := &fakeSource{}
	cache := NewCache(src)

	info := &qsdk.ModelInfo{ModelSummary: qsdk.ModelSummary{
		Owner: "google", Name: "nano-banana",
		LatestVersion: &qsdk.Version{ID: "nb1", OpenAPISchema: json.RawMessage(fluxOpenAPI)},
	}}
	if _, err := cache.Seed(info); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	s, err := cache.Get(context.Background(), "google", "nano-banana", "")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.VersionID != "nb1" || src.details != 0 {
		t.Fatalf("seeded entry not used: version=%s fetches=%d", s.VersionID, src.details)
	}
}

func TestCache_RequiresIdentity(t *testing.T) {
	cache := NewCache(&fakeSource{})
	if _, err := cache.Get(context.Background(), "", "x", ""); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
