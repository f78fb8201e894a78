package qsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/quatton/qgen/pkg/kv"
	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

// fakeAPI is a scripted stand-in for the Replicate HTTP API.
type fakeAPI struct {
	mu     sync.Mutex
	calls  map[string]int
	polls  []Status // statuses returned by successive GET /predictions/{id}
	cancel int
	seen   []*http.Request
	bodies []map[string]any
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{calls: map[string]int{}}
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	key := r.Method + " " + r.URL.Path
	f.calls[key]++
	f.seen = append(f.seen, r)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/models":
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"owner": "acme", "name": "one", "url": "https://x/acme/one", "latest_version": map[string]any{"id": "v1"}},
				{"owner": "acme", "name": "two"},
				{"owner": "acme", "name": "three"},
			},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/models/acme/one":
		json.NewEncoder(w).Encode(map[string]any{
			"owner": "acme", "name": "one", "description": "first", "run_count": 7,
			"latest_version": map[string]any{"id": "v1"},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/models/acme/one/versions/v1":
		json.NewEncoder(w).Encode(map[string]any{"id": "v1", "openapi_schema": map[string]any{}})
	case r.Method == http.MethodPost && r.URL.Path == "/predictions":
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "starting", "input": body["input"]})
	case r.Method == http.MethodGet && r.URL.Path == "/predictions/p1":
		f.mu.Lock()
		status := StatusProcessing
		if len(f.polls) > 0 {
			status = f.polls[0]
			if len(f.polls) > 1 {
				f.polls = f.polls[1:]
			}
		}
		f.mu.Unlock()
		resp := map[string]any{"id": "p1", "status": status, "input": map[string]any{}}
		switch status {
		case StatusSucceeded:
			resp["output"] = []string{"https://delivery/out.png"}
		case StatusFailed:
			resp["error"] = "CUDA out of memory"
		}
		json.NewEncoder(w).Encode(resp)
	case r.Method == http.MethodPost && r.URL.Path == "/predictions/p1/cancel":
		f.mu.Lock()
		f.cancel++
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"id": "p1", "status": "canceled", "input": map[string]any{}})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, h http.Handler, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	noSleep := WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() })
	c, err := NewClient("r8_test", append([]Option{WithBaseURL(srv.URL), noSleep}, opts...)...)
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_RequiresToken(t *testing.T) {
	if _, err := NewClient(" "); !qerr.IsCode(err, qerr.CodeConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestDo_SendsBearerToken(t *testing.T) {
	var auth string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))

	if err := c.Do(context.Background(), http.MethodGet, "/models", nil, nil, nil); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if auth != "Bearer r8_test" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestDo_UnauthorizedIsFatal(t *testing.T) {
	hits := 0
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := c.Do(context.Background(), http.MethodGet, "/models", nil, nil, nil)
	if !qerr.IsCode(err, qerr.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("401 must not be retried, got %d hits", hits)
	}
}

func TestDo_RateLimitRetriesOnce(t *testing.T) {
	hits := 0
	var slept []time.Duration
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.Header().Set("Retry-After", "3")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}), WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	var out map[string]bool
	if err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, &out); err != nil {
		t.Fatalf("Do failed: %v", err)
	}
	if hits != 2 || !out["ok"] {
		t.Fatalf("expected success on second attempt, hits=%d out=%v", hits, out)
	}
	if len(slept) != 1 || slept[0] != 3*time.Second {
		t.Fatalf("expected one 3s backoff, got %v", slept)
	}
}

func TestDo_RateLimitBounded(t *testing.T) {
	hits := 0
	var slept []time.Duration
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithSleep(func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}))

	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	if !qerr.IsCode(err, qerr.CodeRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if hits != 2 {
		t.Fatalf("expected exactly one retry, got %d hits", hits)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Fatalf("expected default 5s backoff, got %v", slept)
	}
}

func TestDo_OtherStatusIsAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":"bad version"}`))
	}))

	err := c.Do(context.Background(), http.MethodPost, "/predictions", nil, map[string]any{}, nil)
	if !qerr.IsCode(err, qerr.CodeAPI) {
		t.Fatalf("expected api error, got %v", err)
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "bad version") {
		t.Fatalf("error should carry status and body: %v", err)
	}
}

func TestDo_TransportError(t *testing.T) {
	c, _ := NewClient("r8_test", WithBaseURL("http://127.0.0.1:1"))
	err := c.Do(context.Background(), http.MethodGet, "/models", nil, nil, nil)
	if !qerr.IsCode(err, qerr.CodeTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestListModels_CachedUntilCleared(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	ctx := context.Background()

	models, err := c.ListModels(ctx, "acme", 2)
	if err != nil {
		t.Fatalf("ListModels failed: %v", err)
	}
	if len(models) != 2 || models[0].ID() != "acme/one" {
		t.Fatalf("unexpected models: %+v", models)
	}

	c.ListModels(ctx, "acme", 2)
	if got := api.count("GET /models"); got != 1 {
		t.Fatalf("expected cached second call, got %d requests", got)
	}

	c.ListModels(ctx, "acme", 3)
	if got := api.count("GET /models"); got != 2 {
		t.Fatalf("different limit must miss the cache, got %d requests", got)
	}

	if err := c.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	c.ListModels(ctx, "acme", 2)
	if got := api.count("GET /models"); got != 3 {
		t.Fatalf("expected fresh call after ClearCache, got %d requests", got)
	}
}

func TestClearCache_ScopedToNamespace(t *testing.T) {
	api := newFakeAPI()
	shared := kv.NewMemoryStore()
	a := newTestClient(t, api, WithCache(shared), WithCacheNamespace("qgen:a:"))
	b := newTestClient(t, api, WithCache(shared), WithCacheNamespace("qgen:b:"))
	ctx := context.Background()

	a.ListModels(ctx, "acme", 2)
	b.ListModels(ctx, "acme", 2)
	if got := api.count("GET /models"); got != 2 {
		t.Fatalf("separate namespaces should not share entries, got %d requests", got)
	}

	if err := a.ClearCache(ctx); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}
	b.ListModels(ctx, "acme", 2)
	if got := api.count("GET /models"); got != 2 {
		t.Fatalf("clearing one namespace dropped another's entries, got %d requests", got)
	}
	a.ListModels(ctx, "acme", 2)
	if got := api.count("GET /models"); got != 3 {
		t.Fatalf("expected fresh call after ClearCache, got %d requests", got)
	}
}

func TestListModels_ExpiresAfterTTL(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api, WithCacheTTL(time.Nanosecond))
	ctx := context.Background()

	c.ListModels(ctx, "", 0)
	time.Sleep(time.Millisecond)
	c.ListModels(ctx, "", 0)

	if got := api.count("GET /models"); got != 2 {
		t.Fatalf("expected expired entry to refetch, got %d requests", got)
	}
}

func TestGetModelDetailsCachedButVersionFresh(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := c.GetModelDetails(ctx, "acme", "one")
		if err != nil {
			t.Fatalf("GetModelDetails failed: %v", err)
		}
		if d.RunCount != 7 || d.LatestVersion == nil || d.LatestVersion.ID != "v1" {
			t.Fatalf("unexpected details: %+v", d)
		}
		if _, err := c.GetModelVersion(ctx, "acme", "one", "v1"); err != nil {
			t.Fatalf("GetModelVersion failed: %v", err)
		}
	}

	if got := api.count("GET /models/acme/one"); got != 1 {
		t.Fatalf("details should be cached, got %d requests", got)
	}
	if got := api.count("GET /models/acme/one/versions/v1"); got != 2 {
		t.Fatalf("versions must never be cached, got %d requests", got)
	}
}

func TestSelectModel_PresetAndSearch(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)
	ctx := context.Background()

	info, err := c.SelectModel(ctx, SelectRequest{Preset: "acme/one"})
	if err != nil {
		t.Fatalf("SelectModel preset failed: %v", err)
	}
	if info.ID() != "acme/one" || info.VersionID != "v1" || info.Visibility != "public" {
		t.Fatalf("unexpected preset info: %+v", info)
	}
	if api.count("GET /models") != 0 {
		t.Fatal("preset selection must not list models")
	}

	info, err = c.SelectModel(ctx, SelectRequest{Preset: CustomPreset, Search: "acme"})
	if err != nil {
		t.Fatalf("SelectModel search failed: %v", err)
	}
	if info.ID() != "acme/one" || info.Details == nil || info.Details.Description != "first" {
		t.Fatalf("unexpected search info: %+v", info)
	}

	if _, err := c.SelectModel(ctx, SelectRequest{Preset: "not-a-model"}); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Fatalf("expected validation error for bad preset, got %v", err)
	}
}

func TestCreatePrediction_PostsVersionInputWebhook(t *testing.T) {
	api := newFakeAPI()
	c := newTestClient(t, api)

	p, err := c.CreatePrediction(context.Background(), "v1", map[string]any{"prompt": "a cat"}, "https://hook")
	if err != nil {
		t.Fatalf("CreatePrediction failed: %v", err)
	}
	if p.ID != "p1" || p.Status != StatusStarting {
		t.Fatalf("unexpected prediction: %+v", p)
	}
	body := api.bodies[0]
	if body["version"] != "v1" || body["webhook"] != "https://hook" {
		t.Fatalf("unexpected body: %v", body)
	}
	if body["input"].(map[string]any)["prompt"] != "a cat" {
		t.Fatalf("unexpected input: %v", body["input"])
	}

	if _, err := c.CreatePrediction(context.Background(), "", nil, ""); !qerr.IsCode(err, qerr.CodeValidation) {
		t.Fatalf("expected validation error for empty version, got %v", err)
	}
}

func TestWaitForPrediction_ReturnsTerminal(t *testing.T) {
	api := newFakeAPI()
	api.polls = []Status{StatusStarting, StatusProcessing, StatusSucceeded}
	c := newTestClient(t, api)

	p, err := c.WaitForPrediction(context.Background(), "p1", time.Minute, time.Millisecond)
	if err != nil {
		t.Fatalf("WaitForPrediction failed: %v", err)
	}
	if p.Status != StatusSucceeded {
		t.Fatalf("expected succeeded, got %s", p.Status)
	}
	if got := api.count("GET /predictions/p1"); got != 3 {
		t.Fatalf("expected 3 polls, got %d", got)
	}
	if api.cancel != 0 {
		t.Fatal("wait must not cancel")
	}
}

func TestWaitForPrediction_Timeout(t *testing.T) {
	api := newFakeAPI()
	now := time.Unix(0, 0)
	c := newTestClient(t, api,
		WithClock(func() time.Time { return now }),
		WithSleep(func(context.Context, time.Duration) error {
			now = now.Add(10 * time.Second)
			return nil
		}),
	)

	_, err := c.WaitForPrediction(context.Background(), "p1", 25*time.Second, 10*time.Second)
	if !qerr.IsCode(err, qerr.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if api.cancel != 0 {
		t.Fatal("WaitForPrediction leaves cancellation to callers")
	}
}

func TestPredict_TimeoutCancelsExactlyOnce(t *testing.T) {
	api := newFakeAPI()
	now := time.Unix(0, 0)
	c := newTestClient(t, api,
		WithClock(func() time.Time { return now }),
		WithSleep(func(context.Context, time.Duration) error {
			now = now.Add(time.Second)
			return nil
		}),
	)

	_, err := c.Predict(context.Background(), PredictRequest{
		Version: "v1", Input: map[string]any{}, Timeout: 3 * time.Second, PollInterval: time.Second,
	})
	if !qerr.IsCode(err, qerr.CodeTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if api.cancel != 1 {
		t.Fatalf("expected exactly one cancel, got %d", api.cancel)
	}
}

func TestPredict_FailureCarriesRemoteError(t *testing.T) {
	api := newFakeAPI()
	api.polls = []Status{StatusFailed}
	c := newTestClient(t, api)

	p, err := c.Predict(context.Background(), PredictRequest{Version: "v1", PollInterval: time.Millisecond})
	if !qerr.IsCode(err, qerr.CodePredictionFailed) {
		t.Fatalf("expected prediction_failed, got %v", err)
	}
	if p == nil || p.ErrorText() != "CUDA out of memory" {
		t.Fatalf("expected prediction with remote error, got %+v", p)
	}
}

func TestPredict_Canceled(t *testing.T) {
	api := newFakeAPI()
	api.polls = []Status{StatusCanceled}
	c := newTestClient(t, api)

	_, err := c.Predict(context.Background(), PredictRequest{Version: "v1", PollInterval: time.Millisecond})
	if !qerr.IsCode(err, qerr.CodeCanceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusSucceeded, StatusFailed, StatusCanceled} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []Status{StatusStarting, StatusProcessing} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
