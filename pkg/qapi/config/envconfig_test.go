package config

import (
	"fmt"
	"strings"
	"testing"
)

func TestValidateEnv(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("REPLICATE_API_TOKEN", "r8_abcdefghijkl")
	t.Setenv("VALKEY_ADDR", "localhost:6379")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("ValidateEnv failed: %v", err)
	}
	if cfg.Port != "3000" || cfg.CacheTTL.Seconds() != 3600 || cfg.ReplicateBaseURL != "https://api.replicate.com/v1" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestValidateEnv_AggregatesErrors(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("REPLICATE_API_TOKEN", " ")
	t.Setenv("REPLICATE_BASE_URL", "not a url")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("ARTIFACT_DIR", "/tmp/out")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"REPLICATE_API_TOKEN", "REPLICATE_BASE_URL", "S3_ACCESS_KEY", "ARTIFACT_DIR"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{"": "<not set>", "short": "***", "r8_abcdefghijkl": "r8_a...ijkl"}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPrintMasksToken(t *testing.T) {
	cfg := &EnvConfig{ReplicateToken: "r8_supersecretvalue", ReplicateBaseURL: "https://api.replicate.com/v1"}
	var out strings.Builder
	cfg.Print(func(format string, args ...interface{}) {
		out.WriteString(strings.TrimSpace(fmt.Sprintf(format, args...)))
	})
	if strings.Contains(out.String(), "supersecret") {
		t.Fatalf("token leaked: %s", out.String())
	}
}
