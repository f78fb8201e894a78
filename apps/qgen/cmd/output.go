package cmd

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/quatton/qgen/pkg/qsdk/qerr"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// splitModel parses "owner/name".
func splitModel(ref string) (string, string, error) {
	owner, name, ok := strings.Cut(ref, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", qerr.Validation("model must be owner/name, got %q", ref)
	}
	return owner, name, nil
}

// parseSets turns key=value flags into a map. Values that parse as JSON keep
// their JSON type; anything else is a string.
func parseSets(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		k, v, ok := strings.Cut(s, "=")
		if !ok || k == "" {
			return nil, qerr.Validation("--set expects key=value, got %q", s)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			out[k] = parsed
		} else {
			out[k] = v
		}
	}
	return out, nil
}

func parseJSONObject(flag, text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return nil, qerr.Validation("%s is not a JSON object: %v", flag, err)
	}
	return out, nil
}
