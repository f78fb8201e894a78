package qerr

import (
	"errors"
	"regexp"
	"strings"
)

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+\S+`)
	tokenPattern  = regexp.MustCompile(`r8_[A-Za-z0-9]+`)
)

// Redact removes credential fragments from text.
func Redact(s string) string {
	s = bearerPattern.ReplaceAllString(s, "[REDACTED]")
	return tokenPattern.ReplaceAllString(s, "[REDACTED]")
}

// FormatMessage turns err into a message suitable for showing to a user.
// Recognized failures map to a fixed category message; anything else is passed
// through with a generic prefix.
func FormatMessage(err error) string {
	if err == nil {
		return ""
	}
	text := Redact(err.Error())
	lower := strings.ToLower(text)
	code := CodeOf(err)

	switch {
	case code == CodeSensitiveContent:
		var e *Error
		if errors.As(err, &e) && e.err != nil {
			text = Redact(e.err.Error())
		}
		return "Content was rejected by the model's safety filter: " + text
	case code == CodeUnauthorized || strings.Contains(lower, "invalid api token"):
		return "Invalid Replicate API token. Please check your API key configuration."
	case code == CodeRateLimited || strings.Contains(lower, "rate limit"):
		return "API rate limit exceeded. Please wait and try again."
	case code == CodeTransport || strings.Contains(lower, "network"):
		return "Network error. Please check your internet connection."
	case code == CodeTimeout || strings.Contains(lower, "timeout") || strings.Contains(lower, "timed out"):
		return "Request timed out. Please try again."
	default:
		return "Error: " + text
	}
}
