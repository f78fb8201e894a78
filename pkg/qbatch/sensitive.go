package qbatch

import "regexp"

// sensitivePattern matches the phrases the remote uses when it rejects a job
// for its content. Word boundaries keep identifiers such as
// disable_safety_checker or case_sensitive from matching.
var sensitivePattern = regexp.MustCompile(`(?i)\b(nsfw|e005|flagged|sensitive|safety (checker|filter|system))\b`)

// IsSensitive reports whether the error text of a failed job signals a
// content rejection.
func IsSensitive(text string) bool {
	return sensitivePattern.MatchString(text)
}
