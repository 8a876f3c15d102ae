// Package redact removes sensitive information from error text before it is
// logged, persisted as an execution error message, or returned to a client.
// Connection strings, credentials, network addresses, file paths, constraint
// key values and stack traces are replaced with fixed placeholders.
package redact

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

// MaxMessageLength bounds the length, in runes, of a stored error message.
const MaxMessageLength = 500

// Placeholders
const (
	RedactionPlaceholder          = "[REDACTED]"
	RedactedDSNPlaceholder        = "[REDACTED_DSN]"
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedHostPlaceholder       = "[REDACTED_HOST]"
	RedactedPathPlaceholder       = "[REDACTED_PATH]"
	RedactedEmailPlaceholder      = "[REDACTED_EMAIL]"
	RedactedStackPlaceholder      = "[STACK_TRACE_REDACTED]"
)

type rule struct {
	re          *regexp.Regexp
	replacement string
}

// Rules are applied in order; earlier rules consume text later rules would
// otherwise split.
var rules = []rule{
	{regexp.MustCompile(`(?s)goroutine \d+ \[.*`), RedactedStackPlaceholder},
	{regexp.MustCompile(`(?i)\b(?:postgres(?:ql)?|mysql)://\S+`), RedactedDSNPlaceholder},
	{regexp.MustCompile(`(?i)\b(?:password|passwd|pwd)\s*[=:]\s*\S+`), RedactedCredentialPlaceholder},
	// Postgres constraint details echo the offending row values.
	{regexp.MustCompile(`Key \(([^)]*)\)=\([^)]*\)`), "Key (${1})=(" + RedactionPlaceholder + ")"},
	{regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`), RedactedEmailPlaceholder},
	{regexp.MustCompile(`(?:/[\w.-]+){2,}`), RedactedPathPlaceholder},
	{regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}(?::\d{1,5})?\b`), RedactedHostPlaceholder},
	{regexp.MustCompile(`\b[A-Za-z][\w-]*(?:\.[\w-]+)*:\d{2,5}\b`), RedactedHostPlaceholder},
}

// String redacts sensitive information from the input string.
func String(input string) string {
	if input == "" {
		return input
	}
	result := input
	for _, r := range rules {
		result = r.re.ReplaceAllString(result, r.replacement)
	}
	return result
}

// Error redacts sensitive information from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}

// Message returns the redacted text of err truncated to MaxMessageLength,
// suitable for persisting in an execution record.
func Message(err error) string {
	return truncate(Error(err), MaxMessageLength)
}

// Panic renders a recovered panic value as a redacted message.
func Panic(p any) string {
	return truncate("panic: "+String(fmt.Sprint(p)), MaxMessageLength)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-3]) + "..."
}
