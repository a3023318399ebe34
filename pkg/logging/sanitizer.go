package logging

import (
	"regexp"
	"strings"
)

const (
	// MaxQueryLogLength is the maximum length of a Cypher query to log
	MaxQueryLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Authorization headers echoed back in provider errors
	bearerPattern = regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9._\-]+`)

	// api_key=..., x-api-key=..., key=...
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9._\-]{16,}`)

	// OpenAI and Anthropic style secret keys
	secretKeyPattern = regexp.MustCompile(`\bsk-[A-Za-z0-9_\-]{16,}`)

	// user:pass@host in bolt://, neo4j://, postgres://, redis:// URIs
	uriCredentialsPattern = regexp.MustCompile(`://[^:/\s]+:[^@/\s]+@`)

	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeURI removes credentials from a connection URI before it is logged.
func SanitizeURI(uri string) string {
	if uri == "" {
		return ""
	}
	sanitized := uriCredentialsPattern.ReplaceAllString(uri, "://"+RedactedText+"@")
	return passwordPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// SanitizeError sanitizes error messages that might contain credentials.
// Provider and driver errors sometimes echo request headers or connection strings.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitizeSecrets(err.Error())
}

// SanitizeQuery collapses whitespace, truncates and redacts a Cypher query for logging.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	compact := strings.TrimSpace(whitespacePattern.ReplaceAllString(query, " "))
	return sanitizeSecrets(TruncateString(compact, MaxQueryLogLength))
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func sanitizeSecrets(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = secretKeyPattern.ReplaceAllString(s, RedactedText)
	s = uriCredentialsPattern.ReplaceAllString(s, "://"+RedactedText+"@")
	return s
}
