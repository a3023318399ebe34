// Package generation turns natural-language questions into Cypher with one of several
// prompting strategies.
package generation

import (
	"strings"
	"unicode"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/llm"
)

// ExtractQuery returns the query that follows the last sentinel in output.
// Whitespace at the end of the sentinel is optional in the output, so
// "Cypher Query:" followed by a newline matches the default sentinel. Reasoning
// blocks and markdown fences are removed, and an unfenced query ends at the first
// blank line. A missing sentinel, or nothing usable after it, is a
// MalformedGenerationError.
func ExtractQuery(output, sentinel string) (string, error) {
	malformed := &apperrors.MalformedGenerationError{Sentinel: sentinel, Output: output}
	marker := strings.TrimRightFunc(sentinel, unicode.IsSpace)
	if marker == "" {
		return "", malformed
	}

	cleaned := llm.StripThinking(output)
	i := strings.LastIndex(cleaned, marker)
	if i < 0 {
		return "", malformed
	}

	query := queryBody(cleaned[i+len(marker):])
	if query == "" {
		return "", malformed
	}
	return query, nil
}

// queryBody returns the fenced block that starts rest, or otherwise the text up to
// the first blank line.
func queryBody(rest string) string {
	rest = strings.TrimSpace(rest)
	if strings.HasPrefix(rest, "```") {
		return stripFences(rest)
	}
	lines := strings.Split(rest, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines = lines[:i]
			break
		}
	}
	return stripFences(strings.Join(lines, "\n"))
}

// stripFences removes surrounding ``` fences (with an optional language tag) and
// stray single backticks.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " (") {
			s = s[nl+1:]
		}
	}
	if end := strings.Index(s, "```"); end >= 0 {
		s = s[:end]
	}
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
