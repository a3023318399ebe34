package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// thinkBlockPattern matches <think>...</think> reasoning emitted by some models.
var thinkBlockPattern = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripThinking removes reasoning blocks so only the answer text remains.
func StripThinking(response string) string {
	return strings.TrimSpace(thinkBlockPattern.ReplaceAllString(response, ""))
}

// ExtractJSON returns the first valid JSON object or array in an LLM response.
// Judge models often wrap the verdict in prose or markdown fences.
func ExtractJSON(response string) (string, error) {
	cleaned := StripThinking(response)

	for i := 0; i < len(cleaned); i++ {
		if cleaned[i] != '{' && cleaned[i] != '[' {
			continue
		}
		end, ok := balancedEnd(cleaned, i)
		if !ok {
			continue
		}
		candidate := cleaned[i : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	if json.Valid([]byte(cleaned)) {
		return cleaned, nil
	}
	return "", fmt.Errorf("no valid JSON found in response")
}

// balancedEnd returns the index closing the bracket opened at start.
// Brackets inside JSON strings are ignored.
func balancedEnd(s string, start int) (int, bool) {
	var stack []byte
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			stack = append(stack, '}')
		case c == '[':
			stack = append(stack, ']')
		case c == '}' || c == ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// ParseJSONResponse extracts JSON from a response and unmarshals it into the target.
func ParseJSONResponse[T any](response string) (T, error) {
	var result T

	jsonStr, err := ExtractJSON(response)
	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("unmarshal JSON: %w", err)
	}

	return result, nil
}
