package scoring

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// DecodeAnswer parses serialized query results into canonical Go values:
// map[string]any, []any, float64, string, bool or nil. JSON is tried first;
// flow-style collections that are not JSON (single-quoted strings, as found in
// older dataset exports) are read as YAML, with the literal conventions of
// those exports: bare None is null and single-quoted strings keep backslash
// escapes. Error markers never decode.
func DecodeAnswer(text string) (any, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, models.ErrorMarkerPrefix) {
		return nil, false
	}

	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return canonical(v), true
	}

	if trimmed[0] != '[' && trimmed[0] != '{' {
		return nil, false
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, false
	}
	v, err := literalValue(&doc)
	if err != nil {
		return nil, false
	}
	return canonical(v), true
}

// literalValue converts a parsed export literal into plain Go values.
func literalValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return literalValue(n.Content[0])
	case yaml.AliasNode:
		return literalValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := literalValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, err := literalValue(n.Content[i])
			if err != nil {
				return nil, err
			}
			v, err := literalValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[fmt.Sprint(k)] = v
		}
		return out, nil
	case yaml.ScalarNode:
		switch {
		case n.Style&yaml.SingleQuotedStyle != 0:
			return unescapeLiteral(n.Value), nil
		case n.Style == 0 && n.Value == "None":
			return nil, nil
		}
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
}

// unescapeLiteral applies backslash escapes (\n, \t, \\, \', \xNN, \uNNNN, ...)
// that YAML leaves untouched in single-quoted scalars. Invalid escapes are kept as written.
func unescapeLiteral(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for len(s) > 0 {
		if s[0] != '\\' {
			r, size := utf8.DecodeRuneInString(s)
			sb.WriteRune(r)
			s = s[size:]
			continue
		}
		if len(s) >= 2 && (s[1] == '"' || s[1] == '\'') {
			sb.WriteByte(s[1])
			s = s[2:]
			continue
		}
		r, _, tail, err := strconv.UnquoteChar(s, '\'')
		if err != nil {
			sb.WriteByte('\\')
			s = s[1:]
			continue
		}
		sb.WriteRune(r)
		s = tail
	}
	return sb.String()
}

// ExecutionAccuracy reports whether both answers decode to the same structure.
// Lists are compared in order.
func ExecutionAccuracy(generated, expected string) bool {
	g, ok := DecodeAnswer(generated)
	if !ok {
		return false
	}
	e, ok := DecodeAnswer(expected)
	if !ok {
		return false
	}
	return reflect.DeepEqual(g, e)
}

func canonical(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = canonical(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = canonical(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = canonical(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
