package graph

import (
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NormalizeValue converts driver values into JSON-friendly Go values.
// Nodes and relationships become their property maps, paths become the
// alternating list of node and relationship maps, and temporal values
// become ISO-8601 strings.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case nil, bool, string, int64, float64:
		return val
	case neo4j.Node:
		return normalizeProps(val.Props)
	case neo4j.Relationship:
		return normalizeProps(val.Props)
	case neo4j.Path:
		out := make([]any, 0, len(val.Nodes)+len(val.Relationships))
		for i, n := range val.Nodes {
			out = append(out, normalizeProps(n.Props))
			if i < len(val.Relationships) {
				out = append(out, normalizeProps(val.Relationships[i].Props))
			}
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = NormalizeValue(item)
		}
		return out
	case map[string]any:
		return normalizeProps(val)
	case neo4j.Date:
		return time.Time(val).Format("2006-01-02")
	case neo4j.LocalDateTime:
		return time.Time(val).Format("2006-01-02T15:04:05.999999999")
	case neo4j.LocalTime:
		return time.Time(val).Format("15:04:05.999999999")
	case neo4j.Time:
		return time.Time(val).Format("15:04:05.999999999Z07:00")
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	default:
		// Durations and spatial points render through their String methods.
		return fmt.Sprint(val)
	}
}

func normalizeProps(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		out[k] = NormalizeValue(v)
	}
	return out
}
