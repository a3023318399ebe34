package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"MATCH (n) RETURN n", "match (n) return n"},
		{"  MATCH   (n)\n\tRETURN n  ", "match (n) return n"},
		{"", ""},
		{"\n\t ", ""},
		{`MATCH (s:Shipment {tracking_number:"1234"}) RETURN s.status`, `match (s:shipment {tracking_number:"1234"}) return s.status`},
	}
	for _, tt := range tests {
		got := NormalizeQuery(tt.in)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, got, NormalizeQuery(got), "idempotent for %q", tt.in)
	}
}

func TestExactMatch(t *testing.T) {
	queries := []string{
		"MATCH (n) RETURN n",
		"MATCH (s:Shipment)\n  WHERE s.status = 'Delivered'\n  RETURN s.tracking_number",
		"",
	}
	for _, q := range queries {
		assert.True(t, ExactMatch(q, q))
		assert.True(t, ExactMatch(NormalizeQuery(q), NormalizeQuery(q)))
	}

	assert.True(t, ExactMatch("match (n)   return n", "MATCH (n) RETURN n"))
	assert.False(t, ExactMatch("MATCH (n) RETURN n.name", "MATCH (n) RETURN n"))
	assert.False(t, ExactMatch("", "MATCH (n) RETURN n"))
}
