package generation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/apperrors"
)

const testSentinel = "Cypher Query: "

func TestExtractQuery(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "single line",
			output: `Cypher Query: MATCH (s:Shipment {tracking_number:"1234"}) RETURN s.status`,
			want:   `MATCH (s:Shipment {tracking_number:"1234"}) RETURN s.status`,
		},
		{
			name:   "leading prose",
			output: "Sure, here it is.\nCypher Query: MATCH (n) RETURN n",
			want:   "MATCH (n) RETURN n",
		},
		{
			name:   "last sentinel wins",
			output: "Format is Cypher Query: <cypher>\nCypher Query: MATCH (c:Courier) RETURN c.name",
			want:   "MATCH (c:Courier) RETURN c.name",
		},
		{
			name:   "fenced with language tag",
			output: "Cypher Query: ```cypher\nMATCH (s:Shipment)\nRETURN s.tracking_number\n```",
			want:   "MATCH (s:Shipment)\nRETURN s.tracking_number",
		},
		{
			name:   "inline backticks",
			output: "Cypher Query: `MATCH (n) RETURN count(n)`",
			want:   "MATCH (n) RETURN count(n)",
		},
		{
			name:   "thinking block removed",
			output: "<think>Cypher Query: wrong</think>\nCypher Query: MATCH (l:Location) RETURN l.name",
			want:   "MATCH (l:Location) RETURN l.name",
		},
		{
			name:   "surrounding whitespace trimmed",
			output: "Cypher Query:    MATCH (n) RETURN n   \n",
			want:   "MATCH (n) RETURN n",
		},
		{
			name:   "query on the next line",
			output: "Cypher Query:\nMATCH (n) RETURN n",
			want:   "MATCH (n) RETURN n",
		},
		{
			name:   "no space after colon",
			output: "Cypher Query:MATCH (n) RETURN n",
			want:   "MATCH (n) RETURN n",
		},
		{
			name:   "trailing prose after blank line dropped",
			output: "Cypher Query: MATCH (n)\nRETURN n\n\nThis query returns all nodes.",
			want:   "MATCH (n)\nRETURN n",
		},
		{
			name:   "fenced block keeps blank lines",
			output: "Cypher Query:\n```cypher\nMATCH (s:Shipment)\n\nRETURN s\n```\n\nExplanation follows.",
			want:   "MATCH (s:Shipment)\n\nRETURN s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractQuery(tt.output, testSentinel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractQuery_Malformed(t *testing.T) {
	tests := []struct {
		name     string
		output   string
		sentinel string
	}{
		{name: "no sentinel", output: "MATCH (n) RETURN n", sentinel: testSentinel},
		{name: "empty output", output: "", sentinel: testSentinel},
		{name: "nothing after sentinel", output: "Cypher Query:   ", sentinel: testSentinel},
		{name: "only fences after sentinel", output: "Cypher Query: ```\n```", sentinel: testSentinel},
		{name: "sentinel only inside thinking", output: "<think>Cypher Query: MATCH (n)</think> I cannot help.", sentinel: testSentinel},
		{name: "empty sentinel", output: "Cypher Query: MATCH (n) RETURN n", sentinel: ""},
		{name: "whitespace sentinel", output: "MATCH (n) RETURN n", sentinel: "  "},
		{name: "only blank lines after sentinel", output: "Cypher Query:\n\n", sentinel: testSentinel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractQuery(tt.output, tt.sentinel)
			require.Error(t, err)
			assert.Empty(t, got)
			assert.True(t, errors.Is(err, apperrors.ErrMalformedGeneration))

			var mg *apperrors.MalformedGenerationError
			require.True(t, errors.As(err, &mg))
			assert.Equal(t, tt.output, mg.Output)
		})
	}
}

func TestExtractQuery_CustomSentinel(t *testing.T) {
	got, err := ExtractQuery("QUERY>> MATCH (n) RETURN n", "QUERY>> ")
	require.NoError(t, err)
	assert.Equal(t, "MATCH (n) RETURN n", got)

	_, err = ExtractQuery("Cypher Query: MATCH (n) RETURN n", "QUERY>> ")
	assert.ErrorIs(t, err, apperrors.ErrMalformedGeneration)
}
