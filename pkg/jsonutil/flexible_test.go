package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{name: "string", input: json.RawMessage(`"TRK-001"`), want: "TRK-001"},
		{name: "integer", input: json.RawMessage(`1042`), want: "1042"},
		{name: "large integer keeps digits", input: json.RawMessage(`9007199254740993`), want: "9007199254740993"},
		{name: "float", input: json.RawMessage(`3.5`), want: "3.5"},
		{name: "boolean", input: json.RawMessage(`false`), want: "false"},
		{name: "null", input: json.RawMessage(`null`), want: ""},
		{name: "empty", input: json.RawMessage{}, want: ""},
		{name: "object compacted", input: json.RawMessage(`{ "a": 1 }`), want: `{"a":1}`},
		{name: "surrounding whitespace", input: json.RawMessage(`  "x" `), want: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.input))
		})
	}
}

func TestFlexibleString_InStruct(t *testing.T) {
	var got struct {
		ID   FlexibleString `json:"id"`
		Date FlexibleString `json:"date"`
		Note FlexibleString `json:"note"`
	}
	err := json.Unmarshal([]byte(`{"id": 77, "date": "2024-06-01", "note": null}`), &got)
	require.NoError(t, err)

	assert.Equal(t, FlexibleString("77"), got.ID)
	assert.Equal(t, FlexibleString("2024-06-01"), got.Date)
	assert.Equal(t, FlexibleString(""), got.Note)
}
