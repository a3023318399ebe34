// Package jsonutil decodes loosely typed JSON produced by data generators and models.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexibleString decodes a JSON string, number or boolean into its text form.
// Null decodes to "". Seed files often carry ids and dates as bare numbers.
type FlexibleString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleString) UnmarshalJSON(raw []byte) error {
	*f = FlexibleString(Text(raw))
	return nil
}

// Text returns the text form of a scalar JSON value. Objects and arrays are
// returned as their compact JSON encoding.
func Text(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10)
		}
		if f, err := n.Float64(); err == nil {
			return strconv.FormatFloat(f, 'g', -1, 64)
		}
		return n.String()
	}

	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err == nil {
		return compact.String()
	}
	return string(raw)
}
