// Package scoring compares a generated query and answer with the expected ones.
package scoring

import "strings"

// NormalizeQuery trims, collapses whitespace runs to single spaces and lowercases.
// It is idempotent.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// ExactMatch compares two queries after normalization.
func ExactMatch(generated, expected string) bool {
	return NormalizeQuery(generated) == NormalizeQuery(expected)
}
