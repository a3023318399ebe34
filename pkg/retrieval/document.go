// Package retrieval indexes training examples and returns the nearest ones for a question.
package retrieval

import (
	"strings"

	"github.com/ekaya-inc/ekaya-cypher-eval/pkg/models"
)

// FormatDocument renders one training example the way it is embedded and shown to the model.
func FormatDocument(ex models.RetrievedExample) string {
	return "Q: " + ex.Question + "\nCypher: " + ex.Cypher + "\nAnswer: " + ex.Answer
}

// FormatContext joins retrieved examples with blank lines.
func FormatContext(examples []models.RetrievedExample) string {
	docs := make([]string, 0, len(examples))
	for _, ex := range examples {
		docs = append(docs, FormatDocument(ex))
	}
	return strings.Join(docs, "\n\n")
}
