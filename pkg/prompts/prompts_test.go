package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sentinel = "Cypher Query: "

func TestNoContextPrompt(t *testing.T) {
	p := NoContextPrompt("What is the status of shipment 1234?", sentinel)

	assert.Contains(t, p, "What is the status of shipment 1234?")
	assert.True(t, strings.HasSuffix(p, "Cypher Query: <cypher>"))
	assert.NotContains(t, p, "Schema")
}

func TestFewShotPrompts(t *testing.T) {
	sys := FewShotSystemPrompt("Graph Schema:\n\nNodes:\n- Shipment\n", FewShotExamples)

	assert.Contains(t, sys, "- Shipment")
	assert.Contains(t, sys, `MATCH (s:Shipment {tracking_number: "5678"})-[:DISPATCHED_FROM]->(l:Location) RETURN l.name`)
	assert.Contains(t, sys, "tracking_number is a string")

	user := FewShotUserPrompt("Where was shipment 5678 dispatched from?", "CQ> ")
	assert.Contains(t, user, "CQ> <cypher>")
}

func TestRetrievalPrompt(t *testing.T) {
	ctx := "Q: a\nCypher: b\nAnswer: c\n\nQ: d\nCypher: e\nAnswer: f"
	p := RetrievalPrompt("Which courier has 1234?", ctx, sentinel)

	assert.Contains(t, p, ctx)
	assert.Contains(t, p, "User Query: Which courier has 1234?")
	assert.Less(t, strings.Index(p, ctx), strings.Index(p, "User Query"))
}

func TestAnswerPrompt(t *testing.T) {
	withData := AnswerPrompt("Status of 1234?", "MATCH (s) RETURN s.status", `[{"s.status":"In Transit"}]`)
	assert.Contains(t, withData, "MATCH (s) RETURN s.status")
	assert.Contains(t, withData, "In Transit")

	hours := AnswerPrompt("When are you open?", "", "")
	assert.NotContains(t, hours, "Cypher")
	assert.Contains(t, AnswerSystemPrompt, BusinessHours)
}

func TestJudgePrompts(t *testing.T) {
	rel := RelevancyPrompt("q", "actual", "reference")
	assert.Contains(t, rel, "Actual output:\nactual")
	assert.Contains(t, rel, "Reference output:\nreference")
	assert.NotContains(t, rel, "Expected output")
	assert.Contains(t, rel, `"score"`)

	bare := RelevancyPrompt("q", "actual", "")
	assert.NotContains(t, bare, "Reference output")

	cor := CorrectnessPrompt("q", "actual", "expected")
	assert.Contains(t, cor, CorrectnessCriteria)
	for i, step := range CorrectnessSteps {
		assert.Contains(t, cor, step, "step %d", i)
	}
	assert.Contains(t, cor, "Expected output:\nexpected")
}
