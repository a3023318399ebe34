package prompts

import (
	"fmt"
	"strings"
)

// CorrectnessCriteria and CorrectnessSteps define the rubric for the correctness judge.
const CorrectnessCriteria = "Determine whether the actual output is factually correct based on the expected output."

var CorrectnessSteps = []string{
	"Check whether the facts in 'actual output' contradicts any facts in 'expected output'",
	"You should also heavily penalize omission of detail",
	"Vague language, or contradicting OPINIONS, are OK",
}

const judgeResponseFormat = `Respond with JSON only: {"score": <number between 0 and 1>, "reason": "<one sentence>"}`

// JudgeSystemPrompt is shared by every judge call.
const JudgeSystemPrompt = "You are a strict evaluator of a natural-language-to-Cypher assistant. " +
	"Scores are numbers between 0 and 1."

// RelevancyPrompt asks how well the actual output addresses the input. The
// reference output, when given, shows what a fully relevant output covers.
func RelevancyPrompt(input, actual, reference string) string {
	var sb strings.Builder
	sb.WriteString("Score how relevant the actual output is to the input. ")
	sb.WriteString("0 means unrelated, 1 means it fully addresses the input. ")
	sb.WriteString("Irrelevant statements lower the score.")
	if reference != "" {
		sb.WriteString(" Use the reference output to judge what a relevant output addresses; ")
		sb.WriteString("do not score factual correctness.")
	}
	fmt.Fprintf(&sb, "\n\nInput:\n%s\n\nActual output:\n%s\n\n", input, actual)
	if reference != "" {
		fmt.Fprintf(&sb, "Reference output:\n%s\n\n", reference)
	}
	sb.WriteString(judgeResponseFormat)
	return sb.String()
}

// CorrectnessPrompt applies the correctness rubric to an (input, actual, expected) case.
func CorrectnessPrompt(input, actual, expected string) string {
	var sb strings.Builder
	sb.WriteString("Criteria: ")
	sb.WriteString(CorrectnessCriteria)
	sb.WriteString("\n\nEvaluation steps:\n")
	for i, step := range CorrectnessSteps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	fmt.Fprintf(&sb, "\nInput:\n%s\n\nActual output:\n%s\n\nExpected output:\n%s\n\n", input, actual, expected)
	sb.WriteString(judgeResponseFormat)
	return sb.String()
}
