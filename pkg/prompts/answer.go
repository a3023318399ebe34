package prompts

import "strings"

// BusinessHours is the fixed answer for working-hours questions.
const BusinessHours = "We are open from 7 am to 6 pm, Monday to Friday."

// AnswerSystemPrompt sets up the logistics assistant persona.
const AnswerSystemPrompt = "You are a helpful business assistant that answers questions about logistics or the business. " +
	"You can answer questions about the business's working hours (" + BusinessHours + ")."

// AnswerPrompt asks for a natural-language answer. When cypher is empty the
// question is answered without graph data.
func AnswerPrompt(question, cypher, cypherAnswer string) string {
	var sb strings.Builder
	if cypher != "" {
		sb.WriteString("If the user is asking about shipment details:\n")
		sb.WriteString("Here is the Cypher generated for it: ")
		sb.WriteString(cypher)
		sb.WriteString("\nHere is the result of executing that Cypher on the knowledge graph: ")
		sb.WriteString(cypherAnswer)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Answer the user query: ")
	sb.WriteString(question)
	return sb.String()
}
