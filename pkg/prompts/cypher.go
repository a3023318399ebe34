// Package prompts builds the model prompts for query generation, chat answers and judging.
package prompts

import (
	"fmt"
	"strings"
)

// FewShotExamples is the fixed example block embedded in few-shot prompts.
const FewShotExamples = `MATCH (s:Shipment {tracking_number: $tracking_number})
    OPTIONAL MATCH (s)-[:DISPATCHED_FROM]->(d_loc:Location)
    OPTIONAL MATCH (s)-[:DELIVERED_TO]->(del_loc:Location)
    OPTIONAL MATCH (s)-[:ASSIGNED_TO]->(courier:Courier)
    OPTIONAL MATCH (s)-[:BELONGS_TO]->(cust:Customer)
    RETURN s.tracking_number AS tracking_number,
           s.status AS status,
           s.dispatch_date AS dispatch_date,
           s.expected_delivery_date AS expected_delivery_date,
           d_loc.name AS dispatch_location,
           del_loc.name AS delivery_location,
           courier.name AS courier,
           cust.name AS customer
-------------------------------------------------
You: What is the status of shipment 1234?
Generated Cypher:
MATCH (s:Shipment {tracking_number: "1234"}) RETURN s.status
Bot: The status of shipment 1234 is "In Transit".
-------------------------------------------------
You: Where was shipment 5678 dispatched from?
Generated Cypher:
MATCH (s:Shipment {tracking_number: "5678"})-[:DISPATCHED_FROM]->(l:Location) RETURN l.name
Bot: Shipment 5678 was dispatched from New York.
-------------------------------------------------
You: what was the courier assigned to shipment 3141
MATCH (s:Shipment {tracking_number: '3141'})
    OPTIONAL MATCH (s)-[:ASSIGNED_TO]->(courier:Courier)
    RETURN courier.name AS courier_assigned
Bot: The courier assigned to shipment 3141 was SwiftExpress.
-------------------------------------------------
You: List shipments expected to arrive after June 1, 2024
MATCH (s:Shipment) WHERE s.expected_delivery_date > '2024-06-01' RETURN s.tracking_number
RESULT: s.tracking_number:2595 | s.tracking_number:1072 | s.tracking_number:7731 | s.tracking_number:9897 | s.tracking_number:4000
-------------------------------------------------`

// formatInstruction asks for exactly one sentinel-marked line.
func formatInstruction(sentinel string) string {
	return fmt.Sprintf("Return ONLY the Cypher query in this format:\n%s<cypher>", sentinel)
}

// NoContextPrompt wraps the question in a generic instruction with no schema or examples.
func NoContextPrompt(question, sentinel string) string {
	var sb strings.Builder
	sb.WriteString("You are a Neo4j Cypher expert. Generate a query for:\n")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(formatInstruction(sentinel))
	return sb.String()
}

// FewShotSystemPrompt grounds generation in the graph schema and the fixed examples.
func FewShotSystemPrompt(schemaText, examples string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert in Neo4j Cypher queries.\n")
	sb.WriteString("Given a user question and the schema, generate the correct Cypher query.\n\n")
	sb.WriteString("Schema:\n")
	sb.WriteString(schemaText)
	sb.WriteString("\n\nHere are a few examples of Cypher queries you can refer to:\n")
	sb.WriteString(examples)
	sb.WriteString("\n\nMake sure the tracking_number is a string. If the user does not ask for specific ")
	sb.WriteString("details, return only the tracking number.")
	return sb.String()
}

// FewShotUserPrompt is the user turn paired with FewShotSystemPrompt.
func FewShotUserPrompt(question, sentinel string) string {
	return fmt.Sprintf("You are a Neo4j Cypher expert. Generate a query for:\n%s\n\n%s",
		question, formatInstruction(sentinel))
}

// RetrievalPrompt embeds the retrieved training documents ahead of the question.
func RetrievalPrompt(question, context, sentinel string) string {
	var sb strings.Builder
	sb.WriteString("You are an expert Cypher query assistant. Given the following context:\n")
	sb.WriteString(context)
	sb.WriteString("\n\nUser Query: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(formatInstruction(sentinel))
	return sb.String()
}
