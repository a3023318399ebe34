package models

// ChatResponse is the assistant reply. Cypher and CypherAnswer are empty for
// questions answered without the graph.
type ChatResponse struct {
	Response     string `json:"response"`
	Cypher       string `json:"cypher,omitempty"`
	CypherAnswer string `json:"cypher_answer,omitempty"`
}
