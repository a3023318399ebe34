package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Schema is the label-level shape of the graph.
type Schema struct {
	Nodes         []SchemaNode         `json:"nodes"`
	Relationships []SchemaRelationship `json:"relationships"`
}

// SchemaNode is a node label and its known property keys.
type SchemaNode struct {
	Label      string   `json:"label"`
	Properties []string `json:"properties,omitempty"`
}

// SchemaRelationship is a relationship type between two labels.
type SchemaRelationship struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Text renders the schema block embedded in few-shot prompts.
func (s *Schema) Text() string {
	var sb strings.Builder
	sb.WriteString("Graph Schema:\n\nNodes:\n")
	for _, n := range s.Nodes {
		sb.WriteString("- ")
		sb.WriteString(n.Label)
		if len(n.Properties) > 0 {
			sb.WriteString(" {")
			sb.WriteString(strings.Join(n.Properties, ", "))
			sb.WriteString("}")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nRelationships:\n")
	for _, r := range s.Relationships {
		fmt.Fprintf(&sb, "- (%s)-[:%s]->(%s)\n", r.From, r.Type, r.To)
	}
	return sb.String()
}

const (
	schemaVisualizationQuery = "CALL db.schema.visualization()"
	nodePropertiesQuery      = "CALL db.schema.nodeTypeProperties() YIELD nodeLabels, propertyName RETURN nodeLabels, propertyName"
)

// GetSchema reads node labels and relationship types from db.schema.visualization
// and attaches property keys from db.schema.nodeTypeProperties.
func (s *Neo4jService) GetSchema(ctx context.Context) (*Schema, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, schemaVisualizationQuery, nil)
		if err != nil {
			return nil, err
		}
		record, err := result.Single(ctx)
		if err != nil {
			return nil, err
		}
		nodes, _ := record.Get("nodes")
		rels, _ := record.Get("relationships")
		schema := parseSchemaVisualization(asList(nodes), asList(rels))

		propResult, err := tx.Run(ctx, nodePropertiesQuery, nil)
		if err != nil {
			return nil, err
		}
		propRecords, err := propResult.Collect(ctx)
		if err != nil {
			return nil, err
		}
		props := make(map[string][]string)
		for _, rec := range propRecords {
			labels, _ := rec.Get("nodeLabels")
			name, _ := rec.Get("propertyName")
			prop, ok := name.(string)
			if !ok || prop == "" {
				continue
			}
			for _, l := range asList(labels) {
				if label, ok := l.(string); ok {
					props[label] = append(props[label], prop)
				}
			}
		}
		schema.attachProperties(props)
		return schema, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read graph schema: %w", err)
	}
	return out.(*Schema), nil
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

// parseSchemaVisualization converts the virtual nodes and relationships of
// db.schema.visualization into a Schema sorted by label and type.
func parseSchemaVisualization(nodes, rels []any) *Schema {
	schema := &Schema{}
	labelByID := make(map[string]string, len(nodes))

	for _, raw := range nodes {
		node, ok := raw.(neo4j.Node)
		if !ok {
			continue
		}
		label := ""
		if name, ok := node.Props["name"].(string); ok {
			label = name
		} else if len(node.Labels) > 0 {
			label = node.Labels[0]
		}
		if label == "" {
			continue
		}
		labelByID[node.ElementId] = label
		schema.Nodes = append(schema.Nodes, SchemaNode{Label: label})
	}

	seen := make(map[SchemaRelationship]bool)
	for _, raw := range rels {
		rel, ok := raw.(neo4j.Relationship)
		if !ok {
			continue
		}
		r := SchemaRelationship{
			Type: rel.Type,
			From: labelByID[rel.StartElementId],
			To:   labelByID[rel.EndElementId],
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		schema.Relationships = append(schema.Relationships, r)
	}

	sort.Slice(schema.Nodes, func(i, j int) bool { return schema.Nodes[i].Label < schema.Nodes[j].Label })
	sort.Slice(schema.Relationships, func(i, j int) bool {
		a, b := schema.Relationships[i], schema.Relationships[j]
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.From != b.From {
			return a.From < b.From
		}
		return a.To < b.To
	})
	return schema
}

func (s *Schema) attachProperties(props map[string][]string) {
	for i := range s.Nodes {
		keys := props[s.Nodes[i].Label]
		sort.Strings(keys)
		s.Nodes[i].Properties = dedupe(keys)
	}
}

func dedupe(sorted []string) []string {
	var out []string
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
