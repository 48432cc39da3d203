package graph

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// ============================================================================
// Record Accessors
// ============================================================================

func getStringFromRecord(record Record, key string) string {
	val, ok := record[key]
	if !ok || val == nil {
		return ""
	}
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

func getInt64FromRecord(record Record, key string) int64 {
	val, ok := record[key]
	if !ok || val == nil {
		return 0
	}
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

func getNodeFromRecord(record Record, key string) (dbtype.Node, bool) {
	val, ok := record[key]
	if !ok || val == nil {
		return dbtype.Node{}, false
	}
	node, ok := val.(dbtype.Node)
	return node, ok
}

func getRelationshipFromRecord(record Record, key string) (dbtype.Relationship, bool) {
	val, ok := record[key]
	if !ok || val == nil {
		return dbtype.Relationship{}, false
	}
	rel, ok := val.(dbtype.Relationship)
	return rel, ok
}

// ============================================================================
// Serialization
// ============================================================================

func nodeView(node dbtype.Node) NodeView {
	labels := node.Labels
	if labels == nil {
		labels = []string{}
	}
	props := node.Props
	if props == nil {
		props = map[string]any{}
	}
	return NodeView{Labels: labels, Properties: props}
}

func relationshipView(rel dbtype.Relationship, target dbtype.Node) RelationshipView {
	props := rel.Props
	if props == nil {
		props = map[string]any{}
	}
	return RelationshipView{
		Type:       rel.Type,
		Properties: props,
		Target:     nodeView(target),
	}
}

// flattenRecord turns a row into JSON-friendly values: nodes and
// relationships are replaced by their views, scalars pass through.
func flattenRecord(record Record) map[string]any {
	out := make(map[string]any, len(record))
	for key, val := range record {
		switch v := val.(type) {
		case dbtype.Node:
			out[key] = nodeView(v)
		case dbtype.Relationship:
			out[key] = map[string]any{"type": v.Type, "properties": v.Props}
		default:
			out[key] = v
		}
	}
	return out
}
