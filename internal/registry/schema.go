// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// criteriaSchema describes the tagged-variant wire format a Rule's
// predicate tree is stored as (see domain/predicate_json.go): every
// node is either a "condition" leaf or a "group" that recurses into
// more nodes. This is a structural check only — it catches a
// hand-edited or corrupted database row before the tagged-union
// decoder in the domain package ever runs, it does not know about
// individual field names or operators (that's Evaluator's job).
var criteriaSchema = buildCriteriaSchema()

func buildCriteriaSchema() *openapi3.Schema {
	condition := &openapi3.Schema{
		Type:     &openapi3.Types{"object"},
		Required: []string{"type", "id", "field", "operator"},
		Properties: openapi3.Schemas{
			"type":      openapi3.NewStringSchema().WithEnum("condition").NewRef(),
			"id":        openapi3.NewStringSchema().NewRef(),
			"field":     openapi3.NewStringSchema().NewRef(),
			"operator":  openapi3.NewStringSchema().NewRef(),
			"value":     (&openapi3.Schema{}).NewRef(),
			"valueUnit": openapi3.NewStringSchema().NewRef(),
		},
	}

	group := &openapi3.Schema{
		Type:     &openapi3.Types{"object"},
		Required: []string{"type", "id", "operator", "conditions"},
	}

	// node is either a condition leaf or a group, and a group's
	// "conditions" array holds nodes of this same shape - the cycle is
	// expressed as a Go pointer graph, never round-tripped through JSON
	// itself, so there's no serialization concern with group pointing
	// back to node and node back to group.
	node := &openapi3.Schema{
		OneOf: openapi3.SchemaRefs{
			{Value: condition},
			{Value: group},
		},
	}

	group.Properties = openapi3.Schemas{
		"type":     openapi3.NewStringSchema().WithEnum("group").NewRef(),
		"id":       openapi3.NewStringSchema().NewRef(),
		"operator": openapi3.NewStringSchema().WithEnum("AND", "OR").NewRef(),
		"conditions": (&openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: &openapi3.SchemaRef{Value: node},
		}).NewRef(),
	}

	return node
}

// ValidateCriteriaJSON reports whether raw is a structurally valid
// predicate tree: an object tagged "group" or "condition", with every
// group recursing into more such nodes. It does not validate field
// names, operators, or value types against this Registry's catalog -
// callers still run the decoded tree through an Evaluator for that.
func ValidateCriteriaJSON(raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("registry: criteria is not valid JSON: %w", err)
	}
	if err := criteriaSchema.VisitJSON(doc); err != nil {
		return fmt.Errorf("registry: criteria failed schema validation: %w", err)
	}
	return nil
}
