// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import "testing"

func TestValidateCriteriaJSONAcceptsCondition(t *testing.T) {
	raw := []byte(`{"type":"condition","id":"c1","field":"addedAt","operator":"olderThan","value":30}`)
	if err := ValidateCriteriaJSON(raw); err != nil {
		t.Fatalf("expected valid condition, got error: %v", err)
	}
}

func TestValidateCriteriaJSONAcceptsNestedGroup(t *testing.T) {
	raw := []byte(`{
		"type": "group",
		"id": "root",
		"operator": "AND",
		"conditions": [
			{"type": "condition", "id": "c1", "field": "addedAt", "operator": "olderThan", "value": 30},
			{
				"type": "group",
				"id": "g2",
				"operator": "OR",
				"conditions": [
					{"type": "condition", "id": "c2", "field": "watched", "operator": "equals", "value": false}
				]
			}
		]
	}`)
	if err := ValidateCriteriaJSON(raw); err != nil {
		t.Fatalf("expected valid nested group, got error: %v", err)
	}
}

func TestValidateCriteriaJSONRejectsMissingRequiredField(t *testing.T) {
	raw := []byte(`{"type":"condition","id":"c1","field":"addedAt"}`)
	if err := ValidateCriteriaJSON(raw); err == nil {
		t.Fatal("expected error for condition missing operator")
	}
}

func TestValidateCriteriaJSONRejectsUnknownType(t *testing.T) {
	raw := []byte(`{"type":"bogus","id":"c1"}`)
	if err := ValidateCriteriaJSON(raw); err == nil {
		t.Fatal("expected error for unrecognized node type")
	}
}

func TestValidateCriteriaJSONRejectsInvalidJSON(t *testing.T) {
	if err := ValidateCriteriaJSON([]byte("not json")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
