// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPredicateTreeJSONRoundTrip(t *testing.T) {
	root := &Group{
		ID:       "g1",
		Operator: GroupOR,
		Conditions: []Node{
			&Group{
				ID:       "g2",
				Operator: GroupAND,
				Conditions: []Node{
					&Condition{ID: "c1", Field: "playCount", Operator: OpEquals, Value: float64(0)},
					&Condition{ID: "c2", Field: "addedAt", Operator: OpOlderThan, Value: float64(180), ValueUnit: RelativeUnitDays},
				},
			},
			&Condition{ID: "c3", Field: "year", Operator: OpLT, Value: float64(2010)},
		},
	}

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := UnmarshalGroupJSON(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if diff := cmp.Diff(root, got); diff != "" {
		t.Fatalf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmarshalGroupJSONRejectsConditionRoot(t *testing.T) {
	data, _ := json.Marshal(&Condition{ID: "c1", Field: "year", Operator: OpEquals, Value: float64(2020)})
	if _, err := UnmarshalGroupJSON(data); err == nil {
		t.Fatal("expected error for non-group root")
	}
}
