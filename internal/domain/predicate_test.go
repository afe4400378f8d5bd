// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import "testing"

func leafCondition() Node {
	return &Condition{ID: "c", Field: "playCount", Operator: OpEquals, Value: float64(0)}
}

func TestComputeComplexitySimple(t *testing.T) {
	root := &Group{
		ID:       "g1",
		Operator: GroupAND,
		Conditions: []Node{
			leafCondition(),
			leafCondition(),
		},
	}

	got := ComputeComplexity(root)
	if got.ConditionCount != 2 {
		t.Errorf("ConditionCount = %d, want 2", got.ConditionCount)
	}
	if got.GroupCount != 1 {
		t.Errorf("GroupCount = %d, want 1", got.GroupCount)
	}
	if got.MaxDepth != 1 {
		t.Errorf("MaxDepth = %d, want 1", got.MaxDepth)
	}
	if got.Label != "simple" {
		t.Errorf("Label = %q, want simple", got.Label)
	}
}

func TestComputeComplexityModerateByConditionCount(t *testing.T) {
	conditions := make([]Node, 6)
	for i := range conditions {
		conditions[i] = leafCondition()
	}
	root := &Group{ID: "g1", Operator: GroupAND, Conditions: conditions}

	got := ComputeComplexity(root)
	if got.ConditionCount != 6 {
		t.Errorf("ConditionCount = %d, want 6", got.ConditionCount)
	}
	if got.Label != "moderate" {
		t.Errorf("Label = %q, want moderate", got.Label)
	}
}

func TestComputeComplexityComplexByConditionCount(t *testing.T) {
	conditions := make([]Node, 11)
	for i := range conditions {
		conditions[i] = leafCondition()
	}
	root := &Group{ID: "g1", Operator: GroupAND, Conditions: conditions}

	got := ComputeComplexity(root)
	if got.Label != "complex" {
		t.Errorf("Label = %q, want complex", got.Label)
	}
}

func TestComputeComplexityModerateByDepth(t *testing.T) {
	// depth 3: root(0) -> g2(1) -> g3(2) -> condition(3)
	root := &Group{
		ID: "g1", Operator: GroupAND,
		Conditions: []Node{
			&Group{ID: "g2", Operator: GroupAND, Conditions: []Node{
				&Group{ID: "g3", Operator: GroupAND, Conditions: []Node{
					leafCondition(),
				}},
			}},
		},
	}

	got := ComputeComplexity(root)
	if got.MaxDepth != 3 {
		t.Errorf("MaxDepth = %d, want 3", got.MaxDepth)
	}
	if got.Label != "moderate" {
		t.Errorf("Label = %q, want moderate", got.Label)
	}
}

func TestComputeComplexityComplexByDepth(t *testing.T) {
	// depth 4: root(0) -> g2(1) -> g3(2) -> g4(3) -> condition(4)
	root := &Group{
		ID: "g1", Operator: GroupAND,
		Conditions: []Node{
			&Group{ID: "g2", Operator: GroupAND, Conditions: []Node{
				&Group{ID: "g3", Operator: GroupAND, Conditions: []Node{
					&Group{ID: "g4", Operator: GroupAND, Conditions: []Node{
						leafCondition(),
					}},
				}},
			}},
		},
	}

	got := ComputeComplexity(root)
	if got.MaxDepth != 4 {
		t.Errorf("MaxDepth = %d, want 4", got.MaxDepth)
	}
	if got.Label != "complex" {
		t.Errorf("Label = %q, want complex", got.Label)
	}
}

func TestComputeComplexityEmptyGroup(t *testing.T) {
	root := &Group{ID: "g1", Operator: GroupAND}

	got := ComputeComplexity(root)
	if got.ConditionCount != 0 || got.GroupCount != 1 || got.MaxDepth != 0 {
		t.Errorf("got %+v, want zero conditions/depth and one group", got)
	}
	if got.Label != "simple" {
		t.Errorf("Label = %q, want simple", got.Label)
	}
}
