// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

// Node is the common interface for Condition and Group tree nodes.
// The tree is acyclic and rooted at a Group (see §3.2 of the design).
type Node interface {
	nodeID() string
}

// Condition is a leaf node: a single typed field comparison.
type Condition struct {
	ID        string
	Field     string
	Operator  Operator
	Value     any
	ValueUnit RelativeUnit // only set when Operator is olderThan/newerThan on a date field
}

func (c *Condition) nodeID() string { return c.ID }

// Group is an inner node combining children with AND/OR.
type Group struct {
	ID         string
	Operator   GroupOperator
	Conditions []Node
}

func (g *Group) nodeID() string { return g.ID }

// Complexity summarizes a predicate tree for UI display; it has no
// effect on evaluation.
type Complexity struct {
	ConditionCount int
	GroupCount     int
	MaxDepth       int
	Label          string // simple | moderate | complex
}

// ComputeComplexity walks the tree once, computing §4.2's thresholds.
func ComputeComplexity(root *Group) Complexity {
	var conditions, groups int
	var maxDepth int

	var walk func(n Node, depth int)
	walk = func(n Node, depth int) {
		if depth > maxDepth {
			maxDepth = depth
		}
		switch v := n.(type) {
		case *Condition:
			conditions++
		case *Group:
			groups++
			for _, c := range v.Conditions {
				walk(c, depth+1)
			}
		}
	}
	walk(root, 0)

	label := "simple"
	switch {
	case conditions > 10 || maxDepth > 3:
		label = "complex"
	case conditions > 5 || maxDepth > 2:
		label = "moderate"
	}

	return Complexity{
		ConditionCount: conditions,
		GroupCount:     groups,
		MaxDepth:       maxDepth,
		Label:          label,
	}
}
