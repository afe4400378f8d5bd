// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package domain

import (
	"encoding/json"
	"fmt"
)

// The predicate tree is a tagged variant (§9 design note: "a language
// without native sum types should encode the discriminator as an
// explicit type field"). Go's json package can't round-trip the Node
// interface on its own, so Condition and Group carry their own
// marshalers keyed on an explicit "type" field. This is the wire/storage
// format the persistence gateway serializes Rule.Criteria into.

type conditionWire struct {
	Type      string       `json:"type"`
	ID        string       `json:"id"`
	Field     string       `json:"field"`
	Operator  Operator     `json:"operator"`
	Value     any          `json:"value"`
	ValueUnit RelativeUnit `json:"valueUnit,omitempty"`
}

type groupWire struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Operator   GroupOperator     `json:"operator"`
	Conditions []json.RawMessage `json:"conditions"`
}

func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(conditionWire{
		Type:      "condition",
		ID:        c.ID,
		Field:     c.Field,
		Operator:  c.Operator,
		Value:     c.Value,
		ValueUnit: c.ValueUnit,
	})
}

func (g Group) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, 0, len(g.Conditions))
	for _, n := range g.Conditions {
		b, err := marshalNode(n)
		if err != nil {
			return nil, err
		}
		raw = append(raw, b)
	}
	return json.Marshal(groupWire{
		Type:       "group",
		ID:         g.ID,
		Operator:   g.Operator,
		Conditions: raw,
	})
}

func marshalNode(n Node) ([]byte, error) {
	switch v := n.(type) {
	case *Condition:
		return json.Marshal(*v)
	case *Group:
		return json.Marshal(*v)
	default:
		return nil, fmt.Errorf("domain: unknown predicate node type %T", n)
	}
}

// UnmarshalGroupJSON decodes the tagged-variant wire format back into a
// *Group tree. It is a package-level function rather than UnmarshalJSON
// because the root of a predicate tree is always a Group by contract.
func UnmarshalGroupJSON(data []byte) (*Group, error) {
	n, err := unmarshalNode(data)
	if err != nil {
		return nil, err
	}
	g, ok := n.(*Group)
	if !ok {
		return nil, fmt.Errorf("domain: predicate root must be a group, got %T", n)
	}
	return g, nil
}

func unmarshalNode(data []byte) (Node, error) {
	var disc struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &disc); err != nil {
		return nil, fmt.Errorf("domain: decoding predicate node: %w", err)
	}

	switch disc.Type {
	case "condition":
		var w conditionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("domain: decoding condition: %w", err)
		}
		return &Condition{
			ID:        w.ID,
			Field:     w.Field,
			Operator:  w.Operator,
			Value:     w.Value,
			ValueUnit: w.ValueUnit,
		}, nil
	case "group":
		var w groupWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("domain: decoding group: %w", err)
		}
		children := make([]Node, 0, len(w.Conditions))
		for _, raw := range w.Conditions {
			child, err := unmarshalNode(raw)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		return &Group{ID: w.ID, Operator: w.Operator, Conditions: children}, nil
	default:
		return nil, fmt.Errorf("domain: unknown predicate node type %q", disc.Type)
	}
}
