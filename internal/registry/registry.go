// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registry holds the closed, immutable, process-global catalog
// of fields a maintenance rule may reference.
package registry

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
)

// EnumOption is one (value, label) pair for an enum Field.
type EnumOption struct {
	Value string
	Label string
}

// Field is an immutable catalog entry. See DESIGN.md for the Open
// Question decision on OrderedValues.
type Field struct {
	Key              string
	Label            string
	Description      string
	Type             domain.FieldType
	DataSource       string
	MediaTypes       []domain.MediaType
	AllowedOperators []domain.Operator
	EnumValues       []EnumOption
	Unit             domain.Unit

	// OrderedValues, when non-empty, makes ordinal operators (gt/ge/lt/le/between)
	// on an enum field compare by index in this slice instead of falling back
	// to Go string ordering. No default field sets this (see DESIGN.md).
	OrderedValues []string
}

// AppliesTo reports whether the field is usable for the given media type.
func (f Field) AppliesTo(mt domain.MediaType) bool {
	for _, m := range f.MediaTypes {
		if m == mt {
			return true
		}
	}
	return false
}

// AllowsOperator reports whether op is legal for this field.
func (f Field) AllowsOperator(op domain.Operator) bool {
	for _, o := range f.AllowedOperators {
		if o == op {
			return true
		}
	}
	return false
}

// Registry is the read-only, process-global field catalog.
type Registry struct {
	fields map[string]Field
	order  []string
}

// New builds a Registry from a fixed field list. Call New(DefaultFields())
// for the process-global catalog; tests may construct a smaller registry.
func New(fields []Field) *Registry {
	r := &Registry{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		r.fields[f.Key] = f
		r.order = append(r.order, f.Key)
	}
	return r
}

// Lookup returns the Field for key, or (zero, false) if unknown.
func (r *Registry) Lookup(key string) (Field, bool) {
	f, ok := r.fields[key]
	return f, ok
}

// FieldsFor returns every field applicable to mediaType, in registration order.
func (r *Registry) FieldsFor(mediaType domain.MediaType) []Field {
	out := make([]Field, 0, len(r.order))
	for _, key := range r.order {
		f := r.fields[key]
		if f.AppliesTo(mediaType) {
			out = append(out, f)
		}
	}
	return out
}

// FieldsByDataSource groups fields applicable to mediaType by their DataSource tag.
func (r *Registry) FieldsByDataSource(mediaType domain.MediaType) map[string][]Field {
	grouped := make(map[string][]Field)
	for _, f := range r.FieldsFor(mediaType) {
		grouped[f.DataSource] = append(grouped[f.DataSource], f)
	}
	return grouped
}

// FormatOperator maps an operator to its display label. Pure, no side effects.
func FormatOperator(op domain.Operator) string {
	switch op {
	case domain.OpEquals:
		return "is"
	case domain.OpNotEquals:
		return "is not"
	case domain.OpContains:
		return "contains"
	case domain.OpNotContains:
		return "does not contain"
	case domain.OpStartsWith:
		return "starts with"
	case domain.OpEndsWith:
		return "ends with"
	case domain.OpRegex:
		return "matches regex"
	case domain.OpIn:
		return "is one of"
	case domain.OpNotIn:
		return "is none of"
	case domain.OpGT:
		return "is greater than"
	case domain.OpGE:
		return "is at least"
	case domain.OpLT:
		return "is less than"
	case domain.OpLE:
		return "is at most"
	case domain.OpBetween:
		return "is between"
	case domain.OpBefore:
		return "is before"
	case domain.OpAfter:
		return "is after"
	case domain.OpOlderThan:
		return "is older than"
	case domain.OpNewerThan:
		return "is newer than"
	case domain.OpIsNull:
		return "is not set"
	case domain.OpIsNotNull:
		return "is set"
	case domain.OpContainsAny:
		return "contains any of"
	case domain.OpContainsAll:
		return "contains all of"
	case domain.OpIsEmpty:
		return "is empty"
	case domain.OpIsNotEmpty:
		return "is not empty"
	default:
		return strings.ToLower(string(op))
	}
}

// GenerateID returns a short opaque id suitable for a new tree node.
func GenerateID() string {
	return uuid.NewString()
}
