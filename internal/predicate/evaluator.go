// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package predicate evaluates a hierarchical AND/OR tree of typed field
// comparisons against a MediaItem. Grounded on the per-field typed
// evaluation style of other_examples' streammon evaluator and the
// priority-cascade rule engine of oxicleanarr, adapted into a single
// generic recursive evaluator rather than a fixed criterion switch.
package predicate

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/registry"
	"github.com/rs/zerolog"
)

const daysPerMonth = 30
const daysPerYear = 365

// Evaluator evaluates predicate trees against MediaItems using a field
// registry to resolve operator legality and ordinal enum ordering.
type Evaluator struct {
	Registry *registry.Registry
	Now      func() time.Time // overridable for deterministic tests
	Log      zerolog.Logger
}

// NewEvaluator constructs an Evaluator bound to reg, defaulting Now to time.Now.
func NewEvaluator(reg *registry.Registry, log zerolog.Logger) *Evaluator {
	return &Evaluator{Registry: reg, Now: time.Now, Log: log}
}

// Evaluate is the pure entry point: evaluate(item, tree) -> bool.
func (e *Evaluator) Evaluate(item domain.MediaItem, root *domain.Group) bool {
	if root == nil {
		return false
	}
	return e.evalGroup(item, root)
}

func (e *Evaluator) evalGroup(item domain.MediaItem, g *domain.Group) bool {
	if len(g.Conditions) == 0 {
		return g.Operator == domain.GroupAND
	}
	switch g.Operator {
	case domain.GroupAND:
		for _, c := range g.Conditions {
			if !e.evalNode(item, c) {
				return false
			}
		}
		return true
	case domain.GroupOR:
		for _, c := range g.Conditions {
			if e.evalNode(item, c) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func (e *Evaluator) evalNode(item domain.MediaItem, n domain.Node) bool {
	switch v := n.(type) {
	case *domain.Group:
		return e.evalGroup(item, v)
	case *domain.Condition:
		return e.evalCondition(item, v)
	default:
		return false
	}
}

func (e *Evaluator) evalCondition(item domain.MediaItem, c *domain.Condition) bool {
	field, ok := e.Registry.Lookup(c.Field)
	if !ok {
		e.Log.Warn().Str("field", c.Field).Msg("predicate references unknown field")
		return false
	}

	value, present := e.resolveField(item, c.Field)

	if c.Operator == domain.OpIsNull {
		return !present
	}
	if c.Operator == domain.OpIsNotNull {
		return present
	}

	// Null-safety: lastWatchedAt olderThan is the one asymmetric rule —
	// an absent value means "never watched", which matches "older than".
	if !present {
		if c.Field == "lastWatchedAt" && c.Operator == domain.OpOlderThan {
			return true
		}
		return false
	}

	switch field.Type {
	case domain.FieldTypeString:
		return evalString(value, c.Operator, c.Value)
	case domain.FieldTypeEnum:
		return evalEnum(field, value, c.Operator, c.Value)
	case domain.FieldTypeNumber:
		return evalNumber(value, c.Operator, c.Value)
	case domain.FieldTypeDate:
		return e.evalDate(value, c.Operator, c.Value, c.ValueUnit)
	case domain.FieldTypeBoolean:
		return evalBool(value, c.Operator, c.Value)
	case domain.FieldTypeArray:
		return evalArray(value, c.Operator, c.Value)
	default:
		return false
	}
}

// resolveField resolves flat and dotted keys plus the three virtual fields.
func (e *Evaluator) resolveField(item domain.MediaItem, key string) (any, bool) {
	now := e.Now()
	switch key {
	case "neverWatched":
		return item.NeverWatched(), true
	case "daysSinceAdded":
		d, ok := item.DaysSinceAdded(now)
		return d, ok
	case "daysSinceWatched":
		d, ok := item.DaysSinceWatched(now)
		return d, ok
	}

	if strings.Contains(key, ".") {
		parts := strings.SplitN(key, ".", 2)
		switch parts[0] {
		case "radarr":
			if item.Radarr == nil {
				return nil, false
			}
			return subRecordField(*item.Radarr, parts[1])
		case "sonarr":
			if item.Sonarr == nil {
				return nil, false
			}
			return subRecordField(*item.Sonarr, parts[1])
		default:
			return nil, false
		}
	}

	switch key {
	case "title":
		return item.Title, true
	case "year":
		return derefIntPtr(item.Year)
	case "playCount":
		return item.PlayCount, true
	case "libraryId":
		if item.LibraryID == "" {
			return nil, false
		}
		return item.LibraryID, true
	case "lastWatchedAt":
		return derefTime(item.LastWatchedAt)
	case "addedAt":
		return derefTime(item.AddedAt)
	case "fileSize":
		return derefInt64(item.FileSize)
	case "filePath":
		if item.FilePath == "" {
			return nil, false
		}
		return item.FilePath, true
	case "duration":
		return derefIntPtr(item.Duration)
	case "resolution":
		if item.Resolution == "" {
			return nil, false
		}
		return item.Resolution, true
	case "videoCodec":
		if item.VideoCodec == "" {
			return nil, false
		}
		return item.VideoCodec, true
	case "audioCodec":
		if item.AudioCodec == "" {
			return nil, false
		}
		return item.AudioCodec, true
	case "container":
		if item.Container == "" {
			return nil, false
		}
		return item.Container, true
	case "bitrate":
		return derefIntPtr(item.Bitrate)
	case "rating":
		return derefFloat(item.Rating)
	case "audienceRating":
		return derefFloat(item.AudienceRating)
	case "contentRating":
		if item.ContentRating == "" {
			return nil, false
		}
		return item.ContentRating, true
	case "genres":
		if len(item.Genres) == 0 {
			return nil, false
		}
		return item.Genres, true
	case "labels":
		if len(item.Labels) == 0 {
			return nil, false
		}
		return item.Labels, true
	default:
		e.Log.Warn().Str("field", key).Msg("unknown field key during evaluation")
		return nil, false
	}
}

func subRecordField(rec any, field string) (any, bool) {
	v := reflect.ValueOf(rec)
	// Sub-records use exported Go field names that differ in case only
	// from the spec's camelCase keys (hasFile -> HasFile).
	target := strings.ToUpper(field[:1]) + field[1:]
	fv := v.FieldByName(target)
	if !fv.IsValid() {
		return nil, false
	}
	return fv.Interface(), true
}

func derefIntPtr(p *int) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func derefInt64(p *int64) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func derefFloat(p *float64) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func derefTime(p *time.Time) (any, bool) {
	if p == nil {
		return nil, false
	}
	return *p, true
}

func toString(v any) string {
	return fmt.Sprintf("%v", v)
}

func evalString(value any, op domain.Operator, target any) bool {
	s := toString(value)
	switch op {
	case domain.OpEquals:
		return s == toString(target)
	case domain.OpNotEquals:
		return s != toString(target)
	case domain.OpContains:
		return strings.Contains(strings.ToLower(s), strings.ToLower(toString(target)))
	case domain.OpNotContains:
		return !strings.Contains(strings.ToLower(s), strings.ToLower(toString(target)))
	case domain.OpStartsWith:
		return strings.HasPrefix(strings.ToLower(s), strings.ToLower(toString(target)))
	case domain.OpEndsWith:
		return strings.HasSuffix(strings.ToLower(s), strings.ToLower(toString(target)))
	case domain.OpRegex:
		re, err := regexp.Compile("(?i)" + toString(target))
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case domain.OpIn:
		return stringInList(s, target)
	case domain.OpNotIn:
		return !stringInList(s, target)
	default:
		return false
	}
}

func stringInList(s string, target any) bool {
	list, ok := target.([]string)
	if !ok {
		return false
	}
	for _, item := range list {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}

// evalEnum reuses string semantics for equality-style operators; ordinal
// operators (gt/ge/lt/le/between) fall back to Go string ordering unless
// the field declares OrderedValues (see DESIGN.md Open Question).
func evalEnum(field registry.Field, value any, op domain.Operator, target any) bool {
	switch op {
	case domain.OpEquals, domain.OpNotEquals, domain.OpContains, domain.OpNotContains,
		domain.OpStartsWith, domain.OpEndsWith, domain.OpRegex, domain.OpIn, domain.OpNotIn:
		return evalString(value, op, target)
	case domain.OpGT, domain.OpGE, domain.OpLT, domain.OpLE, domain.OpBetween:
		s := toString(value)
		if len(field.OrderedValues) > 0 {
			return evalOrderedEnum(field.OrderedValues, s, op, target)
		}
		return evalStringOrdinal(s, op, target)
	default:
		return false
	}
}

func indexOf(values []string, s string) int {
	for i, v := range values {
		if v == s {
			return i
		}
	}
	return -1
}

func evalOrderedEnum(values []string, s string, op domain.Operator, target any) bool {
	idx := indexOf(values, s)
	if idx < 0 {
		return false
	}
	switch op {
	case domain.OpBetween:
		bounds, ok := target.([2]string)
		if !ok {
			return false
		}
		lo, hi := indexOf(values, bounds[0]), indexOf(values, bounds[1])
		return lo >= 0 && hi >= 0 && idx >= lo && idx <= hi
	default:
		t := indexOf(values, toString(target))
		if t < 0 {
			return false
		}
		return compareOrdinal(idx, t, op)
	}
}

func evalStringOrdinal(s string, op domain.Operator, target any) bool {
	if op == domain.OpBetween {
		bounds, ok := target.([2]string)
		if !ok {
			return false
		}
		return s >= bounds[0] && s <= bounds[1]
	}
	t := toString(target)
	switch op {
	case domain.OpGT:
		return s > t
	case domain.OpGE:
		return s >= t
	case domain.OpLT:
		return s < t
	case domain.OpLE:
		return s <= t
	default:
		return false
	}
}

func compareOrdinal(a, b int, op domain.Operator) bool {
	switch op {
	case domain.OpGT:
		return a > b
	case domain.OpGE:
		return a >= b
	case domain.OpLT:
		return a < b
	case domain.OpLE:
		return a <= b
	default:
		return false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func evalNumber(value any, op domain.Operator, target any) bool {
	v, ok := toFloat(value)
	if !ok {
		return false
	}
	if op == domain.OpBetween {
		bounds, ok := target.([2]float64)
		if !ok {
			return false
		}
		return v >= bounds[0] && v <= bounds[1]
	}
	t, ok := toFloat(target)
	if !ok {
		return false
	}
	switch op {
	case domain.OpEquals:
		return v == t
	case domain.OpNotEquals:
		return v != t
	case domain.OpGT:
		return v > t
	case domain.OpGE:
		return v >= t
	case domain.OpLT:
		return v < t
	case domain.OpLE:
		return v <= t
	default:
		return false
	}
}

func evalBool(value any, op domain.Operator, target any) bool {
	v, ok := value.(bool)
	if !ok {
		return false
	}
	t, ok := target.(bool)
	if !ok {
		return false
	}
	switch op {
	case domain.OpEquals:
		return v == t
	case domain.OpNotEquals:
		return v != t
	default:
		return false
	}
}

// evalDate handles before/after/between/olderThan/newerThan. isNull/isNotNull
// are handled upstream in evalCondition before type dispatch.
func (e *Evaluator) evalDate(value any, op domain.Operator, target any, unit domain.RelativeUnit) bool {
	t, ok := value.(time.Time)
	if !ok {
		return false
	}
	switch op {
	case domain.OpBefore:
		ref, ok := target.(time.Time)
		return ok && t.Before(ref)
	case domain.OpAfter:
		ref, ok := target.(time.Time)
		return ok && t.After(ref)
	case domain.OpBetween:
		bounds, ok := target.([2]time.Time)
		if !ok {
			return false
		}
		return !t.Before(bounds[0]) && !t.After(bounds[1])
	case domain.OpOlderThan:
		n, ok := toFloat(target)
		if !ok {
			return false
		}
		threshold := e.Now().Add(-relativeDuration(int(n), unit))
		return t.Before(threshold)
	case domain.OpNewerThan:
		n, ok := toFloat(target)
		if !ok {
			return false
		}
		threshold := e.Now().Add(-relativeDuration(int(n), unit))
		return t.After(threshold)
	default:
		return false
	}
}

func relativeDuration(n int, unit domain.RelativeUnit) time.Duration {
	days := n
	switch unit {
	case domain.RelativeUnitMonths:
		days = n * daysPerMonth
	case domain.RelativeUnitYears:
		days = n * daysPerYear
	}
	return time.Duration(days) * 24 * time.Hour
}

func evalArray(value any, op domain.Operator, target any) bool {
	list, ok := value.([]string)
	if !ok {
		return false
	}
	switch op {
	case domain.OpIsEmpty:
		return len(list) == 0
	case domain.OpIsNotEmpty:
		return len(list) > 0
	case domain.OpContains:
		return containsString(list, toString(target))
	case domain.OpNotContains:
		return !containsString(list, toString(target))
	case domain.OpContainsAny:
		want, ok := target.([]string)
		if !ok {
			return false
		}
		for _, w := range want {
			if containsString(list, w) {
				return true
			}
		}
		return false
	case domain.OpContainsAll:
		want, ok := target.([]string)
		if !ok {
			return false
		}
		for _, w := range want {
			if !containsString(list, w) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
