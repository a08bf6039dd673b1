package shared

import (
	"encoding/json"
	"slices"
	"strconv"
)

// PredicateKind tags each Predicate variant
type PredicateKind string

const (
	PredicateAll      PredicateKind = "all"
	PredicateNone     PredicateKind = "none"
	PredicateInInt64  PredicateKind = "in_int64"
	PredicateInString PredicateKind = "in_string"
	PredicateOr       PredicateKind = "or"
	PredicateAnd      PredicateKind = "and"
)

// Predicate restricts a query or mutation to a subset of records.
// It is storage-agnostic: every adapter compiles it to its own query form.
// All variants serialize to JSON deterministically so a predicate can be
// folded into a cache key.
type Predicate interface {
	Kind() PredicateKind
}

// MatchAll matches every record
type MatchAll struct{}

// MatchNone matches no record
type MatchNone struct{}

// InInt64 matches records whose numeric Field is one of Values
type InInt64 struct {
	Field  string
	Values []int64
}

// InString matches records whose text Field is one of Values
type InString struct {
	Field  string
	Values []string
}

// Or matches records matching any of its children
type Or struct {
	Predicates []Predicate
}

// And matches records matching all of its children
type And struct {
	Predicates []Predicate
}

func (MatchAll) Kind() PredicateKind  { return PredicateAll }
func (MatchNone) Kind() PredicateKind { return PredicateNone }
func (InInt64) Kind() PredicateKind   { return PredicateInInt64 }
func (InString) Kind() PredicateKind  { return PredicateInString }
func (Or) Kind() PredicateKind        { return PredicateOr }
func (And) Kind() PredicateKind       { return PredicateAnd }

// NewInInt64 builds an InInt64 with sorted, de-duplicated values
func NewInInt64(field string, values []int64) InInt64 {
	v := slices.Clone(values)
	slices.Sort(v)
	return InInt64{Field: field, Values: slices.Compact(v)}
}

// NewInString builds an InString with sorted, de-duplicated values
func NewInString(field string, values []string) InString {
	v := slices.Clone(values)
	slices.Sort(v)
	return InString{Field: field, Values: slices.Compact(v)}
}

// Int64sToStrings renders ids in their decimal text form
func Int64sToStrings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// IsMatchAll reports whether p imposes no restriction
func IsMatchAll(p Predicate) bool {
	return p == nil || p.Kind() == PredicateAll
}

type predicateJSON struct {
	Kind     PredicateKind `json:"kind"`
	Children []Predicate   `json:"children,omitempty"`
}

func (p MatchAll) MarshalJSON() ([]byte, error) {
	return json.Marshal(predicateJSON{Kind: p.Kind()})
}

func (p MatchNone) MarshalJSON() ([]byte, error) {
	return json.Marshal(predicateJSON{Kind: p.Kind()})
}

func (p InInt64) MarshalJSON() ([]byte, error) {
	// Empty sets still emit the field so "in nothing" never collides with "match all".
	ints := p.Values
	if ints == nil {
		ints = []int64{}
	}
	return json.Marshal(struct {
		Kind  PredicateKind `json:"kind"`
		Field string        `json:"field"`
		Ints  []int64       `json:"ints"`
	}{p.Kind(), p.Field, ints})
}

func (p InString) MarshalJSON() ([]byte, error) {
	strs := p.Values
	if strs == nil {
		strs = []string{}
	}
	return json.Marshal(struct {
		Kind    PredicateKind `json:"kind"`
		Field   string        `json:"field"`
		Strings []string      `json:"strings"`
	}{p.Kind(), p.Field, strs})
}

func (p Or) MarshalJSON() ([]byte, error) {
	return json.Marshal(predicateJSON{Kind: p.Kind(), Children: p.Predicates})
}

func (p And) MarshalJSON() ([]byte, error) {
	return json.Marshal(predicateJSON{Kind: p.Kind(), Children: p.Predicates})
}

// IsMatchNone reports whether p can match no record
func IsMatchNone(p Predicate) bool {
	return p != nil && p.Kind() == PredicateNone
}
