// Package domain defines the persistence models and core type tables for the
// argument-graph wiki. Nodes form a tree of philosophical moves (questions,
// theses, antitheses, syntheses, reasons, direct replies); this file is the
// single source of truth for which child types a node admits and for the
// canonical display ordering. Both validation and presentation must consult
// these tables; earlier revisions kept diverging copies in the UI and the
// persistence path.
package domain

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NodeType identifies the dialectical role of a node.
type NodeType string

// The six node types. Values match the stored node_type field.
const (
	TypeQuestion    NodeType = "question"
	TypeThesis      NodeType = "thesis"
	TypeAntithesis  NodeType = "antithesis"
	TypeSynthesis   NodeType = "synthesis"
	TypeReason      NodeType = "reason"
	TypeDirectReply NodeType = "direct_reply"
)

// TypeOrder is the canonical ordering used wherever sibling nodes are listed.
// Ties are broken by insertion order (CreatedAt).
var TypeOrder = []NodeType{
	TypeQuestion,
	TypeThesis,
	TypeReason,
	TypeAntithesis,
	TypeSynthesis,
	TypeDirectReply,
}

// childTypes maps a parent type to the child types it admits. A synthesis
// admits only a further antithesis; terminal types admit nothing.
var childTypes = map[NodeType][]NodeType{
	TypeQuestion:   {TypeThesis},
	TypeThesis:     {TypeAntithesis, TypeReason},
	TypeAntithesis: {TypeSynthesis, TypeDirectReply},
	TypeSynthesis:  {TypeAntithesis},
}

// typeOrdinal is derived from TypeOrder at init; unknown types sort last.
var typeOrdinal = func() map[NodeType]int {
	m := make(map[NodeType]int, len(TypeOrder))
	for i, t := range TypeOrder {
		m[t] = i
	}
	return m
}()

// ValidType reports whether t is one of the six known node types.
func ValidType(t NodeType) bool {
	_, ok := typeOrdinal[t]
	return ok
}

// ChildTypes returns the child types a parent of type t may have. The returned
// slice is a copy; callers may reorder it freely.
func ChildTypes(t NodeType) []NodeType {
	src := childTypes[t]
	out := make([]NodeType, len(src))
	copy(out, src)
	return out
}

// AllowsChild reports whether a node of type parent admits a child of type c.
func AllowsChild(parent, c NodeType) bool {
	for _, t := range childTypes[parent] {
		if t == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether t admits no children (reason, direct_reply).
func IsTerminal(t NodeType) bool {
	return t == TypeReason || t == TypeDirectReply
}

// Ordinal returns the canonical sort position of t. Unknown types sort after
// all known ones.
func Ordinal(t NodeType) int {
	if i, ok := typeOrdinal[t]; ok {
		return i
	}
	return len(TypeOrder)
}

// typeCaser renders type labels; direct_reply becomes "Direct Reply".
var typeCaser = cases.Title(language.English)

// Label returns a human-readable label for t, e.g. "Direct Reply".
func (t NodeType) Label() string {
	s := string(t)
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '_' {
			out = append(out, ' ')
			continue
		}
		out = append(out, s[i])
	}
	return typeCaser.String(string(out))
}
