// Package syntax defines the boundary between the entity parser and the
// language front-end that produces syntax trees. The parser only sees Node:
// a tag, a 1-based start line, the node's source text, and ordered semantic
// children. Concrete front-ends wrap a tree-sitter grammar behind this
// contract.
package syntax

import (
	"context"
	"errors"
)

// ErrSyntax is returned by a Frontend when the source text does not parse.
// Callers treat it as "this file contributes no entities", never as a fatal
// scan error.
var ErrSyntax = errors.New("source text has syntax errors")

// Node is one node of a parsed syntax tree. Children are the named
// (semantic) children in source order; punctuation and keyword tokens are
// not exposed.
type Node interface {
	// Kind returns the grammar tag, e.g. "call", "identifier", "alias".
	Kind() string
	// Line returns the 1-based source line the node starts on.
	Line() int
	// EndLine returns the 1-based source line the node ends on.
	EndLine() int
	// Text returns the source text spanned by the node.
	Text() string
	// ChildCount returns the number of named children.
	ChildCount() int
	// Child returns the i-th named child, or nil when out of range.
	Child(i int) Node
}

// Frontend parses raw source text into a traversable tree, preserving line
// numbers. Invalid text must yield an error wrapping ErrSyntax so parse
// failures stay distinguishable from success.
type Frontend interface {
	Parse(ctx context.Context, src []byte) (Node, error)
}
