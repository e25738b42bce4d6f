package syntax

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/elixir"
)

// Elixir parses Elixir source with the tree-sitter grammar. The zero value is
// ready to use and safe for concurrent Parse calls: each call builds its own
// parser, since tree-sitter parsers are not goroutine-safe.
type Elixir struct{}

// NewElixir returns an Elixir front-end.
func NewElixir() *Elixir {
	return &Elixir{}
}

// Parse implements Frontend. Tree-sitter recovers from many syntax errors by
// emitting error nodes; any error node anywhere in the tree is reported as a
// parse failure so the caller can discard the file.
func (*Elixir) Parse(ctx context.Context, src []byte) (Node, error) {
	root, err := sitter.ParseCtx(ctx, src, elixir.GetLanguage())
	if err != nil {
		return nil, fmt.Errorf("elixir parse: %w", err)
	}
	if root.HasError() {
		return nil, ErrSyntax
	}
	return &tsNode{n: root, src: src}, nil
}

// tsNode adapts a tree-sitter node to the Node contract, exposing only named
// children.
type tsNode struct {
	n   *sitter.Node
	src []byte
}

func (t *tsNode) Kind() string { return t.n.Type() }

func (t *tsNode) Line() int { return int(t.n.StartPoint().Row) + 1 }

func (t *tsNode) EndLine() int { return int(t.n.EndPoint().Row) + 1 }

func (t *tsNode) Text() string { return t.n.Content(t.src) }

func (t *tsNode) ChildCount() int { return int(t.n.NamedChildCount()) }

func (t *tsNode) Child(i int) Node {
	if i < 0 || i >= int(t.n.NamedChildCount()) {
		return nil
	}
	c := t.n.NamedChild(i)
	if c == nil {
		return nil
	}
	return &tsNode{n: c, src: t.src}
}
