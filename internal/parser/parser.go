package parser

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/exmap/exmap-mcp/internal/syntax"
	"github.com/exmap/exmap-mcp/pkg/types"
)

// declSpec describes how one declaration keyword maps onto the entity model.
type declSpec struct {
	entityType types.EntityType
	visibility string // callables only
}

// declKeywords are the declaration shapes recognized by the walk. A call node
// headed by one of these identifiers emits an entity; everything else is
// plain code.
var declKeywords = map[string]declSpec{
	"defmodule":   {types.TypeModule, ""},
	"def":         {types.TypeFunction, types.VisibilityPublic},
	"defp":        {types.TypeFunction, types.VisibilityPrivate},
	"defmacro":    {types.TypeMacro, types.VisibilityPublic},
	"defmacrop":   {types.TypeMacro, types.VisibilityPrivate},
	"defprotocol": {types.TypeProtocol, ""},
	"defimpl":     {types.TypeImpl, ""},
	"defstruct":   {types.TypeStruct, ""},
}

// Parser extracts entities from single files. Matching is purely structural:
// no type inference and no cross-file resolution happens here.
type Parser struct {
	frontend syntax.Frontend
	log      *slog.Logger
}

// New returns a Parser backed by the given language front-end.
func New(frontend syntax.Frontend, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.Default()
	}
	return &Parser{frontend: frontend, log: log}
}

// Parse extracts every recognized declaration from one file. A file that does
// not parse contributes zero entities; the failure is logged, never returned,
// so one broken file cannot abort a repository scan.
func (p *Parser) Parse(ctx context.Context, content []byte, filePath string) map[string]*types.Entity {
	entities := make(map[string]*types.Entity)

	root, err := p.frontend.Parse(ctx, content)
	if err != nil {
		p.log.Warn("skipping unparseable file", "file", filePath, "error", err)
		return entities
	}

	w := &fileWalker{path: filePath, entities: entities}
	w.walk(root, nil)
	return entities
}

// fileWalker carries per-file state through one pre-order traversal.
type fileWalker struct {
	path     string
	entities map[string]*types.Entity
}

// walk visits nodes in pre-order. When a declaration is matched, the emitted
// entity becomes the parent for everything nested beneath it, so inner
// declarations link to their nearest enclosing entity.
func (w *fileWalker) walk(n syntax.Node, parent *types.Entity) {
	if n == nil {
		return
	}
	if kw, ok := matchDecl(n); ok {
		if e := w.emit(n, kw, parent); e != nil {
			parent = e
		}
	}
	for i := 0; i < n.ChildCount(); i++ {
		w.walk(n.Child(i), parent)
	}
}

// matchDecl reports whether n is a call headed by a declaration keyword.
func matchDecl(n syntax.Node) (string, bool) {
	if n.Kind() != kindCall || n.ChildCount() == 0 {
		return "", false
	}
	head := n.Child(0)
	if head == nil || head.Kind() != kindIdentifier {
		return "", false
	}
	kw := head.Text()
	_, ok := declKeywords[kw]
	return kw, ok
}

// emit builds the entity for a matched declaration and records it. Shapes the
// builders cannot make sense of (dynamic names, operator heads) are dropped
// silently. Duplicate (file, name, type) triples overwrite: last write wins.
func (w *fileWalker) emit(n syntax.Node, kw string, parent *types.Entity) *types.Entity {
	spec := declKeywords[kw]

	var e *types.Entity
	switch spec.entityType {
	case types.TypeModule:
		e = moduleEntity(n)
	case types.TypeFunction, types.TypeMacro:
		e = callableEntity(n, spec)
	case types.TypeProtocol:
		e = protocolEntity(n)
	case types.TypeImpl:
		e = implEntity(n)
	case types.TypeStruct:
		e = structEntity(n, parent)
	}
	if e == nil {
		return nil
	}

	e.ID = types.EntityID(w.path, e.Name, e.Type)
	e.FilePath = w.path
	e.LineStart = n.Line()
	e.LineEnd = endLine(n)

	if parent != nil {
		e.ParentID = parent.ID
		parent.ChildrenIDs = appendUnique(parent.ChildrenIDs, e.ID)
	}

	w.entities[e.ID] = e
	return e
}

// moduleEntity handles defmodule. Imports and the doc attribute are scraped
// from anywhere in the body, nested scopes included.
func moduleEntity(n syntax.Node) *types.Entity {
	name := firstArgText(n)
	if name == "" {
		return nil
	}
	body := bodyNodes(n)
	e := &types.Entity{
		Name:      name,
		Type:      types.TypeModule,
		Signature: renderSignature(n),
		Doc:       firstDoc(body),
		Imports:   scrapeImports(body),
	}
	if bs := scrapeBehaviours(body); len(bs) > 0 {
		e.Metadata = map[string]any{types.MetaBehaviours: bs}
	}
	return e
}

// callableEntity handles def, defp, defmacro and defmacrop. The entity name
// carries the arity suffix, e.g. "handle_call/3".
func callableEntity(n syntax.Node, spec declSpec) *types.Entity {
	name, arity, ok := headNameArity(declHead(n))
	if !ok {
		return nil
	}
	body := bodyNodes(n)
	return &types.Entity{
		Name:      fmt.Sprintf("%s/%d", name, arity),
		Type:      spec.entityType,
		Signature: renderSignature(n),
		Doc:       firstDoc(body),
		Calls:     scrapeCalls(body),
		Metadata: map[string]any{
			types.MetaVisibility: spec.visibility,
			types.MetaArity:      arity,
		},
	}
}

// protocolEntity handles defprotocol. Callback heads inside the body emit as
// ordinary function entities parented to the protocol by the walk.
func protocolEntity(n syntax.Node) *types.Entity {
	name := firstArgText(n)
	if name == "" {
		return nil
	}
	return &types.Entity{
		Name:      name,
		Type:      types.TypeProtocol,
		Signature: renderSignature(n),
		Doc:       firstDoc(bodyNodes(n)),
	}
}

// implEntity handles defimpl. The entity is named Protocol.Target to mirror
// the module name Elixir itself generates for an implementation.
func implEntity(n syntax.Node) *types.Entity {
	proto := firstArgText(n)
	if proto == "" {
		return nil
	}
	name := proto
	meta := map[string]any{types.MetaProtocol: proto}
	if target := keywordArgText(n, "for"); target != "" {
		name = proto + "." + target
		meta[types.MetaFor] = target
	}
	return &types.Entity{
		Name:      name,
		Type:      types.TypeImpl,
		Signature: renderSignature(n),
		Doc:       firstDoc(bodyNodes(n)),
		Metadata:  meta,
	}
}

// structEntity handles defstruct. Elixir structs are anonymous declarations
// named after their enclosing module, so the entity borrows the parent's
// name; the distinct entity type keeps the id unique.
func structEntity(n syntax.Node, parent *types.Entity) *types.Entity {
	name := "defstruct"
	if parent != nil {
		name = parent.Name
	}
	e := &types.Entity{
		Name:      name,
		Type:      types.TypeStruct,
		Signature: renderSignature(n),
	}
	if fields := structFields(n); len(fields) > 0 {
		e.Metadata = map[string]any{types.MetaFields: fields}
	}
	return e
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
