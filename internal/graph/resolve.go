package graph

import (
	"strings"

	"github.com/exmap/exmap-mcp/pkg/types"
)

// resolver maps the textual call and import references scraped by the parser
// onto entity ids. Resolution is heuristic: Elixir only binds names at
// runtime, so common short names can and will misattribute. Both lookup
// tiers scan candidates in sorted-id order and take the first hit, which
// keeps the outcome stable across runs.
type resolver struct {
	entities map[string]*types.Entity
	ids      []string
	modules  map[string]string   // module name -> entity id, first definition wins
	byFile   map[string][]string // file path -> entity ids, sorted
}

func newResolver(entities map[string]*types.Entity, ids []string) *resolver {
	r := &resolver{
		entities: entities,
		ids:      ids,
		modules:  make(map[string]string),
		byFile:   make(map[string][]string),
	}
	for _, id := range ids {
		e := entities[id]
		if e.Type == types.TypeModule {
			if _, taken := r.modules[e.Name]; !taken {
				r.modules[e.Name] = id
			}
		}
		r.byFile[e.FilePath] = append(r.byFile[e.FilePath], id)
	}
	return r
}

// module resolves an import reference by exact module name.
func (r *resolver) module(name string) (string, bool) {
	id, ok := r.modules[name]
	return id, ok
}

// call resolves one call reference for the given source entity. Definitions
// in the same file are preferred; only when none match is the whole entity
// set searched.
func (r *resolver) call(from *types.Entity, call string) (string, bool) {
	suffix := calleeSuffix(call)

	for _, id := range r.byFile[from.FilePath] {
		e := r.entities[id]
		if e.Name == call || strings.HasSuffix(e.Name, suffix) {
			return id, true
		}
	}
	for _, id := range r.ids {
		e := r.entities[id]
		if e.Name == call || strings.HasSuffix(e.Name, "."+suffix) || lastSegment(e.Name) == suffix {
			return id, true
		}
	}
	return "", false
}

// calleeSuffix reduces a call reference to its unqualified name/arity form:
// "Repo.insert/2" becomes "insert/2", "helper/1" stays as is.
func calleeSuffix(call string) string {
	head := call
	if slash := strings.LastIndexByte(call, '/'); slash >= 0 {
		head = call[:slash]
	}
	if dot := strings.LastIndexByte(head, '.'); dot >= 0 {
		return call[dot+1:]
	}
	return call
}

// lastSegment returns the part of a dotted name after the final dot.
func lastSegment(name string) string {
	if dot := strings.LastIndexByte(name, '.'); dot >= 0 {
		return name[dot+1:]
	}
	return name
}
