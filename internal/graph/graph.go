// Package graph links parsed entities into a directed multigraph. Vertices
// carry the full entity; edges come in three kinds (calls, imports,
// contains) and are resolved from the textual references the parser
// collected, using best-effort name matching.
package graph

import (
	"sort"

	"github.com/exmap/exmap-mcp/pkg/types"
)

// EdgeKind labels one relationship between two entities.
type EdgeKind string

const (
	EdgeCalls    EdgeKind = "calls"
	EdgeImports  EdgeKind = "imports"
	EdgeContains EdgeKind = "contains"
)

// Edge is a directed, labeled edge between two vertices. Parallel edges of
// different kinds between the same pair are permitted; cycles are legal
// (mutual recursion produces them).
type Edge struct {
	From string
	To   string
	Kind EdgeKind
}

// Neighbor is one vertex reached by a breadth-first traversal, together with
// its distance from the start vertex.
type Neighbor struct {
	ID       string
	Distance int
}

// Graph is a directed multigraph over entity ids, built fresh from each
// parse result and never mutated afterwards.
type Graph struct {
	vertices map[string]*types.Entity
	ids      []string // vertex ids in lexicographic order
	out      map[string][]Edge
	in       map[string][]Edge
	edges    int
}

// Build converts an entity map into a graph. Every entity becomes a vertex;
// edges are added only when both endpoints resolve to known entities, so a
// reference to something outside the scanned set is dropped silently.
// Entities are processed in sorted-id order, which also fixes the "first
// match wins" tie-break of the call and import resolution.
func Build(entities map[string]*types.Entity) *Graph {
	g := &Graph{
		vertices: make(map[string]*types.Entity, len(entities)),
		ids:      types.SortedIDs(entities),
		out:      make(map[string][]Edge),
		in:       make(map[string][]Edge),
	}
	for _, id := range g.ids {
		g.vertices[id] = entities[id]
	}

	r := newResolver(entities, g.ids)

	for _, id := range g.ids {
		e := entities[id]

		if e.ParentID != "" {
			if _, ok := g.vertices[e.ParentID]; ok {
				g.addEdge(e.ParentID, id, EdgeContains)
			}
		}
		for _, name := range e.Imports {
			if target, ok := r.module(name); ok {
				g.addEdge(id, target, EdgeImports)
			}
		}
		for _, call := range e.Calls {
			if target, ok := r.call(e, call); ok {
				g.addEdge(id, target, EdgeCalls)
			}
		}
	}
	return g
}

func (g *Graph) addEdge(from, to string, kind EdgeKind) {
	e := Edge{From: from, To: to, Kind: kind}
	g.out[from] = append(g.out[from], e)
	g.in[to] = append(g.in[to], e)
	g.edges++
}

// VertexCount returns the number of vertices.
func (g *Graph) VertexCount() int { return len(g.vertices) }

// EdgeCount returns the total number of edges across all kinds.
func (g *Graph) EdgeCount() int { return g.edges }

// VertexIDs returns every vertex id in lexicographic order. The slice is
// shared; callers must not modify it.
func (g *Graph) VertexIDs() []string { return g.ids }

// Entity returns the entity attached to a vertex.
func (g *Graph) Entity(id string) (*types.Entity, bool) {
	e, ok := g.vertices[id]
	return e, ok
}

// HasVertex reports whether id is a vertex of the graph.
func (g *Graph) HasVertex(id string) bool {
	_, ok := g.vertices[id]
	return ok
}

// OutEdges returns the edges leaving id in insertion order.
func (g *Graph) OutEdges(id string) []Edge { return g.out[id] }

// InEdges returns the edges arriving at id in insertion order.
func (g *Graph) InEdges(id string) []Edge { return g.in[id] }

// OutDegree counts edges leaving id, parallel edges included.
func (g *Graph) OutDegree(id string) int { return len(g.out[id]) }

// Related lists every vertex reachable from start within depth hops,
// treating edges as undirected. Each vertex is visited at most once and
// reported with its BFS distance; the start vertex itself is not included.
func (g *Graph) Related(start string, depth int) []Neighbor {
	if _, ok := g.vertices[start]; !ok || depth <= 0 {
		return nil
	}

	type item struct {
		id   string
		dist int
	}
	visited := map[string]bool{start: true}
	queue := []item{{start, 0}}
	var found []Neighbor

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.dist >= depth {
			continue
		}
		for _, next := range g.neighborIDs(cur.id) {
			if visited[next] {
				continue
			}
			visited[next] = true
			found = append(found, Neighbor{ID: next, Distance: cur.dist + 1})
			queue = append(queue, item{next, cur.dist + 1})
		}
	}
	return found
}

// neighborIDs returns the distinct undirected neighbors of id, sorted so
// traversal order is reproducible.
func (g *Graph) neighborIDs(id string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, e := range g.out[id] {
		if !seen[e.To] {
			seen[e.To] = true
			ids = append(ids, e.To)
		}
	}
	for _, e := range g.in[id] {
		if !seen[e.From] {
			seen[e.From] = true
			ids = append(ids, e.From)
		}
	}
	sort.Strings(ids)
	return ids
}
