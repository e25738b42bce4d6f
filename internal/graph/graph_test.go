package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exmap/exmap-mcp/pkg/types"
)

func makeEntity(file, name string, typ types.EntityType) *types.Entity {
	return &types.Entity{
		ID:        types.EntityID(file, name, typ),
		Name:      name,
		Type:      typ,
		FilePath:  file,
		LineStart: 1,
		LineEnd:   10,
	}
}

func collect(entities ...*types.Entity) map[string]*types.Entity {
	m := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		m[e.ID] = e
	}
	return m
}

func edgeSet(edges []Edge) map[Edge]bool {
	set := make(map[Edge]bool, len(edges))
	for _, e := range edges {
		set[e] = true
	}
	return set
}

func TestBuildLinksModulesAndFunctions(t *testing.T) {
	modA := makeEntity("lib/a.ex", "A", types.TypeModule)
	modA.Imports = []string{"B"}
	funF := makeEntity("lib/a.ex", "f/0", types.TypeFunction)
	funF.ParentID = modA.ID
	funF.Calls = []string{"B.g/0"}
	modB := makeEntity("lib/b.ex", "B", types.TypeModule)
	funG := makeEntity("lib/b.ex", "g/0", types.TypeFunction)
	funG.ParentID = modB.ID

	g := Build(collect(modA, funF, modB, funG))

	assert.Equal(t, 4, g.VertexCount())
	assert.Equal(t, 4, g.EdgeCount())

	out := edgeSet(g.OutEdges(modA.ID))
	assert.True(t, out[Edge{From: modA.ID, To: funF.ID, Kind: EdgeContains}])
	assert.True(t, out[Edge{From: modA.ID, To: modB.ID, Kind: EdgeImports}])

	calls := edgeSet(g.OutEdges(funF.ID))
	assert.True(t, calls[Edge{From: funF.ID, To: funG.ID, Kind: EdgeCalls}])

	contains := edgeSet(g.OutEdges(modB.ID))
	assert.True(t, contains[Edge{From: modB.ID, To: funG.ID, Kind: EdgeContains}])
}

func TestBuildDropsDanglingReferences(t *testing.T) {
	mod := makeEntity("lib/a.ex", "A", types.TypeModule)
	mod.Imports = []string{"Ecto.Changeset", "GenServer"}
	fun := makeEntity("lib/a.ex", "run/1", types.TypeFunction)
	fun.ParentID = mod.ID
	fun.Calls = []string{"Enum.map/2", "String.trim/1"}

	g := Build(collect(mod, fun))

	assert.Equal(t, 2, g.VertexCount())
	// Only the containment edge survives; nothing else resolves.
	assert.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, 1, g.OutDegree(mod.ID))
}

func TestBuildDropsParentOutsideSet(t *testing.T) {
	fun := makeEntity("lib/a.ex", "run/1", types.TypeFunction)
	fun.ParentID = "deadbeefdeadbeef"

	g := Build(collect(fun))

	assert.Equal(t, 1, g.VertexCount())
	assert.Zero(t, g.EdgeCount())
}

func TestBuildAllowsParallelEdges(t *testing.T) {
	modA := makeEntity("lib/a.ex", "A", types.TypeModule)
	modA.Imports = []string{"B"}
	modA.Calls = []string{"B"}
	modB := makeEntity("lib/b.ex", "B", types.TypeModule)

	g := Build(collect(modA, modB))

	assert.Equal(t, 2, g.EdgeCount())
	out := edgeSet(g.OutEdges(modA.ID))
	assert.True(t, out[Edge{From: modA.ID, To: modB.ID, Kind: EdgeImports}])
	assert.True(t, out[Edge{From: modA.ID, To: modB.ID, Kind: EdgeCalls}])
}

func TestCallResolutionPrefersSameFile(t *testing.T) {
	localHelper := makeEntity("lib/y.ex", "helper/1", types.TypeFunction)
	remoteHelper := makeEntity("lib/x.ex", "helper/1", types.TypeFunction)
	caller := makeEntity("lib/y.ex", "caller/0", types.TypeFunction)
	caller.Calls = []string{"helper/1"}

	g := Build(collect(localHelper, remoteHelper, caller))

	out := g.OutEdges(caller.ID)
	require.Len(t, out, 1)
	assert.Equal(t, localHelper.ID, out[0].To)
}

func TestCallResolutionFallsBackToGlobal(t *testing.T) {
	helper := makeEntity("lib/x.ex", "helper/1", types.TypeFunction)
	caller := makeEntity("lib/y.ex", "caller/0", types.TypeFunction)
	caller.Calls = []string{"helper/1"}

	g := Build(collect(helper, caller))

	out := g.OutEdges(caller.ID)
	require.Len(t, out, 1)
	assert.Equal(t, helper.ID, out[0].To)
}

func TestCallResolutionQualifiedName(t *testing.T) {
	mod := makeEntity("lib/repo.ex", "MyApp.Repo", types.TypeModule)
	insert := makeEntity("lib/repo.ex", "insert/2", types.TypeFunction)
	insert.ParentID = mod.ID
	caller := makeEntity("lib/accounts.ex", "create/1", types.TypeFunction)
	caller.Calls = []string{"Repo.insert/2"}

	g := Build(collect(mod, insert, caller))

	out := g.OutEdges(caller.ID)
	require.Len(t, out, 1)
	assert.Equal(t, insert.ID, out[0].To)
}

func TestCallResolutionSelfRecursion(t *testing.T) {
	loop := makeEntity("lib/a.ex", "loop/0", types.TypeFunction)
	loop.Calls = []string{"loop/0"}

	g := Build(collect(loop))

	out := g.OutEdges(loop.ID)
	require.Len(t, out, 1)
	assert.Equal(t, loop.ID, out[0].To)
}

func TestImportFirstMatchWins(t *testing.T) {
	dup1 := makeEntity("lib/one.ex", "Dup", types.TypeModule)
	dup2 := makeEntity("lib/two.ex", "Dup", types.TypeModule)
	importer := makeEntity("lib/main.ex", "Main", types.TypeModule)
	importer.Imports = []string{"Dup"}

	g := Build(collect(dup1, dup2, importer))

	want := dup1.ID
	if dup2.ID < dup1.ID {
		want = dup2.ID
	}
	out := g.OutEdges(importer.ID)
	require.Len(t, out, 1)
	assert.Equal(t, want, out[0].To)
}

func TestImportIgnoresNonModules(t *testing.T) {
	fun := makeEntity("lib/a.ex", "Helper", types.TypeFunction)
	importer := makeEntity("lib/main.ex", "Main", types.TypeModule)
	importer.Imports = []string{"Helper"}

	g := Build(collect(fun, importer))

	assert.Zero(t, g.EdgeCount())
}

func TestRelatedTraversesUndirected(t *testing.T) {
	a := makeEntity("lib/a.ex", "A", types.TypeModule)
	b := makeEntity("lib/a.ex", "b/0", types.TypeFunction)
	b.ParentID = a.ID
	c := makeEntity("lib/c.ex", "c/0", types.TypeFunction)
	b.Calls = []string{"c/0"}
	d := makeEntity("lib/d.ex", "d/0", types.TypeFunction)
	c.Calls = []string{"d/0"}

	g := Build(collect(a, b, c, d))

	related := g.Related(a.ID, 2)
	dist := make(map[string]int, len(related))
	for _, n := range related {
		dist[n.ID] = n.Distance
	}
	assert.Equal(t, map[string]int{b.ID: 1, c.ID: 2}, dist)

	// From the middle both directions are one hop away.
	related = g.Related(c.ID, 1)
	dist = make(map[string]int, len(related))
	for _, n := range related {
		dist[n.ID] = n.Distance
	}
	assert.Equal(t, map[string]int{b.ID: 1, d.ID: 1}, dist)
}

func TestRelatedEdgeCases(t *testing.T) {
	a := makeEntity("lib/a.ex", "A", types.TypeModule)
	g := Build(collect(a))

	assert.Nil(t, g.Related("unknown", 3))
	assert.Nil(t, g.Related(a.ID, 0))
	assert.Empty(t, g.Related(a.ID, 5))
}

func TestBuildEmpty(t *testing.T) {
	g := Build(nil)
	assert.Zero(t, g.VertexCount())
	assert.Zero(t, g.EdgeCount())
	assert.Empty(t, g.VertexIDs())
}
