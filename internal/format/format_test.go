package format

import (
	"fmt"
	"strings"
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
		LineEnd:   8,
	}
}

func makeInput(entities ...*types.Entity) Input {
	m := make(map[string]*types.Entity, len(entities))
	fileSet := make(map[string]bool)
	var files []string
	for _, e := range entities {
		m[e.ID] = e
		if !fileSet[e.FilePath] {
			fileSet[e.FilePath] = true
			files = append(files, e.FilePath)
		}
	}
	return Input{
		Entities: m,
		Scores:   map[string]float64{},
		Stats:    types.ComputeStats(m, files),
		Files:    files,
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("12345678"))
	assert.Equal(t, 2, EstimateTokens("123456789"))
}

func TestTruncateUnderLimit(t *testing.T) {
	s := "short output"
	assert.Equal(t, s, Truncate(s, 100))
}

func TestTruncateOverLimit(t *testing.T) {
	s := strings.Repeat("x", 1000)
	out := Truncate(s, 100)

	assert.True(t, strings.HasSuffix(out, truncationNotice))
	assert.LessOrEqual(t, len(out), 400)
	assert.LessOrEqual(t, EstimateTokens(out), 100)
}

func TestRelevanceKeywordBonuses(t *testing.T) {
	e := makeEntity("lib/accounts/user.ex", "create_user/2", types.TypeFunction)
	e.Signature = "def create_user(attrs, opts)"
	e.Doc = "Creates a user from attrs."

	// name +2.0, signature +1.5, doc +1.0, path +0.5
	assert.InDelta(t, 0.3+5.0, Relevance(e, 0.3, []string{"user"}), 1e-9)
	assert.InDelta(t, 0.3, Relevance(e, 0.3, nil), 1e-9)
	assert.InDelta(t, 0.3, Relevance(e, 0.3, []string{"payment"}), 1e-9)

	// Matching is case-insensitive on both sides.
	assert.InDelta(t, 0.3+5.0, Relevance(e, 0.3, []string{"USER"}), 1e-9)
}

func TestRenderBlocks(t *testing.T) {
	mod := makeEntity("lib/sample.ex", "Sample", types.TypeModule)
	mod.Doc = "A sample module."
	fun := makeEntity("lib/sample.ex", "hello/1", types.TypeFunction)

	out := Render(makeInput(mod, fun), Options{})

	assert.Contains(t, out, "# Repository map")
	assert.Contains(t, out, "2 entities across 1 files")
	assert.Contains(t, out, "module: 1")
	assert.Contains(t, out, "function: 1")
	assert.Contains(t, out, "## Key entities")
	assert.Contains(t, out, "### lib/sample.ex")
	assert.Contains(t, out, "Sample [module] lines 1-8: A sample module.")
	assert.Contains(t, out, "hello/1 [function] lines 1-8")
	assert.Contains(t, out, "## File tree")
	assert.Contains(t, out, "lib/\n  sample.ex (2 entities)")
}

func TestRenderEmptyRepository(t *testing.T) {
	out := Render(Input{Stats: types.Stats{}}, Options{})

	assert.Contains(t, out, "0 entities across 0 files")
	assert.NotContains(t, out, "## Key entities")
	assert.NotContains(t, out, "## File tree")
}

func TestRenderStarTiers(t *testing.T) {
	high := makeEntity("lib/a.ex", "important/0", types.TypeFunction)
	mid := makeEntity("lib/a.ex", "average/0", types.TypeFunction)
	low := makeEntity("lib/a.ex", "minor/0", types.TypeFunction)

	in := makeInput(high, mid, low)
	in.Scores = map[string]float64{
		high.ID: 0.9,
		mid.ID:  0.5,
		low.ID:  0.1,
	}
	out := Render(in, Options{})

	assert.Contains(t, out, "- *** important/0")
	assert.Contains(t, out, "- **  average/0")
	assert.Contains(t, out, "- *   minor/0")
}

func TestRenderKeywordsPromoteFiles(t *testing.T) {
	plain := makeEntity("lib/alpha.ex", "alpha/0", types.TypeFunction)
	match := makeEntity("lib/billing.ex", "charge_invoice/1", types.TypeFunction)

	out := Render(makeInput(plain, match), Options{FocusKeywords: []string{"invoice"}})

	billingAt := strings.Index(out, "### lib/billing.ex")
	alphaAt := strings.Index(out, "### lib/alpha.ex")
	require.GreaterOrEqual(t, billingAt, 0)
	require.GreaterOrEqual(t, alphaAt, 0)
	assert.Less(t, billingAt, alphaAt)
}

func TestRenderCapsEntitiesPerFile(t *testing.T) {
	entities := make([]*types.Entity, 0, 8)
	for i := 0; i < 8; i++ {
		entities = append(entities, makeEntity("lib/big.ex", fmt.Sprintf("fun%d/0", i), types.TypeFunction))
	}

	out := Render(makeInput(entities...), Options{MaxPerFile: 3})

	assert.Equal(t, 3, strings.Count(out, "- *   fun"))
}

func TestRenderStaysWithinTokenLimit(t *testing.T) {
	var entities []*types.Entity
	for f := 0; f < 30; f++ {
		file := fmt.Sprintf("lib/deeply/nested/pkg%02d/module.ex", f)
		for i := 0; i < 5; i++ {
			e := makeEntity(file, fmt.Sprintf("very_long_function_name_%02d_%02d/3", f, i), types.TypeFunction)
			e.Doc = strings.Repeat("words ", 30)
			entities = append(entities, e)
		}
	}

	out := Render(makeInput(entities...), Options{TokenLimit: 100})

	assert.LessOrEqual(t, EstimateTokens(out), 100)
	assert.LessOrEqual(t, len(out), 400)
	assert.True(t, strings.HasSuffix(out, truncationNotice))
}

func TestRenderFileTreeNesting(t *testing.T) {
	a := makeEntity("lib/app/one.ex", "One", types.TypeModule)
	b := makeEntity("lib/app/two.ex", "Two", types.TypeModule)
	c := makeEntity("mix.exs", "Project", types.TypeModule)

	out := Render(makeInput(a, b, c), Options{})

	assert.Contains(t, out, "lib/\n  app/\n    one.ex (1 entity)\n    two.ex (1 entity)\nmix.exs (1 entity)")
}

func TestDocSnippet(t *testing.T) {
	assert.Equal(t, "", docSnippet(""))
	assert.Equal(t, "First line.", docSnippet("First line.\nSecond line."))

	long := strings.Repeat("a", 100)
	got := docSnippet(long)
	assert.Len(t, got, 80)
	assert.True(t, strings.HasSuffix(got, "..."))
}
