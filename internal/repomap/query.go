package repomap

import (
	"context"
	"fmt"
	"regexp"
	"sort"

	"github.com/exmap/exmap-mcp/internal/format"
	"github.com/exmap/exmap-mcp/pkg/types"
)

// Related is one entity in the neighborhood of a query target.
type Related struct {
	Entity   *types.Entity
	Distance int
}

// FindEntities searches entity names and signatures with a case-insensitive
// regular expression. A pattern that does not compile is retried as a
// literal substring, so user input never produces a syntax error. Results
// are sorted by name and capped.
func (s *Service) FindEntities(ctx context.Context, repoPath, pattern string) ([]*types.Entity, error) {
	b, err := s.GetOrGenerate(ctx, repoPath)
	if err != nil {
		return nil, err
	}

	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		re = regexp.MustCompile("(?i)" + regexp.QuoteMeta(pattern))
	}

	var matches []*types.Entity
	for _, id := range types.SortedIDs(b.Map.Entities) {
		e := b.Map.Entities[id]
		if re.MatchString(e.Name) || re.MatchString(e.Signature) {
			matches = append(matches, e)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Name != matches[j].Name {
			return matches[i].Name < matches[j].Name
		}
		return matches[i].FilePath < matches[j].FilePath
	})
	if len(matches) > s.opts.MaxFindResults {
		matches = matches[:s.opts.MaxFindResults]
	}
	return matches, nil
}

// GetRelated lists entities within depth hops of entityID, edges treated as
// undirected. depth <= 0 means the default. The target itself is excluded.
func (s *Service) GetRelated(ctx context.Context, repoPath, entityID string, depth int) ([]Related, error) {
	b, err := s.GetOrGenerate(ctx, repoPath)
	if err != nil {
		return nil, err
	}
	if !b.Graph.HasVertex(entityID) {
		return nil, fmt.Errorf("%w: %s", types.ErrEntityNotFound, entityID)
	}
	if depth <= 0 {
		depth = DefaultRelatedDepth
	}

	neighbors := b.Graph.Related(entityID, depth)
	related := make([]Related, 0, len(neighbors))
	for _, n := range neighbors {
		e, ok := b.Graph.Entity(n.ID)
		if !ok {
			continue
		}
		related = append(related, Related{Entity: e, Distance: n.Distance})
	}
	return related, nil
}

// GetContext renders a task-focused view of the repository within the token
// limit. An empty task falls back to pure rank ordering.
func (s *Service) GetContext(ctx context.Context, repoPath, task string, tokenLimit int) (string, error) {
	b, err := s.GetOrGenerate(ctx, repoPath)
	if err != nil {
		return "", err
	}
	if tokenLimit <= 0 {
		tokenLimit = s.opts.TokenLimit
	}
	keywords := ExtractKeywords(task)

	selected := s.selectEntities(b, keywords)
	files := firstSeenFiles(selected, s.opts.MaxContextFiles)
	inFiles := make(map[string]bool, len(files))
	for _, f := range files {
		inFiles[f] = true
	}

	view := make(map[string]*types.Entity, len(selected))
	for _, e := range selected {
		if inFiles[e.FilePath] {
			view[e.ID] = e
		}
	}

	return format.Render(format.Input{
		Entities: view,
		Scores:   b.Scores,
		Stats:    b.Map.Stats,
		Files:    b.Map.Files,
	}, format.Options{
		TokenLimit:    tokenLimit,
		FocusKeywords: keywords,
		MaxFiles:      s.opts.MaxContextFiles,
	}), nil
}

// selectEntities picks the strongest candidates for a task. The selection
// score multiplies the keyword bonus sum by (1 + rank score) so graph
// importance amplifies keyword hits; the formatter displays the additive
// score, not this one.
func (s *Service) selectEntities(b *Bundle, keywords []string) []*types.Entity {
	type scored struct {
		e    *types.Entity
		sel  float64
		base float64
	}
	rows := make([]scored, 0, len(b.Map.Entities))
	for _, id := range types.SortedIDs(b.Map.Entities) {
		e := b.Map.Entities[id]
		base := b.Scores[id]
		sel := format.Relevance(e, 0, keywords) * (1 + base)
		rows = append(rows, scored{e: e, sel: sel, base: base})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].sel != rows[j].sel {
			return rows[i].sel > rows[j].sel
		}
		if rows[i].base != rows[j].base {
			return rows[i].base > rows[j].base
		}
		return rows[i].e.ID < rows[j].e.ID
	})
	if len(rows) > s.opts.MaxContextEntities {
		rows = rows[:s.opts.MaxContextEntities]
	}
	out := make([]*types.Entity, len(rows))
	for i, r := range rows {
		out[i] = r.e
	}
	return out
}

// firstSeenFiles keeps the file of each selected entity in selection order,
// deduplicated and capped.
func firstSeenFiles(selected []*types.Entity, max int) []string {
	seen := make(map[string]bool)
	var files []string
	for _, e := range selected {
		if seen[e.FilePath] {
			continue
		}
		seen[e.FilePath] = true
		files = append(files, e.FilePath)
		if len(files) >= max {
			break
		}
	}
	return files
}
