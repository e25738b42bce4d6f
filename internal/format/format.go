// Package format renders scored entity sets as token-bounded text for
// consumption by coding agents.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/exmap/exmap-mcp/pkg/types"
)

const (
	// charsPerToken approximates tokens as characters divided by four.
	charsPerToken = 4

	// truncationReserve is subtracted from the character budget before
	// cutting, leaving room for the notice.
	truncationReserve = 100

	truncationNotice = "\n... [truncated to fit token limit]"
)

// DefaultTokenLimit bounds rendered output when the caller does not choose.
const DefaultTokenLimit = 4000

// Keyword hit bonuses, strongest field first.
const (
	nameBonus      = 2.0
	signatureBonus = 1.5
	docBonus       = 1.0
	pathBonus      = 0.5
)

const (
	defaultMaxFiles   = 20
	defaultMaxPerFile = 10
)

// Options controls one rendering.
type Options struct {
	// TokenLimit bounds the estimated token count of the output.
	TokenLimit int
	// FocusKeywords bias entity ordering toward a task description.
	FocusKeywords []string
	// MaxFiles caps the file sections in the key-entity block.
	MaxFiles int
	// MaxPerFile caps entities listed per file section.
	MaxPerFile int
}

func (o Options) withDefaults() Options {
	if o.TokenLimit <= 0 {
		o.TokenLimit = DefaultTokenLimit
	}
	if o.MaxFiles <= 0 {
		o.MaxFiles = defaultMaxFiles
	}
	if o.MaxPerFile <= 0 {
		o.MaxPerFile = defaultMaxPerFile
	}
	return o
}

// Input is the slice of one repository map handed to the renderer: the
// entities to show, their rank scores, whole-repository statistics for the
// summary header, and the file list for the tree block.
type Input struct {
	Entities map[string]*types.Entity
	Scores   map[string]float64
	Stats    types.Stats
	Files    []string
}

// EstimateTokens approximates the token count of s as len(s)/4.
func EstimateTokens(s string) int {
	return len(s) / charsPerToken
}

// Relevance is the display score of one entity: its rank score plus a fixed
// bonus per keyword hit, summed over all keywords. Name hits weigh most,
// then signature, doc and path.
func Relevance(e *types.Entity, base float64, keywords []string) float64 {
	score := base
	if len(keywords) == 0 {
		return score
	}
	name := strings.ToLower(e.Name)
	sig := strings.ToLower(e.Signature)
	doc := strings.ToLower(e.Doc)
	path := strings.ToLower(e.FilePath)
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(name, kw) {
			score += nameBonus
		}
		if strings.Contains(sig, kw) {
			score += signatureBonus
		}
		if strings.Contains(doc, kw) {
			score += docBonus
		}
		if strings.Contains(path, kw) {
			score += pathBonus
		}
	}
	return score
}

// Render produces the three-block text view: summary header, key entities
// grouped by file, and the annotated file tree. The result never exceeds the
// token limit.
func Render(in Input, opts Options) string {
	opts = opts.withDefaults()
	var b strings.Builder
	writeSummary(&b, in.Stats)
	writeKeyEntities(&b, in, opts)
	writeFileTree(&b, in.Files, in.Stats.ByFile)
	return Truncate(b.String(), opts.TokenLimit)
}

// Truncate enforces the character budget implied by the token limit. Output
// over budget is cut and a fixed notice appended; the result always fits
// limit*4 characters.
func Truncate(s string, tokenLimit int) string {
	if tokenLimit <= 0 {
		tokenLimit = DefaultTokenLimit
	}
	budget := tokenLimit * charsPerToken
	if len(s) <= budget {
		return s
	}
	cut := budget - truncationReserve
	if cut < 0 {
		cut = 0
	}
	return s[:cut] + truncationNotice
}

func writeSummary(b *strings.Builder, stats types.Stats) {
	b.WriteString("# Repository map\n\n")
	fmt.Fprintf(b, "%d entities across %d files, %.1f lines per entity on average.\n",
		stats.EntityCount, stats.FileCount, stats.AvgEntityLines)

	var parts []string
	for _, t := range types.ValidEntityTypes {
		if n := stats.ByType[t]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", t, n))
		}
	}
	if len(parts) > 0 {
		b.WriteString("By type: " + strings.Join(parts, ", ") + "\n")
	}
}

func writeKeyEntities(b *strings.Builder, in Input, opts Options) {
	if len(in.Entities) == 0 {
		return
	}
	b.WriteString("\n## Key entities\n")

	type row struct {
		e     *types.Entity
		score float64
	}
	byFile := make(map[string][]row)
	fileScore := make(map[string]float64)
	for _, id := range types.SortedIDs(in.Entities) {
		e := in.Entities[id]
		score := Relevance(e, in.Scores[id], opts.FocusKeywords)
		byFile[e.FilePath] = append(byFile[e.FilePath], row{e, score})
		fileScore[e.FilePath] += score
	}

	files := make([]string, 0, len(byFile))
	for f := range byFile {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool {
		if fileScore[files[i]] != fileScore[files[j]] {
			return fileScore[files[i]] > fileScore[files[j]]
		}
		return files[i] < files[j]
	})
	if len(files) > opts.MaxFiles {
		files = files[:opts.MaxFiles]
	}

	for _, f := range files {
		fmt.Fprintf(b, "\n### %s\n", f)
		rows := byFile[f]
		sort.SliceStable(rows, func(i, j int) bool {
			if rows[i].score != rows[j].score {
				return rows[i].score > rows[j].score
			}
			if rows[i].e.LineStart != rows[j].e.LineStart {
				return rows[i].e.LineStart < rows[j].e.LineStart
			}
			return rows[i].e.Name < rows[j].e.Name
		})
		if len(rows) > opts.MaxPerFile {
			rows = rows[:opts.MaxPerFile]
		}
		for _, r := range rows {
			writeEntityLine(b, r.e, r.score)
		}
	}
}

func writeEntityLine(b *strings.Builder, e *types.Entity, score float64) {
	fmt.Fprintf(b, "- %-3s %s [%s] lines %d-%d", stars(score), e.Name, e.Type, e.LineStart, e.LineEnd)
	if snippet := docSnippet(e.Doc); snippet != "" {
		b.WriteString(": " + snippet)
	}
	b.WriteByte('\n')
}

// stars maps a score onto the three-tier importance marker.
func stars(score float64) string {
	switch {
	case score > 0.7:
		return "***"
	case score > 0.4:
		return "**"
	default:
		return "*"
	}
}

// docSnippet reduces a doc attribute to its first line, capped at 80 chars.
func docSnippet(doc string) string {
	if doc == "" {
		return ""
	}
	line := doc
	if i := strings.IndexByte(doc, '\n'); i >= 0 {
		line = doc[:i]
	}
	line = strings.TrimSpace(line)
	if len(line) > 80 {
		line = line[:77] + "..."
	}
	return line
}

func writeFileTree(b *strings.Builder, files []string, perFile map[string]int) {
	if len(files) == 0 {
		return
	}
	b.WriteString("\n## File tree\n\n")
	renderTree(b, buildTree(files), 0, perFile)
}

type treeNode struct {
	children map[string]*treeNode
	path     string
	isFile   bool
}

func buildTree(files []string) *treeNode {
	root := &treeNode{children: map[string]*treeNode{}}
	for _, f := range files {
		parts := strings.Split(f, "/")
		cur := root
		for i, part := range parts {
			next, ok := cur.children[part]
			if !ok {
				next = &treeNode{children: map[string]*treeNode{}}
				cur.children[part] = next
			}
			if i == len(parts)-1 {
				next.isFile = true
				next.path = f
			}
			cur = next
		}
	}
	return root
}

func renderTree(b *strings.Builder, node *treeNode, depth int, perFile map[string]int) {
	names := make([]string, 0, len(node.children))
	for name := range node.children {
		names = append(names, name)
	}
	sort.Strings(names)

	indent := strings.Repeat("  ", depth)
	for _, name := range names {
		child := node.children[name]
		if child.isFile {
			fmt.Fprintf(b, "%s%s (%s)\n", indent, name, pluralize(perFile[child.path], "entity", "entities"))
		} else {
			fmt.Fprintf(b, "%s%s/\n", indent, name)
		}
		if len(child.children) > 0 {
			renderTree(b, child, depth+1, perFile)
		}
	}
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return fmt.Sprintf("%d %s", n, plural)
}
