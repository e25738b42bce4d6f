package rank

import (
	"math"
	"regexp"
	"strings"

	"github.com/exmap/exmap-mcp/pkg/types"
)

// Policy is the deterministic weighting applied after the iterative phase.
// It is data, not code: the tables below encode which entities matter more
// (modules over helpers, core paths over tests) without touching the graph
// math. Adjusting a weight only reorders the final ranking.
type Policy struct {
	TypeWeights       map[types.EntityType]float64
	PrivatePenalty    float64
	ImportantPaths    []*regexp.Regexp
	UnimportantPaths  []*regexp.Regexp
	ImportantWeight   float64
	UnimportantWeight float64
	DepthDecay        float64
	DepthGrace        int
}

var importantPaths = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)application\.exs?$`),
	regexp.MustCompile(`supervisor`),
	regexp.MustCompile(`(^|/)(router|endpoint)\.exs?$`),
	regexp.MustCompile(`(^|/)core(/|$)`),
}

var unimportantPaths = []*regexp.Regexp{
	regexp.MustCompile(`(^|/)test(/|$)`),
	regexp.MustCompile(`_test\.exs$`),
	regexp.MustCompile(`(^|/)(_build|deps|cover)(/|$)`),
}

// DefaultPolicy returns the standard weighting tables.
func DefaultPolicy() Policy {
	return Policy{
		TypeWeights: map[types.EntityType]float64{
			types.TypeModule:   2.0,
			types.TypeProtocol: 1.8,
			types.TypeImpl:     1.6,
			types.TypeStruct:   1.5,
			types.TypeMacro:    1.3,
			types.TypeFunction: 1.2,
		},
		PrivatePenalty:    0.8,
		ImportantPaths:    importantPaths,
		UnimportantPaths:  unimportantPaths,
		ImportantWeight:   1.8,
		UnimportantWeight: 0.5,
		DepthDecay:        0.95,
		DepthGrace:        2,
	}
}

// Weight computes the combined multiplier for one entity: type weight,
// visibility penalty, location boost or demotion, and a mild penalty for
// deeply nested files.
func (p Policy) Weight(e *types.Entity) float64 {
	w := 1.0
	if tw, ok := p.TypeWeights[e.Type]; ok {
		w = tw
	}
	if e.IsPrivate() && (e.Type == types.TypeFunction || e.Type == types.TypeMacro) {
		w *= p.PrivatePenalty
	}
	w *= p.locationWeight(e.FilePath)
	w *= p.depthWeight(e.FilePath)
	return w
}

// locationWeight boosts entry-point style paths and demotes test and build
// output. Important patterns win when both sets match.
func (p Policy) locationWeight(path string) float64 {
	for _, re := range p.ImportantPaths {
		if re.MatchString(path) {
			return p.ImportantWeight
		}
	}
	for _, re := range p.UnimportantPaths {
		if re.MatchString(path) {
			return p.UnimportantWeight
		}
	}
	return 1.0
}

// depthWeight applies decay^max(segments-grace, 0) so a file at lib/a.ex
// keeps its weight while deeply nested files fade gradually.
func (p Policy) depthWeight(path string) float64 {
	segments := len(strings.Split(path, "/"))
	over := segments - p.DepthGrace
	if over <= 0 {
		return 1.0
	}
	return math.Pow(p.DepthDecay, float64(over))
}
