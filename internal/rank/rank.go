// Package rank scores graph vertices with a damped PageRank iteration and a
// fixed post-weighting policy, then normalizes the results into [0, 1].
package rank

import (
	"math"

	"github.com/exmap/exmap-mcp/internal/graph"
)

const (
	DefaultDamping       = 0.85
	DefaultMaxIterations = 100
	DefaultTolerance     = 1e-6
)

// Config tunes the iterative phase. Zero values fall back to the defaults.
type Config struct {
	Damping       float64
	MaxIterations int
	Tolerance     float64
}

// DefaultConfig returns the standard damping, iteration cap and tolerance.
func DefaultConfig() Config {
	return Config{
		Damping:       DefaultDamping,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

func (c Config) withDefaults() Config {
	if c.Damping <= 0 || c.Damping >= 1 {
		c.Damping = DefaultDamping
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.Tolerance <= 0 {
		c.Tolerance = DefaultTolerance
	}
	return c
}

// Rank computes an importance score for every vertex of g.
//
// The iterative phase starts every vertex at 1/N and repeats
//
//	score'(v) = (1-d)/N + d * sum over in-neighbors u of score(u)/outdeg(u)
//
// until every vertex moves less than the tolerance or the iteration cap is
// hit. A vertex with no outgoing edges contributes nothing anywhere; its
// mass drains instead of being redistributed. Afterwards each raw score is
// multiplied by the policy weight for its entity and the results are
// min-max normalized, a flat distribution mapping to exactly 0.5.
func Rank(g *graph.Graph, cfg Config, policy Policy) map[string]float64 {
	cfg = cfg.withDefaults()

	ids := g.VertexIDs()
	n := len(ids)
	if n == 0 {
		return map[string]float64{}
	}

	idx := make(map[string]int, n)
	for i, id := range ids {
		idx[id] = i
	}
	// Successor index lists; a parallel edge contributes twice.
	targets := make([][]int, n)
	for i, id := range ids {
		for _, e := range g.OutEdges(id) {
			targets[i] = append(targets[i], idx[e.To])
		}
	}

	scores := make([]float64, n)
	next := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / float64(n)
	}
	teleport := (1.0 - cfg.Damping) / float64(n)

	for iter := 0; iter < cfg.MaxIterations; iter++ {
		for i := range next {
			next[i] = 0
		}
		for i, succ := range targets {
			if len(succ) == 0 {
				continue
			}
			contrib := scores[i] / float64(len(succ))
			for _, t := range succ {
				next[t] += contrib
			}
		}
		converged := true
		for i := range next {
			next[i] = teleport + cfg.Damping*next[i]
			if math.Abs(next[i]-scores[i]) >= cfg.Tolerance {
				converged = false
			}
		}
		scores, next = next, scores
		if converged {
			break
		}
	}

	weighted := make(map[string]float64, n)
	for i, id := range ids {
		w := 1.0
		if e, ok := g.Entity(id); ok {
			w = policy.Weight(e)
		}
		weighted[id] = scores[i] * w
	}
	return normalize(weighted)
}

// normalize min-max scales scores into [0, 1] in place. When every score is
// identical there is no spread to map, so all vertices get 0.5.
func normalize(scores map[string]float64) map[string]float64 {
	if len(scores) == 0 {
		return scores
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, s := range scores {
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if hi == lo {
		for id := range scores {
			scores[id] = 0.5
		}
		return scores
	}
	span := hi - lo
	for id, s := range scores {
		scores[id] = (s - lo) / span
	}
	return scores
}
