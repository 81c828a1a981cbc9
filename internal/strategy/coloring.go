package strategy

import (
	"context"
	"fmt"
	"sort"

	"github.com/vk/calibgo/internal/candidate"
	"github.com/vk/calibgo/internal/ctxlog"
)

// Heuristic selects the vertex ordering used by the greedy coloring.
type Heuristic string

const (
	LargestFirst Heuristic = "largest_first"
	SmallestLast Heuristic = "smallest_last"
	Saturation   Heuristic = "saturation"
)

// ParseHeuristic validates a heuristic name from configuration.
func ParseHeuristic(s string) (Heuristic, error) {
	switch Heuristic(s) {
	case LargestFirst, SmallestLast, Saturation:
		return Heuristic(s), nil
	}
	return "", fmt.Errorf("unknown coloring heuristic %q", s)
}

// Coloring groups candidates by greedy graph coloring of the conflict graph.
// An edge joins two candidates that share a physical qubit or a conflicting
// multiplexer. Ties are broken by the candidates' lexical order, so the output
// is reproducible for identical input and heuristic.
type Coloring struct {
	Heuristic Heuristic
}

func (c *Coloring) Name() string { return "coloring/" + string(c.Heuristic) }

func (c *Coloring) Schedule(ctx context.Context, sc *Context, cands []candidate.Pair) ([]Group, error) {
	logger := ctxlog.FromContext(ctx)
	if len(cands) == 0 {
		return nil, nil
	}

	// Stable vertex universe: lexical order by pair id.
	verts := make([]candidate.Pair, len(cands))
	copy(verts, cands)
	candidate.SortPairs(verts)

	n := len(verts)
	adj := make([][]bool, n)
	deg := make([]int, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if conflicts(sc.Topo, verts[i], verts[j]) {
				adj[i][j], adj[j][i] = true, true
				deg[i]++
				deg[j]++
			}
		}
	}

	var colors []int
	switch c.Heuristic {
	case Saturation:
		colors = colorSaturation(n, adj, deg)
	case SmallestLast:
		colors = colorInOrder(n, adj, orderSmallestLast(n, adj, deg))
	default:
		colors = colorInOrder(n, adj, orderLargestFirst(n, deg))
	}

	maxColor := 0
	for _, col := range colors {
		if col > maxColor {
			maxColor = col
		}
	}
	groups := make([]Group, maxColor+1)
	for i, col := range colors {
		groups[col] = append(groups[col], verts[i])
	}
	groups = splitOversized(groups, sc.MaxParallelOps)

	if err := verify(sc.Topo, groups); err != nil {
		return nil, err
	}
	logger.Debug("Coloring schedule complete.",
		"heuristic", string(c.Heuristic), "candidates", n, "groups", len(groups))
	return groups, nil
}

// orderLargestFirst orders vertices by degree descending, index (lexical)
// ascending on ties.
func orderLargestFirst(n int, deg []int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if deg[order[a]] != deg[order[b]] {
			return deg[order[a]] > deg[order[b]]
		}
		return order[a] < order[b]
	})
	return order
}

// orderSmallestLast repeatedly removes a minimum-degree vertex and colors in
// the reverse of the removal order.
func orderSmallestLast(n int, adj [][]bool, deg []int) []int {
	remaining := make([]int, n)
	copy(remaining, deg)
	removed := make([]bool, n)
	order := make([]int, 0, n)

	for len(order) < n {
		best := -1
		for v := 0; v < n; v++ {
			if removed[v] {
				continue
			}
			if best == -1 || remaining[v] < remaining[best] {
				best = v
			}
		}
		removed[best] = true
		for u := 0; u < n; u++ {
			if adj[best][u] && !removed[u] {
				remaining[u]--
			}
		}
		order = append(order, best)
	}

	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// colorInOrder greedily assigns each vertex the smallest color unused by its
// already-colored neighbors.
func colorInOrder(n int, adj [][]bool, order []int) []int {
	colors := make([]int, n)
	for i := range colors {
		colors[i] = -1
	}
	for _, v := range order {
		colors[v] = smallestFree(v, adj, colors)
	}
	return colors
}

// colorSaturation is DSATUR: pick the uncolored vertex with the most distinct
// neighbor colors, break ties by degree descending then index ascending.
func colorSaturation(n int, adj [][]bool, deg []int) []int {
	colors := make([]int, n)
	for i := range colors {
		colors[i] = -1
	}
	for done := 0; done < n; done++ {
		best, bestSat := -1, -1
		for v := 0; v < n; v++ {
			if colors[v] != -1 {
				continue
			}
			sat := saturation(v, adj, colors)
			if sat > bestSat ||
				(sat == bestSat && deg[v] > deg[best]) ||
				(sat == bestSat && deg[v] == deg[best] && v < best) {
				best, bestSat = v, sat
			}
		}
		colors[best] = smallestFree(best, adj, colors)
	}
	return colors
}

func saturation(v int, adj [][]bool, colors []int) int {
	seen := make(map[int]bool)
	for u := range adj[v] {
		if adj[v][u] && colors[u] != -1 {
			seen[colors[u]] = true
		}
	}
	return len(seen)
}

func smallestFree(v int, adj [][]bool, colors []int) int {
	used := make(map[int]bool)
	for u := range adj[v] {
		if adj[v][u] && colors[u] != -1 {
			used[colors[u]] = true
		}
	}
	for c := 0; ; c++ {
		if !used[c] {
			return c
		}
	}
}
