package layout

import "crmgraph/domain/graph"

type cellKey struct {
	cx, cy int
}

// grid is a uniform spatial hash used to bound the cost of pairwise
// passes: only nodes within neighboring cells are compared, so a step
// stays cheap as the graph grows.
type grid struct {
	cellSize float64
	cells    map[cellKey][]*simNode
	keys     []cellKey
}

func buildGrid(nodes map[graph.NodeID]*simNode, cellSize float64) *grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	g := &grid{
		cellSize: cellSize,
		cells:    make(map[cellKey][]*simNode),
	}
	for _, n := range nodes {
		k := g.keyFor(n.x, n.y)
		if _, ok := g.cells[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.cells[k] = append(g.cells[k], n)
	}
	return g
}

func (g *grid) keyFor(x, y float64) cellKey {
	cx := int(x / g.cellSize)
	cy := int(y / g.cellSize)
	if x < 0 {
		cx--
	}
	if y < 0 {
		cy--
	}
	return cellKey{cx: cx, cy: cy}
}

// forEachNeighborPair invokes fn once per unordered node pair located
// in the same or adjacent cells.
func (g *grid) forEachNeighborPair(fn func(a, b *simNode)) {
	for _, k := range g.keys {
		nodes := g.cells[k]

		// Pairs within the cell.
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				fn(nodes[i], nodes[j])
			}
		}

		// Pairs against half the neighboring cells, so each cell pair
		// is visited exactly once.
		for _, d := range [...]cellKey{{1, 0}, {1, 1}, {0, 1}, {-1, 1}} {
			other, ok := g.cells[cellKey{cx: k.cx + d.cx, cy: k.cy + d.cy}]
			if !ok {
				continue
			}
			for _, a := range nodes {
				for _, b := range other {
					fn(a, b)
				}
			}
		}
	}
}
