// Package mapper converts the server-supplied node/edge lists into the
// simulation and render model. Positions are merged by node identity,
// never replaced wholesale, so re-fetches don't cause visual jumps.
package mapper

import (
	"math"

	"crmgraph/application/layout"
	"crmgraph/application/staging"
	"crmgraph/domain/graph"
)

// BuildPlacements produces a layout placement for every node. A node
// that already has a cached simulated position keeps it; a node the
// server reports with a last-known position enters there; remaining
// newcomers are distributed evenly on a ring around the viewport
// center so they don't pile up at the origin.
func BuildPlacements(nodes []graph.GraphNode, cached map[graph.NodeID]graph.Position, width, height float64) []layout.NodePlacement {
	placements := make([]layout.NodePlacement, len(nodes))
	var newcomers []int

	for i, n := range nodes {
		placements[i].ID = n.ID
		switch {
		case hasCached(cached, n.ID):
			p := cached[n.ID]
			placements[i].X = p.X
			placements[i].Y = p.Y
		case n.Position != nil:
			placements[i].X = n.Position.X
			placements[i].Y = n.Position.Y
		default:
			newcomers = append(newcomers, i)
		}
	}

	if len(newcomers) > 0 {
		cx, cy := width/2, height/2
		radius := math.Min(width, height) / 4
		if radius <= 0 {
			radius = 100
		}
		for i, idx := range newcomers {
			angle := 2 * math.Pi * float64(i) / float64(len(newcomers))
			placements[idx].X = cx + radius*math.Cos(angle)
			placements[idx].Y = cy + radius*math.Sin(angle)
		}
	}

	return placements
}

func hasCached(cached map[graph.NodeID]graph.Position, id graph.NodeID) bool {
	if cached == nil {
		return false
	}
	_, ok := cached[id]
	return ok
}

// BuildLinks derives the simulation link set from the effective edge
// list. A link exists as long as some edge, real or staged, connects
// the two nodes; duplicate pairs collapse to one link.
func BuildLinks(edges []staging.EffectiveEdge) []graph.Pair {
	seen := make(map[graph.Pair]bool, len(edges))
	links := make([]graph.Pair, 0, len(edges))
	for _, e := range edges {
		pair, err := graph.NewPair(e.SourceID, e.TargetID)
		if err != nil || seen[pair] {
			continue
		}
		seen[pair] = true
		links = append(links, pair)
	}
	return links
}
