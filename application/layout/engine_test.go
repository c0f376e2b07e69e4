package layout

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgraph/domain/graph"
)

// springOnlyConfig disables everything but the spring force so the
// equilibrium distance is the rest length. Near-zero values are used
// where zero would mean "use the default".
func springOnlyConfig() Config {
	return Config{
		Repulsion:       1e-9,
		RepulsionCutoff: 1,
		SpringLength:    80,
		SpringStiffness: 0.05,
		Damping:         0.85,
		CenterStrength:  1e-9,
		NodeRadius:      1,
		CollideMargin:   1e-9,
		AlphaDecay:      0.0005,
	}
}

func pairOf(t *testing.T, a, b graph.NodeID) graph.Pair {
	t.Helper()
	p, err := graph.NewPair(a, b)
	require.NoError(t, err)
	return p
}

func positionOf(t *testing.T, e *Engine, id graph.NodeID) NodePosition {
	t.Helper()
	for _, p := range e.Positions() {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("node %s not in engine", id)
	return NodePosition{}
}

func TestEngineLinkedNodesSettleAtRestLength(t *testing.T) {
	e := New(springOnlyConfig(), nil)
	e.SetTopology([]NodePlacement{
		{ID: "a", X: 300, Y: 300},
		{ID: "b", X: 500, Y: 300},
	}, []graph.Pair{pairOf(t, "a", "b")})

	for i := 0; i < 1500; i++ {
		e.Step()
	}

	a := positionOf(t, e, "a")
	b := positionOf(t, e, "b")
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	assert.InDelta(t, 80, dist, 2.0)
}

func TestEnginePinnedNodeHeldExactly(t *testing.T) {
	e := New(DefaultConfig(), nil)
	e.SetTopology([]NodePlacement{
		{ID: "a", X: 300, Y: 300},
		{ID: "b", X: 500, Y: 300},
	}, []graph.Pair{pairOf(t, "a", "b")})

	e.Pin("a", 100, 100)
	for i := 0; i < 20; i++ {
		e.Step()
		a := positionOf(t, e, "a")
		assert.Equal(t, 100.0, a.X)
		assert.Equal(t, 100.0, a.Y)
	}
}

func TestEngineUnpinKeepsImpliedVelocity(t *testing.T) {
	e := New(springOnlyConfig(), nil)
	e.SetTopology([]NodePlacement{{ID: "a", X: 0, Y: 0}}, nil)

	// Drag the node rightward, then release.
	e.Pin("a", 0, 0)
	e.Step()
	e.Pin("a", 10, 0)
	e.Step()
	e.Unpin("a")
	e.Step()

	a := positionOf(t, e, "a")
	assert.Greater(t, a.X, 10.0, "released node should carry its drag velocity")
}

func TestEngineEmptySetEmitsNoTicks(t *testing.T) {
	e := New(DefaultConfig(), nil)
	ticks := 0
	e.OnTick(func([]NodePosition) { ticks++ })

	for i := 0; i < 5; i++ {
		e.Step()
	}
	assert.Zero(t, ticks)
}

func TestEngineReheatsOnLinkChange(t *testing.T) {
	e := New(DefaultConfig(), nil)
	placements := []NodePlacement{
		{ID: "a", X: 100, Y: 100},
		{ID: "b", X: 600, Y: 400},
	}
	e.SetTopology(placements, nil)

	for i := 0; i < 400; i++ {
		e.Step()
	}
	require.True(t, e.Settled())

	e.SetTopology(placements, []graph.Pair{pairOf(t, "a", "b")})
	assert.False(t, e.Settled(), "a new link should inject energy")
}

func TestEngineSameTopologyDoesNotReheat(t *testing.T) {
	e := New(DefaultConfig(), nil)
	placements := []NodePlacement{
		{ID: "a", X: 100, Y: 100},
		{ID: "b", X: 600, Y: 400},
	}
	links := []graph.Pair{pairOf(t, "a", "b")}
	e.SetTopology(placements, links)

	for i := 0; i < 400; i++ {
		e.Step()
	}
	require.True(t, e.Settled())

	e.SetTopology(placements, links)
	assert.True(t, e.Settled())
}

func TestEnginePositionsSurviveTopologyChange(t *testing.T) {
	e := New(DefaultConfig(), nil)
	e.SetTopology([]NodePlacement{{ID: "a", X: 50, Y: 60}}, nil)
	for i := 0; i < 10; i++ {
		e.Step()
	}
	before := positionOf(t, e, "a")

	// The placement for a known node is ignored; only newcomers use it.
	e.SetTopology([]NodePlacement{
		{ID: "a", X: 999, Y: 999},
		{ID: "b", X: 5, Y: 5},
	}, nil)

	after := positionOf(t, e, "a")
	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Y, after.Y)

	b := positionOf(t, e, "b")
	assert.Equal(t, 5.0, b.X)
	assert.Equal(t, 5.0, b.Y)
}

func TestEngineRemovedNodeIsDestroyed(t *testing.T) {
	e := New(DefaultConfig(), nil)
	e.SetTopology([]NodePlacement{
		{ID: "a", X: 1, Y: 1},
		{ID: "b", X: 2, Y: 2},
	}, nil)

	e.SetTopology([]NodePlacement{{ID: "a", X: 1, Y: 1}}, nil)

	positions := e.Positions()
	require.Len(t, positions, 1)
	assert.Equal(t, graph.NodeID("a"), positions[0].ID)
}

func TestEngineCollisionEnforcesMinSeparation(t *testing.T) {
	e := New(DefaultConfig(), nil)
	e.SetTopology([]NodePlacement{
		{ID: "a", X: 400, Y: 300},
		{ID: "b", X: 410, Y: 300},
	}, nil)

	for i := 0; i < 100; i++ {
		e.Step()
	}

	a := positionOf(t, e, "a")
	b := positionOf(t, e, "b")
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	// min separation is two radii plus the margin: 2*40 + 8.
	assert.GreaterOrEqual(t, dist, 88.0-1e-6)
}

func TestGridVisitsEachNeighborPairOnce(t *testing.T) {
	nodes := map[graph.NodeID]*simNode{
		"a": {id: "a", x: -5, y: -5},
		"b": {id: "b", x: 5, y: 5},
		"c": {id: "c", x: 3, y: 3},
	}

	counts := make(map[[2]graph.NodeID]int)
	g := buildGrid(nodes, 480)
	g.forEachNeighborPair(func(a, b *simNode) {
		key := [2]graph.NodeID{a.id, b.id}
		if b.id < a.id {
			key = [2]graph.NodeID{b.id, a.id}
		}
		counts[key]++
	})

	require.Len(t, counts, 3)
	for pair, n := range counts {
		assert.Equal(t, 1, n, "pair %v visited more than once", pair)
	}
}
