package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgraph/application/staging"
	"crmgraph/domain/graph"
)

type fakeLayout struct {
	pinned   map[graph.NodeID][2]float64
	unpinned []graph.NodeID
}

func newFakeLayout() *fakeLayout {
	return &fakeLayout{pinned: make(map[graph.NodeID][2]float64)}
}

func (f *fakeLayout) Pin(id graph.NodeID, x, y float64) {
	f.pinned[id] = [2]float64{x, y}
}

func (f *fakeLayout) Unpin(id graph.NodeID) {
	delete(f.pinned, id)
	f.unpinned = append(f.unpinned, id)
}

type fakeStager struct {
	adds     []graph.Pair
	deletes  []string
	existing map[graph.Pair]staging.EffectiveEdge

	addResult    bool
	deleteResult bool
}

func newFakeStager() *fakeStager {
	return &fakeStager{
		existing:     make(map[graph.Pair]staging.EffectiveEdge),
		addResult:    true,
		deleteResult: true,
	}
}

func (f *fakeStager) StageAdd(sourceID, targetID graph.NodeID) (bool, error) {
	pair, err := graph.NewPair(sourceID, targetID)
	if err != nil {
		return false, err
	}
	f.adds = append(f.adds, pair)
	return f.addResult, nil
}

func (f *fakeStager) StageDelete(id string) bool {
	f.deletes = append(f.deletes, id)
	return f.deleteResult
}

func (f *fakeStager) EffectiveEdgeForPair(pair graph.Pair) (staging.EffectiveEdge, bool) {
	e, ok := f.existing[pair]
	return e, ok
}

func newTestController() (*Controller, *fakeLayout, *fakeStager) {
	layout := newFakeLayout()
	stager := newFakeStager()
	return New(layout, stager, nil), layout, stager
}

func TestControllerStartsInDragMode(t *testing.T) {
	c, _, _ := newTestController()
	assert.Equal(t, ModeDrag, c.Mode())
	_, armed := c.Anchor()
	assert.False(t, armed)
}

func TestControllerDragPinsAndReleases(t *testing.T) {
	c, layout, _ := newTestController()

	c.DragStart("a", 10, 20)
	assert.Equal(t, [2]float64{10, 20}, layout.pinned["a"])

	c.DragMove("a", 30, 40)
	assert.Equal(t, [2]float64{30, 40}, layout.pinned["a"])

	c.DragEnd("a")
	_, stillPinned := layout.pinned["a"]
	assert.False(t, stillPinned)
}

func TestControllerDragModeClickSelectsNode(t *testing.T) {
	c, _, stager := newTestController()

	var selected graph.NodeID
	c.OnNodeSelected(func(id graph.NodeID) { selected = id })

	c.Click(NodeTarget("a"))
	assert.Equal(t, graph.NodeID("a"), selected)
	assert.Empty(t, stager.adds)
}

func TestControllerConnectFirstClickArmsAnchor(t *testing.T) {
	c, _, _ := newTestController()
	c.SetMode(ModeConnect)

	c.Click(NodeTarget("a"))
	anchor, armed := c.Anchor()
	require.True(t, armed)
	assert.Equal(t, graph.NodeID("a"), anchor)
}

func TestControllerConnectSecondClickStagesAdd(t *testing.T) {
	c, _, stager := newTestController()
	c.SetMode(ModeConnect)

	edits := 0
	c.OnStagingEdit(func() { edits++ })

	c.Click(NodeTarget("a"))
	c.Click(NodeTarget("b"))

	require.Len(t, stager.adds, 1)
	assert.Equal(t, graph.Pair{A: "a", B: "b"}, stager.adds[0])
	assert.Equal(t, 1, edits)

	_, armed := c.Anchor()
	assert.False(t, armed, "anchor resets after the pair completes")
}

func TestControllerConnectTogglesExistingEdgeToDelete(t *testing.T) {
	c, _, stager := newTestController()
	c.SetMode(ModeConnect)

	pair, err := graph.NewPair("a", "b")
	require.NoError(t, err)
	stager.existing[pair] = staging.EffectiveEdge{ID: "e1", SourceID: "a", TargetID: "b"}

	c.Click(NodeTarget("b"))
	c.Click(NodeTarget("a"))

	assert.Empty(t, stager.adds)
	require.Len(t, stager.deletes, 1)
	assert.Equal(t, "e1", stager.deletes[0])
}

func TestControllerConnectSelfClickCancels(t *testing.T) {
	c, _, stager := newTestController()
	c.SetMode(ModeConnect)

	c.Click(NodeTarget("a"))
	c.Click(NodeTarget("a"))

	_, armed := c.Anchor()
	assert.False(t, armed)
	assert.Empty(t, stager.adds)
	assert.Empty(t, stager.deletes)
}

func TestControllerCanvasClickCancelsAnchor(t *testing.T) {
	c, _, _ := newTestController()
	c.SetMode(ModeConnect)

	c.Click(NodeTarget("a"))
	c.Click(CanvasTarget())

	_, armed := c.Anchor()
	assert.False(t, armed)
}

func TestControllerEdgeClickIsIgnored(t *testing.T) {
	c, _, stager := newTestController()
	c.SetMode(ModeConnect)

	c.Click(NodeTarget("a"))
	c.Click(EdgeTarget("e1"))

	// The anchor survives an edge click; only canvas or nodes matter.
	anchor, armed := c.Anchor()
	assert.True(t, armed)
	assert.Equal(t, graph.NodeID("a"), anchor)
	assert.Empty(t, stager.deletes)
}

func TestControllerDoubleClickDeletesEdgeInBothModes(t *testing.T) {
	for _, mode := range []Mode{ModeDrag, ModeConnect} {
		c, _, stager := newTestController()
		c.SetMode(mode)

		edits := 0
		c.OnStagingEdit(func() { edits++ })

		c.DoubleClick(EdgeTarget("e1"))
		require.Len(t, stager.deletes, 1)
		assert.Equal(t, "e1", stager.deletes[0])
		assert.Equal(t, 1, edits)

		c.DoubleClick(NodeTarget("a"))
		assert.Len(t, stager.deletes, 1, "double-clicking a node deletes nothing")
	}
}

func TestControllerDoubleClickNoEditNotification(t *testing.T) {
	c, _, stager := newTestController()
	stager.deleteResult = false

	edits := 0
	c.OnStagingEdit(func() { edits++ })

	c.DoubleClick(EdgeTarget("already-deleted"))
	assert.Zero(t, edits)
}

func TestControllerModeSwitchResetsStateAndUnpins(t *testing.T) {
	c, layout, _ := newTestController()

	c.DragStart("a", 1, 2)
	c.SetMode(ModeConnect)
	assert.Contains(t, layout.unpinned, graph.NodeID("a"))

	c.Click(NodeTarget("b"))
	_, armed := c.Anchor()
	require.True(t, armed)

	c.SetMode(ModeDrag)
	_, armed = c.Anchor()
	assert.False(t, armed)

	// Setting the current mode again is a no-op.
	unpins := len(layout.unpinned)
	c.SetMode(ModeDrag)
	assert.Len(t, layout.unpinned, unpins)
}
