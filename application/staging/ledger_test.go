package staging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

func authoritativeEdges() []graph.GraphEdge {
	return []graph.GraphEdge{
		{ID: "e1", SourceID: "a", TargetID: "b"},
		{ID: "e2", SourceID: "b", TargetID: "c"},
	}
}

func TestLedgerStageAddAssignsTempID(t *testing.T) {
	l := NewLedger(nil)

	staged, err := l.StageAdd("a", "b")
	require.NoError(t, err)
	require.True(t, staged)

	edges := l.EffectiveEdges()
	require.Len(t, edges, 1)
	assert.True(t, strings.HasPrefix(edges[0].ID, TempIDPrefix))
	assert.True(t, edges[0].Pending)
	assert.Equal(t, 1, l.Count())
}

func TestLedgerStageAddRejectsSelfEdge(t *testing.T) {
	l := NewLedger(nil)

	staged, err := l.StageAdd("a", "a")
	assert.False(t, staged)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Zero(t, l.Count())
}

func TestLedgerStageAddIgnoresDuplicatePair(t *testing.T) {
	l := NewLedger(nil)

	staged, err := l.StageAdd("a", "b")
	require.NoError(t, err)
	require.True(t, staged)

	// Same pair in reverse click order is the same edge.
	staged, err = l.StageAdd("b", "a")
	require.NoError(t, err)
	assert.False(t, staged)
	assert.Equal(t, 1, l.Count())
}

func TestLedgerStageAddIgnoresExistingAuthoritativeEdge(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	staged, err := l.StageAdd("b", "a")
	require.NoError(t, err)
	assert.False(t, staged)
	assert.Zero(t, l.Count())
}

func TestLedgerReAddAfterStagedDeleteKeepsBothChanges(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	require.True(t, l.StageDelete("e1"))
	staged, err := l.StageAdd("a", "b")
	require.NoError(t, err)
	require.True(t, staged)

	// Deleting then re-adding the same pair is a real delete followed
	// by a real create, not a no-op.
	batch := Consolidate(l.Drain())
	require.Len(t, batch.Deletes, 1)
	assert.Equal(t, graph.EdgeID("e1"), batch.Deletes[0])
	require.Len(t, batch.Creates, 1)
	assert.Equal(t, graph.Pair{A: "a", B: "b"}, batch.Creates[0].Pair)
}

func TestLedgerTempDeleteCancelsPendingAdd(t *testing.T) {
	l := NewLedger(nil)

	staged, err := l.StageAdd("a", "b")
	require.NoError(t, err)
	require.True(t, staged)
	tempID := l.EffectiveEdges()[0].ID

	require.True(t, l.StageDelete(tempID))
	assert.Zero(t, l.Count(), "cancelling a pending add leaves nothing staged")
	assert.Empty(t, l.EffectiveEdges())

	// Nothing reaches the server for a stage-then-unstage sequence.
	batch := Consolidate(l.Drain())
	assert.True(t, batch.Empty())
}

func TestLedgerStageDeleteUnknownEdgeIgnored(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	assert.False(t, l.StageDelete("missing"))
	assert.False(t, l.StageDelete(TempIDPrefix+"missing"))
	assert.Zero(t, l.Count())
}

func TestLedgerStageDeleteTwiceIsNoOp(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	assert.True(t, l.StageDelete("e1"))
	assert.False(t, l.StageDelete("e1"))
	assert.Equal(t, 1, l.Count())
}

func TestLedgerEffectiveEdgesMergesStagedState(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	require.True(t, l.StageDelete("e2"))
	staged, err := l.StageAdd("c", "a")
	require.NoError(t, err)
	require.True(t, staged)

	edges := l.EffectiveEdges()
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.False(t, edges[0].Pending)
	assert.True(t, edges[1].Pending)
	assert.Equal(t, graph.Pair{A: "a", B: "c"}, edges[1].Pair())
}

func TestLedgerRefetchSatisfiesPendingAdd(t *testing.T) {
	l := NewLedger(nil)

	staged, err := l.StageAdd("a", "b")
	require.NoError(t, err)
	require.True(t, staged)

	// The server now reports the edge the add was staged for; the
	// effective list must not show it twice.
	l.SetAuthoritative([]graph.GraphEdge{{ID: "e9", SourceID: "b", TargetID: "a"}})

	edges := l.EffectiveEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, "e9", edges[0].ID)
	assert.False(t, edges[0].Pending)
}

func TestLedgerEffectiveEdgeForPair(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	pair, err := graph.NewPair("b", "a")
	require.NoError(t, err)

	eff, ok := l.EffectiveEdgeForPair(pair)
	require.True(t, ok)
	assert.Equal(t, "e1", eff.ID)

	require.True(t, l.StageDelete("e1"))
	_, ok = l.EffectiveEdgeForPair(pair)
	assert.False(t, ok)
}

func TestLedgerDrainIsAtomic(t *testing.T) {
	l := NewLedger(nil)
	l.SetAuthoritative(authoritativeEdges())

	require.True(t, l.StageDelete("e1"))
	staged, err := l.StageAdd("a", "c")
	require.NoError(t, err)
	require.True(t, staged)

	changes := l.Drain()
	assert.Len(t, changes, 2)
	assert.Zero(t, l.Count())
	assert.Empty(t, l.Drain())
}

func TestConsolidateDeduplicates(t *testing.T) {
	pairAB, err := graph.NewPair("a", "b")
	require.NoError(t, err)

	changes := []PendingChange{
		{Kind: PendingAdd, TempID: TempIDPrefix + "1", Pair: pairAB},
		{Kind: PendingAdd, TempID: TempIDPrefix + "2", Pair: pairAB},
		{Kind: PendingDelete, EdgeID: "e1"},
		{Kind: PendingDelete, EdgeID: "e1"},
		{Kind: PendingDelete}, // zero edge ID never reaches the server
	}

	batch := Consolidate(changes)
	assert.Len(t, batch.Creates, 1)
	assert.Len(t, batch.Deletes, 1)
	assert.Equal(t, 2, batch.Size())
}
