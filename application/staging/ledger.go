// Package staging holds the in-memory ledger of uncommitted edge
// additions and deletions, and computes the effective edge list that
// merges authoritative and staged state.
package staging

import (
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

// TempIDPrefix marks edge IDs that exist only in the ledger.
const TempIDPrefix = "pending-"

// PendingKind discriminates the PendingChange union.
type PendingKind int

const (
	// PendingAdd stages the creation of a new edge.
	PendingAdd PendingKind = iota
	// PendingDelete stages the deletion of an authoritative edge.
	PendingDelete
)

// PendingChange is one uncommitted topology change. Kind selects which
// fields are meaningful: an Add carries TempID and Pair, a Delete
// carries EdgeID.
type PendingChange struct {
	Kind   PendingKind
	TempID string
	Pair   graph.Pair
	Label  string
	EdgeID graph.EdgeID
}

// EffectiveEdge is one entry of the rendered edge set: either an
// authoritative edge that is not staged for deletion, or a staged
// addition not yet satisfied by an authoritative edge.
type EffectiveEdge struct {
	ID       string
	SourceID graph.NodeID
	TargetID graph.NodeID
	Label    string
	Pending  bool
}

// Pair returns the effective edge's unordered endpoint pair.
func (e EffectiveEdge) Pair() graph.Pair {
	p, _ := graph.NewPair(e.SourceID, e.TargetID)
	return p
}

// Ledger is the Edge Staging Store. It reconciles staged changes
// against the authoritative edge set supplied on every fetch, and is
// atomically drained on commit or discard.
type Ledger struct {
	mu            sync.Mutex
	changes       []PendingChange
	authoritative []graph.GraphEdge
	byID          map[graph.EdgeID]graph.GraphEdge
	byPair        map[graph.Pair]graph.EdgeID
	logger        *zap.Logger
}

// NewLedger creates an empty staging ledger.
func NewLedger(logger *zap.Logger) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ledger{
		byID:   make(map[graph.EdgeID]graph.GraphEdge),
		byPair: make(map[graph.Pair]graph.EdgeID),
		logger: logger,
	}
}

// SetAuthoritative replaces the authoritative edge set after a fetch.
// Staged changes are kept; the effective edge list deduplicates any
// pending add that a newly fetched real edge now satisfies.
func (l *Ledger) SetAuthoritative(edges []graph.GraphEdge) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.authoritative = make([]graph.GraphEdge, len(edges))
	copy(l.authoritative, edges)

	l.byID = make(map[graph.EdgeID]graph.GraphEdge, len(edges))
	l.byPair = make(map[graph.Pair]graph.EdgeID, len(edges))
	for _, e := range edges {
		l.byID[e.ID] = e
		pair, err := graph.NewPair(e.SourceID, e.TargetID)
		if err != nil {
			l.logger.Warn("Skipping malformed authoritative edge",
				zap.String("edgeID", e.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if _, dup := l.byPair[pair]; !dup {
			l.byPair[pair] = e.ID
		}
	}
}

// StageAdd stages the creation of an edge between two contacts. It
// returns false without staging when an equivalent pending add exists,
// or when an authoritative edge for the pair exists and is not itself
// staged for deletion. Self-edges are rejected locally.
func (l *Ledger) StageAdd(sourceID, targetID graph.NodeID) (bool, error) {
	pair, err := graph.NewPair(sourceID, targetID)
	if err != nil {
		return false, errors.NewValidationError(err.Error())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.pendingAddLocked(pair) != nil {
		return false, nil
	}
	if edgeID, exists := l.byPair[pair]; exists && !l.pendingDeleteLocked(edgeID) {
		return false, nil
	}

	change := PendingChange{
		Kind:   PendingAdd,
		TempID: TempIDPrefix + uuid.New().String(),
		Pair:   pair,
	}
	l.changes = append(l.changes, change)

	l.logger.Debug("Staged edge addition",
		zap.String("tempID", change.TempID),
		zap.String("source", sourceID.String()),
		zap.String("target", targetID.String()),
	)
	return true, nil
}

// StageDelete stages the deletion of an edge by ID. A temp ID cancels
// the matching pending add outright, so the server never sees a delete
// for an edge it never created. An authoritative edge ID appends a
// delete; unknown or already-deleted IDs are ignored.
func (l *Ledger) StageDelete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if strings.HasPrefix(id, TempIDPrefix) {
		for i, c := range l.changes {
			if c.Kind == PendingAdd && c.TempID == id {
				l.changes = append(l.changes[:i], l.changes[i+1:]...)
				l.logger.Debug("Cancelled pending addition", zap.String("tempID", id))
				return true
			}
		}
		return false
	}

	edgeID := graph.EdgeID(id)
	if _, exists := l.byID[edgeID]; !exists {
		l.logger.Warn("Ignoring delete for unknown edge", zap.String("edgeID", id))
		return false
	}
	if l.pendingDeleteLocked(edgeID) {
		return false
	}

	l.changes = append(l.changes, PendingChange{
		Kind:   PendingDelete,
		EdgeID: edgeID,
	})
	l.logger.Debug("Staged edge deletion", zap.String("edgeID", id))
	return true
}

// EffectiveEdges returns the edge set to render: authoritative edges
// minus staged deletions, plus staged additions whose pair is not
// already satisfied, deduplicated by ID and by unordered pair.
func (l *Ledger) EffectiveEdges() []EffectiveEdge {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make([]EffectiveEdge, 0, len(l.authoritative)+len(l.changes))
	seenPairs := make(map[graph.Pair]bool)

	for _, e := range l.authoritative {
		if l.pendingDeleteLocked(e.ID) {
			continue
		}
		pair, err := graph.NewPair(e.SourceID, e.TargetID)
		if err != nil || seenPairs[pair] {
			continue
		}
		seenPairs[pair] = true
		result = append(result, EffectiveEdge{
			ID:       e.ID.String(),
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Label:    e.Label,
		})
	}

	for _, c := range l.changes {
		if c.Kind != PendingAdd || seenPairs[c.Pair] {
			continue
		}
		seenPairs[c.Pair] = true
		result = append(result, EffectiveEdge{
			ID:       c.TempID,
			SourceID: c.Pair.A,
			TargetID: c.Pair.B,
			Label:    c.Label,
			Pending:  true,
		})
	}

	return result
}

// EffectiveEdgeForPair returns the effective edge connecting the pair,
// if any. Used by the interaction controller's existence check.
func (l *Ledger) EffectiveEdgeForPair(pair graph.Pair) (EffectiveEdge, bool) {
	for _, e := range l.EffectiveEdges() {
		if e.Pair() == pair {
			return e, true
		}
	}
	return EffectiveEdge{}, false
}

// Count returns the ledger size, i.e. the user-visible pending count.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.changes)
}

// Drain atomically empties the ledger and returns the staged changes.
func (l *Ledger) Drain() []PendingChange {
	l.mu.Lock()
	defer l.mu.Unlock()

	changes := l.changes
	l.changes = nil
	return changes
}

// pendingAddLocked returns the pending add for a pair, or nil.
// Caller must hold l.mu.
func (l *Ledger) pendingAddLocked(pair graph.Pair) *PendingChange {
	for i := range l.changes {
		if l.changes[i].Kind == PendingAdd && l.changes[i].Pair == pair {
			return &l.changes[i]
		}
	}
	return nil
}

// pendingDeleteLocked reports whether an authoritative edge is staged
// for deletion. Caller must hold l.mu.
func (l *Ledger) pendingDeleteLocked(edgeID graph.EdgeID) bool {
	for _, c := range l.changes {
		if c.Kind == PendingDelete && c.EdgeID == edgeID {
			return true
		}
	}
	return false
}
