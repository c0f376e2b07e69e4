package staging

import "crmgraph/domain/graph"

// OpKind identifies one commit operation.
type OpKind string

const (
	// OpCreate is a createEdge call.
	OpCreate OpKind = "create"
	// OpDelete is a deleteEdge call.
	OpDelete OpKind = "delete"
)

// Batch is a consolidated ledger ready for submission. Deletes are
// issued before creates to avoid transient duplicate-edge states.
type Batch struct {
	Deletes []graph.EdgeID
	Creates []CreateOp
}

// CreateOp is one pending creation after consolidation.
type CreateOp struct {
	Pair  graph.Pair
	Label string
}

// Empty reports whether the batch contains no operations.
func (b Batch) Empty() bool {
	return len(b.Deletes) == 0 && len(b.Creates) == 0
}

// Size returns the number of operations in the batch.
func (b Batch) Size() int {
	return len(b.Deletes) + len(b.Creates)
}

// OpResult reports the outcome of one submitted operation.
type OpResult struct {
	Kind     OpKind
	EdgeID   graph.EdgeID // set for deletes, and for successful creates
	SourceID graph.NodeID
	TargetID graph.NodeID
	Err      error
}

// Report splits a commit batch's results by outcome. Partial success
// is possible: failed operations never roll back succeeded siblings.
type Report struct {
	Succeeded []OpResult
	Failed    []OpResult
}

// Consolidate deterministically collapses a drained ledger into a
// batch: multiple adds for the same pair collapse to one creation,
// deletions referencing temp IDs are dropped (they never reached the
// server), and duplicate deletions collapse to one.
func Consolidate(changes []PendingChange) Batch {
	var batch Batch
	seenPairs := make(map[graph.Pair]bool)
	seenDeletes := make(map[graph.EdgeID]bool)

	for _, c := range changes {
		switch c.Kind {
		case PendingAdd:
			if seenPairs[c.Pair] {
				continue
			}
			seenPairs[c.Pair] = true
			batch.Creates = append(batch.Creates, CreateOp{Pair: c.Pair, Label: c.Label})
		case PendingDelete:
			if c.EdgeID.IsZero() || seenDeletes[c.EdgeID] {
				continue
			}
			seenDeletes[c.EdgeID] = true
			batch.Deletes = append(batch.Deletes, c.EdgeID)
		}
	}

	return batch
}
