package graph

import "errors"

// EdgeID is the server-assigned identifier of a committed edge.
type EdgeID string

// String returns the string representation of the EdgeID.
func (id EdgeID) String() string {
	return string(id)
}

// IsZero reports whether the EdgeID is the zero value.
func (id EdgeID) IsZero() bool {
	return id == ""
}

// GraphEdge is an association between two contacts. The association is
// undirected in meaning, but source/target order is preserved as the
// server supplied it.
type GraphEdge struct {
	ID       EdgeID `json:"id"`
	SourceID NodeID `json:"source_id"`
	TargetID NodeID `json:"target_id"`
	Label    string `json:"label,omitempty"`
}

// Pair returns the edge's unordered endpoint pair.
func (e GraphEdge) Pair() Pair {
	p, _ := NewPair(e.SourceID, e.TargetID)
	return p
}

// ErrSelfEdge is returned when both endpoints of a pair are the same node.
var ErrSelfEdge = errors.New("edge endpoints must be distinct nodes")

// ErrEmptyNodeID is returned when a pair endpoint is missing.
var ErrEmptyNodeID = errors.New("node ID cannot be empty")

// Pair is an unordered node pair. A and B are stored in canonical order
// so pairs built from either click order compare equal and key the same
// map entries.
type Pair struct {
	A NodeID
	B NodeID
}

// NewPair builds the canonical pair for two node identities.
func NewPair(a, b NodeID) (Pair, error) {
	if a.IsZero() || b.IsZero() {
		return Pair{}, ErrEmptyNodeID
	}
	if a == b {
		return Pair{}, ErrSelfEdge
	}
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}, nil
}

// Contains reports whether the pair has id as one of its endpoints.
func (p Pair) Contains(id NodeID) bool {
	return p.A == id || p.B == id
}

// IsZero reports whether the pair is the zero value.
func (p Pair) IsZero() bool {
	return p.A.IsZero() && p.B.IsZero()
}

// Data is the node/edge list the Graph Service returns for one fetch.
type Data struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
