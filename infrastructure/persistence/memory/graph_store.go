// Package memory provides the in-memory graph store backing the
// development Graph Service server.
package memory

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

// GraphStore holds nodes and edges in memory. It enforces the same
// constraints a production graph service would: endpoints must exist,
// self-edges are rejected and each unordered pair carries at most one
// edge.
type GraphStore struct {
	mu     sync.RWMutex
	nodes     map[graph.NodeID]graph.GraphNode
	order     []graph.NodeID
	edges     map[graph.EdgeID]graph.GraphEdge
	edgeOrder []graph.EdgeID
	byPair    map[graph.Pair]graph.EdgeID
	logger    *zap.Logger
}

// NewGraphStore creates an empty store.
func NewGraphStore(logger *zap.Logger) *GraphStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphStore{
		nodes:  make(map[graph.NodeID]graph.GraphNode),
		edges:  make(map[graph.EdgeID]graph.GraphEdge),
		byPair: make(map[graph.Pair]graph.EdgeID),
		logger: logger,
	}
}

// Snapshot returns a copy of the full node and edge set. Both lists
// keep insertion order so repeated fetches are stable.
func (s *GraphStore) Snapshot() *graph.Data {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data := &graph.Data{
		Nodes: make([]graph.GraphNode, 0, len(s.order)),
		Edges: make([]graph.GraphEdge, 0, len(s.edgeOrder)),
	}
	for _, id := range s.order {
		data.Nodes = append(data.Nodes, s.nodes[id])
	}
	for _, id := range s.edgeOrder {
		if e, ok := s.edges[id]; ok {
			data.Edges = append(data.Edges, e)
		}
	}
	return data
}

// AddNode inserts a contact node. An empty ID gets a generated one.
func (s *GraphStore) AddNode(node graph.GraphNode) (graph.GraphNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID.IsZero() {
		node.ID = graph.NodeID(uuid.New().String())
	}
	if _, exists := s.nodes[node.ID]; exists {
		return graph.GraphNode{}, errors.NewConflictError("node already exists").WithCode("NODE_EXISTS")
	}

	s.nodes[node.ID] = node
	s.order = append(s.order, node.ID)
	return node, nil
}

// CreateEdge creates an edge between two existing nodes and assigns it
// a server ID.
func (s *GraphStore) CreateEdge(sourceID, targetID graph.NodeID, label string) (graph.GraphEdge, error) {
	pair, err := graph.NewPair(sourceID, targetID)
	if err != nil {
		return graph.GraphEdge{}, errors.NewValidationError(err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[sourceID]; !ok {
		return graph.GraphEdge{}, errors.NewNotFoundError("source node")
	}
	if _, ok := s.nodes[targetID]; !ok {
		return graph.GraphEdge{}, errors.NewNotFoundError("target node")
	}
	if existing, ok := s.byPair[pair]; ok {
		return graph.GraphEdge{}, errors.NewConflictError("edge already exists").
			WithCode("EDGE_EXISTS").
			WithDetails(map[string]interface{}{"edge_id": existing.String()})
	}

	edge := graph.GraphEdge{
		ID:       graph.EdgeID(uuid.New().String()),
		SourceID: sourceID,
		TargetID: targetID,
		Label:    label,
	}
	s.edges[edge.ID] = edge
	s.edgeOrder = append(s.edgeOrder, edge.ID)
	s.byPair[pair] = edge.ID

	s.logger.Debug("Created edge",
		zap.String("edgeID", edge.ID.String()),
		zap.String("source", sourceID.String()),
		zap.String("target", targetID.String()),
	)
	return edge, nil
}

// DeleteEdge removes an edge by ID.
func (s *GraphStore) DeleteEdge(edgeID graph.EdgeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok {
		return errors.NewNotFoundError("edge")
	}
	delete(s.edges, edgeID)
	delete(s.byPair, edge.Pair())
	for i, id := range s.edgeOrder {
		if id == edgeID {
			s.edgeOrder = append(s.edgeOrder[:i], s.edgeOrder[i+1:]...)
			break
		}
	}

	s.logger.Debug("Deleted edge", zap.String("edgeID", edgeID.String()))
	return nil
}
