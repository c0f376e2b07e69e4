// Package ports defines the interfaces the application layer consumes.
package ports

import (
	"context"

	"crmgraph/domain/graph"
)

// GraphService is the remote Graph Service the client talks to.
// The server owns nodes; the client can only read the graph and
// create or delete edges.
type GraphService interface {
	// FetchGraph returns the authoritative node and edge lists.
	FetchGraph(ctx context.Context) (*graph.Data, error)

	// CreateEdge creates an association between two contacts.
	// The server assigns the edge ID.
	CreateEdge(ctx context.Context, sourceID, targetID graph.NodeID, label string) (*graph.GraphEdge, error)

	// DeleteEdge removes a committed edge by its server-assigned ID.
	DeleteEdge(ctx context.Context, edgeID graph.EdgeID) error
}
