// Package handlers implements the Graph Service HTTP endpoints served
// by the development server.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"crmgraph/infrastructure/persistence/memory"
	"crmgraph/pkg/common"
)

// GraphHandler handles graph read requests
type GraphHandler struct {
	store  *memory.GraphStore
	logger *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(store *memory.GraphStore, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{
		store:  store,
		logger: logger,
	}
}

// GetGraph handles GET /graph, returning the full node and edge set.
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	data := h.store.Snapshot()

	h.logger.Debug("Serving graph snapshot",
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("edges", len(data.Edges)),
	)
	common.RespondJSON(w, http.StatusOK, data)
}
