package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"crmgraph/domain/graph"
	"crmgraph/infrastructure/persistence/memory"
	"crmgraph/pkg/common"
	"crmgraph/pkg/errors"
	"crmgraph/pkg/utils"
)

const maxBodyBytes = 1 << 20

// EdgeHandler handles edge mutation requests
type EdgeHandler struct {
	store  *memory.GraphStore
	logger *zap.Logger
}

// NewEdgeHandler creates a new edge handler
func NewEdgeHandler(store *memory.GraphStore, logger *zap.Logger) *EdgeHandler {
	return &EdgeHandler{
		store:  store,
		logger: logger,
	}
}

// CreateEdgeRequest represents the request body for creating an edge
type CreateEdgeRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required,nefield=SourceID"`
	Label    string `json:"label,omitempty" validate:"omitempty,max=64"`
}

// CreateEdge handles POST /edges
func (h *EdgeHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest,
			common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest,
			common.StandardErrorCodes.ValidationError, err.Error())
		return
	}

	edge, err := h.store.CreateEdge(graph.NodeID(req.SourceID), graph.NodeID(req.TargetID), req.Label)
	if err != nil {
		h.logger.Warn("Failed to create edge",
			zap.String("sourceID", req.SourceID),
			zap.String("targetID", req.TargetID),
			zap.Error(err),
		)
		respondAppError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, edge)
}

// DeleteEdge handles DELETE /edges/{edgeID}
func (h *EdgeHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	edgeID := chi.URLParam(r, "edgeID")
	if edgeID == "" {
		common.RespondError(w, http.StatusBadRequest,
			common.StandardErrorCodes.BadRequest, "Edge ID is required")
		return
	}

	if err := h.store.DeleteEdge(graph.EdgeID(edgeID)); err != nil {
		h.logger.Warn("Failed to delete edge",
			zap.String("edgeID", edgeID),
			zap.Error(err),
		)
		respondAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// respondAppError maps an application error onto the response envelope
func respondAppError(w http.ResponseWriter, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		code := appErr.Code
		if code == "" {
			code = string(appErr.Type)
		}
		common.RespondError(w, appErr.HTTPStatus, code, appErr.Message)
		return
	}
	common.RespondError(w, http.StatusInternalServerError,
		common.StandardErrorCodes.InternalError, "Internal server error")
}
