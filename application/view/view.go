// Package view owns the merged node/link view model and wires the
// mapper, layout engine, staging ledger and interaction controller
// into one graph view with an explicit lifecycle.
package view

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crmgraph/application/controller"
	"crmgraph/application/layout"
	"crmgraph/application/mapper"
	"crmgraph/application/ports"
	"crmgraph/application/staging"
	"crmgraph/domain/graph"
	"crmgraph/pkg/errors"
)

// FrameNode is one rendered node in a frame.
type FrameNode struct {
	ID       graph.NodeID `json:"id"`
	Name     string       `json:"name"`
	PhotoRef string       `json:"photo_ref,omitempty"`
	X        float64      `json:"x"`
	Y        float64      `json:"y"`
}

// FrameEdge is one rendered edge in a frame, taken from the effective
// edge list so staged changes show immediately.
type FrameEdge struct {
	ID       string       `json:"id"`
	SourceID graph.NodeID `json:"source_id"`
	TargetID graph.NodeID `json:"target_id"`
	Label    string       `json:"label,omitempty"`
	Pending  bool         `json:"pending"`
}

// Frame is what gets rendered: the merged effective edge list and the
// current simulated position of every node.
type Frame struct {
	Nodes   []FrameNode `json:"nodes"`
	Edges   []FrameEdge `json:"edges"`
	Pending int         `json:"pending"`
	Settled bool        `json:"settled"`
}

// Callbacks are the hooks the surrounding page provides.
type Callbacks struct {
	OnNodeSelected        func(graph.NodeID)
	OnPendingCountChanged func(count int)
	OnCommitCompleted     func(report staging.Report)
	OnFrame               func(frame Frame)
}

// View orchestrates one relationship graph: fetching, layout, staging
// and commit. All remote work is asynchronous; the view stays
// interactive while a commit is in flight, but commits are exclusive.
type View struct {
	svc    ports.GraphService
	engine *layout.Engine
	ledger *staging.Ledger
	ctrl   *controller.Controller
	logger *zap.Logger
	cb     Callbacks

	mu         sync.Mutex
	nodes      map[graph.NodeID]graph.GraphNode
	order      []graph.NodeID
	positions  map[graph.NodeID]graph.Position
	width      float64
	height     float64
	generation uint64
	committing bool
}

// New creates a graph view bound to a Graph Service. The view owns its
// layout engine instance; call Load to fetch data, Start to begin
// ticking and Close when navigating away.
func New(svc ports.GraphService, cfg layout.Config, logger *zap.Logger, cb Callbacks) *View {
	if logger == nil {
		logger = zap.NewNop()
	}

	v := &View{
		svc:       svc,
		engine:    layout.New(cfg, logger),
		ledger:    staging.NewLedger(logger),
		logger:    logger,
		cb:        cb,
		nodes:     make(map[graph.NodeID]graph.GraphNode),
		positions: make(map[graph.NodeID]graph.Position),
		width:     800,
		height:    600,
	}

	v.ctrl = controller.New(v.engine, v.ledger, logger)
	v.ctrl.OnNodeSelected(func(id graph.NodeID) {
		if cb.OnNodeSelected != nil {
			cb.OnNodeSelected(id)
		}
	})
	v.ctrl.OnStagingEdit(v.handleStagingEdit)
	v.engine.OnTick(v.handleTick)

	return v
}

// Controller exposes the gesture surface for the rendering layer.
func (v *View) Controller() *controller.Controller {
	return v.ctrl
}

// PendingCount returns the number of uncommitted staged changes.
func (v *View) PendingCount() int {
	return v.ledger.Count()
}

// EffectiveEdges returns the edge set currently rendered.
func (v *View) EffectiveEdges() []staging.EffectiveEdge {
	return v.ledger.EffectiveEdges()
}

// Load fetches authoritative state and reconciles the view with it.
// A response superseded by a newer Load is dropped. On fetch failure
// the view is left untouched so the caller can show a retryable error.
func (v *View) Load(ctx context.Context) error {
	v.mu.Lock()
	v.generation++
	gen := v.generation
	v.mu.Unlock()

	data, err := v.svc.FetchGraph(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to fetch graph")
	}

	v.mu.Lock()
	if gen != v.generation {
		v.mu.Unlock()
		v.logger.Debug("Dropping superseded graph fetch")
		return nil
	}
	v.applyDataLocked(data)
	v.mu.Unlock()

	v.logger.Info("Graph loaded",
		zap.Int("nodes", len(data.Nodes)),
		zap.Int("edges", len(data.Edges)),
	)
	return nil
}

// applyDataLocked installs a fetch result: node copies refresh, the
// ledger reconciles against the new authoritative edges, and the
// position cache is merged by identity, dropping removed nodes.
func (v *View) applyDataLocked(data *graph.Data) {
	v.nodes = make(map[graph.NodeID]graph.GraphNode, len(data.Nodes))
	v.order = v.order[:0]
	for _, n := range data.Nodes {
		if _, dup := v.nodes[n.ID]; dup {
			continue
		}
		v.nodes[n.ID] = n
		v.order = append(v.order, n.ID)
	}

	for id := range v.positions {
		if _, ok := v.nodes[id]; !ok {
			delete(v.positions, id)
		}
	}

	v.ledger.SetAuthoritative(data.Edges)
	v.rebuildTopologyLocked()
}

// rebuildTopologyLocked re-seeds the engine from the current node set
// and effective edge list.
func (v *View) rebuildTopologyLocked() {
	nodes := make([]graph.GraphNode, 0, len(v.order))
	for _, id := range v.order {
		nodes = append(nodes, v.nodes[id])
	}
	placements := mapper.BuildPlacements(nodes, v.positions, v.width, v.height)
	links := mapper.BuildLinks(v.ledger.EffectiveEdges())
	v.engine.SetTopology(placements, links)
}

// Start begins the layout simulation. Call after a successful Load; a
// failed fetch leaves nothing to simulate.
func (v *View) Start(ctx context.Context) {
	v.engine.Start(ctx)
}

// Close stops the simulation timer. In-flight fetches are dropped by
// the generation guard when they land.
func (v *View) Close() {
	v.engine.Stop()
}

// Resize feeds new viewport dimensions to the layout engine.
func (v *View) Resize(width, height float64) {
	v.mu.Lock()
	if width > 0 {
		v.width = width
	}
	if height > 0 {
		v.height = height
	}
	v.mu.Unlock()
	v.engine.SetViewport(width, height)
}

// ErrCommitInFlight is returned when a commit is issued while another
// one is outstanding.
var ErrCommitInFlight = errors.NewConflictError("a commit is already in progress")

// Commit drains the ledger, consolidates it and submits the batch:
// deletions first, then creations. Individual failures don't roll back
// siblings; the report surfaces both sets. The view always refetches
// afterward so the rendered state reflects server truth.
func (v *View) Commit(ctx context.Context) (staging.Report, error) {
	v.mu.Lock()
	if v.committing {
		v.mu.Unlock()
		return staging.Report{}, ErrCommitInFlight
	}
	v.committing = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.committing = false
		v.mu.Unlock()
	}()

	batch := staging.Consolidate(v.ledger.Drain())
	v.notifyPendingCount()
	if batch.Empty() {
		return staging.Report{}, nil
	}

	v.logger.Info("Committing staged changes",
		zap.Int("deletes", len(batch.Deletes)),
		zap.Int("creates", len(batch.Creates)),
	)

	results := make([]staging.OpResult, 0, batch.Size())
	results = append(results, v.runDeletes(ctx, batch.Deletes)...)
	results = append(results, v.runCreates(ctx, batch.Creates)...)

	var report staging.Report
	for _, r := range results {
		if r.Err != nil {
			v.logger.Warn("Edge operation failed",
				zap.String("op", string(r.Kind)),
				zap.String("edgeID", r.EdgeID.String()),
				zap.Error(r.Err),
			)
			report.Failed = append(report.Failed, r)
		} else {
			report.Succeeded = append(report.Succeeded, r)
		}
	}

	if v.cb.OnCommitCompleted != nil {
		v.cb.OnCommitCompleted(report)
	}

	// Refetch regardless of outcome; server truth wins over client
	// assumptions after a partial failure.
	if err := v.Load(ctx); err != nil {
		v.logger.Error("Post-commit refetch failed", zap.Error(err))
		return report, err
	}
	return report, nil
}

// runDeletes issues every staged deletion concurrently and waits for
// all of them before any creation is sent.
func (v *View) runDeletes(ctx context.Context, ids []graph.EdgeID) []staging.OpResult {
	results := make([]staging.OpResult, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		i, id := i, id
		results[i] = staging.OpResult{Kind: staging.OpDelete, EdgeID: id}
		g.Go(func() error {
			results[i].Err = v.svc.DeleteEdge(ctx, id)
			return nil
		})
	}
	g.Wait()
	return results
}

// runCreates issues one creation per consolidated pair concurrently.
func (v *View) runCreates(ctx context.Context, ops []staging.CreateOp) []staging.OpResult {
	results := make([]staging.OpResult, len(ops))
	g, ctx := errgroup.WithContext(ctx)
	for i, op := range ops {
		i, op := i, op
		results[i] = staging.OpResult{
			Kind:     staging.OpCreate,
			SourceID: op.Pair.A,
			TargetID: op.Pair.B,
		}
		g.Go(func() error {
			edge, err := v.svc.CreateEdge(ctx, op.Pair.A, op.Pair.B, op.Label)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].EdgeID = edge.ID
			return nil
		})
	}
	g.Wait()
	return results
}

// Discard drops every staged change without contacting the server and
// releases any node pinned during the editing session. Discarding an
// empty ledger is a no-op.
func (v *View) Discard() {
	dropped := v.ledger.Drain()
	v.engine.UnpinAll()

	v.mu.Lock()
	v.rebuildTopologyLocked()
	v.mu.Unlock()

	if len(dropped) > 0 {
		v.logger.Info("Discarded staged changes", zap.Int("count", len(dropped)))
	}
	v.notifyPendingCount()
}

// handleStagingEdit reacts to a controller gesture that changed the
// ledger: the link set feeding the engine changes, which reheats the
// simulation, and the pending count is re-announced.
func (v *View) handleStagingEdit() {
	v.mu.Lock()
	v.rebuildTopologyLocked()
	v.mu.Unlock()
	v.notifyPendingCount()
}

func (v *View) notifyPendingCount() {
	if v.cb.OnPendingCountChanged != nil {
		v.cb.OnPendingCountChanged(v.ledger.Count())
	}
}

// handleTick records the engine's positions in the view-owned cache
// and publishes a frame.
func (v *View) handleTick(positions []layout.NodePosition) {
	v.mu.Lock()
	for _, p := range positions {
		v.positions[p.ID] = graph.Position{X: p.X, Y: p.Y}
	}
	frame := v.buildFrameLocked(positions)
	v.mu.Unlock()

	if v.cb.OnFrame != nil {
		v.cb.OnFrame(frame)
	}
}

func (v *View) buildFrameLocked(positions []layout.NodePosition) Frame {
	frame := Frame{
		Nodes:   make([]FrameNode, 0, len(positions)),
		Pending: v.ledger.Count(),
		Settled: v.engine.Settled(),
	}
	for _, p := range positions {
		n, ok := v.nodes[p.ID]
		if !ok {
			continue
		}
		frame.Nodes = append(frame.Nodes, FrameNode{
			ID:       n.ID,
			Name:     n.DisplayName(),
			PhotoRef: n.PhotoRef,
			X:        p.X,
			Y:        p.Y,
		})
	}
	for _, e := range v.ledger.EffectiveEdges() {
		frame.Edges = append(frame.Edges, FrameEdge{
			ID:       e.ID,
			SourceID: e.SourceID,
			TargetID: e.TargetID,
			Label:    e.Label,
			Pending:  e.Pending,
		})
	}
	return frame
}

// Snapshot builds a frame on demand from current state, for callers
// that render outside the tick callback.
func (v *View) Snapshot() Frame {
	positions := v.engine.Positions()
	v.mu.Lock()
	frame := v.buildFrameLocked(positions)
	v.mu.Unlock()
	return frame
}
