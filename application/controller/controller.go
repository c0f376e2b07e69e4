// Package controller translates user gestures into staging-store
// mutations or layout pin/unpin commands, via a small two-mode state
// machine: free dragging (default) and click-to-connect.
package controller

import (
	"sync"

	"go.uber.org/zap"

	"crmgraph/application/staging"
	"crmgraph/domain/graph"
)

// Mode selects how node clicks are interpreted.
type Mode int

const (
	// ModeDrag is the default: drags reposition, clicks open details.
	ModeDrag Mode = iota
	// ModeConnect authors edges: two node clicks stage an add or a
	// delete for the pair.
	ModeConnect
)

// TargetKind discriminates gesture targets.
type TargetKind int

const (
	// TargetNode is a contact node.
	TargetNode TargetKind = iota
	// TargetEdge is a rendered edge.
	TargetEdge
	// TargetCanvas is empty canvas.
	TargetCanvas
)

// Target is the tagged payload of a click or double-click gesture.
type Target struct {
	Kind   TargetKind
	NodeID graph.NodeID
	EdgeID string
}

// NodeTarget builds a node gesture target.
func NodeTarget(id graph.NodeID) Target {
	return Target{Kind: TargetNode, NodeID: id}
}

// EdgeTarget builds an edge gesture target.
func EdgeTarget(id string) Target {
	return Target{Kind: TargetEdge, EdgeID: id}
}

// CanvasTarget builds an empty-canvas gesture target.
func CanvasTarget() Target {
	return Target{Kind: TargetCanvas}
}

// Layout is the pin/unpin surface of the layout engine.
type Layout interface {
	Pin(id graph.NodeID, x, y float64)
	Unpin(id graph.NodeID)
}

// Stager is the staging-store surface the controller mutates.
type Stager interface {
	StageAdd(sourceID, targetID graph.NodeID) (bool, error)
	StageDelete(id string) bool
	EffectiveEdgeForPair(pair graph.Pair) (staging.EffectiveEdge, bool)
}

// Controller routes gestures. It is safe for use from a single event
// goroutine; the mutex only guards against stray concurrent callers.
type Controller struct {
	mu       sync.Mutex
	mode     Mode
	anchor   graph.NodeID // set while Connecting(anchor)
	dragging graph.NodeID

	layout Layout
	stager Stager
	logger *zap.Logger

	onNodeSelected func(graph.NodeID)
	onStagingEdit  func()
}

// New creates a controller in drag mode.
func New(layout Layout, stager Stager, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		layout: layout,
		stager: stager,
		logger: logger,
	}
}

// OnNodeSelected registers the callback invoked when a node is clicked
// in drag mode (opens the external detail view).
func (c *Controller) OnNodeSelected(fn func(graph.NodeID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onNodeSelected = fn
}

// OnStagingEdit registers the callback invoked after any gesture that
// changed the staging ledger.
func (c *Controller) OnStagingEdit(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onStagingEdit = fn
}

// Mode returns the current interaction mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Anchor returns the connect-mode anchor node, if one is armed.
func (c *Controller) Anchor() (graph.NodeID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.anchor, !c.anchor.IsZero()
}

// SetMode switches interaction modes. Switching always resets the
// connect state machine to idle and never leaves a node pinned.
func (c *Controller) SetMode(mode Mode) {
	c.mu.Lock()
	if mode == c.mode {
		c.mu.Unlock()
		return
	}
	c.mode = mode
	c.anchor = ""
	dragging := c.dragging
	c.dragging = ""
	c.mu.Unlock()

	if !dragging.IsZero() {
		c.layout.Unpin(dragging)
	}
}

// DragStart pins the node at the cursor.
func (c *Controller) DragStart(id graph.NodeID, x, y float64) {
	c.mu.Lock()
	c.dragging = id
	c.mu.Unlock()
	c.layout.Pin(id, x, y)
}

// DragMove updates the pinned position on each drag event.
func (c *Controller) DragMove(id graph.NodeID, x, y float64) {
	c.layout.Pin(id, x, y)
}

// DragEnd unpins the node, releasing it back to the simulation.
func (c *Controller) DragEnd(id graph.NodeID) {
	c.mu.Lock()
	if c.dragging == id {
		c.dragging = ""
	}
	c.mu.Unlock()
	c.layout.Unpin(id)
}

// Click handles a single click on a node, edge, or empty canvas.
func (c *Controller) Click(t Target) {
	switch t.Kind {
	case TargetNode:
		c.clickNode(t.NodeID)
	case TargetEdge:
		// Single-clicking an edge selects nothing.
	case TargetCanvas:
		c.mu.Lock()
		c.anchor = ""
		c.mu.Unlock()
	}
}

// DoubleClick stages deletion of a rendered edge from either mode, an
// escape hatch independent of the connect state machine.
func (c *Controller) DoubleClick(t Target) {
	if t.Kind != TargetEdge {
		return
	}
	if c.stager.StageDelete(t.EdgeID) {
		c.notifyStagingEdit()
	}
}

func (c *Controller) clickNode(id graph.NodeID) {
	c.mu.Lock()
	if c.mode == ModeDrag {
		fn := c.onNodeSelected
		c.mu.Unlock()
		if fn != nil {
			fn(id)
		}
		return
	}

	// Connect mode.
	if c.anchor.IsZero() {
		c.anchor = id
		c.mu.Unlock()
		return
	}
	if c.anchor == id {
		// Self-click cancels.
		c.anchor = ""
		c.mu.Unlock()
		return
	}
	anchor := c.anchor
	c.anchor = ""
	c.mu.Unlock()

	c.toggleEdge(anchor, id)
}

// toggleEdge stages a delete when an effective edge already connects
// the pair, otherwise stages an add. Click order is irrelevant: the
// pair is canonical.
func (c *Controller) toggleEdge(a, b graph.NodeID) {
	pair, err := graph.NewPair(a, b)
	if err != nil {
		c.logger.Warn("Rejected edge gesture",
			zap.String("source", a.String()),
			zap.String("target", b.String()),
			zap.Error(err),
		)
		return
	}

	changed := false
	if eff, ok := c.stager.EffectiveEdgeForPair(pair); ok {
		changed = c.stager.StageDelete(eff.ID)
	} else {
		staged, err := c.stager.StageAdd(a, b)
		if err != nil {
			c.logger.Warn("Rejected edge addition", zap.Error(err))
			return
		}
		changed = staged
	}

	if changed {
		c.notifyStagingEdit()
	}
}

func (c *Controller) notifyStagingEdit() {
	c.mu.Lock()
	fn := c.onStagingEdit
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
