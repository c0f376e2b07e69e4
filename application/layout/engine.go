// Package layout implements the force-directed layout engine: an
// iterative physics simulation that produces node positions from a
// graph topology while staying responsive to live dragging.
package layout

import (
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"crmgraph/domain/graph"
)

// NodePlacement seeds a node into the simulation. The position is only
// used for nodes the engine has not seen before; known nodes keep their
// simulated position across topology changes.
type NodePlacement struct {
	ID graph.NodeID
	X  float64
	Y  float64
}

// NodePosition is one node's position as reported on a tick.
type NodePosition struct {
	ID graph.NodeID `json:"id"`
	X  float64      `json:"x"`
	Y  float64      `json:"y"`
}

// TickFunc receives updated positions for every node, once per step.
type TickFunc func(positions []NodePosition)

type simNode struct {
	id     graph.NodeID
	x, y   float64
	vx, vy float64
	fx, fy float64 // force accumulator for the current step
	pinned bool
	px, py float64 // pin target while pinned
}

type link struct {
	a, b graph.NodeID
}

// Engine runs the simulation. It is owned by a single graph view with
// an explicit start/stop lifecycle; positions persist across topology
// changes keyed by node identity and are never reset once established.
type Engine struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	nodes map[graph.NodeID]*simNode
	order []graph.NodeID
	links []link

	width  float64
	height float64

	alpha  float64
	onTick TickFunc

	running bool
	cancel  context.CancelFunc
}

// New creates a stopped engine with the given configuration.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:    cfg.withDefaults(),
		logger: logger,
		nodes:  make(map[graph.NodeID]*simNode),
		width:  800,
		height: 600,
	}
}

// OnTick registers the per-step position callback.
func (e *Engine) OnTick(fn TickFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTick = fn
}

// SetViewport updates the dimensions the centering force pulls toward.
func (e *Engine) SetViewport(width, height float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if width > 0 {
		e.width = width
	}
	if height > 0 {
		e.height = height
	}
}

// SetTopology reconciles the simulation with a new node and link set.
// Existing nodes keep their position and velocity; new nodes enter at
// their placement; absent nodes are destroyed. A change to the link or
// node set injects transient energy so the layout visibly adapts.
func (e *Engine) SetTopology(placements []NodePlacement, pairs []graph.Pair) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := make(map[graph.NodeID]*simNode, len(placements))
	order := make([]graph.NodeID, 0, len(placements))
	added := 0
	for _, p := range placements {
		if p.ID.IsZero() {
			continue
		}
		if _, dup := next[p.ID]; dup {
			continue
		}
		if n, ok := e.nodes[p.ID]; ok {
			next[p.ID] = n
		} else {
			next[p.ID] = &simNode{id: p.ID, x: p.X, y: p.Y}
			added++
		}
		order = append(order, p.ID)
	}
	removed := len(e.nodes) + added - len(next)

	seen := make(map[link]bool, len(pairs))
	links := make([]link, 0, len(pairs))
	for _, p := range pairs {
		l := link{a: p.A, b: p.B}
		if seen[l] {
			continue
		}
		if _, ok := next[l.a]; !ok {
			continue
		}
		if _, ok := next[l.b]; !ok {
			continue
		}
		seen[l] = true
		links = append(links, l)
	}

	changed := added > 0 || removed > 0 || !sameLinks(e.links, links)
	e.nodes = next
	e.order = order
	e.links = links

	if changed {
		e.alpha = math.Max(e.alpha, e.cfg.ReheatAlpha)
		e.logger.Debug("Topology changed",
			zap.Int("nodes", len(next)),
			zap.Int("links", len(links)),
			zap.Float64("alpha", e.alpha),
		)
	}
}

func sameLinks(a, b []link) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[link]bool, len(a))
	for _, l := range a {
		set[l] = true
	}
	for _, l := range b {
		if !set[l] {
			return false
		}
	}
	return true
}

// Pin fixes a node at an exact position. The engine's own forces no
// longer move it, but it keeps exerting forces on its neighbors.
func (e *Engine) Pin(id graph.NodeID, x, y float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n, ok := e.nodes[id]; ok {
		n.pinned = true
		n.px, n.py = x, y
	}
}

// Unpin releases a node back to free simulation with the velocity its
// pin movement implied.
func (e *Engine) Unpin(id graph.NodeID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n, ok := e.nodes[id]; ok {
		n.pinned = false
	}
}

// UnpinAll releases every pinned node.
func (e *Engine) UnpinAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, n := range e.nodes {
		n.pinned = false
	}
}

// Reheat injects transient energy so the simulation re-settles.
func (e *Engine) Reheat() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.alpha = math.Max(e.alpha, e.cfg.ReheatAlpha)
}

// Settled reports whether kinetic energy has decayed below the floor.
func (e *Engine) Settled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.alpha < e.cfg.AlphaMin
}

// Positions returns a snapshot of every node's current position.
func (e *Engine) Positions() []NodePosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() []NodePosition {
	out := make([]NodePosition, 0, len(e.order))
	for _, id := range e.order {
		n := e.nodes[id]
		out = append(out, NodePosition{ID: n.id, X: n.x, Y: n.y})
	}
	return out
}

// Start begins ticking until the context is cancelled or Stop is
// called. Starting a running engine is a no-op; a stopped engine can
// be started again.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	interval := e.cfg.TickInterval
	e.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Step()
			}
		}
	}()
}

// Stop halts ticking and releases the timer. The engine keeps its
// positions and can be restarted.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.running = false
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Step advances the simulation by one synchronous step and invokes the
// tick callback. With an empty node set it does nothing and emits no
// tick. Exported so tests and headless callers can drive the engine
// deterministically.
func (e *Engine) Step() {
	e.mu.Lock()
	if len(e.nodes) == 0 {
		e.mu.Unlock()
		return
	}

	if e.alpha >= e.cfg.AlphaMin {
		e.applyRepulsionLocked()
		e.applySpringsLocked()
		e.applyCenteringLocked()
		e.integrateLocked()
		e.resolveCollisionsLocked()
		e.alpha *= 1 - e.cfg.AlphaDecay
	}
	e.applyPinsLocked()

	positions := e.snapshotLocked()
	onTick := e.onTick
	e.mu.Unlock()

	if onTick != nil {
		onTick(positions)
	}
}

// applyRepulsionLocked accumulates mutual repulsion between node pairs.
// A uniform grid keyed by the cutoff radius bounds the per-step cost:
// only nodes in neighboring cells interact, and the force is zero past
// the cutoff so distant parts of the graph don't fly apart.
func (e *Engine) applyRepulsionLocked() {
	cutoff := e.cfg.RepulsionCutoff
	grid := buildGrid(e.nodes, cutoff)
	grid.forEachNeighborPair(func(a, b *simNode) {
		dx := b.x - a.x
		dy := b.y - a.y
		distSq := dx*dx + dy*dy
		if distSq >= cutoff*cutoff {
			return
		}
		// Clamp short range so coincident nodes don't explode.
		const minDist = 1.0
		if distSq < minDist {
			distSq = minDist
			dx, dy = jitter(a.id, b.id)
		}
		dist := math.Sqrt(distSq)
		f := e.cfg.Repulsion / distSq
		fx := f * dx / dist
		fy := f * dy / dist
		a.fx -= fx
		a.fy -= fy
		b.fx += fx
		b.fy += fy
	})
}

// applySpringsLocked accumulates attraction along each link. Rest
// length and stiffness are constant across all links.
func (e *Engine) applySpringsLocked() {
	for _, l := range e.links {
		a := e.nodes[l.a]
		b := e.nodes[l.b]
		dx := b.x - a.x
		dy := b.y - a.y
		dist := math.Hypot(dx, dy)
		if dist < 1e-6 {
			dx, dy = jitter(a.id, b.id)
			dist = 1
		}
		f := e.cfg.SpringStiffness * (dist - e.cfg.SpringLength)
		fx := f * dx / dist
		fy := f * dy / dist
		a.fx += fx
		a.fy += fy
		b.fx -= fx
		b.fy -= fy
	}
}

// applyCenteringLocked accumulates the weak pull toward the viewport
// midpoint. Intentionally too weak to fight the layout; it only
// prevents drift off-screen.
func (e *Engine) applyCenteringLocked() {
	cx := e.width / 2
	cy := e.height / 2
	for _, n := range e.nodes {
		n.fx += (cx - n.x) * e.cfg.CenterStrength
		n.fy += (cy - n.y) * e.cfg.CenterStrength
	}
}

// integrateLocked folds accumulated forces into velocities, damps, and
// moves every free node.
func (e *Engine) integrateLocked() {
	for _, n := range e.nodes {
		fx, fy := n.fx, n.fy
		n.fx, n.fy = 0, 0
		if n.pinned {
			continue
		}
		n.vx = (n.vx + fx*e.alpha) * e.cfg.Damping
		n.vy = (n.vy + fy*e.alpha) * e.cfg.Damping
		n.x += n.vx
		n.y += n.vy
	}
}

// resolveCollisionsLocked pushes overlapping nodes apart to the
// minimum separation of two radii plus the margin.
func (e *Engine) resolveCollisionsLocked() {
	minSep := 2*e.cfg.NodeRadius + e.cfg.CollideMargin
	grid := buildGrid(e.nodes, minSep)
	grid.forEachNeighborPair(func(a, b *simNode) {
		dx := b.x - a.x
		dy := b.y - a.y
		dist := math.Hypot(dx, dy)
		if dist >= minSep {
			return
		}
		if dist < 1e-6 {
			dx, dy = jitter(a.id, b.id)
			dist = 1
		}
		overlap := (minSep - dist) / dist
		switch {
		case a.pinned && b.pinned:
			// Both held by the user; leave them be.
		case a.pinned:
			b.x += dx * overlap
			b.y += dy * overlap
		case b.pinned:
			a.x -= dx * overlap
			a.y -= dy * overlap
		default:
			a.x -= dx * overlap / 2
			a.y -= dy * overlap / 2
			b.x += dx * overlap / 2
			b.y += dy * overlap / 2
		}
	})
}

// applyPinsLocked snaps pinned nodes to their pin target and records
// the implied velocity so an unpin releases the node mid-motion.
func (e *Engine) applyPinsLocked() {
	for _, n := range e.nodes {
		if !n.pinned {
			continue
		}
		n.vx = n.px - n.x
		n.vy = n.py - n.y
		n.x = n.px
		n.y = n.py
	}
}

// jitter returns a small deterministic direction for coincident nodes,
// derived from their identities so repeated steps stay stable.
func jitter(a, b graph.NodeID) (float64, float64) {
	h := uint32(2166136261)
	for _, c := range a + ":" + b {
		h = (h ^ uint32(c)) * 16777619
	}
	angle := float64(h%360) * math.Pi / 180
	return math.Cos(angle), math.Sin(angle)
}
