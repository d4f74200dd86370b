package voronoi

import (
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/0x0FACED/fortune-voronoi/pkg/logger"
)

// Engine runs Fortune's algorithm and holds the state a single Compute call
// needs. It is safe to reuse across calls: reset clears the per-call state
// but keeps the arc pool, so repeated Computes on similarly sized inputs
// avoid re-allocating the beachline's arcs from scratch.
type Engine struct {
	log *logger.Logger

	beach  beachline
	events *eventQueue

	cellsMap map[Site]*Cell
	edges    []*Edge

	arcPool []*BeachSection

	effectiveSites int
	soleCell       *Cell
}

// New returns an Engine that logs through log. A nil log is not valid; pass
// logger.Nop() for silent operation.
func New(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

func (e *Engine) reset() {
	// Arcs still on the beachline go back to the pool before the tree is
	// dropped.
	if root := e.beach.tree.root; root != nil {
		for node := e.beach.tree.getFirst(root); node != nil; {
			next := node.next
			e.releaseArc(node.value.(*BeachSection))
			node = next
		}
	}
	e.beach.clear()
	e.events = nil
	e.cellsMap = make(map[Site]*Cell)
	e.edges = nil
	e.effectiveSites = 0
	e.soleCell = nil
	// arcPool deliberately survives reset.
}

// Compute runs the sweep over sites within bbox and returns the finalized
// diagram. The returned Diagram.Cells is indexed parallel to sites. When
// sites coincide (equal X and Y within epsilon), only the first of them the
// sweep pops gets a ring; the others' cells have empty HalfEdges slices.
// Which input index that is follows the site-event sort, not input order.
func (e *Engine) Compute(sites []Site, bbox BoundingBox) (*Diagram, error) {
	start := time.Now()
	if err := validate(sites, bbox); err != nil {
		return nil, err
	}

	e.reset()
	e.log.Info("sweep starting", zap.Int("sites", len(sites)))

	result := make([]*Cell, len(sites))
	for i, s := range sites {
		result[i] = newCell(s)
	}

	e.events = newEventQueue(sites)

	var prevX, prevY float64
	first := true

	site, hasSite := e.events.popSite()
	for {
		ce := e.events.firstValidCircle()
		switch {
		case hasSite && (ce == nil || lessEpsilon(site.Y, ce.y) || (equalEpsilon(site.Y, ce.y) && lessEpsilon(site.X, ce.x))):
			if first || !equalEpsilon(site.X, prevX) || !equalEpsilon(site.Y, prevY) {
				cell := result[site.ID]
				e.cellsMap[site] = cell
				e.effectiveSites++
				if e.effectiveSites == 1 {
					e.soleCell = cell
				}
				e.addBeachSection(site)
				prevX, prevY = site.X, site.Y
				first = false
			} else {
				e.log.Debug("skipping duplicate site", zap.Int("id", site.ID), zap.Float64("x", site.X), zap.Float64("y", site.Y))
			}
			site, hasSite = e.events.popSite()
		case ce != nil:
			e.events.removeFront(ce)
			e.removeBeachSection(ce.arc)
		default:
			goto sweepDone
		}
	}
sweepDone:

	e.log.Info("sweep finished, clipping and closing")

	e.clipEdges(bbox)
	if e.effectiveSites == 1 && e.soleCell != nil {
		e.closeSingleSiteCell(e.soleCell, bbox)
	}
	e.closeCells(bbox, result)
	gatherVertexEdges(e.edges)

	diagram := &Diagram{
		Cells:    result,
		Edges:    e.edges,
		ExecTime: time.Since(start).Seconds(),
	}
	e.log.Info("compute done", zap.Int("cells", len(diagram.Cells)), zap.Int("edges", len(diagram.Edges)), zap.Float64("seconds", diagram.ExecTime))
	e.reset()
	return diagram, nil
}

func (e *Engine) cell(site Site) *Cell {
	c, ok := e.cellsMap[site]
	if !ok {
		panic(errors.AssertionFailedf("voronoi: no cell registered for site %+v", site))
	}
	return c
}

func (e *Engine) acquireArc(site Site) *BeachSection {
	if n := len(e.arcPool); n > 0 {
		arc := e.arcPool[n-1]
		e.arcPool = e.arcPool[:n-1]
		arc.site = site
		arc.edge = nil
		arc.circleEvent = nil
		arc.node = nil
		return arc
	}
	return &BeachSection{site: site}
}

func (e *Engine) releaseArc(arc *BeachSection) {
	arc.site = Site{}
	arc.edge = nil
	arc.circleEvent = nil
	arc.node = nil
	e.arcPool = append(e.arcPool, arc)
}

func (e *Engine) createEdge(leftCell, rightCell *Cell, va, vb Vertex) *Edge {
	edge := newEdge(leftCell, rightCell)
	e.edges = append(e.edges, edge)
	if va != NoVertex {
		e.setEdgeStartpoint(edge, leftCell, rightCell, va)
	}
	if vb != NoVertex {
		e.setEdgeEndpoint(edge, leftCell, rightCell, vb)
	}
	leftCell.HalfEdges = append(leftCell.HalfEdges, newHalfEdge(edge, leftCell, rightCell))
	rightCell.HalfEdges = append(rightCell.HalfEdges, newHalfEdge(edge, rightCell, leftCell))
	return edge
}

func (e *Engine) createBorderEdge(leftCell *Cell, va, vb Vertex) *Edge {
	edge := newEdge(leftCell, nil)
	edge.Va.Vertex = va
	edge.Vb.Vertex = vb
	e.edges = append(e.edges, edge)
	return edge
}

func (e *Engine) setEdgeStartpoint(edge *Edge, leftCell, rightCell *Cell, v Vertex) {
	if edge.Va.Vertex == NoVertex && edge.Vb.Vertex == NoVertex {
		edge.Va.Vertex = v
		edge.LeftCell = leftCell
		edge.RightCell = rightCell
	} else if edge.LeftCell == rightCell {
		edge.Vb.Vertex = v
	} else {
		edge.Va.Vertex = v
	}
}

func (e *Engine) setEdgeEndpoint(edge *Edge, leftCell, rightCell *Cell, v Vertex) {
	e.setEdgeStartpoint(edge, rightCell, leftCell, v)
}

// addBeachSection inserts a new arc for site, splitting whichever arc
// currently covers site.X at the sweepline, and creates the edge traced
// between the new arc and its neighbor(s). This is the site-event half of
// the sweep. The four cases below follow directly from which of the arc's
// neighbors exist and whether they coincide.
func (e *Engine) addBeachSection(site Site) {
	lArc, rArc := e.beach.locate(site.X, site.Y)

	newArc := e.acquireArc(site)
	e.beach.insertAfter(lArc, newArc)

	switch {
	case lArc == nil && rArc == nil:
		// First arc on an empty beachline: no transition, nothing to do.
		return

	case lArc == rArc:
		// newArc splits a single existing arc into two; the split-off
		// twin shares newArc's edge, which both of newArc's break-points
		// trace out until circle events fix its endpoints.
		e.detachCircleEvent(lArc)

		splitArc := e.acquireArc(lArc.site)
		e.beach.insertAfter(newArc, splitArc)

		newArc.edge = e.createEdge(e.cell(lArc.site), e.cell(newArc.site), NoVertex, NoVertex)
		splitArc.edge = newArc.edge

		e.attachCircleEvent(lArc)
		e.attachCircleEvent(splitArc)
		return

	case lArc != nil && rArc == nil:
		// newArc becomes the right-most arc; this only happens when every
		// prior arc shares the new site's y, so no vertex is born yet.
		newArc.edge = e.createEdge(e.cell(lArc.site), e.cell(newArc.site), NoVertex, NoVertex)
		return

	case lArc == nil && rArc != nil:
		// Impossible given the sweep's top-to-bottom, left-to-right site
		// order: a beach section can only lack a left neighbor when the
		// beachline is empty, which the first case above already caught.
		if debugAssertions {
			panic(errors.AssertionFailedf("voronoi: site event has a right neighbor but no left neighbor"))
		}
		return

	default:
		// newArc falls exactly on the breakpoint between two distinct
		// arcs: their shared transition disappears at the triangle's
		// circumcenter, and two fresh transitions appear in its place.
		e.detachCircleEvent(lArc)
		e.detachCircleEvent(rArc)

		lSite := lArc.site
		ax, ay := lSite.X, lSite.Y
		bx, by := site.X-ax, site.Y-ay
		rSite := rArc.site
		cx, cy := rSite.X-ax, rSite.Y-ay
		d := 2 * (bx*cy - by*cx)
		hb := bx*bx + by*by
		hc := cx*cx + cy*cy
		vertex := Vertex{(cy*hb-by*hc)/d + ax, (bx*hc-cx*hb)/d + ay}

		lCell := e.cell(lSite)
		newCell := e.cell(newArc.site)
		rCell := e.cell(rSite)

		e.setEdgeStartpoint(rArc.edge, lCell, rCell, vertex)

		newArc.edge = e.createEdge(lCell, newCell, NoVertex, vertex)
		rArc.edge = e.createEdge(newCell, rCell, NoVertex, vertex)

		e.attachCircleEvent(lArc)
		e.attachCircleEvent(rArc)
		return
	}
}

func (e *Engine) detachCircleEvent(arc *BeachSection) {
	if arc == nil {
		return
	}
	e.events.detachCircle(arc)
}

func (e *Engine) detachBeachSection(arc *BeachSection) {
	e.detachCircleEvent(arc)
	e.beach.remove(arc)
}

// removeBeachSection handles a circle event: arc's two neighbors' edges
// squeeze it to a point, which becomes a new Voronoi vertex. Any further
// arcs coincidentally collapsing to the exact same vertex are gathered and
// removed together, so an n-way coincident circle event (several sites
// equidistant from one point) produces one vertex of degree n rather than a
// chain of near-duplicate ones.
func (e *Engine) removeBeachSection(arc *BeachSection) {
	x := arc.circleEvent.x
	y := arc.circleEvent.ycenter
	vertex := Vertex{x, y}

	leftNeighbor := e.beach.prev(arc)
	rightNeighbor := e.beach.next(arc)

	disappearing := []*BeachSection{arc}
	e.detachBeachSection(arc)

	// Look left: gather every further arc that collapses at this exact
	// vertex too (a coincident circle event), capturing each one's
	// predecessor before detaching it so the walk can continue.
	lArc := leftNeighbor
	for lArc != nil && lArc.circleEvent != nil &&
		equalEpsilon(lArc.circleEvent.x, x) && equalEpsilon(lArc.circleEvent.ycenter, y) {
		prior := e.beach.prev(lArc)
		disappearing = append([]*BeachSection{lArc}, disappearing...)
		e.detachBeachSection(lArc)
		lArc = prior
	}
	// lArc is now the permanent left boundary of the collapse: still on
	// the beachline, not itself disappearing, but its outgoing circle
	// event (if any) is stale now that its right extent has changed.
	disappearing = append([]*BeachSection{lArc}, disappearing...)
	e.detachCircleEvent(lArc)

	// Look right, mirroring the left walk.
	rArc := rightNeighbor
	for rArc != nil && rArc.circleEvent != nil &&
		equalEpsilon(rArc.circleEvent.x, x) && equalEpsilon(rArc.circleEvent.ycenter, y) {
		following := e.beach.next(rArc)
		disappearing = append(disappearing, rArc)
		e.detachBeachSection(rArc)
		rArc = following
	}
	disappearing = append(disappearing, rArc)
	e.detachCircleEvent(rArc)

	// Every adjacent pair in disappearing shares a transition that ends
	// at vertex; record that as the start point of the edge already
	// traced by the right-hand arc of the pair.
	nArcs := len(disappearing)
	for i := 1; i < nArcs; i++ {
		l := disappearing[i-1]
		r := disappearing[i]
		e.setEdgeStartpoint(r.edge, e.cell(l.site), e.cell(r.site), vertex)
	}

	// A brand new transition now exists between the two surviving
	// boundary arcs; it is born at vertex, so vertex is its end point.
	lArc = disappearing[0]
	rArc = disappearing[nArcs-1]
	rArc.edge = e.createEdge(e.cell(lArc.site), e.cell(rArc.site), NoVertex, vertex)

	e.attachCircleEvent(lArc)
	e.attachCircleEvent(rArc)

	for _, mid := range disappearing[1 : nArcs-1] {
		e.releaseArc(mid)
	}
}

// attachCircleEvent computes the circle through arc and its two current
// neighbors and, if the triplet is wound the right way, schedules the
// predicted collapse.
func (e *Engine) attachCircleEvent(arc *BeachSection) {
	lArc := e.beach.prev(arc)
	rArc := e.beach.next(arc)
	if lArc == nil || rArc == nil {
		return
	}
	lSite := lArc.site
	cSite := arc.site
	rSite := rArc.site
	if lSite == rSite {
		return
	}

	// Origin at cSite to minimize cancellation error, per the reference
	// port; circumcircleBottom's orientation test then tells us whether
	// left->center->right is wound the way a real collapse requires.
	ax := lSite.X - cSite.X
	ay := lSite.Y - cSite.Y
	cx := rSite.X - cSite.X
	cy := rSite.Y - cSite.Y

	x, y, ok := circumcircleBottom(ax, ay, cx, cy)
	if !ok {
		return
	}
	ycenter := y + cSite.Y
	ybottom := ycenter + math.Sqrt(x*x+y*y)

	ce := &circleEvent{
		site:    cSite,
		arc:     arc,
		x:       x + cSite.X,
		y:       ybottom,
		ycenter: ycenter,
	}
	e.events.attachCircle(arc, ce, e.beach.count())
}

// clipEdges walks every edge created during the sweep, connects dangling
// ones to the bounding box, clips all of them against it, and drops any
// that end up entirely outside.
func (e *Engine) clipEdges(bbox BoundingBox) {
	kept := e.edges[:0]
	for _, edge := range e.edges {
		if e.connectEdge(edge, bbox) && clipEdge(edge, bbox) && !(equalEpsilon(edge.Va.X, edge.Vb.X) && equalEpsilon(edge.Va.Y, edge.Vb.Y)) {
			kept = append(kept, edge)
			continue
		}
		edge.Va.Vertex = NoVertex
		edge.Vb.Vertex = NoVertex
	}
	e.edges = kept
}

// connectEdge finishes an edge that never got its far endpoint during the
// sweep (one traced between two arcs that never collided before the sweep
// ran out of sites) by extending it to the bounding box along its
// perpendicular-bisector direction. Returns false if the edge's line never
// crosses the box at all. Every edge connected here, and every edge that
// clipEdge shortens, marks both its cells dirty, since their rings may now
// have a gap that needs a border edge.
func (e *Engine) connectEdge(edge *Edge, bbox BoundingBox) bool {
	if edge.Vb.Vertex != NoVertex {
		return true
	}

	va := edge.Va.Vertex
	edge.LeftCell.closeMe = true
	edge.RightCell.closeMe = true
	xl, xr, yt, yb := bbox.Xl, bbox.Xr, bbox.Yt, bbox.Yb
	lSite := edge.LeftCell.Site
	rSite := edge.RightCell.Site
	lx, ly := lSite.X, lSite.Y
	rx, ry := rSite.X, rSite.Y
	fx := (lx + rx) / 2
	fy := (ly + ry) / 2

	var fm, fb float64
	hasSlope := !equalEpsilon(ry, ly)
	if hasSlope {
		fm = (lx - rx) / (ry - ly)
		fb = fy - fm*fx
	}

	var vb Vertex
	switch {
	case !hasSlope:
		if fx < xl || fx >= xr {
			return false
		}
		if lx > rx {
			if va == NoVertex {
				va = Vertex{fx, yt}
			} else if va.Y >= yb {
				return false
			}
			vb = Vertex{fx, yb}
		} else {
			if va == NoVertex {
				va = Vertex{fx, yb}
			} else if va.Y < yt {
				return false
			}
			vb = Vertex{fx, yt}
		}
	case fm < -1 || fm > 1:
		if lx > rx {
			if va == NoVertex {
				va = Vertex{(yt - fb) / fm, yt}
			} else if va.Y >= yb {
				return false
			}
			vb = Vertex{(yb - fb) / fm, yb}
		} else {
			if va == NoVertex {
				va = Vertex{(yb - fb) / fm, yb}
			} else if va.Y < yt {
				return false
			}
			vb = Vertex{(yt - fb) / fm, yt}
		}
	default:
		if ly < ry {
			if va == NoVertex {
				va = Vertex{xl, fm*xl + fb}
			} else if va.X >= xr {
				return false
			}
			vb = Vertex{xr, fm*xr + fb}
		} else {
			if va == NoVertex {
				va = Vertex{xr, fm*xr + fb}
			} else if va.X < xl {
				return false
			}
			vb = Vertex{xl, fm*xl + fb}
		}
	}

	edge.Va.Vertex = va
	edge.Vb.Vertex = vb
	return true
}

// clipEdge clips edge against bbox using Liang-Barsky, mutating whichever
// endpoint falls outside. Returns false if the segment lies entirely
// outside the box.
func clipEdge(edge *Edge, bbox BoundingBox) bool {
	ax, ay := edge.Va.X, edge.Va.Y
	bx, by := edge.Vb.X, edge.Vb.Y
	t0, t1 := 0.0, 1.0
	dx := bx - ax
	dy := by - ay

	if !clipT(&t0, &t1, -dx, ax-bbox.Xl) {
		return false
	}
	if !clipT(&t0, &t1, dx, bbox.Xr-ax) {
		return false
	}
	if !clipT(&t0, &t1, -dy, ay-bbox.Yt) {
		return false
	}
	if !clipT(&t0, &t1, dy, bbox.Yb-ay) {
		return false
	}

	if t1 < 1 {
		edge.Vb.Vertex = Vertex{ax + t1*dx, ay + t1*dy}
	}
	if t0 > 0 {
		edge.Va.Vertex = Vertex{ax + t0*dx, ay + t0*dy}
	}
	if t0 > 0 || t1 < 1 {
		edge.LeftCell.closeMe = true
		edge.RightCell.closeMe = true
	}
	return true
}

func clipT(t0, t1 *float64, p, q float64) bool {
	if p == 0 {
		return q >= 0
	}
	r := q / p
	if p < 0 {
		if r > *t1 {
			return false
		}
		if r > *t0 {
			*t0 = r
		}
		return true
	}
	if r < *t0 {
		return false
	}
	if r < *t1 {
		*t1 = r
	}
	return true
}

// closeCells walks each closeMe-flagged cell's surviving half-edges and,
// wherever two consecutive ones don't share an endpoint, walks the
// bounding box border from the gap's start toward its end, inserting one
// border edge per side crossed, until the gap is closed. A cell whose ring
// never touched the box is left alone; one with no surviving half-edges at
// all (a duplicate site) is skipped.
func (e *Engine) closeCells(bbox BoundingBox, cells []*Cell) {
	xl, xr, yt, yb := bbox.Xl, bbox.Xr, bbox.Yt, bbox.Yb

	for _, cell := range cells {
		if e.effectiveSites == 1 && cell == e.soleCell {
			continue
		}
		if cell.prepareHalfEdges() == 0 {
			continue
		}
		if !cell.closeMe {
			continue
		}

		iLeft := 0
		for iLeft < len(cell.HalfEdges) {
			iRight := iLeft + 1
			if iRight == len(cell.HalfEdges) {
				iRight = 0
			}
			va := cell.HalfEdges[iLeft].EndPoint()
			vz := cell.HalfEdges[iRight].StartPoint()

			if closeVertex(va, vz) {
				iLeft++
				continue
			}

			// Walk the border counter-clockwise (left side downward,
			// bottom rightward, right side upward, top leftward) from
			// whichever side va sits on, inserting a border edge per
			// side, until the side reached also contains
			// vz (or we have gone all the way around, which should never
			// happen for a well-formed ring).
			for side := 0; side < 4; side++ {
				var vb Vertex
				var onFinalSide bool
				switch {
				case equalEpsilon(va.X, xl) && lessEpsilon(va.Y, yb):
					onFinalSide = equalEpsilon(vz.X, xl)
					if onFinalSide {
						vb = Vertex{xl, vz.Y}
					} else {
						vb = Vertex{xl, yb}
					}
				case equalEpsilon(va.Y, yb) && lessEpsilon(va.X, xr):
					onFinalSide = equalEpsilon(vz.Y, yb)
					if onFinalSide {
						vb = Vertex{vz.X, yb}
					} else {
						vb = Vertex{xr, yb}
					}
				case equalEpsilon(va.X, xr) && greaterEpsilon(va.Y, yt):
					onFinalSide = equalEpsilon(vz.X, xr)
					if onFinalSide {
						vb = Vertex{xr, vz.Y}
					} else {
						vb = Vertex{xr, yt}
					}
				case equalEpsilon(va.Y, yt) && greaterEpsilon(va.X, xl):
					onFinalSide = equalEpsilon(vz.Y, yt)
					if onFinalSide {
						vb = Vertex{vz.X, yt}
					} else {
						vb = Vertex{xl, yt}
					}
				default:
					if debugAssertions {
						panic(errors.AssertionFailedf("voronoi: half-edge endpoint %+v not on bounding box border", va))
					}
					onFinalSide = true
					vb = vz
				}

				edge := e.createBorderEdge(cell, va, vb)
				iLeft++
				cell.HalfEdges = insertHalfEdge(cell.HalfEdges, iLeft-1, newHalfEdge(edge, cell, nil))
				if onFinalSide {
					break
				}
				va = vb
			}
			iLeft++
		}
	}
}

// closeSingleSiteCell handles the degenerate diagram of exactly one
// effective site: no edges were ever created during the sweep, so the
// cell's ring is simply the bounding box itself, walked in the same
// bottom-left -> bottom-right -> top-right -> top-left rotation closeCells
// uses when it border-walks a partial ring.
func (e *Engine) closeSingleSiteCell(cell *Cell, bbox BoundingBox) {
	xl, xr, yt, yb := bbox.Xl, bbox.Xr, bbox.Yt, bbox.Yb
	corners := []Vertex{{xl, yb}, {xr, yb}, {xr, yt}, {xl, yt}}

	edges := make([]*Edge, 4)
	for i := 0; i < 4; i++ {
		edges[i] = e.createBorderEdge(cell, corners[i], corners[(i+1)%4])
	}
	cell.HalfEdges = make([]*HalfEdge, 4)
	for i, edge := range edges {
		cell.HalfEdges[i] = newHalfEdge(edge, cell, nil)
	}
}

func insertHalfEdge(edges []*HalfEdge, idx int, he *HalfEdge) []*HalfEdge {
	edges = append(edges, nil)
	copy(edges[idx+2:], edges[idx+1:])
	edges[idx+1] = he
	return edges
}

// gatherVertexEdges groups the surviving edges' endpoints that lie within
// epsilon of each other and sets each endpoint's Edges slice to every edge
// ending at that point, the edge itself included.
func gatherVertexEdges(edges []*Edge) {
	type bucket struct {
		v     Vertex
		edges []*Edge
	}
	var buckets []*bucket

	find := func(v Vertex) *bucket {
		for _, b := range buckets {
			if closeVertex(b.v, v) {
				return b
			}
		}
		return nil
	}

	for _, edge := range edges {
		if b := find(edge.Va.Vertex); b != nil {
			b.edges = append(b.edges, edge)
		} else {
			buckets = append(buckets, &bucket{v: edge.Va.Vertex, edges: []*Edge{edge}})
		}
		if b := find(edge.Vb.Vertex); b != nil {
			b.edges = append(b.edges, edge)
		} else {
			buckets = append(buckets, &bucket{v: edge.Vb.Vertex, edges: []*Edge{edge}})
		}
	}

	for _, b := range buckets {
		for _, edge := range b.edges {
			if closeVertex(edge.Va.Vertex, b.v) {
				edge.Va.Edges = b.edges
			}
			if closeVertex(edge.Vb.Vertex, b.v) {
				edge.Vb.Edges = b.edges
			}
		}
	}
}
