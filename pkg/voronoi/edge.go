package voronoi

import (
	"math"
	"sort"
)

// EdgeVertex is one endpoint of an Edge, carrying every edge (this one
// included) that terminates at this point within epsilon (populated by
// gatherVertexEdges once the sweep and closing pass are done).
type EdgeVertex struct {
	Vertex
	Edges []*Edge
}

// Edge is the segment of the perpendicular bisector of (LeftCell.Site,
// RightCell.Site) that bounds both cells. RightCell is nil for a border
// edge -- one synthesized along the bounding box during cell closing.
// Va/Vb are NoVertex until the sweep (or closing) determines them; an edge
// with one endpoint set is "dangling", with neither set is "open".
type Edge struct {
	LeftCell  *Cell
	RightCell *Cell
	Va        EdgeVertex
	Vb        EdgeVertex
}

func newEdge(leftCell, rightCell *Cell) *Edge {
	return &Edge{
		LeftCell:  leftCell,
		RightCell: rightCell,
		Va:        EdgeVertex{Vertex: NoVertex},
		Vb:        EdgeVertex{Vertex: NoVertex},
	}
}

// HalfEdge associates an Edge with one of the (at most two) cells it
// bounds, plus the angle used to order a cell's ring counter-clockwise.
type HalfEdge struct {
	Cell  *Cell
	Edge  *Edge
	Angle float64
}

func newHalfEdge(edge *Edge, leftCell, rightCell *Cell) *HalfEdge {
	h := &HalfEdge{Cell: leftCell, Edge: edge}
	if rightCell != nil {
		h.Angle = math.Atan2(rightCell.Site.Y-leftCell.Site.Y, rightCell.Site.X-leftCell.Site.X)
		return h
	}
	// Border edges have no right cell, so the sorting angle is instead
	// that of the edge's outward normal, derived from its own endpoints.
	va, vb := edge.Va, edge.Vb
	if edge.LeftCell == leftCell {
		h.Angle = math.Atan2(vb.X-va.X, va.Y-vb.Y)
	} else {
		h.Angle = math.Atan2(va.X-vb.X, vb.Y-va.Y)
	}
	return h
}

// StartPoint returns the endpoint of the half-edge's underlying edge that
// corresponds to its own cell's side.
func (h *HalfEdge) StartPoint() Vertex {
	if h.Edge.LeftCell == h.Cell {
		return h.Edge.Va.Vertex
	}
	return h.Edge.Vb.Vertex
}

// EndPoint returns the other endpoint, i.e. the one StartPoint does not.
func (h *HalfEdge) EndPoint() Vertex {
	if h.Edge.LeftCell == h.Cell {
		return h.Edge.Vb.Vertex
	}
	return h.Edge.Va.Vertex
}

type halfEdgesByAngle []*HalfEdge

func (s halfEdgesByAngle) Len() int      { return len(s) }
func (s halfEdgesByAngle) Swap(i, j int) { s[i], s[j] = s[j], s[i] }

// Less sorts by descending angle, which walks a cell's ring
// counter-clockwise.
func (s halfEdgesByAngle) Less(i, j int) bool { return s[i].Angle > s[j].Angle }

// Cell is one input site's Voronoi region: its site and the ring of
// half-edges bounding it, in counter-clockwise order once finalized.
type Cell struct {
	Site      Site
	HalfEdges []*HalfEdge

	// closeMe marks a cell touched by clipping/connecting during
	// finalization, meaning its ring may have gaps that need border
	// edges inserted by closeCells.
	closeMe bool
}

func newCell(site Site) *Cell {
	return &Cell{Site: site}
}

// prepareHalfEdges drops half-edges whose edge never got both endpoints
// (dangling edges discarded during clipping) and sorts what remains
// counter-clockwise by angle. It returns the number of surviving
// half-edges.
func (c *Cell) prepareHalfEdges() int {
	kept := c.HalfEdges[:0]
	for _, h := range c.HalfEdges {
		if h.Edge.Va.Vertex != NoVertex && h.Edge.Vb.Vertex != NoVertex {
			kept = append(kept, h)
		}
	}
	c.HalfEdges = kept
	sort.Sort(halfEdgesByAngle(c.HalfEdges))
	return len(c.HalfEdges)
}

// Diagram is the finalized result of a Compute call.
type Diagram struct {
	// Cells is indexed parallel to the input sites.
	Cells []*Cell
	// Edges holds every surviving edge, interior and border alike, in no
	// particular order.
	Edges []*Edge
	// ExecTime is the wall-clock duration the sweep + finalization took.
	ExecTime float64
}

// VertexDegree returns how many distinct edges of the diagram terminate
// at v within epsilon -- useful for asserting that coincident circle
// events collapsed into a single Voronoi vertex of the expected degree.
func (d *Diagram) VertexDegree(v Vertex) int {
	n := 0
	for _, e := range d.Edges {
		if closeVertex(e.Va.Vertex, v) {
			n++
		}
		if closeVertex(e.Vb.Vertex, v) {
			n++
		}
	}
	return n
}

func closeVertex(a, b Vertex) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon
}
