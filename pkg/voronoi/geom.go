// Package voronoi computes the Voronoi diagram of a set of 2D sites within
// an axis-aligned bounding box, using Fortune's sweepline algorithm.
//
// The sweep walks sites top to bottom, maintaining a beachline of parabolic
// arcs on a red-black tree, and fires circle events whenever three arcs'
// break-points converge on a Voronoi vertex. After the sweep, dangling edges
// are connected to the bounding box, clipped against it, and each cell's
// ring of half-edges is closed along the box border.
//
// Port lineage: this package descends from rhill's Javascript-Voronoi via
// pzsz/voronoi (github.com/zzwx/voronoi), ported to idiomatic Go.
package voronoi

import "math"

// epsilon is the tolerance used for all geometric equality comparisons
// (vertex coincidence, break-point ties, boundary-walk termination).
const epsilon = 1e-9

// collinearEpsilon is the looser tolerance applied to the circumcircle
// orientation test; it was established empirically to suppress spurious
// "infinite circle" circle events caused by finite-precision cancellation.
const collinearEpsilon = -2e-12

// Site is one input point, carrying the index it was supplied at so a
// caller can map a result cell back to its originating site.
type Site struct {
	X, Y float64
	ID   int
}

// Vertex is a point in the plane. Vertices are copied by value; two
// vertices within epsilon of each other are treated as the same point but
// are never deduplicated in storage.
type Vertex struct {
	X float64
	Y float64
}

// NoVertex marks an edge endpoint that has not yet been determined.
var NoVertex = Vertex{math.Inf(1), math.Inf(1)}

// BoundingBox is the axis-aligned viewport the diagram is clipped and
// closed against. Xl < Xr and Yt < Yb; Yt is the top (smaller y).
type BoundingBox struct {
	Xl, Xr, Yt, Yb float64
}

// NewBoundingBox builds a BoundingBox from its four edges.
func NewBoundingBox(xl, xr, yt, yb float64) BoundingBox {
	return BoundingBox{Xl: xl, Xr: xr, Yt: yt, Yb: yb}
}

func (b BoundingBox) valid() bool {
	return b.Xl < b.Xr && b.Yt < b.Yb
}

func equalEpsilon(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func lessEpsilon(a, b float64) bool {
	return b-a > epsilon
}

func greaterEpsilon(a, b float64) bool {
	return a-b > epsilon
}

// sitesByYX sorts sites by y descending, then x descending, so that
// popping from the tail of the sorted slice yields ascending y with ties
// broken by ascending x -- the order the sweepline must consume events in.
type sitesByYX []Site

func (s sitesByYX) Len() int      { return len(s) }
func (s sitesByYX) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s sitesByYX) Less(i, j int) bool {
	if s[i].Y != s[j].Y {
		return s[j].Y < s[i].Y
	}
	return s[j].X < s[i].X
}

// circumcircleBottom computes the center of the circle through three points
// a, b, c (with b and c given relative to a, i.e. bx = b.X - a.X etc.),
// returning the pre-translation offset (x, y) of the center and whether the
// triplet is oriented such that a circle event actually exists (it does
// not when a, b, c are clockwise or nearly collinear). The sweepline y of
// the circle's bottom is left to the caller: a.Y + y + sqrt(x*x + y*y).
func circumcircleBottom(bx, by, cx, cy float64) (x, y float64, ok bool) {
	d := 2 * (bx*cy - by*cx)
	if d >= collinearEpsilon {
		return 0, 0, false
	}
	hb := bx*bx + by*by
	hc := cx*cx + cy*cy
	x = (cy*hb - by*hc) / d
	y = (bx*hc - cx*hb) / d
	return x, y, true
}
