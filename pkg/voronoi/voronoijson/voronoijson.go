// Package voronoijson marshals a computed voronoi.Diagram to a stable JSON
// shape: sites by index, edges with endpoints and left/right site ids,
// cells with ordered vertex rings. It is the wire format behind the CLI's
// -out flag and the golden-file regression test.
package voronoijson

import (
	"encoding/json"
	"io"

	"github.com/cockroachdb/errors"

	"github.com/0x0FACED/fortune-voronoi/pkg/voronoi"
)

// Point is a JSON-friendly 2D coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Edge is one diagram edge. RightSite is nil for a border edge, signaling
// that the edge lies on the viewport boundary rather than between two
// sites.
type Edge struct {
	Va        Point `json:"va"`
	Vb        Point `json:"vb"`
	LeftSite  int   `json:"leftSite"`
	RightSite *int  `json:"rightSite"`
}

// Cell is one site's region: its site index and the ordered, closed ring of
// vertices bounding it (counter-clockwise). Empty for a site that never
// received a region, e.g. a duplicate of an earlier site.
type Cell struct {
	Site int     `json:"site"`
	Ring []Point `json:"ring"`
}

// Diagram is the full serializable result of a Compute call.
type Diagram struct {
	Sites    []Point `json:"sites"`
	Edges    []Edge  `json:"edges"`
	Cells    []Cell  `json:"cells"`
	ExecTime float64 `json:"execTimeSeconds"`
}

// Encode converts d into its wire representation. Each cell's ring lists
// the start point of each of its half-edges, in ring order.
func Encode(d *voronoi.Diagram) *Diagram {
	out := &Diagram{
		Sites:    make([]Point, len(d.Cells)),
		Cells:    make([]Cell, len(d.Cells)),
		ExecTime: d.ExecTime,
	}

	for i, cell := range d.Cells {
		out.Sites[i] = Point{X: cell.Site.X, Y: cell.Site.Y}
		ring := make([]Point, 0, len(cell.HalfEdges))
		for _, he := range cell.HalfEdges {
			p := he.StartPoint()
			ring = append(ring, Point{X: p.X, Y: p.Y})
		}
		out.Cells[i] = Cell{Site: cell.Site.ID, Ring: ring}
	}

	out.Edges = make([]Edge, 0, len(d.Edges))
	for _, e := range d.Edges {
		je := Edge{
			Va:       Point{X: e.Va.X, Y: e.Va.Y},
			Vb:       Point{X: e.Vb.X, Y: e.Vb.Y},
			LeftSite: e.LeftCell.Site.ID,
		}
		if e.RightCell != nil {
			id := e.RightCell.Site.ID
			je.RightSite = &id
		}
		out.Edges = append(out.Edges, je)
	}

	return out
}

// Write encodes d and writes it to w as indented JSON.
func Write(w io.Writer, d *voronoi.Diagram) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Encode(d)); err != nil {
		return errors.Wrap(err, "voronoijson: encode diagram")
	}
	return nil
}

// Marshal encodes d to a JSON byte slice, for callers that want the bytes
// directly (golden-file comparisons, in-memory buffers).
func Marshal(d *voronoi.Diagram) ([]byte, error) {
	b, err := json.MarshalIndent(Encode(d), "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "voronojson: marshal diagram")
	}
	return b, nil
}

// SiteInput is the input-side counterpart: the CLI's -in flag reads a plain
// JSON array of {x,y} points and turns it into voronoi.Site values, IDs
// assigned by position.
type SiteInput struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DecodeSites parses a JSON array of {x,y} points from r into voronoi.Site
// values, assigning each one's ID from its position in the array.
func DecodeSites(r io.Reader) ([]voronoi.Site, error) {
	var inputs []SiteInput
	if err := json.NewDecoder(r).Decode(&inputs); err != nil {
		return nil, errors.Wrap(err, "voronoijson: decode sites")
	}
	sites := make([]voronoi.Site, len(inputs))
	for i, in := range inputs {
		sites[i] = voronoi.Site{X: in.X, Y: in.Y, ID: i}
	}
	return sites, nil
}
