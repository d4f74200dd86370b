package voronoi

import (
	"math"

	"github.com/cockroachdb/errors"
)

// Sentinel errors returned by Compute's input validation. They are wrapped
// with additional detail, so callers should match them with errors.Is.
var (
	// ErrInvalidBoundingBox is returned when the bounding box does not
	// satisfy Xl < Xr and Yt < Yb.
	ErrInvalidBoundingBox = errors.New("voronoi: invalid bounding box")
	// ErrNonFiniteSite is returned when a site's coordinate is NaN or
	// infinite.
	ErrNonFiniteSite = errors.New("voronoi: non-finite site coordinate")
)

// debugAssertions gates the panic in the "impossible case" of site-event
// handling (a new arc with a right neighbor but no left neighbor can only
// happen if the sweep invariant that sites are consumed top-to-bottom,
// left-to-right has already been violated). Left false in release builds,
// where the branch is simply a no-op, per the error-handling design.
var debugAssertions = false

func validate(sites []Site, bbox BoundingBox) error {
	if !bbox.valid() {
		return errors.Wrapf(ErrInvalidBoundingBox, "xl=%v xr=%v yt=%v yb=%v", bbox.Xl, bbox.Xr, bbox.Yt, bbox.Yb)
	}
	for _, s := range sites {
		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsInf(s.X, 0) || math.IsInf(s.Y, 0) {
			return errors.Wrapf(ErrNonFiniteSite, "site id=%d x=%v y=%v", s.ID, s.X, s.Y)
		}
	}
	return nil
}
