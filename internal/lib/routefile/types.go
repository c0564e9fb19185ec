package routefile

import (
	"errors"
	"fmt"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

// ErrEmptyPath is matched by every EmptyPathError
var ErrEmptyPath = errors.New("route file contains no usable coordinates")

// EmptyPathError reports a route file that parsed but yielded zero path points
type EmptyPathError struct {
	Format string // "kml" or "gpx"
	Blocks int    // coordinate blocks seen while parsing
}

func (e *EmptyPathError) Error() string {
	return fmt.Sprintf("%s route file contains no usable coordinates (%d coordinate blocks)", e.Format, e.Blocks)
}

func (e *EmptyPathError) Unwrap() error {
	return ErrEmptyPath
}

// Document is the part of a route file the loader works with
type Document struct {
	Name    string
	Path    []geo.Point
	Markers []Marker
}

// Marker is a labeled point placemark, in source order. Point is nil when the
// placemark had no parseable coordinate.
type Marker struct {
	Index          int
	Label          string
	Description    string
	Point          *geo.Point
	Elevation      *float64
	RawCoordinates string
}
