package ride

import (
	"time"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routing"
)

// FailureKind classifies why a manifest route did not load
type FailureKind string

const (
	FailureFetch     FailureKind = "fetch"
	FailureEmptyPath FailureKind = "empty_path"
	FailureParse     FailureKind = "parse"
)

// Route is one fully loaded and annotated route
type Route struct {
	Base        string  `json:"base"`
	Name        string  `json:"name"`
	SourceName  string  `json:"source_name,omitempty"`
	Format      string  `json:"format"`
	ColorIndex  int     `json:"color_index"`
	Color       string  `json:"color"`
	KMLPath     string  `json:"kml_path,omitempty"`
	GPXPath     string  `json:"gpx_path,omitempty"`
	MRA         string  `json:"mra,omitempty"`
	TotalMeters float64 `json:"total_meters"`
	TotalMiles  float64 `json:"total_miles"`

	Polyline geo.Polyline `json:"polyline"`
	Bounds   geo.Bounds   `json:"bounds"`

	Waypoints []routing.Waypoint      `json:"waypoints"`
	Skipped   []routing.SkippedMarker `json:"skipped,omitempty"`
}

// Failure reports a route that was omitted from the set. ColorIndex is -1 for
// a manifest row that was rejected before it was assigned a color.
type Failure struct {
	Base       string      `json:"base"`
	ColorIndex int         `json:"color_index"`
	Kind       FailureKind `json:"kind"`
	Message    string      `json:"message"`
}

// RouteSet is every route named by the manifest that loaded, in manifest
// order, plus the ones that did not
type RouteSet struct {
	Routes     []*Route    `json:"routes"`
	Failures   []Failure   `json:"failures,omitempty"`
	Bounds     *geo.Bounds `json:"bounds,omitempty"`
	TotalMiles float64     `json:"total_miles"`
	ETag       string      `json:"etag"`
	LoadedAt   time.Time   `json:"loaded_at"`
}

// Find returns the route with the given base, or nil
func (s *RouteSet) Find(base string) *Route {
	for _, r := range s.Routes {
		if r.Base == base {
			return r
		}
	}
	return nil
}

// Summarize fills the set-level totals and content hash from the routes
func (s *RouteSet) Summarize() {
	s.Bounds = nil
	s.TotalMiles = 0
	for _, r := range s.Routes {
		s.TotalMiles += r.TotalMiles
		if s.Bounds == nil {
			b := r.Bounds
			s.Bounds = &b
			continue
		}
		u := s.Bounds.Union(r.Bounds)
		s.Bounds = &u
	}
	s.ETag = NewContentHasher().HashRouteSet(s)
}
