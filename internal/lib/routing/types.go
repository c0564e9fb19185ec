package routing

import (
	"errors"
	"fmt"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routefile"
)

// Waypoint is a route marker annotated with its role and distance metrics.
// Waypoints keep source marker order, not path order.
type Waypoint struct {
	Index           int       `json:"index"`
	Point           geo.Point `json:"point"`
	Elevation       *float64  `json:"elevation_meters,omitempty"`
	RawLabel        string    `json:"raw_label"`
	DisplayName     string    `json:"display_name"`
	Role            Role      `json:"role"`
	Roles           []Role    `json:"roles"`
	Title           string    `json:"title"`
	Icon            string    `json:"icon,omitempty"`
	NumberOnly      bool      `json:"number_only,omitempty"`
	Description     string    `json:"description"`
	DescriptionHTML string    `json:"description_html,omitempty"`

	// PathIndex is the path point the marker projects onto
	PathIndex int `json:"path_index"`

	// FuelStop is set when this waypoint reset the fuel baseline
	FuelStop bool `json:"fuel_stop"`

	CumulativeMeters    float64 `json:"cumulative_meters"`
	MetersSinceFuelStop float64 `json:"meters_since_fuel_stop"`
	CumulativeMiles     float64 `json:"cumulative_miles"`
	MilesSinceFuelStop  float64 `json:"miles_since_fuel_stop"`
}

// ErrMarkerSkipped is matched by every SkippedMarker
var ErrMarkerSkipped = errors.New("marker skipped")

// SkippedMarker records a marker that produced no waypoint. It is reported to
// the caller and never interrupts the remaining markers.
type SkippedMarker struct {
	Index  int    `json:"index"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

func (s SkippedMarker) Error() string {
	return fmt.Sprintf("marker %d (%q) skipped: %s", s.Index, s.Label, s.Reason)
}

func (s SkippedMarker) Unwrap() error {
	return ErrMarkerSkipped
}

// Annotation is the annotator's output for one route
type Annotation struct {
	Waypoints []Waypoint
	Skipped   []SkippedMarker
}

// WaypointAnnotator turns route markers into waypoints
type WaypointAnnotator interface {
	// Annotate classifies markers and measures each along path. acc must be
	// built from path; nil builds one.
	Annotate(markers []routefile.Marker, path []geo.Point, acc *geo.Accumulator) Annotation
}
