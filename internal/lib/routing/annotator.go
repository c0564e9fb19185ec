package routing

import (
	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
	"github.com/feralcreative/moto-rooter/server/internal/lib/routefile"
)

// waypointAnnotator implements the WaypointAnnotator interface
type waypointAnnotator struct{}

// NewWaypointAnnotator creates a new WaypointAnnotator implementation
func NewWaypointAnnotator() WaypointAnnotator {
	return &waypointAnnotator{}
}

// Annotate projects each marker onto the nearest path point, classifies its
// label and tracks miles since the last fuel stop.
//
// The first emitted waypoint always resets the fuel baseline, whatever its
// label says. Riders fill up before the meet, so route files rarely mark it.
// Markers without a usable point are skipped and leave the baseline alone.
// When the file's first marker is skipped, the reset falls to the next marker
// that is emitted rather than being dropped; a route never starts without a
// baseline.
func (a *waypointAnnotator) Annotate(markers []routefile.Marker, path []geo.Point, acc *geo.Accumulator) Annotation {
	if acc == nil {
		acc = geo.NewAccumulator(path)
	}

	out := Annotation{Waypoints: make([]Waypoint, 0, len(markers))}
	baseline := 0.0
	first := true

	for _, m := range markers {
		if m.Point == nil {
			out.Skipped = append(out.Skipped, SkippedMarker{
				Index:  m.Index,
				Label:  m.Label,
				Reason: "no parseable coordinate",
			})
			continue
		}

		idx := geo.NearestIndex(path, *m.Point)
		if idx < 0 {
			out.Skipped = append(out.Skipped, SkippedMarker{
				Index:  m.Index,
				Label:  m.Label,
				Reason: "route has no path to project onto",
			})
			continue
		}

		label := ParseLabel(m.Label)
		cumulative := acc.CumulativeDistanceTo(idx)
		fuelStop := first || label.Has(RoleGas)
		if fuelStop {
			baseline = cumulative
		}
		first = false

		primary := label.Primary()
		w := Waypoint{
			Index:               m.Index,
			Point:               *m.Point,
			Elevation:           m.Elevation,
			RawLabel:            m.Label,
			DisplayName:         label.DisplayName,
			Role:                primary,
			Roles:               label.Roles,
			Title:               primary.Title(),
			Icon:                primary.IconFile(),
			NumberOnly:          label.NumberOnly,
			Description:         routefile.PlainText(m.Description),
			PathIndex:           idx,
			FuelStop:            fuelStop,
			CumulativeMeters:    cumulative,
			MetersSinceFuelStop: cumulative - baseline,
			CumulativeMiles:     geo.MetersToMiles(cumulative),
			MilesSinceFuelStop:  geo.MetersToMiles(cumulative - baseline),
		}
		if w.Roles == nil {
			w.Roles = []Role{}
		}
		if w.Description != m.Description {
			w.DescriptionHTML = m.Description
		}
		out.Waypoints = append(out.Waypoints, w)
	}

	return out
}
