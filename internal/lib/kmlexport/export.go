package kmlexport

import (
	"fmt"
	"image/color"
	"io"
	"strconv"
	"strings"

	"github.com/twpayne/go-kml"

	"github.com/feralcreative/moto-rooter/server/internal/lib/ride"
)

// lineWidth matches the stroke weight the map draws routes with
const lineWidth = 4

// Write renders an annotated route as KML: the path styled in the route color
// and one placemark per waypoint with its mileage in the balloon
func Write(w io.Writer, r *ride.Route) error {
	c, err := ParseHexColor(r.Color)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", r.Base, err)
	}

	lineStyle := kml.SharedStyle(
		"route-line",
		kml.LineStyle(
			kml.Color(c),
			kml.Width(lineWidth),
		),
	)

	coords := make([]kml.Coordinate, len(r.Polyline.Points))
	for i, p := range r.Polyline.Points {
		coords[i] = kml.Coordinate{Lon: p.Longitude, Lat: p.Latitude}
	}

	waypoints := make([]kml.Element, 0, len(r.Waypoints)+1)
	waypoints = append(waypoints, kml.Name("Waypoints"))
	for _, wp := range r.Waypoints {
		coord := kml.Coordinate{Lon: wp.Point.Longitude, Lat: wp.Point.Latitude}
		if wp.Elevation != nil {
			coord.Alt = *wp.Elevation
		}
		waypoints = append(waypoints, kml.Placemark(
			kml.Name(wp.RawLabel),
			kml.Description(balloon(wp.Title, wp.DisplayName, wp.Description, wp.CumulativeMiles, wp.MilesSinceFuelStop)),
			kml.Point(kml.Coordinates(coord)),
		))
	}

	doc := kml.KML(
		kml.Document(
			kml.Name(r.Name),
			lineStyle,
			kml.Placemark(
				kml.Name(r.Name),
				kml.StyleURL(lineStyle.URL()),
				kml.LineString(
					kml.Tessellate(true),
					kml.Coordinates(coords...),
				),
			),
			kml.Folder(waypoints...),
		),
	)
	return doc.WriteIndent(w, "", "  ")
}

func balloon(title, name, description string, fromStart, sinceGas float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", title, name)
	fmt.Fprintf(&b, "Miles from start: %.1f\n", fromStart)
	fmt.Fprintf(&b, "Miles since gas: %.1f", sinceGas)
	if description != "" {
		b.WriteString("\n")
		b.WriteString(description)
	}
	return b.String()
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque color
func ParseHexColor(s string) (color.Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 {
		return nil, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
