package routefile

import (
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

// GPX represents the parts of a GPX 1.1 file a route needs
type GPX struct {
	XMLName   xml.Name   `xml:"gpx"`
	Name      string     `xml:"metadata>name"`
	Waypoints []GPXPoint `xml:"wpt"`
	Routes    []GPXRoute `xml:"rte"`
	Tracks    []GPXTrack `xml:"trk"`
}

// GPXPoint is a wpt, rtept or trkpt element
type GPXPoint struct {
	Latitude    float64  `xml:"lat,attr"`
	Longitude   float64  `xml:"lon,attr"`
	Elevation   *float64 `xml:"ele"`
	Name        string   `xml:"name"`
	Comment     string   `xml:"cmt"`
	Description string   `xml:"desc"`
}

// GPXRoute is a rte element
type GPXRoute struct {
	Name   string     `xml:"name"`
	Points []GPXPoint `xml:"rtept"`
}

// GPXTrack is a trk element; its segments are joined into one line
type GPXTrack struct {
	Name     string `xml:"name"`
	Segments []struct {
		Points []GPXPoint `xml:"trkpt"`
	} `xml:"trkseg"`
}

// ParseGPX decodes GPX text into a Document. The longest track or route is
// the path; wpt elements become markers.
func ParseGPX(text string) (*Document, error) {
	var g GPX
	if err := xml.NewDecoder(strings.NewReader(trimPreamble(text))).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	var lines [][]GPXPoint
	for _, trk := range g.Tracks {
		var line []GPXPoint
		for _, seg := range trk.Segments {
			line = append(line, seg.Points...)
		}
		lines = append(lines, line)
	}
	for _, rte := range g.Routes {
		lines = append(lines, rte.Points)
	}

	doc := &Document{Name: g.Name}
	for _, line := range lines {
		pts := gpxPath(line)
		if len(pts) > len(doc.Path) {
			doc.Path = pts
		}
	}
	if len(doc.Path) == 0 {
		return nil, &EmptyPathError{Format: "gpx", Blocks: len(lines)}
	}

	for i, w := range g.Waypoints {
		m := Marker{
			Index:       i,
			Label:       strings.TrimSpace(w.Name),
			Description: strings.TrimSpace(w.Description),
			Elevation:   w.Elevation,
		}
		if m.Description == "" {
			m.Description = strings.TrimSpace(w.Comment)
		}
		p := geo.Point{Latitude: w.Latitude, Longitude: w.Longitude}
		if geo.IsFinite(p) {
			m.Point = &p
		}
		doc.Markers = append(doc.Markers, m)
	}
	return doc, nil
}

func gpxPath(line []GPXPoint) []geo.Point {
	pts := make([]geo.Point, 0, len(line))
	for _, p := range line {
		pt := geo.Point{Latitude: p.Latitude, Longitude: p.Longitude}
		if geo.IsFinite(pt) {
			pts = append(pts, pt)
		}
	}
	return pts
}
