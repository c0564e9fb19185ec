package routefile

import (
	"math"
	"strconv"
	"strings"

	"github.com/feralcreative/moto-rooter/server/internal/lib/geo"
)

// ParseCoordinates reads a KML coordinate block: whitespace separated
// "lng,lat[,elev]" tuples. Longitude comes first. Tuples whose first two
// components are not finite numbers are dropped; duplicates are kept.
func ParseCoordinates(block string) []geo.Point {
	fields := strings.Fields(block)
	points := make([]geo.Point, 0, len(fields))
	for _, tuple := range fields {
		p, _, ok := parseTuple(tuple)
		if ok {
			points = append(points, p)
		}
	}
	return points
}

// parseTuple parses a single "lng,lat[,elev]" tuple
func parseTuple(tuple string) (geo.Point, *float64, bool) {
	parts := strings.Split(tuple, ",")
	if len(parts) < 2 {
		return geo.Point{}, nil, false
	}
	lng, ok := parseFinite(parts[0])
	if !ok {
		return geo.Point{}, nil, false
	}
	lat, ok := parseFinite(parts[1])
	if !ok {
		return geo.Point{}, nil, false
	}

	var ele *float64
	if len(parts) > 2 {
		if v, ok := parseFinite(parts[2]); ok {
			ele = &v
		}
	}
	return geo.Point{Latitude: lat, Longitude: lng}, ele, true
}

func parseFinite(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// largestBlock picks the block with the most valid pairs; the first wins a tie
func largestBlock(blocks []string) []geo.Point {
	var best []geo.Point
	for _, b := range blocks {
		pts := ParseCoordinates(b)
		if len(pts) > len(best) {
			best = pts
		}
	}
	return best
}
