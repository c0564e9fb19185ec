package ride

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
)

// ContentHasher derives stable hashes for HTTP caching
type ContentHasher struct{}

// NewContentHasher creates a new content hasher
func NewContentHasher() *ContentHasher {
	return &ContentHasher{}
}

// HashRouteSet hashes everything a client renders. The load time is left out
// so an unchanged reload keeps its ETag.
func (h *ContentHasher) HashRouteSet(s *RouteSet) string {
	sum := sha256.New()
	for _, r := range s.Routes {
		h.writeRoute(sum, r)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(sum, "F|%s|%s|%s\n", f.Base, f.Kind, f.Message)
	}
	return `"` + hex.EncodeToString(sum.Sum(nil))[:32] + `"`
}

// HashRoute hashes a single route
func (h *ContentHasher) HashRoute(r *Route) string {
	sum := sha256.New()
	h.writeRoute(sum, r)
	return `"` + hex.EncodeToString(sum.Sum(nil))[:32] + `"`
}

func (h *ContentHasher) writeRoute(sum hash.Hash, r *Route) {
	fmt.Fprintf(sum, "R|%s|%s|%d|%s|%s|%s|%s|%s\n",
		r.Base, r.Name, r.ColorIndex, r.Color, r.MRA, r.KMLPath, r.GPXPath, r.Polyline.EncodedPolyline)
	for _, w := range r.Waypoints {
		fmt.Fprintf(sum, "W|%d|%s|%s|%s|%s\n",
			w.Index, w.RawLabel, strconv.FormatFloat(w.Point.Latitude, 'f', 7, 64),
			strconv.FormatFloat(w.Point.Longitude, 'f', 7, 64), w.DescriptionHTML+w.Description)
		if w.Elevation != nil {
			fmt.Fprintf(sum, "E|%s\n", strconv.FormatFloat(*w.Elevation, 'f', 1, 64))
		}
	}
}
