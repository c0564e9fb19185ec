package geo

import (
	"errors"
	"math"

	"github.com/twpayne/go-polyline"
)

// EarthRadiusMeters is the sphere radius used by the Maps JavaScript geometry
// library, so mileage matches what the browser used to compute.
const EarthRadiusMeters = 6378137.0

// MetersPerMile converts internal meter totals to statute miles
const MetersPerMile = 1609.344

// geoUtils implements the GeoUtils interface
type geoUtils struct{}

// NewGeoUtils creates a new GeoUtils implementation
func NewGeoUtils() GeoUtils {
	return &geoUtils{}
}

// PointToPoint calculates great-circle distance between two points using Haversine formula
func (g *geoUtils) PointToPoint(p1, p2 Point) (float64, error) {
	if !isValidCoordinate(p1) || !isValidCoordinate(p2) {
		return 0, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return Haversine(p1, p2), nil
}

// PathLength sums the segment lengths of an ordered path
func (g *geoUtils) PathLength(points []Point) (float64, error) {
	if len(points) == 0 {
		return 0, errors.New("path has no points")
	}
	total := 0.0
	for i := 1; i < len(points); i++ {
		d, err := g.PointToPoint(points[i-1], points[i])
		if err != nil {
			return 0, err
		}
		total += d
	}
	return total, nil
}

// Haversine returns the great-circle distance in meters without validating
// the inputs. Callers holding untrusted points should use PointToPoint.
func Haversine(p1, p2 Point) float64 {
	if p1 == p2 {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	dlat := lat2 - lat1
	dlon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// MetersToMiles converts a distance in meters to miles
func MetersToMiles(meters float64) float64 {
	return meters / MetersPerMile
}

// NearestIndex returns the index of the path point closest to target by
// Manhattan distance in degrees (|dLat| + |dLng|). The first minimal index
// wins. Returns -1 for an empty path.
func NearestIndex(points []Point, target Point) int {
	minIdx := -1
	minDist := math.Inf(1)
	for i, p := range points {
		d := math.Abs(p.Latitude-target.Latitude) + math.Abs(p.Longitude-target.Longitude)
		if d < minDist {
			minDist = d
			minIdx = i
		}
	}
	return minIdx
}

// DecodePolyline decodes Google polyline string to point sequence
func (g *geoUtils) DecodePolyline(encoded string) ([]Point, error) {
	if encoded == "" {
		return nil, errors.New("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, errors.New("failed to decode polyline: " + err.Error())
	}

	points := make([]Point, len(coords))
	for i, coord := range coords {
		points[i] = Point{
			Latitude:  coord[0],
			Longitude: coord[1],
		}
		if !isValidCoordinate(points[i]) {
			return nil, errors.New("decoded polyline contains invalid coordinates")
		}
	}

	return points, nil
}

// EncodePolyline encodes points with the Google polyline algorithm (1e5 precision)
func (g *geoUtils) EncodePolyline(points []Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Latitude, p.Longitude}
	}
	return string(polyline.EncodeCoords(coords))
}

// BoundsOf returns the bounding box of points
func (g *geoUtils) BoundsOf(points []Point) (Bounds, error) {
	if len(points) == 0 {
		return Bounds{}, errors.New("no points to bound")
	}
	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}
	return b, nil
}

// Extend grows the box to include p
func (b Bounds) Extend(p Point) Bounds {
	b.SouthWest.Latitude = math.Min(b.SouthWest.Latitude, p.Latitude)
	b.SouthWest.Longitude = math.Min(b.SouthWest.Longitude, p.Longitude)
	b.NorthEast.Latitude = math.Max(b.NorthEast.Latitude, p.Latitude)
	b.NorthEast.Longitude = math.Max(b.NorthEast.Longitude, p.Longitude)
	return b
}

// Union returns the box containing both b and other
func (b Bounds) Union(other Bounds) Bounds {
	return b.Extend(other.SouthWest).Extend(other.NorthEast)
}

// NewPoint creates a Point from latitude and longitude values with validation
func NewPoint(latitude, longitude float64) (Point, error) {
	point := Point{Latitude: latitude, Longitude: longitude}
	if !isValidCoordinate(point) {
		return Point{}, errors.New("invalid coordinates: latitude must be [-90, 90], longitude must be [-180, 180]")
	}
	return point, nil
}

// IsFinite reports whether both components are finite numbers
func IsFinite(p Point) bool {
	return !math.IsNaN(p.Latitude) && !math.IsInf(p.Latitude, 0) &&
		!math.IsNaN(p.Longitude) && !math.IsInf(p.Longitude, 0)
}

// isValidCoordinate validates latitude and longitude values
func isValidCoordinate(point Point) bool {
	return point.Latitude >= -90 && point.Latitude <= 90 &&
		point.Longitude >= -180 && point.Longitude <= 180
}
