package geo

// Accumulator holds prefix sums of segment lengths along a path so the
// distance from the start to any point index is an O(1) lookup.
type Accumulator struct {
	prefix []float64
}

// NewAccumulator performs len(points)-1 distance computations up front
func NewAccumulator(points []Point) *Accumulator {
	prefix := make([]float64, len(points))
	for i := 1; i < len(points); i++ {
		prefix[i] = prefix[i-1] + Haversine(points[i-1], points[i])
	}
	return &Accumulator{prefix: prefix}
}

// Len is the number of path points
func (a *Accumulator) Len() int {
	return len(a.prefix)
}

// TotalMeters is the full path length
func (a *Accumulator) TotalMeters() float64 {
	if len(a.prefix) == 0 {
		return 0
	}
	return a.prefix[len(a.prefix)-1]
}

// TotalMiles is the full path length in miles
func (a *Accumulator) TotalMiles() float64 {
	return MetersToMiles(a.TotalMeters())
}

// CumulativeDistanceTo returns the meters from point 0 to point index,
// including every segment i-1→i for i <= index. Indexes outside the path
// are clamped to its ends.
func (a *Accumulator) CumulativeDistanceTo(index int) float64 {
	if len(a.prefix) == 0 || index <= 0 {
		return 0
	}
	if index >= len(a.prefix) {
		index = len(a.prefix) - 1
	}
	return a.prefix[index]
}

// CumulativeMilesTo is CumulativeDistanceTo in miles
func (a *Accumulator) CumulativeMilesTo(index int) float64 {
	return MetersToMiles(a.CumulativeDistanceTo(index))
}
