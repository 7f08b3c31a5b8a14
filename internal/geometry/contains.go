package geometry

import "math"

// EarthRadiusMeters is the mean Earth radius used by the flat circle approximation.
const EarthRadiusMeters = 6371000.0

// DefaultCircleRadiusMeters is the radius assumed for a circle stored without a rim point.
const DefaultCircleRadiusMeters = 1000.0

// PointInPolygon tests whether pt lies inside the ring using the even-odd rule.
//
// For each edge (i, j=i-1) the crossing flag toggles when exactly one endpoint
// lies strictly above the point and the edge intersects the horizontal ray to
// the right of it. Self-intersecting rings are evaluated as-is: the result is
// whatever the even-odd rule yields.
func PointInPolygon(pt Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	x, y := pt.Lng, pt.Lat
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lng, ring[i].Lat
		xj, yj := ring[j].Lng, ring[j].Lat
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInRectangle tests pt against the axis-aligned extent of the stored
// corners. Rotated rectangles are not supported; only min/max matter, so the
// order of the corners is irrelevant.
func PointInRectangle(pt Point, corners []Point) bool {
	if len(corners) < 4 {
		return false
	}
	b, _ := BoundsOf(corners)
	return b.Contains(pt)
}

// FlatDistance approximates the distance in meters between a and b by treating
// the angular deltas as Euclidean components on a sphere of radius
// EarthRadiusMeters. Accuracy degrades away from the equator because the
// longitude delta is not scaled by cos(lat).
func FlatDistance(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	return math.Sqrt(dLat*dLat+dLng*dLng) * EarthRadiusMeters
}

// CircleRadius returns the flat-approximated radius defined by center and rim,
// or DefaultCircleRadiusMeters when rim is nil.
func CircleRadius(center Point, rim *Point) float64 {
	if rim == nil {
		return DefaultCircleRadiusMeters
	}
	return FlatDistance(center, *rim)
}

// PointInCircle reports whether pt lies within radius meters of center, using
// FlatDistance for the comparison.
func PointInCircle(pt, center Point, radius float64) bool {
	return FlatDistance(center, pt) <= radius
}
