// Package geometry implements the containment and measurement rules shared by
// every entry point that reasons about region shapes.
//
// Coordinates are WGS84 degrees. Throughout the package longitude is treated as
// the x axis and latitude as the y axis.
package geometry

import (
	"fmt"
	"math"
)

// Point represents a geographic coordinate with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Offset returns the point shifted by the given deltas in degrees.
func (p Point) Offset(dLat, dLng float64) Point {
	return Point{Lat: p.Lat + dLat, Lng: p.Lng + dLng}
}

// Valid reports whether the point holds finite coordinates.
func (p Point) Valid() bool {
	return !math.IsNaN(p.Lat) && !math.IsNaN(p.Lng) && !math.IsInf(p.Lat, 0) && !math.IsInf(p.Lng, 0)
}

// Kind identifies the shape variant of a region.
type Kind string

const (
	KindPolygon   Kind = "polygon"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
)

// ParseKind converts a string to a Kind. An empty string is treated as a
// polygon, which is how regions without an explicit type have always been
// interpreted.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindPolygon:
		return KindPolygon, nil
	case KindRectangle:
		return KindRectangle, nil
	case KindCircle:
		return KindCircle, nil
	}
	return "", fmt.Errorf("unknown shape type %q", s)
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLng float64 `json:"minLng"`
	MaxLat float64 `json:"maxLat"`
	MaxLng float64 `json:"maxLng"`
}

// BoundsOf returns the bounding box of pts. The second return value is false
// when pts is empty.
func BoundsOf(pts []Point) (Bounds, bool) {
	if len(pts) == 0 {
		return Bounds{}, false
	}
	b := Bounds{MinLat: pts[0].Lat, MaxLat: pts[0].Lat, MinLng: pts[0].Lng, MaxLng: pts[0].Lng}
	for _, p := range pts[1:] {
		b.MinLat = math.Min(b.MinLat, p.Lat)
		b.MaxLat = math.Max(b.MaxLat, p.Lat)
		b.MinLng = math.Min(b.MinLng, p.Lng)
		b.MaxLng = math.Max(b.MaxLng, p.Lng)
	}
	return b, true
}

// Contains reports whether p lies inside the box. Edges are inclusive.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// Centroid returns the arithmetic mean of the vertices. It is used as a
// display anchor, not as a true area centroid.
func Centroid(pts []Point) (Point, bool) {
	if len(pts) == 0 {
		return Point{}, false
	}
	var c Point
	for _, p := range pts {
		c.Lat += p.Lat
		c.Lng += p.Lng
	}
	n := float64(len(pts))
	return Point{Lat: c.Lat / n, Lng: c.Lng / n}, true
}
