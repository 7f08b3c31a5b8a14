package geometry

import (
	"errors"
	"fmt"
	"math"
)

// ErrVertexCount indicates that a vertex list does not fit the shape kind.
var ErrVertexCount = errors.New("invalid vertex count for shape")

// Shape is the capability every region variant implements.
type Shape interface {
	Kind() Kind
	Contains(pt Point) bool
	Measure(m Measurer) Measurement
}

// Polygon is a closed ring; the edge from the last vertex back to the first is implicit.
type Polygon struct {
	Vertices []Point
}

// Rectangle is described by four stored corners. Only their axis-aligned
// extent is significant.
type Rectangle struct {
	Corners []Point
}

// Circle is a center and an optional rim point. Without a rim the radius is
// DefaultCircleRadiusMeters.
type Circle struct {
	Center Point
	Rim    *Point
}

// MinVertices returns the lower bound on stored vertices for kind.
func MinVertices(kind Kind) int {
	switch kind {
	case KindRectangle:
		return 4
	case KindCircle:
		return 1
	default:
		return 3
	}
}

// ValidateVertices checks the stored vertex count against the shape kind.
func ValidateVertices(kind Kind, vertices []Point) error {
	n := len(vertices)
	switch kind {
	case KindPolygon:
		if n < 3 {
			return fmt.Errorf("%w: polygon needs at least 3 points, got %d", ErrVertexCount, n)
		}
	case KindRectangle:
		if n != 4 {
			return fmt.Errorf("%w: rectangle needs exactly 4 corners, got %d", ErrVertexCount, n)
		}
	case KindCircle:
		if n < 1 || n > 2 {
			return fmt.Errorf("%w: circle needs a center and an optional rim point, got %d", ErrVertexCount, n)
		}
	default:
		return fmt.Errorf("unknown shape type %q", kind)
	}
	for i, v := range vertices {
		if !v.Valid() {
			return fmt.Errorf("vertex %d is not a finite coordinate", i)
		}
	}
	return nil
}

// NewShape builds the shape variant for kind. It validates the vertex count.
func NewShape(kind Kind, vertices []Point) (Shape, error) {
	if err := ValidateVertices(kind, vertices); err != nil {
		return nil, err
	}
	switch kind {
	case KindRectangle:
		return Rectangle{Corners: vertices}, nil
	case KindCircle:
		c := Circle{Center: vertices[0]}
		if len(vertices) == 2 {
			rim := vertices[1]
			c.Rim = &rim
		}
		return c, nil
	default:
		return Polygon{Vertices: vertices}, nil
	}
}

// Kind implements Shape.
func (Polygon) Kind() Kind { return KindPolygon }

// Contains implements Shape.
func (p Polygon) Contains(pt Point) bool { return PointInPolygon(pt, p.Vertices) }

// Measure implements Shape.
func (p Polygon) Measure(m Measurer) Measurement { return m.Measure(p.Vertices) }

// Kind implements Shape.
func (Rectangle) Kind() Kind { return KindRectangle }

// Contains implements Shape.
func (r Rectangle) Contains(pt Point) bool { return PointInRectangle(pt, r.Corners) }

// Measure implements Shape. The outline of the bounding box is measured, so
// the corner order does not matter.
func (r Rectangle) Measure(m Measurer) Measurement { return m.Measure(r.Outline()) }

// Outline returns the bounding box of the corners as a ring: NE, NW, SW, SE.
func (r Rectangle) Outline() []Point {
	b, ok := BoundsOf(r.Corners)
	if !ok {
		return nil
	}
	return []Point{
		{Lat: b.MaxLat, Lng: b.MaxLng},
		{Lat: b.MaxLat, Lng: b.MinLng},
		{Lat: b.MinLat, Lng: b.MinLng},
		{Lat: b.MinLat, Lng: b.MaxLng},
	}
}

// Kind implements Shape.
func (Circle) Kind() Kind { return KindCircle }

// Radius returns the flat-approximated radius in meters.
func (c Circle) Radius() float64 { return CircleRadius(c.Center, c.Rim) }

// Contains implements Shape.
func (c Circle) Contains(pt Point) bool { return PointInCircle(pt, c.Center, c.Radius()) }

// Measure implements Shape. The measurer is not consulted: circles are
// always measured analytically from the flat radius.
func (c Circle) Measure(Measurer) Measurement {
	r := c.Radius()
	return Measurement{Area: math.Pi * r * r, Perimeter: 2 * math.Pi * r}
}
