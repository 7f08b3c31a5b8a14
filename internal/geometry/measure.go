package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MetersPerDegree is the rough length of one degree of latitude used by the
// planar fallback.
const MetersPerDegree = 111000.0

// Measurement holds the derived size of a shape.
type Measurement struct {
	Area      float64 `json:"area"`      // square meters
	Perimeter float64 `json:"perimeter"` // meters
}

// Measurer computes area and perimeter of a closed ring of vertices.
// Implementations must return the zero Measurement for fewer than 3 vertices
// and must be invariant under cyclic rotation and reversal of the ring.
type Measurer interface {
	Measure(vertices []Point) Measurement
	Name() string
}

// SphericalMeasurer measures rings on the sphere: area by spherical excess
// and perimeter as the sum of great-circle distances, closing edge included.
type SphericalMeasurer struct{}

// Name implements Measurer.
func (SphericalMeasurer) Name() string { return "spherical" }

// Measure implements Measurer.
func (SphericalMeasurer) Measure(vertices []Point) Measurement {
	if len(vertices) < 3 {
		return Measurement{}
	}
	ring := make(orb.Ring, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, orb.Point{v.Lng, v.Lat})
	}
	ring = append(ring, ring[0])

	var perimeter float64
	for i := 1; i < len(ring); i++ {
		perimeter += geo.Distance(ring[i-1], ring[i])
	}
	return Measurement{
		Area:      math.Abs(geo.Area(ring)),
		Perimeter: perimeter,
	}
}

// PlanarMeasurer is the low-precision fallback. It runs the shoelace formula
// over raw (lat, lng) pairs and scales by MetersPerDegree. It is a rough
// approximation and is only used when the spherical provider is disabled.
type PlanarMeasurer struct{}

// Name implements Measurer.
func (PlanarMeasurer) Name() string { return "planar" }

// Measure implements Measurer.
func (PlanarMeasurer) Measure(vertices []Point) Measurement {
	n := len(vertices)
	if n < 3 {
		return Measurement{}
	}
	var area, perimeter float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += vertices[i].Lat * vertices[j].Lng
		area -= vertices[j].Lat * vertices[i].Lng

		dx := vertices[j].Lat - vertices[i].Lat
		dy := vertices[j].Lng - vertices[i].Lng
		perimeter += math.Sqrt(dx*dx + dy*dy)
	}
	area = math.Abs(area) / 2
	return Measurement{
		Area:      area * MetersPerDegree * MetersPerDegree,
		Perimeter: perimeter * MetersPerDegree,
	}
}

// Engine bundles the measurement strategy with the shape dispatch. The zero
// value is not usable; construct with NewEngine.
type Engine struct {
	measurer Measurer
}

// NewEngine returns an Engine. When precise is true the spherical provider is
// used, otherwise the planar fallback.
func NewEngine(precise bool) *Engine {
	if precise {
		return &Engine{measurer: SphericalMeasurer{}}
	}
	return &Engine{measurer: PlanarMeasurer{}}
}

// NewEngineWith returns an Engine using the given measurer.
func NewEngineWith(m Measurer) *Engine {
	return &Engine{measurer: m}
}

// Measurer returns the measurement strategy in use.
func (e *Engine) Measurer() Measurer {
	return e.measurer
}

// ComputeAreaAndPerimeter measures a closed ring of vertices.
func (e *Engine) ComputeAreaAndPerimeter(vertices []Point) Measurement {
	return e.measurer.Measure(vertices)
}

// Measure returns the derived size of the shape described by kind and vertices.
func (e *Engine) Measure(kind Kind, vertices []Point) (Measurement, error) {
	s, err := NewShape(kind, vertices)
	if err != nil {
		return Measurement{}, err
	}
	return s.Measure(e.measurer), nil
}

// ContainsPoint reports whether pt lies inside the shape described by kind and vertices.
func (e *Engine) ContainsPoint(pt Point, kind Kind, vertices []Point) (bool, error) {
	s, err := NewShape(kind, vertices)
	if err != nil {
		return false, err
	}
	return s.Contains(pt), nil
}
