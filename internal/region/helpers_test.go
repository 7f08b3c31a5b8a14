package region

import (
	"fmt"
	"time"

	"github.com/onnwee/regions/internal/geometry"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// testOptions returns store options with a fixed clock and sequential ids.
func testOptions() []StoreOption {
	n := 0
	return []StoreOption{
		WithClock(func() time.Time { return testTime }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("r%d", n)
		}),
	}
}

func newTestStore() *Store {
	return NewStore(geometry.NewEngine(true), testOptions()...)
}

func newTestEngine() *Engine {
	return NewEngine(geometry.NewEngine(true), Options{StoreOptions: testOptions()})
}

func triangle() []geometry.Point {
	return []geometry.Point{
		{Lat: -23.55, Lng: -46.63},
		{Lat: -23.55, Lng: -46.62},
		{Lat: -23.56, Lng: -46.62},
	}
}

func square() []geometry.Point {
	return []geometry.Point{
		{Lat: 0, Lng: 0},
		{Lat: 0, Lng: 1},
		{Lat: 1, Lng: 1},
		{Lat: 1, Lng: 0},
	}
}

func polygonInput(name string) NewRegion {
	return NewRegion{Name: name, Kind: geometry.KindPolygon, Vertices: triangle()}
}

func ptr[T any](v T) *T { return &v }
