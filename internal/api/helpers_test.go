package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/regions/internal/geocode"
	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/region"
)

var testTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeGeocoder answers every lookup with res or err and records addresses.
type fakeGeocoder struct {
	mu    sync.Mutex
	res   *geocode.Result
	err   error
	calls []string
}

func (f *fakeGeocoder) Geocode(ctx context.Context, address string) (*geocode.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, address)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func paulista() *geocode.Result {
	return &geocode.Result{
		Address:     "Av. Paulista, 1000 - Bela Vista, São Paulo - SP, Brazil",
		Coordinates: geometry.Point{Lat: -23.5646, Lng: -46.6527},
		Components: []geocode.Component{
			{LongName: "São Paulo", ShortName: "SP", Types: []string{"administrative_area_level_1"}},
		},
		PlaceID: "ChIJ-paulista",
	}
}

func newTestEngine() *region.Engine {
	n := 0
	return region.NewEngine(geometry.NewEngine(true), region.Options{
		StoreOptions: []region.StoreOption{
			region.WithClock(func() time.Time { return testTime }),
			region.WithIDGenerator(func() string {
				n++
				return fmt.Sprintf("r%d", n)
			}),
		},
	})
}

// newTestRouter mounts every handler group on one mux.
func newTestRouter(e *region.Engine, g geocode.Geocoder) http.Handler {
	legacy := NewLegacyHandlers(geometry.NewEngine(true), g)
	legacy.now = func() time.Time { return testTime }
	return NewRouter(RouterConfig{
		Legacy:    legacy,
		Regions:   NewRegionHandlers(e),
		Workspace: NewWorkspaceHandlers(e),
		Health:    NewHealthHandlers(HealthHandlersConfig{}),
	})
}

// do sends body (encoded as JSON unless it is a string) through h.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response: %v, body: %s", err, w.Body.String())
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d, body: %s", want, w.Code, w.Body.String())
	}
}

func expectErrorCode(t *testing.T, w *httptest.ResponseRecorder, want string) {
	t.Helper()
	resp := decode[ErrorResponse](t, w)
	if resp.Error.Code != want {
		t.Errorf("expected error code %s, got %s", want, resp.Error.Code)
	}
}

func triangle() []geometry.Point {
	return []geometry.Point{
		{Lat: -23.55, Lng: -46.63},
		{Lat: -23.55, Lng: -46.62},
		{Lat: -23.56, Lng: -46.62},
	}
}

func createTriangle(t *testing.T, h http.Handler, name string) *region.Region {
	t.Helper()
	w := do(t, h, http.MethodPost, "/regions", region.NewRegion{
		Name:     name,
		Kind:     geometry.KindPolygon,
		Vertices: triangle(),
	})
	expectStatus(t, w, http.StatusCreated)
	res := decode[region.Result](t, w)
	if len(res.Regions) != 1 {
		t.Fatalf("expected 1 created region, got %d", len(res.Regions))
	}
	return res.Regions[0]
}
