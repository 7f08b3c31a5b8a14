package region

import (
	"errors"
	"testing"

	"github.com/onnwee/regions/internal/geometry"
)

func TestStore_Create(t *testing.T) {
	s := newTestStore()

	r, err := s.Create(NewRegion{
		Name:     "  A  ",
		Vertices: triangle(),
		Tags:     []string{" park ", "", "park", "zone"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if r.ID != "r1" {
		t.Errorf("expected id r1, got %s", r.ID)
	}
	if r.Name != "A" {
		t.Errorf("expected trimmed name A, got %q", r.Name)
	}
	if r.Kind != geometry.KindPolygon {
		t.Errorf("expected polygon kind for empty type, got %s", r.Kind)
	}
	if r.LayerID != DefaultLayerID {
		t.Errorf("expected default layer, got %s", r.LayerID)
	}
	if len(r.Tags) != 2 || r.Tags[0] != "park" || r.Tags[1] != "zone" {
		t.Errorf("expected normalized tags [park zone], got %v", r.Tags)
	}
	if r.Area <= 0 || r.Perimeter <= 0 {
		t.Errorf("expected derived measurements, got area=%f perimeter=%f", r.Area, r.Perimeter)
	}
	if !r.Visible || r.Locked || r.Favorite {
		t.Errorf("unexpected flags visible=%v locked=%v favorite=%v", r.Visible, r.Locked, r.Favorite)
	}
	if r.Style != DefaultStyle() {
		t.Errorf("expected default style, got %+v", r.Style)
	}

	l, _ := s.Layer(DefaultLayerID)
	if l.RegionCount != 1 {
		t.Errorf("expected regionCount 1, got %d", l.RegionCount)
	}
}

func TestStore_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		in   NewRegion
		want error
	}{
		{"empty name", NewRegion{Name: "   ", Vertices: triangle()}, ErrValidation},
		{"too few vertices", NewRegion{Name: "A", Vertices: triangle()[:2]}, ErrValidation},
		{"rectangle needs four", NewRegion{Name: "A", Kind: geometry.KindRectangle, Vertices: triangle()}, ErrValidation},
		{"unknown kind", NewRegion{Name: "A", Kind: "hexagon", Vertices: triangle()}, ErrValidation},
		{"unknown layer", NewRegion{Name: "A", Vertices: triangle(), LayerID: "missing"}, ErrNotFound},
		{"bad style", NewRegion{Name: "A", Vertices: triangle(), Style: &Style{FillColor: "blue", StrokeColor: "#000000", FillOpacity: 0.5, StrokeWeight: 1}}, ErrValidation},
		{"opacity out of range", NewRegion{Name: "A", Vertices: triangle(), Style: &Style{FillColor: "#000000", StrokeColor: "#000000", FillOpacity: 1.5, StrokeWeight: 1}}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore()
			_, err := s.Create(tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if s.Len() != 0 {
				t.Errorf("expected empty store after failed create, got %d regions", s.Len())
			}
		})
	}
}

func TestStore_CreateUsesLayerColor(t *testing.T) {
	s := newTestStore()
	if _, err := s.CreateLayer(Layer{ID: "parks", Name: "Parks", Color: "#22C55E", Visible: true}); err != nil {
		t.Fatalf("CreateLayer() error = %v", err)
	}
	r, err := s.Create(NewRegion{Name: "A", Vertices: triangle(), LayerID: "parks"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if r.Style.FillColor != "#22c55e" {
		t.Errorf("expected fill from layer color, got %s", r.Style.FillColor)
	}
	if r.Style.StrokeColor == r.Style.FillColor {
		t.Error("expected a darker stroke color than the fill")
	}
}

func TestStore_LockedRegionRejectsMutation(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))
	if _, _, err := s.ToggleLock(r.ID); err != nil {
		t.Fatalf("ToggleLock() error = %v", err)
	}

	if _, _, err := s.Delete(r.ID); !errors.Is(err, ErrLocked) {
		t.Errorf("Delete: expected ErrLocked, got %v", err)
	}
	var lockedErr *LockedRegionError
	if _, _, err := s.Update(r.ID, Patch{Name: ptr("B")}); !errors.As(err, &lockedErr) {
		t.Errorf("Update: expected LockedRegionError, got %v", err)
	} else if lockedErr.ID != r.ID {
		t.Errorf("expected locked id %s, got %s", r.ID, lockedErr.ID)
	}
	if _, _, err := s.MoveVertex(r.ID, 0, geometry.Point{}); !errors.Is(err, ErrLocked) {
		t.Errorf("MoveVertex: expected ErrLocked, got %v", err)
	}

	got, _ := s.Get(r.ID)
	if got.Name != "A" || s.Len() != 1 {
		t.Errorf("expected region unchanged, got %+v", got)
	}

	// Toggles stay available so the region can be unlocked.
	if _, _, err := s.ToggleFavorite(r.ID); err != nil {
		t.Errorf("ToggleFavorite on locked region: %v", err)
	}
	if _, after, err := s.ToggleLock(r.ID); err != nil || after.Locked {
		t.Errorf("expected unlock to succeed, got locked=%v err=%v", after != nil && after.Locked, err)
	}
}

func TestStore_LockedLayerRejectsMutation(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))
	if _, err := s.UpdateLayer(DefaultLayerID, LayerPatch{Locked: ptr(true)}); err != nil {
		t.Fatalf("UpdateLayer() error = %v", err)
	}
	if _, _, err := s.Delete(r.ID); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked for region in locked layer, got %v", err)
	}
}

func TestStore_UpdateRecomputesMeasurements(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))

	before, after, err := s.Update(r.ID, Patch{Vertices: square()})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if before.Area != r.Area {
		t.Errorf("expected before area %f, got %f", r.Area, before.Area)
	}
	if after.Area <= before.Area {
		t.Errorf("expected larger area after update, got %f <= %f", after.Area, before.Area)
	}
}

func TestStore_RemoveVertexDegenerate(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))

	_, _, err := s.RemoveVertex(r.ID, 0)
	var degErr *GeometryDegenerateError
	if !errors.As(err, &degErr) {
		t.Fatalf("expected GeometryDegenerateError, got %v", err)
	}
	if degErr.Vertices != 2 || degErr.Minimum != 3 {
		t.Errorf("unexpected error details %+v", degErr)
	}
	got, _ := s.Get(r.ID)
	if len(got.Vertices) != 3 {
		t.Errorf("expected 3 vertices retained, got %d", len(got.Vertices))
	}

	if _, _, err := s.Update(r.ID, Patch{Vertices: []geometry.Point{{Lat: 1, Lng: 1}}}); !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("expected ErrDegenerateGeometry for coordinate patch, got %v", err)
	}
}

func TestStore_VertexEdits(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))

	_, after, err := s.InsertVertex(r.ID, 3, geometry.Point{Lat: -23.56, Lng: -46.63})
	if err != nil {
		t.Fatalf("InsertVertex() error = %v", err)
	}
	if len(after.Vertices) != 4 {
		t.Fatalf("expected 4 vertices, got %d", len(after.Vertices))
	}

	_, after, err = s.MoveVertex(r.ID, 0, geometry.Point{Lat: -23.549, Lng: -46.631})
	if err != nil {
		t.Fatalf("MoveVertex() error = %v", err)
	}
	if after.Vertices[0].Lat != -23.549 {
		t.Errorf("expected moved vertex, got %+v", after.Vertices[0])
	}

	_, after, err = s.RemoveVertex(r.ID, 3)
	if err != nil {
		t.Fatalf("RemoveVertex() error = %v", err)
	}
	if len(after.Vertices) != 3 {
		t.Errorf("expected 3 vertices, got %d", len(after.Vertices))
	}

	if _, _, err := s.InsertVertex(r.ID, 9, geometry.Point{}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation for out-of-range index, got %v", err)
	}
}

func TestStore_InsertVertexOnlyForPolygons(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(NewRegion{Name: "C", Kind: geometry.KindCircle, Vertices: []geometry.Point{{Lat: 1, Lng: 1}}})
	if _, _, err := s.InsertVertex(r.ID, 1, geometry.Point{Lat: 1, Lng: 1.01}); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestStore_Duplicate(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))
	s.ToggleFavorite(r.ID)

	d, err := s.Duplicate(r.ID)
	if err != nil {
		t.Fatalf("Duplicate() error = %v", err)
	}
	if d.ID == r.ID {
		t.Error("expected a new id")
	}
	if d.Name != "A"+DuplicateSuffix {
		t.Errorf("expected suffixed name, got %q", d.Name)
	}
	if d.Favorite {
		t.Error("expected duplicate not to be a favorite")
	}
	for i, v := range d.Vertices {
		want := r.Vertices[i].Offset(DuplicateOffset, DuplicateOffset)
		if v != want {
			t.Errorf("vertex %d: expected %+v, got %+v", i, want, v)
		}
	}
	l, _ := s.Layer(DefaultLayerID)
	if l.RegionCount != 2 {
		t.Errorf("expected regionCount 2, got %d", l.RegionCount)
	}
}

func TestStore_BulkDeleteAllOrNothing(t *testing.T) {
	s := newTestStore()
	a, _ := s.Create(polygonInput("A"))
	b, _ := s.Create(polygonInput("B"))
	c, _ := s.Create(polygonInput("C"))
	s.ToggleLock(c.ID)

	if _, _, err := s.BulkDelete([]string{a.ID, c.ID}); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}
	if _, _, err := s.BulkDelete([]string{a.ID, "missing"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, _, err := s.BulkDelete(nil); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if s.Len() != 3 {
		t.Fatalf("expected 3 regions after rejected bulk deletes, got %d", s.Len())
	}

	removed, positions, err := s.BulkDelete([]string{b.ID, a.ID})
	if err != nil {
		t.Fatalf("BulkDelete() error = %v", err)
	}
	if len(removed) != 2 || removed[0].ID != a.ID || removed[1].ID != b.ID {
		t.Errorf("expected removed in collection order, got %v", removed)
	}
	if positions[0] != 0 || positions[1] != 1 {
		t.Errorf("expected positions [0 1], got %v", positions)
	}
	l, _ := s.Layer(DefaultLayerID)
	if l.RegionCount != 1 {
		t.Errorf("expected regionCount 1, got %d", l.RegionCount)
	}
}

func TestStore_RegionCountNeverNegative(t *testing.T) {
	s := newTestStore()
	var ids []string
	for i := 0; i < 3; i++ {
		r, _ := s.Create(polygonInput("R"))
		ids = append(ids, r.ID)
	}
	for _, id := range ids[:2] {
		if _, _, err := s.Delete(id); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
	}
	l, _ := s.Layer(DefaultLayerID)
	if l.RegionCount != 1 {
		t.Errorf("expected max(0, 3-2) = 1, got %d", l.RegionCount)
	}

	s.adjustCount(DefaultLayerID, -5)
	l, _ = s.Layer(DefaultLayerID)
	if l.RegionCount != 0 {
		t.Errorf("expected count clamped at 0, got %d", l.RegionCount)
	}
}

func TestStore_MoveBetweenLayersAdjustsCounts(t *testing.T) {
	s := newTestStore()
	s.CreateLayer(Layer{ID: "b", Name: "B", Visible: true})
	r, _ := s.Create(polygonInput("A"))

	if _, _, err := s.Update(r.ID, Patch{LayerID: ptr("b")}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	def, _ := s.Layer(DefaultLayerID)
	b, _ := s.Layer("b")
	if def.RegionCount != 0 || b.RegionCount != 1 {
		t.Errorf("expected counts default=0 b=1, got default=%d b=%d", def.RegionCount, b.RegionCount)
	}
}

func TestStore_LockedLayerAcceptsNoNewMembers(t *testing.T) {
	s := newTestStore()
	s.CreateLayer(Layer{ID: "b", Name: "B", Visible: true, Locked: true})
	r, _ := s.Create(polygonInput("A"))

	_, _, err := s.Update(r.ID, Patch{LayerID: ptr("b")})
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "layer" {
		t.Errorf("expected layer validation error moving into locked layer, got %v", err)
	}
	b, _ := s.Layer("b")
	if b.RegionCount != 0 {
		t.Errorf("expected locked layer to stay empty, got %d", b.RegionCount)
	}

	if _, err := s.UpdateLayer(DefaultLayerID, LayerPatch{Locked: ptr(true)}); err != nil {
		t.Fatalf("UpdateLayer() error = %v", err)
	}
	if _, err := s.Duplicate(r.ID); !errors.As(err, &ve) || ve.Field != "layer" {
		t.Errorf("expected layer validation error duplicating into locked layer, got %v", err)
	}
	if got := s.Len(); got != 1 {
		t.Errorf("expected 1 region after rejected duplicate, got %d", got)
	}
}

func TestStore_DeleteLayer(t *testing.T) {
	s := newTestStore()
	s.CreateLayer(Layer{ID: "b", Name: "B", Visible: true})
	r, _ := s.Create(NewRegion{Name: "A", Vertices: triangle(), LayerID: "b"})

	if err := s.DeleteLayer(DefaultLayerID); !errors.Is(err, ErrValidation) {
		t.Errorf("expected default layer deletion to fail, got %v", err)
	}
	if err := s.DeleteLayer("b"); !errors.Is(err, ErrValidation) {
		t.Errorf("expected non-empty layer deletion to fail, got %v", err)
	}
	s.Delete(r.ID)
	if err := s.DeleteLayer("b"); err != nil {
		t.Errorf("DeleteLayer() error = %v", err)
	}
	if err := s.DeleteLayer("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := newTestStore()
	r, _ := s.Create(polygonInput("A"))
	r.Vertices[0].Lat = 99
	r.Tags = append(r.Tags, "mutated")

	got, _ := s.Get(r.ID)
	if got.Vertices[0].Lat == 99 || len(got.Tags) != 0 {
		t.Error("expected store to be isolated from caller mutation")
	}
}

func TestStore_ImportAllOrNothing(t *testing.T) {
	s := newTestStore()
	_, err := s.Import([]NewRegion{polygonInput("A"), {Name: "B", Vertices: triangle()[:1]}})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected no regions after failed import, got %d", s.Len())
	}

	added, err := s.Import([]NewRegion{polygonInput("A"), polygonInput("B")})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(added) != 2 || s.Len() != 2 {
		t.Errorf("expected 2 regions, got %d", s.Len())
	}
}

func TestStore_SetSettings(t *testing.T) {
	s := newTestStore()
	ms := DefaultSettings()
	ms.Theme = "neon"
	if err := s.SetSettings(ms); !errors.Is(err, ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	ms.Theme = ThemeDark
	if err := s.SetSettings(ms); err != nil {
		t.Errorf("SetSettings() error = %v", err)
	}
	if s.Settings().Theme != ThemeDark {
		t.Errorf("expected dark theme, got %s", s.Settings().Theme)
	}
}
