package api

import (
	"net/http"
	"strings"
	"testing"

	"github.com/onnwee/regions/internal/region"
)

const sampleKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>Centro</name>
      <Polygon><outerBoundaryIs><LinearRing>
        <coordinates>-46.63,-23.55,0 -46.62,-23.55,0 -46.62,-23.56,0 -46.63,-23.55,0</coordinates>
      </LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
    <Placemark>
      <name>Pin</name>
      <Point><coordinates>-46.63,-23.55,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <Polygon><outerBoundaryIs><LinearRing>
        <coordinates>-46.70,-23.60 -46.69,-23.60 -46.69,-23.61</coordinates>
      </LinearRing></outerBoundaryIs></Polygon>
    </Placemark>
  </Document>
</kml>`

func TestHistory_UndoRedo(t *testing.T) {
	h := newTestRouter(newTestEngine(), &fakeGeocoder{})

	w := do(t, h, http.MethodPost, "/history/undo", nil)
	expectStatus(t, w, http.StatusOK)
	res := decode[region.Result](t, w)
	if res.Entry != nil || res.HistoryIndex != -1 {
		t.Errorf("expected no-op undo on empty history, got %+v", res)
	}

	createTriangle(t, h, "A")
	createTriangle(t, h, "B")

	w = do(t, h, http.MethodGet, "/history", nil)
	view := decode[region.HistoryView](t, w)
	if len(view.Entries) != 2 || view.Index != 1 || !view.CanUndo || view.CanRedo {
		t.Fatalf("unexpected history view %+v", view)
	}

	w = do(t, h, http.MethodPost, "/history/undo", nil)
	expectStatus(t, w, http.StatusOK)
	if res := decode[region.Result](t, w); res.Entry == nil || res.HistoryIndex != 0 {
		t.Errorf("expected undo to move cursor to 0, got %+v", res)
	}

	w = do(t, h, http.MethodPost, "/history/redo", nil)
	expectStatus(t, w, http.StatusOK)
	if res := decode[region.Result](t, w); res.Entry == nil || res.HistoryIndex != 1 {
		t.Errorf("expected redo to move cursor to 1, got %+v", res)
	}

	w = do(t, h, http.MethodGet, "/regions", nil)
	if got := decode[RegionListResponse](t, w).Count; got != 2 {
		t.Errorf("expected 2 regions after undo+redo, got %d", got)
	}
}

func TestLayers(t *testing.T) {
	h := newTestRouter(newTestEngine(), &fakeGeocoder{})

	w := do(t, h, http.MethodPost, "/layers", CreateLayerRequest{ID: "zones", Name: "Zones", Color: "#ff0000"})
	expectStatus(t, w, http.StatusCreated)
	layer := decode[region.Layer](t, w)
	if !layer.Visible {
		t.Error("expected new layer to be visible by default")
	}

	w = do(t, h, http.MethodPost, "/regions", region.NewRegion{Name: "Z", Vertices: triangle(), LayerID: "zones"})
	expectStatus(t, w, http.StatusCreated)

	w = do(t, h, http.MethodGet, "/layers", nil)
	layers := decode[map[string][]region.Layer](t, w)["layers"]
	if len(layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(layers))
	}
	if layers[1].RegionCount != 1 {
		t.Errorf("expected zones layer to count 1 region, got %d", layers[1].RegionCount)
	}

	w = do(t, h, http.MethodDelete, "/layers/zones", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPatch, "/layers/zones", map[string]any{"locked": true})
	expectStatus(t, w, http.StatusOK)
	if !decode[region.Layer](t, w).Locked {
		t.Error("expected layer to be locked")
	}

	w = do(t, h, http.MethodPost, "/regions", region.NewRegion{Name: "Y", Vertices: triangle(), LayerID: "zones"})
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodDelete, "/layers/default", nil)
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodDelete, "/layers/missing", nil)
	expectStatus(t, w, http.StatusNotFound)

	w = do(t, h, http.MethodPost, "/layers", CreateLayerRequest{Name: "Empty"})
	expectStatus(t, w, http.StatusCreated)
	empty := decode[region.Layer](t, w)
	w = do(t, h, http.MethodDelete, "/layers/"+empty.ID, nil)
	expectStatus(t, w, http.StatusNoContent)
}

func TestSettings(t *testing.T) {
	h := newTestRouter(newTestEngine(), &fakeGeocoder{})

	w := do(t, h, http.MethodGet, "/settings", nil)
	expectStatus(t, w, http.StatusOK)
	if got := decode[region.MapSettings](t, w); got != region.DefaultSettings() {
		t.Errorf("expected default settings, got %+v", got)
	}

	next := region.DefaultSettings()
	next.Theme = region.ThemeDark
	next.Heatmap = true
	w = do(t, h, http.MethodPut, "/settings", next)
	expectStatus(t, w, http.StatusOK)
	if got := decode[region.MapSettings](t, w); got != next {
		t.Errorf("expected %+v, got %+v", next, got)
	}

	next.Theme = "neon"
	w = do(t, h, http.MethodPut, "/settings", next)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestSnapshot_ExportAndRestore(t *testing.T) {
	src := newTestRouter(newTestEngine(), &fakeGeocoder{})
	a := createTriangle(t, src, "A")
	createTriangle(t, src, "B")
	do(t, src, http.MethodPost, "/regions/"+a.ID+"/favorite", nil)
	do(t, src, http.MethodPost, "/regions/"+a.ID+"/lock", nil)

	w := do(t, src, http.MethodGet, "/snapshot", nil)
	expectStatus(t, w, http.StatusOK)
	doc := decode[region.Export](t, w)
	if doc.Version != region.ExportVersion {
		t.Errorf("expected version %s, got %s", region.ExportVersion, doc.Version)
	}
	want := region.ExportMetadata{TotalRegions: 2, TotalLayers: 1, FavoriteRegions: 1, LockedRegions: 1}
	if doc.Metadata != want {
		t.Errorf("expected metadata %+v, got %+v", want, doc.Metadata)
	}

	dst := newTestRouter(newTestEngine(), &fakeGeocoder{})
	createTriangle(t, dst, "Old")

	w = do(t, dst, http.MethodPut, "/snapshot", doc)
	expectStatus(t, w, http.StatusOK)
	restored := decode[region.Export](t, w)
	if restored.Metadata != want {
		t.Errorf("expected restored metadata %+v, got %+v", want, restored.Metadata)
	}

	w = do(t, dst, http.MethodGet, "/history", nil)
	if view := decode[region.HistoryView](t, w); len(view.Entries) != 0 || view.Index != -1 {
		t.Errorf("expected history cleared after restore, got %+v", view)
	}

	doc.Version = "1.0"
	w = do(t, dst, http.MethodPut, "/snapshot", doc)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestImportKML(t *testing.T) {
	h := newTestRouter(newTestEngine(), &fakeGeocoder{})

	w := do(t, h, http.MethodPost, "/import/kml", sampleKML)
	expectStatus(t, w, http.StatusCreated)
	resp := decode[KMLImportResponse](t, w)
	if resp.Imported != 2 || resp.Skipped != 1 {
		t.Fatalf("expected 2 imported and 1 skipped, got %d and %d", resp.Imported, resp.Skipped)
	}
	if resp.Regions[0].Name != "Centro" || resp.Regions[1].Name != "Region 3" {
		t.Errorf("unexpected names %q, %q", resp.Regions[0].Name, resp.Regions[1].Name)
	}
	if !resp.Regions[0].HasTag("imported") || !resp.Regions[0].HasTag("kml") {
		t.Errorf("expected import tags, got %v", resp.Regions[0].Tags)
	}

	w = do(t, h, http.MethodGet, "/history", nil)
	if view := decode[region.HistoryView](t, w); len(view.Entries) != 1 || view.Entries[0].Action != region.ActionBulk {
		t.Errorf("expected one bulk history entry, got %+v", view.Entries)
	}

	w = do(t, h, http.MethodPost, "/import/kml", `<kml><Document><Placemark><Point/></Placemark></Document></kml>`)
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/import/kml", `<kml><Document><Placemark>`)
	expectStatus(t, w, http.StatusBadRequest)

	w = do(t, h, http.MethodPost, "/import/kml?layer=missing", sampleKML)
	expectStatus(t, w, http.StatusNotFound)

	w = do(t, h, http.MethodPost, "/import/kml", strings.Repeat(" ", MaxKMLBytes+1))
	expectStatus(t, w, http.StatusRequestEntityTooLarge)
}

func TestStats(t *testing.T) {
	h := newTestRouter(newTestEngine(), &fakeGeocoder{})
	a := createTriangle(t, h, "A")
	createTriangle(t, h, "B")
	do(t, h, http.MethodPost, "/regions/"+a.ID+"/visibility", nil)

	w := do(t, h, http.MethodGet, "/stats", nil)
	expectStatus(t, w, http.StatusOK)
	stats := decode[region.Stats](t, w)
	if stats.TotalRegions != 2 || stats.HiddenRegions != 1 || stats.VisibleRegions != 1 {
		t.Errorf("unexpected totals %+v", stats)
	}
	if stats.TotalArea <= 0 {
		t.Errorf("expected positive total area, got %v", stats.TotalArea)
	}
	if len(stats.Layers) != 1 || stats.Layers[0].Regions != 2 {
		t.Errorf("unexpected layer stats %+v", stats.Layers)
	}
}
