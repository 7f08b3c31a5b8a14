package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/onnwee/regions/internal/kml"
	"github.com/onnwee/regions/internal/region"
)

// MaxKMLBytes bounds the size of an uploaded KML document.
const MaxKMLBytes = 10 << 20

// CreateLayerRequest is the body of POST /layers. Visible defaults to true.
type CreateLayerRequest struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Color   string `json:"color,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
	Locked  bool   `json:"locked,omitempty"`
}

// KMLImportResponse is the body of POST /import/kml.
type KMLImportResponse struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Regions  []*region.Region `json:"regions"`
}

// WorkspaceHandlers serves history, layers, settings, snapshots, KML import
// and statistics.
type WorkspaceHandlers struct {
	engine *region.Engine
}

// NewWorkspaceHandlers creates a new WorkspaceHandlers instance.
func NewWorkspaceHandlers(engine *region.Engine) *WorkspaceHandlers {
	return &WorkspaceHandlers{engine: engine}
}

// History handles GET /history.
func (h *WorkspaceHandlers) History(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.History())
}

// Undo handles POST /history/undo. Undoing with nothing to undo is not an
// error; the response simply carries no entry.
func (h *WorkspaceHandlers) Undo(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Undo(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Redo handles POST /history/redo.
func (h *WorkspaceHandlers) Redo(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Redo(r.Context())
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// ListLayers handles GET /layers.
func (h *WorkspaceHandlers) ListLayers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]region.Layer{"layers": h.engine.Layers()})
}

// CreateLayer handles POST /layers.
func (h *WorkspaceHandlers) CreateLayer(w http.ResponseWriter, r *http.Request) {
	var req CreateLayerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}
	layer, err := h.engine.CreateLayer(r.Context(), region.Layer{
		ID:      req.ID,
		Name:    req.Name,
		Color:   req.Color,
		Visible: visible,
		Locked:  req.Locked,
	})
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, layer)
}

// UpdateLayer handles PATCH /layers/{id}.
func (h *WorkspaceHandlers) UpdateLayer(w http.ResponseWriter, r *http.Request) {
	var patch region.LayerPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	layer, err := h.engine.UpdateLayer(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, layer)
}

// DeleteLayer handles DELETE /layers/{id}.
func (h *WorkspaceHandlers) DeleteLayer(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteLayer(r.Context(), r.PathValue("id")); err != nil {
		writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetSettings handles GET /settings.
func (h *WorkspaceHandlers) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Settings())
}

// PutSettings handles PUT /settings.
func (h *WorkspaceHandlers) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings region.MapSettings
	if !decodeJSON(w, r, &settings) {
		return
	}
	if err := h.engine.SetSettings(r.Context(), settings); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Settings())
}

// GetSnapshot handles GET /snapshot and returns the workspace in export format.
func (h *WorkspaceHandlers) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Disposition", `attachment; filename="regions-export.json"`)
	writeJSON(w, r, http.StatusOK, h.engine.Export())
}

// PutSnapshot handles PUT /snapshot. The workspace is replaced by the
// document and the history is cleared.
func (h *WorkspaceHandlers) PutSnapshot(w http.ResponseWriter, r *http.Request) {
	var doc region.Export
	if !decodeJSON(w, r, &doc) {
		return
	}
	if doc.Version != "" && doc.Version != region.ExportVersion {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation,
			"unsupported export version "+doc.Version+", expected "+region.ExportVersion)
		return
	}
	if err := h.engine.ImportExport(r.Context(), doc); err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, h.engine.Export())
}

// ImportKML handles POST /import/kml?layer=. The body is the KML document.
func (h *WorkspaceHandlers) ImportKML(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxKMLBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeCodedError(w, r, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "KML document is too large")
			return
		}
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Failed to read request body")
		return
	}
	created, res, err := kml.Import(r.Context(), h.engine, bytes.NewReader(doc), r.URL.Query().Get("layer"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, KMLImportResponse{
		Imported: len(created),
		Skipped:  res.Skipped,
		Regions:  created,
	})
}

// Stats handles GET /stats.
func (h *WorkspaceHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.engine.Stats())
}
