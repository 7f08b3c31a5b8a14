package api

import (
	"net/http"
	"strconv"

	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/region"
)

// Region actions accepted on POST /regions/{id}/{action}.
var regionActions = map[string]region.Op{
	"duplicate":  region.OpDuplicate,
	"favorite":   region.OpToggleFavorite,
	"visibility": region.OpToggleVisibility,
	"lock":       region.OpToggleLock,
}

// RegionListResponse is the body of GET /regions.
type RegionListResponse struct {
	Regions []*region.Region `json:"regions"`
	Count   int              `json:"count"`
}

// VertexRequest is the body of the vertex endpoints. Index is only read by
// insert; a missing index appends.
type VertexRequest struct {
	Index *int           `json:"index,omitempty"`
	Point geometry.Point `json:"point"`
}

// BulkDeleteRequest is the body of POST /regions/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// PointRequest is the body of POST /regions/check-point.
type PointRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RegionHit is one element of a stored-region containment response.
type RegionHit struct {
	RegionID   string        `json:"regionId"`
	RegionName string        `json:"regionName"`
	RegionType geometry.Kind `json:"regionType"`
	IsInside   bool          `json:"isInside"`
}

// StoredCheckPointResponse is the body of POST /regions/check-point.
type StoredCheckPointResponse struct {
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Results     []RegionHit `json:"results"`
	InsideCount int         `json:"insideCount"`
}

// RegionHandlers serves the workspace region endpoints. Every mutation goes
// through the engine so it is recorded in the history.
type RegionHandlers struct {
	engine *region.Engine
}

// NewRegionHandlers creates a new RegionHandlers instance.
func NewRegionHandlers(engine *region.Engine) *RegionHandlers {
	return &RegionHandlers{engine: engine}
}

// ListRegions handles GET /regions?q=&tags=&layer=&visible=&favorites=.
func (h *RegionHandlers) ListRegions(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(w, r)
	if !ok {
		return
	}
	regions := h.engine.List(view)
	writeJSON(w, r, http.StatusOK, RegionListResponse{Regions: regions, Count: len(regions)})
}

// CreateRegion handles POST /regions.
func (h *RegionHandlers) CreateRegion(w http.ResponseWriter, r *http.Request) {
	var req region.NewRegion
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, r, http.StatusCreated, region.Mutation{Op: region.OpCreate, Region: req})
}

// GetRegion handles GET /regions/{id}.
func (h *RegionHandlers) GetRegion(w http.ResponseWriter, r *http.Request) {
	reg, err := h.engine.Get(r.PathValue("id"))
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, reg)
}

// UpdateRegion handles PATCH /regions/{id}.
func (h *RegionHandlers) UpdateRegion(w http.ResponseWriter, r *http.Request) {
	var patch region.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Empty() {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "no fields to update")
		return
	}
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpUpdate, ID: r.PathValue("id"), Patch: patch})
}

// DeleteRegion handles DELETE /regions/{id}.
func (h *RegionHandlers) DeleteRegion(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpDelete, ID: r.PathValue("id")})
}

// RegionAction handles POST /regions/{id}/{action} for duplicate and the
// favorite, visibility and lock toggles.
func (h *RegionHandlers) RegionAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")
	op, ok := regionActions[action]
	if !ok {
		writeCodedError(w, r, http.StatusNotFound, ErrCodeNotFound, "Unknown region action: "+action)
		return
	}
	status := http.StatusOK
	if op == region.OpDuplicate {
		status = http.StatusCreated
	}
	h.apply(w, r, status, region.Mutation{Op: op, ID: r.PathValue("id")})
}

// InsertVertex handles POST /regions/{id}/vertices.
func (h *RegionHandlers) InsertVertex(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req VertexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	index := 0
	if req.Index != nil {
		index = *req.Index
	} else {
		reg, err := h.engine.Get(id)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		index = len(reg.Vertices)
	}
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpInsertVertex, ID: id, Index: index, Point: req.Point})
}

// MoveVertex handles PUT /regions/{id}/vertices/{index}.
func (h *RegionHandlers) MoveVertex(w http.ResponseWriter, r *http.Request) {
	index, ok := vertexIndex(w, r)
	if !ok {
		return
	}
	var req VertexRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpMoveVertex, ID: r.PathValue("id"), Index: index, Point: req.Point})
}

// RemoveVertex handles DELETE /regions/{id}/vertices/{index}.
func (h *RegionHandlers) RemoveVertex(w http.ResponseWriter, r *http.Request) {
	index, ok := vertexIndex(w, r)
	if !ok {
		return
	}
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpRemoveVertex, ID: r.PathValue("id"), Index: index})
}

// BulkDelete handles POST /regions/bulk-delete. Either every listed region
// is removed or none is.
func (h *RegionHandlers) BulkDelete(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.apply(w, r, http.StatusOK, region.Mutation{Op: region.OpBulkDelete, IDs: req.IDs})
}

// CheckPoint handles POST /regions/check-point. The point is tested against
// the stored regions selected by the same query parameters as GET /regions.
func (h *RegionHandlers) CheckPoint(w http.ResponseWriter, r *http.Request) {
	view, ok := parseView(w, r)
	if !ok {
		return
	}
	var req PointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "latitude and longitude must be numbers")
		return
	}

	pt := geometry.Point{Lat: *req.Latitude, Lng: *req.Longitude}
	hits, err := h.engine.CheckPoint(r.Context(), pt, view)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}

	resp := StoredCheckPointResponse{Latitude: pt.Lat, Longitude: pt.Lng, Results: make([]RegionHit, 0, len(hits))}
	for _, hit := range hits {
		if hit.Inside {
			resp.InsideCount++
		}
		resp.Results = append(resp.Results, RegionHit{
			RegionID:   hit.Region.ID,
			RegionName: hit.Region.Name,
			RegionType: hit.Region.Kind,
			IsInside:   hit.Inside,
		})
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// Tags handles GET /tags.
func (h *RegionHandlers) Tags(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string][]string{"tags": h.engine.Tags()})
}

func (h *RegionHandlers) apply(w http.ResponseWriter, r *http.Request, status int, m region.Mutation) {
	res, err := h.engine.Apply(r.Context(), m)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	writeJSON(w, r, status, res)
}

// parseView reads the list filters from the query string.
func parseView(w http.ResponseWriter, r *http.Request) (region.View, bool) {
	q := r.URL.Query()
	view := region.View{
		Query:   q.Get("q"),
		LayerID: q.Get("layer"),
	}
	if tags := q.Get("tags"); tags != "" {
		view.Tags = region.ParseTagList(tags)
	}

	for name, dst := range map[string]*bool{"visible": &view.VisibleOnly, "favorites": &view.FavoritesOnly} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, name+" must be a boolean")
			return region.View{}, false
		}
		*dst = v
	}
	return view, true
}

func vertexIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "vertex index must be an integer")
		return 0, false
	}
	return index, true
}
