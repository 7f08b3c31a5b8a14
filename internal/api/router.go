package api

import "net/http"

// RouterConfig holds the handler groups mounted by NewRouter. Nil groups are
// skipped.
type RouterConfig struct {
	Legacy    *LegacyHandlers
	Regions   *RegionHandlers
	Workspace *WorkspaceHandlers
	Health    *HealthHandlers

	// GeocodeLimit wraps the routes that call the geocoding provider.
	GeocodeLimit func(http.Handler) http.Handler
}

// NewRouter registers every HTTP endpoint of the service.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	if h := cfg.Health; h != nil {
		mux.HandleFunc("GET /health", h.Health)
		mux.HandleFunc("GET /ready", h.Ready)
	}

	if h := cfg.Legacy; h != nil {
		mux.HandleFunc("POST /check-point", h.CheckPoint)
		mux.Handle("POST /geocode", limit(cfg.GeocodeLimit, h.Geocode))
		mux.HandleFunc("POST /region/{id}/check-point", h.RegionCheckPoint)
		mux.Handle("POST /region/{id}/check-address", limit(cfg.GeocodeLimit, h.RegionCheckAddress))
		mux.HandleFunc("POST /regions/export", h.ExportDocs)
	}

	if h := cfg.Regions; h != nil {
		mux.HandleFunc("GET /regions", h.ListRegions)
		mux.HandleFunc("POST /regions", h.CreateRegion)
		mux.HandleFunc("POST /regions/bulk-delete", h.BulkDelete)
		mux.HandleFunc("POST /regions/check-point", h.CheckPoint)
		mux.HandleFunc("GET /regions/{id}", h.GetRegion)
		mux.HandleFunc("PATCH /regions/{id}", h.UpdateRegion)
		mux.HandleFunc("DELETE /regions/{id}", h.DeleteRegion)
		mux.HandleFunc("POST /regions/{id}/{action}", h.RegionAction)
		mux.HandleFunc("POST /regions/{id}/vertices", h.InsertVertex)
		mux.HandleFunc("PUT /regions/{id}/vertices/{index}", h.MoveVertex)
		mux.HandleFunc("DELETE /regions/{id}/vertices/{index}", h.RemoveVertex)
		mux.HandleFunc("GET /tags", h.Tags)
	}

	if h := cfg.Workspace; h != nil {
		mux.HandleFunc("GET /history", h.History)
		mux.HandleFunc("POST /history/undo", h.Undo)
		mux.HandleFunc("POST /history/redo", h.Redo)
		mux.HandleFunc("GET /layers", h.ListLayers)
		mux.HandleFunc("POST /layers", h.CreateLayer)
		mux.HandleFunc("PATCH /layers/{id}", h.UpdateLayer)
		mux.HandleFunc("DELETE /layers/{id}", h.DeleteLayer)
		mux.HandleFunc("GET /settings", h.GetSettings)
		mux.HandleFunc("PUT /settings", h.PutSettings)
		mux.HandleFunc("GET /snapshot", h.GetSnapshot)
		mux.HandleFunc("PUT /snapshot", h.PutSnapshot)
		mux.HandleFunc("POST /import/kml", h.ImportKML)
		mux.HandleFunc("GET /stats", h.Stats)
	}

	return mux
}

func limit(mw func(http.Handler) http.Handler, h http.HandlerFunc) http.Handler {
	if mw == nil {
		return h
	}
	return mw(h)
}
