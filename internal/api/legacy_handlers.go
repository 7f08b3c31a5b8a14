package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/onnwee/regions/internal/geo"
	"github.com/onnwee/regions/internal/geocode"
	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/middleware"
	"github.com/onnwee/regions/internal/validate"
)

// Messages of the per-region endpoints that have no stored-region lookup.
const (
	UnimplementedMessage    = "Checking a single stored region by id is not supported on this endpoint"
	UnimplementedSuggestion = "Use the /check-point endpoint with the regions in the request body"
	GeocodedMessage         = "Address geocoded successfully"
)

// Example values published in the generated endpoint documentation.
const (
	ExampleLatitude  = -23.5505
	ExampleLongitude = -46.6333
	ExampleAddress   = "Av. Paulista, 1000 - São Paulo, SP"
)

// InputRegion is a region supplied in a request body rather than read from
// the workspace.
type InputRegion struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Coordinates []geometry.Point `json:"coordinates"`
	Area        *float64         `json:"area,omitempty"`
	Perimeter   *float64         `json:"perimeter,omitempty"`
}

// CheckPointRequest is the body of POST /check-point.
type CheckPointRequest struct {
	Latitude  json.RawMessage `json:"latitude"`
	Longitude json.RawMessage `json:"longitude"`
	Regions   json.RawMessage `json:"regions"`
}

// CheckPointResult is one element of the POST /check-point response.
type CheckPointResult struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	IsInside   bool    `json:"isInside"`
	RegionName string  `json:"regionName"`
}

// GeocodeRequest is the body of POST /geocode and /region/{id}/check-address.
type GeocodeRequest struct {
	Address string `json:"address"`
}

// GeocodeResponse is the success body of POST /geocode.
type GeocodeResponse struct {
	Success     bool                `json:"success"`
	Address     string              `json:"address"`
	Coordinates geometry.Point      `json:"coordinates"`
	Components  []geocode.Component `json:"components"`
	PlaceID     string              `json:"placeId"`
}

// GeocodeMissResponse is the 404 body of POST /geocode.
type GeocodeMissResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  string `json:"status"`
}

// UnimplementedResponse is the 501 body of the per-region endpoints.
type UnimplementedResponse struct {
	Error      string         `json:"error"`
	Suggestion string         `json:"suggestion"`
	Geocoded   *GeocodedBlock `json:"geocoded,omitempty"`
}

// GeocodedBlock reports the resolved address in a check-address response.
type GeocodedBlock struct {
	Address     string         `json:"address"`
	Coordinates geometry.Point `json:"coordinates"`
	Message     string         `json:"message"`
}

// AddressMissResponse is the 404 body of /region/{id}/check-address.
type AddressMissResponse struct {
	Error   string `json:"error"`
	Address string `json:"address"`
}

// ExportRequest is the body of POST /regions/export.
type ExportRequest struct {
	Regions json.RawMessage `json:"regions"`
}

// EndpointDoc documents one per-region endpoint.
type EndpointDoc struct {
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Description string            `json:"description"`
	Body        map[string]string `json:"body"`
	Example     map[string]any    `json:"example"`
}

// RegionDoc is the generated documentation for one region.
type RegionDoc struct {
	RegionID    string                 `json:"regionId"`
	RegionName  string                 `json:"regionName"`
	RegionType  string                 `json:"regionType"`
	Endpoints   map[string]EndpointDoc `json:"endpoints"`
	Coordinates []geometry.Point       `json:"coordinates"`
	Area        *float64               `json:"area,omitempty"`
	Perimeter   *float64               `json:"perimeter,omitempty"`
	Geohash     string                 `json:"geohash,omitempty"`
}

// ExportResponse is the body of POST /regions/export.
type ExportResponse struct {
	TotalRegions int         `json:"totalRegions"`
	GeneratedAt  time.Time   `json:"generatedAt"`
	Regions      []RegionDoc `json:"regions"`
}

// LegacyHandlers serves the batch endpoints that take regions in the request
// body, plus geocoding.
type LegacyHandlers struct {
	geom     *geometry.Engine
	geocoder geocode.Geocoder
	now      func() time.Time
}

// NewLegacyHandlers creates a new LegacyHandlers instance.
func NewLegacyHandlers(geom *geometry.Engine, geocoder geocode.Geocoder) *LegacyHandlers {
	return &LegacyHandlers{geom: geom, geocoder: geocoder, now: time.Now}
}

// CheckPoint handles POST /check-point.
// Tests one point against every region in the body, in input order.
func (h *LegacyHandlers) CheckPoint(w http.ResponseWriter, r *http.Request) {
	var req CheckPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	pt, ok := decodePoint(req.Latitude, req.Longitude)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "latitude and longitude must be numbers")
		return
	}
	regions, ok := decodeRegions(req.Regions)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "regions must be an array")
		return
	}

	results := make([]CheckPointResult, 0, len(regions))
	for _, reg := range regions {
		kind, err := geometry.ParseKind(reg.Type)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		// Shapes with too few vertices contain nothing.
		inside, err := h.geom.ContainsPoint(pt, kind, reg.Coordinates)
		if err != nil {
			inside = false
		}
		results = append(results, CheckPointResult{
			Latitude:   pt.Lat,
			Longitude:  pt.Lng,
			IsInside:   inside,
			RegionName: reg.Name,
		})
	}

	writeJSON(w, r, http.StatusOK, results)
}

// Geocode handles POST /geocode.
func (h *LegacyHandlers) Geocode(w http.ResponseWriter, r *http.Request) {
	var req GeocodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	address, err := validate.Address(req.Address)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "address: "+err.Error())
		return
	}

	res, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		var miss *geocode.NotFoundError
		if errors.As(err, &miss) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			middleware.UpdateResponseContext(w, ctx)
			writeJSON(w, r, http.StatusNotFound, GeocodeMissResponse{
				Success: false,
				Error:   "Address not found",
				Status:  miss.Status,
			})
			return
		}
		writeEngineError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, GeocodeResponse{
		Success:     true,
		Address:     res.Address,
		Coordinates: res.Coordinates,
		Components:  res.Components,
		PlaceID:     res.PlaceID,
	})
}

// RegionCheckPoint handles POST /region/{id}/check-point.
// The coordinates are validated, then the request is answered with 501.
func (h *LegacyHandlers) RegionCheckPoint(w http.ResponseWriter, r *http.Request) {
	var req CheckPointRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, ok := decodePoint(req.Latitude, req.Longitude); !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "latitude and longitude must be numbers")
		return
	}
	writeUnimplemented(w, r, UnimplementedResponse{
		Error:      UnimplementedMessage,
		Suggestion: UnimplementedSuggestion,
	})
}

// RegionCheckAddress handles POST /region/{id}/check-address.
// The address is geocoded first so callers learn whether it resolves; the
// containment test itself answers 501.
func (h *LegacyHandlers) RegionCheckAddress(w http.ResponseWriter, r *http.Request) {
	var req GeocodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	address, err := validate.Address(req.Address)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "address: "+err.Error())
		return
	}

	res, err := h.geocoder.Geocode(r.Context(), address)
	if err != nil {
		if errors.Is(err, geocode.ErrNoResults) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			middleware.UpdateResponseContext(w, ctx)
			writeJSON(w, r, http.StatusNotFound, AddressMissResponse{
				Error:   "Could not find coordinates for this address",
				Address: address,
			})
			return
		}
		writeEngineError(w, r, err)
		return
	}

	writeUnimplemented(w, r, UnimplementedResponse{
		Error:      UnimplementedMessage,
		Suggestion: UnimplementedSuggestion,
		Geocoded: &GeocodedBlock{
			Address:     address,
			Coordinates: res.Coordinates,
			Message:     GeocodedMessage,
		},
	})
}

// ExportDocs handles POST /regions/export.
// Generates per-region endpoint documentation for the regions in the body.
func (h *LegacyHandlers) ExportDocs(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	regions, ok := decodeRegions(req.Regions)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "regions must be an array")
		return
	}

	docs := make([]RegionDoc, 0, len(regions))
	for _, reg := range regions {
		docs = append(docs, h.regionDoc(reg))
	}

	writeJSON(w, r, http.StatusOK, ExportResponse{
		TotalRegions: len(regions),
		GeneratedAt:  h.now().UTC(),
		Regions:      docs,
	})
}

func (h *LegacyHandlers) regionDoc(reg InputRegion) RegionDoc {
	base := "/region/" + url.PathEscape(reg.ID)
	doc := RegionDoc{
		RegionID:    reg.ID,
		RegionName:  reg.Name,
		RegionType:  reg.Type,
		Coordinates: reg.Coordinates,
		Area:        reg.Area,
		Perimeter:   reg.Perimeter,
		Geohash:     geo.Cell(reg.Coordinates, geo.DefaultPrecision),
		Endpoints: map[string]EndpointDoc{
			"checkPoint": {
				URL:         base + "/check-point",
				Method:      http.MethodPost,
				Description: "Checks whether coordinates fall inside the region",
				Body:        map[string]string{"latitude": "number", "longitude": "number"},
				Example:     map[string]any{"latitude": ExampleLatitude, "longitude": ExampleLongitude},
			},
			"checkAddress": {
				URL:         base + "/check-address",
				Method:      http.MethodPost,
				Description: "Checks whether an address falls inside the region",
				Body:        map[string]string{"address": "string"},
				Example:     map[string]any{"address": ExampleAddress},
			},
		},
	}
	if doc.Coordinates == nil {
		doc.Coordinates = []geometry.Point{}
	}

	// Fill in measurements the caller did not send.
	if reg.Area == nil || reg.Perimeter == nil {
		if kind, err := geometry.ParseKind(reg.Type); err == nil {
			if m, err := h.geom.Measure(kind, reg.Coordinates); err == nil {
				if doc.Area == nil {
					doc.Area = &m.Area
				}
				if doc.Perimeter == nil {
					doc.Perimeter = &m.Perimeter
				}
			}
		}
	}
	return doc
}

func writeUnimplemented(w http.ResponseWriter, r *http.Request, body UnimplementedResponse) {
	ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotImplemented)
	middleware.UpdateResponseContext(w, ctx)
	writeJSON(w, r, http.StatusNotImplemented, body)
}

// decodePoint requires both values to be JSON numbers.
func decodePoint(lat, lng json.RawMessage) (geometry.Point, bool) {
	var pt geometry.Point
	if !isJSONNumber(lat) || !isJSONNumber(lng) {
		return pt, false
	}
	if json.Unmarshal(lat, &pt.Lat) != nil || json.Unmarshal(lng, &pt.Lng) != nil {
		return pt, false
	}
	return pt, true
}

func isJSONNumber(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}
	c := raw[0]
	return c == '-' || (c >= '0' && c <= '9')
}

// decodeRegions requires a JSON array of regions.
func decodeRegions(raw json.RawMessage) ([]InputRegion, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var regions []InputRegion
	if err := json.Unmarshal(raw, &regions); err != nil {
		return nil, false
	}
	return regions, true
}
