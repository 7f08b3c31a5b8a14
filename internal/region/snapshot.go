package region

import (
	"fmt"
	"time"

	"github.com/onnwee/regions/internal/geometry"
)

// ExportVersion is the format version written into exports.
const ExportVersion = "2.0"

// ExportMetadata summarizes an export.
type ExportMetadata struct {
	TotalRegions    int `json:"totalRegions"`
	TotalLayers     int `json:"totalLayers"`
	FavoriteRegions int `json:"favoriteRegions"`
	LockedRegions   int `json:"lockedRegions"`
}

// Export is the portable workspace document.
type Export struct {
	Regions    []*Region      `json:"regions"`
	Layers     []Layer        `json:"layers"`
	Settings   MapSettings    `json:"settings"`
	ExportedAt time.Time      `json:"exportedAt"`
	Version    string         `json:"version"`
	Metadata   ExportMetadata `json:"metadata"`
}

// NewExport builds an export document from the given workspace contents.
func NewExport(regions []*Region, layers []Layer, settings MapSettings, at time.Time) Export {
	md := ExportMetadata{TotalRegions: len(regions), TotalLayers: len(layers)}
	for _, r := range regions {
		if r.Favorite {
			md.FavoriteRegions++
		}
		if r.Locked {
			md.LockedRegions++
		}
	}
	if regions == nil {
		regions = []*Region{}
	}
	return Export{
		Regions:    regions,
		Layers:     layers,
		Settings:   settings,
		ExportedAt: at.UTC(),
		Version:    ExportVersion,
		Metadata:   md,
	}
}

// State is the persisted form of an engine: the workspace plus its history.
type State struct {
	Regions      []*Region   `json:"regions"`
	Layers       []Layer     `json:"layers"`
	Settings     MapSettings `json:"settings"`
	History      []Entry     `json:"history"`
	HistoryIndex int         `json:"historyIndex"`
}

// replaceContents swaps the store's regions, layers and settings for the
// given ones after validating them. Layer region counts are recomputed from
// the regions; regions pointing at unknown layers move to the default layer.
// Derived measurements are recomputed.
func (s *Store) replaceContents(regions []*Region, layers []Layer, settings MapSettings) error {
	if settings.Theme == "" {
		settings = DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	nextLayers := make([]*Layer, 0, len(layers)+1)
	seenLayers := make(map[string]bool, len(layers)+1)
	for _, l := range layers {
		if l.ID == "" || seenLayers[l.ID] {
			return &ValidationError{Field: "layers", Message: fmt.Sprintf("missing or duplicate layer id %q", l.ID)}
		}
		seenLayers[l.ID] = true
		c := l
		c.RegionCount = 0
		nextLayers = append(nextLayers, &c)
	}
	if !seenLayers[DefaultLayerID] {
		def := DefaultLayer()
		nextLayers = append([]*Layer{&def}, nextLayers...)
		seenLayers[DefaultLayerID] = true
	}

	nextRegions := make([]*Region, 0, len(regions))
	seenRegions := make(map[string]bool, len(regions))
	for i, r := range regions {
		if r == nil || r.ID == "" || seenRegions[r.ID] {
			return &ValidationError{Field: "regions", Message: fmt.Sprintf("region %d has a missing or duplicate id", i)}
		}
		seenRegions[r.ID] = true
		c := r.Clone()
		kind, err := geometry.ParseKind(string(c.Kind))
		if err != nil {
			return &ValidationError{Field: "regions", Message: fmt.Sprintf("region %q: %v", c.ID, err)}
		}
		c.Kind = kind
		if err := geometry.ValidateVertices(kind, c.Vertices); err != nil {
			return &ValidationError{Field: "regions", Message: fmt.Sprintf("region %q: %v", c.ID, err)}
		}
		m, _ := s.geom.Measure(kind, c.Vertices)
		c.Area, c.Perimeter = m.Area, m.Perimeter
		if !seenLayers[c.LayerID] {
			c.LayerID = DefaultLayerID
		}
		c.Tags = NormalizeTags(c.Tags)
		nextRegions = append(nextRegions, c)
	}

	s.layers = nextLayers
	s.regions = nil
	for _, r := range nextRegions {
		s.insert(r, len(s.regions))
	}
	s.settings = settings
	return nil
}
