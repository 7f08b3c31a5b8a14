// Package region owns user-defined map regions, their layers and the linear
// undo/redo history over region mutations.
package region

import (
	"strings"
	"time"

	"github.com/onnwee/regions/internal/color"
	"github.com/onnwee/regions/internal/geometry"
)

// DefaultLayerID identifies the layer that always exists and cannot be deleted.
const DefaultLayerID = "default"

// Default style values applied when a region is created without one.
const (
	DefaultFillColor    = "#3b82f6"
	DefaultStrokeColor  = "#1d4ed8"
	DefaultFillOpacity  = 0.3
	DefaultStrokeWeight = 2
)

// Style holds the rendering hints stored with a region.
type Style struct {
	FillColor    string  `json:"fillColor"`
	StrokeColor  string  `json:"strokeColor"`
	FillOpacity  float64 `json:"fillOpacity"`
	StrokeWeight float64 `json:"strokeWeight"`
}

// DefaultStyle returns the style used for regions created without one.
func DefaultStyle() Style {
	return Style{
		FillColor:    DefaultFillColor,
		StrokeColor:  DefaultStrokeColor,
		FillOpacity:  DefaultFillOpacity,
		StrokeWeight: DefaultStrokeWeight,
	}
}

// LayerStyle derives a style from a layer color: the fill is the layer color
// and the stroke is a darker shade of it.
func LayerStyle(layerColor string) Style {
	s := DefaultStyle()
	if !color.IsValidHexColor(layerColor) {
		return s
	}
	s.FillColor = strings.ToLower(layerColor)
	if dark, err := color.Darken(layerColor, 0.3); err == nil {
		s.StrokeColor = dark
	}
	return s
}

// Validate checks colors, opacity and stroke weight.
func (s Style) Validate() error {
	if err := color.ValidateHexColor(s.FillColor); err != nil {
		return &ValidationError{Field: "style.fillColor", Message: err.Error()}
	}
	if err := color.ValidateHexColor(s.StrokeColor); err != nil {
		return &ValidationError{Field: "style.strokeColor", Message: err.Error()}
	}
	if s.FillOpacity < 0 || s.FillOpacity > 1 {
		return &ValidationError{Field: "style.fillOpacity", Message: "must be between 0 and 1"}
	}
	if s.StrokeWeight < 1 {
		return &ValidationError{Field: "style.strokeWeight", Message: "must be at least 1"}
	}
	return nil
}

// Region is a named geographic shape with presentation and organisation attributes.
type Region struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Kind        geometry.Kind     `json:"type"`
	Vertices    []geometry.Point  `json:"coordinates"`
	Style       Style             `json:"style"`
	Area        float64           `json:"area"`
	Perimeter   float64           `json:"perimeter"`
	LayerID     string            `json:"layer"`
	Tags        []string          `json:"tags"`
	Visible     bool              `json:"isVisible"`
	Locked      bool              `json:"isLocked"`
	Favorite    bool              `json:"isFavorite"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Clone returns a deep copy of the region.
func (r *Region) Clone() *Region {
	if r == nil {
		return nil
	}
	c := *r
	c.Vertices = append([]geometry.Point(nil), r.Vertices...)
	c.Tags = append([]string(nil), r.Tags...)
	if r.Metadata != nil {
		c.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

// Shape returns the geometry variant of the region.
func (r *Region) Shape() (geometry.Shape, error) {
	return geometry.NewShape(r.Kind, r.Vertices)
}

// HasTag reports whether the region carries tag (exact match).
func (r *Region) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Layer groups regions for visibility and locking.
type Layer struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Visible     bool   `json:"visible"`
	Locked      bool   `json:"locked"`
	RegionCount int    `json:"regionCount"`
}

// DefaultLayer returns the layer every workspace starts with.
func DefaultLayer() Layer {
	return Layer{
		ID:      DefaultLayerID,
		Name:    "Default",
		Color:   DefaultFillColor,
		Visible: true,
	}
}

// Theme names accepted in MapSettings.
const (
	ThemeDefault   = "default"
	ThemeDark      = "dark"
	ThemeSatellite = "satellite"
	ThemeTerrain   = "terrain"
)

// MapSettings are renderer preferences stored and exported with the workspace.
type MapSettings struct {
	Theme       string `json:"theme"`
	ShowLabels  bool   `json:"showLabels"`
	ShowTraffic bool   `json:"showTraffic"`
	ShowTransit bool   `json:"showTransit"`
	Clustering  bool   `json:"clustering"`
	Heatmap     bool   `json:"heatmap"`
	Animation   bool   `json:"animation"`
}

// DefaultSettings returns the initial map settings.
func DefaultSettings() MapSettings {
	return MapSettings{
		Theme:      ThemeDefault,
		ShowLabels: true,
		Clustering: true,
		Animation:  true,
	}
}

// Validate checks the theme name.
func (s MapSettings) Validate() error {
	switch s.Theme {
	case ThemeDefault, ThemeDark, ThemeSatellite, ThemeTerrain:
		return nil
	}
	return &ValidationError{Field: "theme", Message: "must be one of default, dark, satellite, terrain"}
}

// NormalizeTags trims each tag, drops empty ones and collapses duplicates,
// keeping the order of first occurrence. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// ParseTagList splits a comma-separated tag list and normalizes it.
func ParseTagList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}
