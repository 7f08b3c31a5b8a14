package region

import "github.com/onnwee/regions/internal/geometry"

// LayerStats summarizes one layer.
type LayerStats struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Visible   bool    `json:"visible"`
	Regions   int     `json:"regions"`
	TotalArea float64 `json:"totalArea"`
}

// Stats summarizes the workspace.
type Stats struct {
	TotalRegions   int                   `json:"totalRegions"`
	VisibleRegions int                   `json:"visibleRegions"`
	HiddenRegions  int                   `json:"hiddenRegions"`
	Favorites      int                   `json:"favoriteRegions"`
	Locked         int                   `json:"lockedRegions"`
	TotalArea      float64               `json:"totalArea"`
	TotalPerimeter float64               `json:"totalPerimeter"`
	AverageArea    float64               `json:"averageArea"`
	ByKind         map[geometry.Kind]int `json:"byType"`
	Layers         []LayerStats          `json:"layers"`
	Tags           map[string]int        `json:"tags"`
}

// ComputeStats aggregates regions per layer, kind and tag.
func ComputeStats(regions []*Region, layers []Layer) Stats {
	st := Stats{
		ByKind: make(map[geometry.Kind]int),
		Tags:   make(map[string]int),
		Layers: make([]LayerStats, len(layers)),
	}
	byLayer := make(map[string]int, len(layers))
	for i, l := range layers {
		st.Layers[i] = LayerStats{ID: l.ID, Name: l.Name, Visible: l.Visible}
		byLayer[l.ID] = i
	}

	for _, r := range regions {
		st.TotalRegions++
		if r.Visible {
			st.VisibleRegions++
		} else {
			st.HiddenRegions++
		}
		if r.Favorite {
			st.Favorites++
		}
		if r.Locked {
			st.Locked++
		}
		st.TotalArea += r.Area
		st.TotalPerimeter += r.Perimeter
		st.ByKind[r.Kind]++
		for _, t := range r.Tags {
			st.Tags[t]++
		}
		if i, ok := byLayer[r.LayerID]; ok {
			st.Layers[i].Regions++
			st.Layers[i].TotalArea += r.Area
		}
	}
	if st.TotalRegions > 0 {
		st.AverageArea = st.TotalArea / float64(st.TotalRegions)
	}
	return st
}
