package region

import "strings"

// Filter returns the regions matching query and tags, preserving order.
//
// query matches case-insensitively as a substring of the name, the
// description or any tag. A non-empty tags set keeps regions carrying at
// least one of the tags. Filter is a pure projection: the input is not
// modified and the returned slice shares the input's elements.
func Filter(regions []*Region, query string, tags []string) []*Region {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*Region, 0, len(regions))
	for _, r := range regions {
		if q != "" && !matchesQuery(r, q) {
			continue
		}
		if len(tags) > 0 && !hasAnyTag(r, tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// View describes a derived subset of the workspace.
type View struct {
	Query         string
	Tags          []string
	LayerID       string // restrict to one layer when set
	VisibleOnly   bool   // drop hidden regions and regions in hidden layers
	FavoritesOnly bool
}

// Apply filters regions according to the view. layers is consulted for layer
// visibility when VisibleOnly is set.
func (v View) Apply(regions []*Region, layers []Layer) []*Region {
	hidden := make(map[string]bool, len(layers))
	for _, l := range layers {
		hidden[l.ID] = !l.Visible
	}

	out := make([]*Region, 0, len(regions))
	for _, r := range Filter(regions, v.Query, v.Tags) {
		if v.LayerID != "" && r.LayerID != v.LayerID {
			continue
		}
		if v.VisibleOnly && (!r.Visible || hidden[r.LayerID]) {
			continue
		}
		if v.FavoritesOnly && !r.Favorite {
			continue
		}
		out = append(out, r)
	}
	return out
}

// AllTags returns every distinct tag in collection order.
func AllTags(regions []*Region) []string {
	var all []string
	for _, r := range regions {
		all = append(all, r.Tags...)
	}
	return NormalizeTags(all)
}

func matchesQuery(r *Region, q string) bool {
	if strings.Contains(strings.ToLower(r.Name), q) ||
		strings.Contains(strings.ToLower(r.Description), q) {
		return true
	}
	for _, t := range r.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}

func hasAnyTag(r *Region, tags []string) bool {
	for _, t := range tags {
		if r.HasTag(t) {
			return true
		}
	}
	return false
}
