package region

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/regions/internal/color"
	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/validate"
)

// DuplicateOffset is the lat/lng shift applied to every vertex of a duplicated region.
const DuplicateOffset = 0.001

// DuplicateSuffix is appended to the name of a duplicated region.
const DuplicateSuffix = " (Copy)"

const maxNameLength = 200

var nameConstraints = validate.StringConstraints{
	MaxLength: maxNameLength,
	TrimSpace: true,
}

// NewRegion is the input for creating or importing a region.
type NewRegion struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Kind        geometry.Kind     `json:"type"`
	Vertices    []geometry.Point  `json:"coordinates"`
	Style       *Style            `json:"style,omitempty"`
	LayerID     string            `json:"layer"`
	Tags        []string          `json:"tags"`
	Hidden      bool              `json:"hidden,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Patch is a partial update. Nil fields are left untouched.
type Patch struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Kind        *geometry.Kind     `json:"type,omitempty"`
	Vertices    []geometry.Point   `json:"coordinates,omitempty"`
	Style       *Style             `json:"style,omitempty"`
	LayerID     *string            `json:"layer,omitempty"`
	Tags        *[]string          `json:"tags,omitempty"`
	Metadata    *map[string]string `json:"metadata,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Kind == nil && p.Vertices == nil &&
		p.Style == nil && p.LayerID == nil && p.Tags == nil && p.Metadata == nil
}

// LayerPatch is a partial layer update.
type LayerPatch struct {
	Name    *string `json:"name,omitempty"`
	Color   *string `json:"color,omitempty"`
	Visible *bool   `json:"visible,omitempty"`
	Locked  *bool   `json:"locked,omitempty"`
}

// Store owns the region collection, the layers and the map settings.
//
// Store is not safe for concurrent use; Engine serializes access to it.
// Every operation validates fully before mutating, so a failed call leaves
// the store untouched. Regions and layers are deep-copied in and out.
type Store struct {
	regions  []*Region
	layers   []*Layer
	settings MapSettings
	geom     *geometry.Engine

	now   func() time.Time
	newID func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides region and layer id generation.
func WithIDGenerator(gen func() string) StoreOption {
	return func(s *Store) { s.newID = gen }
}

// NewStore creates a store holding only the default layer.
func NewStore(geom *geometry.Engine, opts ...StoreOption) *Store {
	def := DefaultLayer()
	s := &Store{
		layers:   []*Layer{&def},
		settings: DefaultSettings(),
		geom:     geom,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Geometry returns the geometry engine used for measurements.
func (s *Store) Geometry() *geometry.Engine {
	return s.geom
}

// Len returns the number of regions.
func (s *Store) Len() int {
	return len(s.regions)
}

// Regions returns copies of all regions in collection order.
func (s *Store) Regions() []*Region {
	out := make([]*Region, len(s.regions))
	for i, r := range s.regions {
		out[i] = r.Clone()
	}
	return out
}

// Get returns a copy of the region with the given id.
func (s *Store) Get(id string) (*Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, regionNotFound(id)
	}
	return s.regions[i].Clone(), nil
}

// Layers returns copies of all layers.
func (s *Store) Layers() []Layer {
	out := make([]Layer, len(s.layers))
	for i, l := range s.layers {
		out[i] = *l
	}
	return out
}

// Layer returns a copy of the layer with the given id.
func (s *Store) Layer(id string) (Layer, error) {
	l := s.layer(id)
	if l == nil {
		return Layer{}, layerNotFound(id)
	}
	return *l, nil
}

// Settings returns the map settings.
func (s *Store) Settings() MapSettings {
	return s.settings
}

// SetSettings validates and replaces the map settings.
func (s *Store) SetSettings(ms MapSettings) error {
	if err := ms.Validate(); err != nil {
		return err
	}
	s.settings = ms
	return nil
}

// Create validates in and appends a new region to the collection.
func (s *Store) Create(in NewRegion) (*Region, error) {
	r, err := s.build(in, s.now())
	if err != nil {
		return nil, err
	}
	s.insert(r, len(s.regions))
	return r.Clone(), nil
}

// Import validates every input first and then appends all regions. Either
// all regions are added or none.
func (s *Store) Import(in []NewRegion) ([]*Region, error) {
	if len(in) == 0 {
		return nil, &ValidationError{Field: "regions", Message: "nothing to import"}
	}
	now := s.now()
	built := make([]*Region, 0, len(in))
	for i, nr := range in {
		r, err := s.build(nr, now)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		built = append(built, r)
	}
	out := make([]*Region, len(built))
	for i, r := range built {
		s.insert(r, len(s.regions))
		out[i] = r.Clone()
	}
	return out, nil
}

// Update applies p to the region with the given id and returns the region
// before and after the change.
func (s *Store) Update(id string, p Patch) (before, after *Region, err error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, nil, regionNotFound(id)
	}
	cur := s.regions[i]
	if err := s.checkUnlocked(cur); err != nil {
		return nil, nil, err
	}
	if p.Empty() {
		return nil, nil, &ValidationError{Message: "patch changes nothing"}
	}

	next := cur.Clone()
	if p.Name != nil {
		name, err := validateName(*p.Name)
		if err != nil {
			return nil, nil, err
		}
		next.Name = name
	}
	if p.Description != nil {
		desc, err := validateDescription(*p.Description)
		if err != nil {
			return nil, nil, err
		}
		next.Description = desc
	}
	if p.Style != nil {
		if err := p.Style.Validate(); err != nil {
			return nil, nil, err
		}
		next.Style = *p.Style
	}
	if p.LayerID != nil {
		if _, err := s.writableLayer(*p.LayerID); err != nil {
			return nil, nil, err
		}
		next.LayerID = *p.LayerID
	}
	if p.Tags != nil {
		next.Tags = NormalizeTags(*p.Tags)
	}
	if p.Metadata != nil {
		next.Metadata = copyMetadata(*p.Metadata)
	}
	geometryChanged := false
	if p.Kind != nil {
		k, err := geometry.ParseKind(string(*p.Kind))
		if err != nil {
			return nil, nil, &ValidationError{Field: "type", Message: err.Error()}
		}
		next.Kind = k
		geometryChanged = true
	}
	if p.Vertices != nil {
		next.Vertices = append([]geometry.Point(nil), p.Vertices...)
		geometryChanged = true
	}
	if geometryChanged {
		if err := s.remeasure(next); err != nil {
			return nil, nil, err
		}
	}

	next.UpdatedAt = s.now()
	s.replace(i, next)
	return cur.Clone(), next.Clone(), nil
}

// InsertVertex inserts pt before position index of a polygon. An index equal
// to the vertex count appends.
func (s *Store) InsertVertex(id string, index int, pt geometry.Point) (before, after *Region, err error) {
	r, err := s.editable(id)
	if err != nil {
		return nil, nil, err
	}
	if r.Kind != geometry.KindPolygon {
		return nil, nil, &ValidationError{Field: "type", Message: "vertices can only be inserted into polygons"}
	}
	if index < 0 || index > len(r.Vertices) {
		return nil, nil, &ValidationError{Field: "index", Message: fmt.Sprintf("must be between 0 and %d", len(r.Vertices))}
	}
	vs := make([]geometry.Point, 0, len(r.Vertices)+1)
	vs = append(vs, r.Vertices[:index]...)
	vs = append(vs, pt)
	vs = append(vs, r.Vertices[index:]...)
	return s.Update(id, Patch{Vertices: vs})
}

// RemoveVertex removes the vertex at index. Removing below the minimum vertex
// count of the shape is rejected with a GeometryDegenerateError.
func (s *Store) RemoveVertex(id string, index int) (before, after *Region, err error) {
	r, err := s.editable(id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkIndex(index, len(r.Vertices)); err != nil {
		return nil, nil, err
	}
	vs := make([]geometry.Point, 0, len(r.Vertices)-1)
	vs = append(vs, r.Vertices[:index]...)
	vs = append(vs, r.Vertices[index+1:]...)
	return s.Update(id, Patch{Vertices: vs})
}

// MoveVertex replaces the vertex at index with pt.
func (s *Store) MoveVertex(id string, index int, pt geometry.Point) (before, after *Region, err error) {
	r, err := s.editable(id)
	if err != nil {
		return nil, nil, err
	}
	if err := checkIndex(index, len(r.Vertices)); err != nil {
		return nil, nil, err
	}
	vs := append([]geometry.Point(nil), r.Vertices...)
	vs[index] = pt
	return s.Update(id, Patch{Vertices: vs})
}

// Delete removes the region and returns it with its former position.
func (s *Store) Delete(id string) (*Region, int, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, -1, regionNotFound(id)
	}
	if err := s.checkUnlocked(s.regions[i]); err != nil {
		return nil, -1, err
	}
	removed := s.regions[i].Clone()
	s.remove(i)
	return removed, i, nil
}

// BulkDelete removes every listed region or none of them. Unknown ids yield
// a NotFoundError and any locked region a LockedRegionError. The removed
// regions are returned with their former positions, ascending.
func (s *Store) BulkDelete(ids []string) ([]*Region, []int, error) {
	if len(ids) == 0 {
		return nil, nil, &ValidationError{Field: "ids", Message: "at least one region id is required"}
	}
	marked := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		i := s.indexOf(id)
		if i < 0 {
			return nil, nil, regionNotFound(id)
		}
		if err := s.checkUnlocked(s.regions[i]); err != nil {
			return nil, nil, err
		}
		marked[i] = struct{}{}
	}

	var (
		removed   []*Region
		positions []int
		kept      = make([]*Region, 0, len(s.regions)-len(marked))
	)
	for i, r := range s.regions {
		if _, ok := marked[i]; ok {
			removed = append(removed, r.Clone())
			positions = append(positions, i)
			s.adjustCount(r.LayerID, -1)
			continue
		}
		kept = append(kept, r)
	}
	s.regions = kept
	return removed, positions, nil
}

// Duplicate copies a region under a new id. The copy is offset by
// DuplicateOffset, named with DuplicateSuffix and is never a favorite.
// Duplicating a locked region is allowed and the copy stays locked, but a
// copy cannot be added to a locked layer.
func (s *Store) Duplicate(id string) (*Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, regionNotFound(id)
	}
	c := s.regions[i].Clone()
	now := s.now()
	c.ID = s.newID()
	c.Name += DuplicateSuffix
	for j := range c.Vertices {
		c.Vertices[j] = c.Vertices[j].Offset(DuplicateOffset, DuplicateOffset)
	}
	c.Favorite = false
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := s.remeasure(c); err != nil {
		return nil, err
	}
	if s.layer(c.LayerID) == nil {
		c.LayerID = DefaultLayerID
	}
	if _, err := s.writableLayer(c.LayerID); err != nil {
		return nil, err
	}
	s.insert(c, len(s.regions))
	return c.Clone(), nil
}

// ToggleFavorite flips the favorite flag.
func (s *Store) ToggleFavorite(id string) (before, after *Region, err error) {
	return s.toggle(id, func(r *Region) { r.Favorite = !r.Favorite })
}

// ToggleVisibility flips the visibility flag.
func (s *Store) ToggleVisibility(id string) (before, after *Region, err error) {
	return s.toggle(id, func(r *Region) { r.Visible = !r.Visible })
}

// ToggleLock flips the lock flag. Toggles are permitted on locked regions so
// that a region can always be unlocked.
func (s *Store) ToggleLock(id string) (before, after *Region, err error) {
	return s.toggle(id, func(r *Region) { r.Locked = !r.Locked })
}

func (s *Store) toggle(id string, flip func(*Region)) (*Region, *Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, nil, regionNotFound(id)
	}
	before := s.regions[i].Clone()
	next := before.Clone()
	flip(next)
	next.UpdatedAt = s.now()
	s.regions[i] = next
	return before, next.Clone(), nil
}

// CreateLayer adds a layer. An empty id is generated.
func (s *Store) CreateLayer(l Layer) (Layer, error) {
	name, err := validateName(l.Name)
	if err != nil {
		return Layer{}, err
	}
	l.Name = name
	if l.Color == "" {
		l.Color = DefaultFillColor
	}
	if err := validateLayerColor(l.Color); err != nil {
		return Layer{}, err
	}
	if l.ID == "" {
		l.ID = s.newID()
	}
	if s.layer(l.ID) != nil {
		return Layer{}, &ValidationError{Field: "id", Message: fmt.Sprintf("layer %q already exists", l.ID)}
	}
	l.RegionCount = 0
	s.layers = append(s.layers, &l)
	return l, nil
}

// UpdateLayer applies p to a layer.
func (s *Store) UpdateLayer(id string, p LayerPatch) (Layer, error) {
	l := s.layer(id)
	if l == nil {
		return Layer{}, layerNotFound(id)
	}
	next := *l
	if p.Name != nil {
		name, err := validateName(*p.Name)
		if err != nil {
			return Layer{}, err
		}
		next.Name = name
	}
	if p.Color != nil {
		if err := validateLayerColor(*p.Color); err != nil {
			return Layer{}, err
		}
		next.Color = *p.Color
	}
	if p.Visible != nil {
		next.Visible = *p.Visible
	}
	if p.Locked != nil {
		next.Locked = *p.Locked
	}
	*l = next
	return next, nil
}

// DeleteLayer removes an empty layer. The default layer cannot be deleted.
func (s *Store) DeleteLayer(id string) error {
	if id == DefaultLayerID {
		return &ValidationError{Field: "id", Message: "the default layer cannot be deleted"}
	}
	for i, l := range s.layers {
		if l.ID != id {
			continue
		}
		for _, r := range s.regions {
			if r.LayerID == id {
				return &ValidationError{Field: "id", Message: "layer still contains regions"}
			}
		}
		s.layers = append(s.layers[:i], s.layers[i+1:]...)
		return nil
	}
	return layerNotFound(id)
}

// restore upserts r without lock checks. A new region is placed at pos, or
// appended when pos is out of range. It is used by history replays.
func (s *Store) restore(r *Region, pos int) {
	c := r.Clone()
	if s.layer(c.LayerID) == nil {
		c.LayerID = DefaultLayerID
	}
	if i := s.indexOf(c.ID); i >= 0 {
		s.replace(i, c)
		return
	}
	if pos < 0 || pos > len(s.regions) {
		pos = len(s.regions)
	}
	s.insert(c, pos)
}

// drop removes the region with the given id, if present, without lock checks.
func (s *Store) drop(id string) {
	if i := s.indexOf(id); i >= 0 {
		s.remove(i)
	}
}

func (s *Store) build(in NewRegion, now time.Time) (*Region, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	desc, err := validateDescription(in.Description)
	if err != nil {
		return nil, err
	}
	kind, err := geometry.ParseKind(string(in.Kind))
	if err != nil {
		return nil, &ValidationError{Field: "type", Message: err.Error()}
	}
	layerID := in.LayerID
	if layerID == "" {
		layerID = DefaultLayerID
	}
	l, err := s.writableLayer(layerID)
	if err != nil {
		return nil, err
	}
	style := LayerStyle(l.Color)
	if in.Style != nil {
		if err := in.Style.Validate(); err != nil {
			return nil, err
		}
		style = *in.Style
	}

	r := &Region{
		ID:          s.newID(),
		Name:        name,
		Description: desc,
		Kind:        kind,
		Vertices:    append([]geometry.Point(nil), in.Vertices...),
		Style:       style,
		LayerID:     layerID,
		Tags:        NormalizeTags(in.Tags),
		Visible:     !in.Hidden,
		Metadata:    copyMetadata(in.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := geometry.ValidateVertices(kind, r.Vertices); err != nil {
		return nil, &ValidationError{Field: "coordinates", Message: err.Error()}
	}
	m, _ := s.geom.Measure(kind, r.Vertices)
	r.Area, r.Perimeter = m.Area, m.Perimeter
	return r, nil
}

// remeasure validates the geometry of r and refreshes its derived fields.
func (s *Store) remeasure(r *Region) error {
	if min := geometry.MinVertices(r.Kind); len(r.Vertices) < min {
		return &GeometryDegenerateError{ID: r.ID, Vertices: len(r.Vertices), Minimum: min}
	}
	if err := geometry.ValidateVertices(r.Kind, r.Vertices); err != nil {
		return &ValidationError{Field: "coordinates", Message: err.Error()}
	}
	m, err := s.geom.Measure(r.Kind, r.Vertices)
	if err != nil {
		return &ValidationError{Field: "coordinates", Message: err.Error()}
	}
	r.Area, r.Perimeter = m.Area, m.Perimeter
	return nil
}

func (s *Store) editable(id string) (*Region, error) {
	i := s.indexOf(id)
	if i < 0 {
		return nil, regionNotFound(id)
	}
	if err := s.checkUnlocked(s.regions[i]); err != nil {
		return nil, err
	}
	return s.regions[i], nil
}

// checkUnlocked rejects regions that are locked themselves or sit in a locked layer.
func (s *Store) checkUnlocked(r *Region) error {
	if r.Locked {
		return &LockedRegionError{ID: r.ID, Name: r.Name}
	}
	if l := s.layer(r.LayerID); l != nil && l.Locked {
		return &LockedRegionError{ID: r.ID, Name: r.Name}
	}
	return nil
}

func (s *Store) insert(r *Region, pos int) {
	s.regions = append(s.regions, nil)
	copy(s.regions[pos+1:], s.regions[pos:])
	s.regions[pos] = r
	s.adjustCount(r.LayerID, 1)
}

func (s *Store) remove(i int) {
	s.adjustCount(s.regions[i].LayerID, -1)
	s.regions = append(s.regions[:i], s.regions[i+1:]...)
}

func (s *Store) replace(i int, next *Region) {
	if prev := s.regions[i].LayerID; prev != next.LayerID {
		s.adjustCount(prev, -1)
		s.adjustCount(next.LayerID, 1)
	}
	s.regions[i] = next
}

// adjustCount changes a layer's region count, never below zero.
func (s *Store) adjustCount(layerID string, delta int) {
	l := s.layer(layerID)
	if l == nil {
		return
	}
	l.RegionCount += delta
	if l.RegionCount < 0 {
		l.RegionCount = 0
	}
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) layer(id string) *Layer {
	for _, l := range s.layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

// writableLayer returns the layer a region may be placed into. Locked layers
// accept no new members.
func (s *Store) writableLayer(id string) (*Layer, error) {
	l := s.layer(id)
	if l == nil {
		return nil, layerNotFound(id)
	}
	if l.Locked {
		return nil, &ValidationError{Field: "layer", Message: fmt.Sprintf("layer %q is locked", id)}
	}
	return l, nil
}

func validateName(name string) (string, error) {
	v, err := validate.String(name, nameConstraints)
	if err != nil {
		return "", &ValidationError{Field: "name", Message: err.Error()}
	}
	return v, nil
}

// SanitizeName clamps an externally sourced name to the name rules. The
// result may be empty.
func SanitizeName(name string) string {
	return validate.Clamp(name, nameConstraints)
}

// SanitizeDescription clamps an externally sourced description to the
// description rules.
func SanitizeDescription(desc string) string {
	return validate.Clamp(desc, validate.DescriptionConstraints)
}

func validateDescription(desc string) (string, error) {
	v, err := validate.Description(desc)
	if err != nil {
		return "", &ValidationError{Field: "description", Message: err.Error()}
	}
	return v, nil
}

func validateLayerColor(c string) error {
	if err := color.ValidateHexColor(c); err != nil {
		return &ValidationError{Field: "color", Message: err.Error()}
	}
	return nil
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return &ValidationError{Field: "index", Message: fmt.Sprintf("must be between 0 and %d", n-1)}
	}
	return nil
}

func copyMetadata(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
