package region

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/regions/internal/geometry"
	"github.com/onnwee/regions/internal/tracing"
)

// Op names a mutation accepted by Engine.Apply.
type Op string

const (
	OpCreate           Op = "create"
	OpUpdate           Op = "update"
	OpDelete           Op = "delete"
	OpDuplicate        Op = "duplicate"
	OpToggleFavorite   Op = "toggle_favorite"
	OpToggleVisibility Op = "toggle_visibility"
	OpToggleLock       Op = "toggle_lock"
	OpBulkDelete       Op = "bulk_delete"
	OpImport           Op = "import"
	OpInsertVertex     Op = "insert_vertex"
	OpRemoveVertex     Op = "remove_vertex"
	OpMoveVertex       Op = "move_vertex"
	OpUndo             Op = "undo"
	OpRedo             Op = "redo"
)

// Mutation is a command for Engine.Apply. Only the fields relevant to Op are read.
type Mutation struct {
	Op      Op
	ID      string
	IDs     []string
	Region  NewRegion
	Regions []NewRegion
	Patch   Patch
	Index   int
	Point   geometry.Point

	// Description overrides the generated history description.
	Description string
}

// Result describes the outcome of an applied mutation.
type Result struct {
	// Regions holds the regions produced or changed by the mutation. For
	// deletions it holds the removed regions.
	Regions []*Region `json:"regions"`
	// Entry is the recorded or replayed history entry. It is nil when an
	// undo or redo had nothing to do.
	Entry        *Entry `json:"entry,omitempty"`
	HistoryIndex int    `json:"historyIndex"`
}

// Change is published to subscribers after every committed change.
type Change struct {
	Type         string    `json:"type"`
	RegionIDs    []string  `json:"regionIds,omitempty"`
	HistoryIndex int       `json:"historyIndex"`
	At           time.Time `json:"at"`
}

// Change types published for non-region changes.
const (
	ChangeLayers   = "layers"
	ChangeSettings = "settings"
	ChangeRestore  = "restore"
)

// Options configures an Engine.
type Options struct {
	HistoryLimit int
	Metrics      *Metrics
	Logger       *slog.Logger
	StoreOptions []StoreOption
}

// Engine is the single mutation entry point for a workspace. It serializes
// mutations so the history cursor stays linear, and notifies subscribers
// after each committed change. Engine is safe for concurrent use.
type Engine struct {
	mu      sync.Mutex
	store   *Store
	history *History
	metrics *Metrics
	logger  *slog.Logger

	subsMu  sync.RWMutex
	subs    map[int]func(Change)
	nextSub int
}

// NewEngine creates an engine with an empty workspace.
func NewEngine(geom *geometry.Engine, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   NewStore(geom, opts.StoreOptions...),
		history: NewHistory(opts.HistoryLimit),
		metrics: opts.Metrics,
		logger:  logger,
		subs:    make(map[int]func(Change)),
	}
}

// Subscribe registers fn to be called after every committed change. Calls
// happen outside the engine lock, on the goroutine that made the change.
// The returned function removes the subscription.
func (e *Engine) Subscribe(fn func(Change)) (unsubscribe func()) {
	e.subsMu.Lock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	e.subsMu.Unlock()

	return func() {
		e.subsMu.Lock()
		delete(e.subs, id)
		e.subsMu.Unlock()
	}
}

func (e *Engine) publish(c Change) {
	e.subsMu.RLock()
	fns := make([]func(Change), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

// Apply executes m. A failed mutation leaves the workspace and the history
// untouched.
func (e *Engine) Apply(ctx context.Context, m Mutation) (res Result, err error) {
	ctx, endSpan := tracing.StartSpan(ctx, "region."+string(m.Op))
	defer func() { endSpan(err) }()

	e.mu.Lock()
	res, err = e.apply(m)
	count := e.store.Len()
	at := e.store.now()
	e.mu.Unlock()

	if err != nil {
		if e.metrics != nil {
			e.metrics.IncMutation(m.Op, OutcomeRejected)
		}
		e.logger.DebugContext(ctx, "region mutation rejected",
			slog.String("op", string(m.Op)),
			slog.String("region_id", m.ID),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}
	if e.metrics != nil {
		e.metrics.IncMutation(m.Op, OutcomeSuccess)
		e.metrics.SetRegions(count)
		if res.Entry != nil && (m.Op == OpUndo || m.Op == OpRedo) {
			e.metrics.IncHistoryReplay(string(m.Op))
		}
	}
	if res.Entry != nil && (m.Op == OpUndo || m.Op == OpRedo) {
		tracing.AddEvent(ctx, "history.replayed", attribute.String("history.action", string(res.Entry.Action)))
	}
	if res.Entry == nil {
		return res, nil
	}

	ids := res.Entry.RegionIDs()
	tracing.SetAttributes(ctx,
		attribute.Int("region.count", len(ids)),
		attribute.Int("history.index", res.HistoryIndex),
	)
	e.publish(Change{Type: string(m.Op), RegionIDs: ids, HistoryIndex: res.HistoryIndex, At: at})
	return res, nil
}

func (e *Engine) apply(m Mutation) (Result, error) {
	s := e.store
	switch m.Op {
	case OpCreate:
		r, err := s.Create(m.Region)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionAdd,
			Snapshot:    []*Region{r},
			Description: describe(m, fmt.Sprintf("Created region %q", r.Name)),
		}, r), nil

	case OpDuplicate:
		r, err := s.Duplicate(m.ID)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionAdd,
			Snapshot:    []*Region{r},
			Description: describe(m, fmt.Sprintf("Duplicated region %q", r.Name)),
		}, r), nil

	case OpDelete:
		r, pos, err := s.Delete(m.ID)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionDelete,
			Snapshot:    []*Region{r},
			Positions:   []int{pos},
			Description: describe(m, fmt.Sprintf("Deleted region %q", r.Name)),
		}, r), nil

	case OpBulkDelete:
		removed, positions, err := s.BulkDelete(m.IDs)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionBulk,
			Snapshot:    removed,
			Positions:   positions,
			Removal:     true,
			Description: describe(m, fmt.Sprintf("Deleted %d regions", len(removed))),
		}, removed...), nil

	case OpImport:
		added, err := s.Import(m.Regions)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionBulk,
			Snapshot:    added,
			Description: describe(m, fmt.Sprintf("Imported %d regions", len(added))),
		}, added...), nil

	case OpUpdate, OpToggleFavorite, OpToggleVisibility, OpToggleLock,
		OpInsertVertex, OpRemoveVertex, OpMoveVertex:
		before, after, err := e.edit(m)
		if err != nil {
			return Result{}, err
		}
		return e.record(Entry{
			Action:      ActionEdit,
			Snapshot:    []*Region{before},
			Edited:      []*Region{after},
			Description: describe(m, editDescription(m.Op, after.Name)),
		}, after), nil

	case OpUndo:
		entry, ok := e.history.Undo(s)
		return e.replayed(entry, ok), nil

	case OpRedo:
		entry, ok := e.history.Redo(s)
		return e.replayed(entry, ok), nil
	}
	return Result{}, &ValidationError{Field: "op", Message: fmt.Sprintf("unknown operation %q", m.Op)}
}

func (e *Engine) edit(m Mutation) (before, after *Region, err error) {
	s := e.store
	switch m.Op {
	case OpToggleFavorite:
		return s.ToggleFavorite(m.ID)
	case OpToggleVisibility:
		return s.ToggleVisibility(m.ID)
	case OpToggleLock:
		return s.ToggleLock(m.ID)
	case OpInsertVertex:
		return s.InsertVertex(m.ID, m.Index, m.Point)
	case OpRemoveVertex:
		return s.RemoveVertex(m.ID, m.Index)
	case OpMoveVertex:
		return s.MoveVertex(m.ID, m.Index, m.Point)
	default:
		return s.Update(m.ID, m.Patch)
	}
}

func (e *Engine) record(entry Entry, regions ...*Region) Result {
	entry.Timestamp = e.store.now()
	e.history.Record(entry)
	recorded := entry.clone()
	return Result{Regions: regions, Entry: &recorded, HistoryIndex: e.history.Cursor()}
}

func (e *Engine) replayed(entry Entry, ok bool) Result {
	res := Result{Regions: []*Region{}, HistoryIndex: e.history.Cursor()}
	if !ok {
		return res
	}
	res.Entry = &entry
	for _, id := range entry.RegionIDs() {
		if r, err := e.store.Get(id); err == nil {
			res.Regions = append(res.Regions, r)
		}
	}
	return res
}

func describe(m Mutation, fallback string) string {
	if m.Description != "" {
		return m.Description
	}
	return fallback
}

func editDescription(op Op, name string) string {
	switch op {
	case OpToggleFavorite:
		return fmt.Sprintf("Toggled favorite on %q", name)
	case OpToggleVisibility:
		return fmt.Sprintf("Toggled visibility of %q", name)
	case OpToggleLock:
		return fmt.Sprintf("Toggled lock on %q", name)
	case OpInsertVertex, OpRemoveVertex, OpMoveVertex:
		return fmt.Sprintf("Edited vertices of %q", name)
	}
	return fmt.Sprintf("Edited region %q", name)
}

// Create adds a region.
func (e *Engine) Create(ctx context.Context, in NewRegion) (*Region, error) {
	res, err := e.Apply(ctx, Mutation{Op: OpCreate, Region: in})
	if err != nil {
		return nil, err
	}
	return res.Regions[0], nil
}

// Update patches a region.
func (e *Engine) Update(ctx context.Context, id string, p Patch) (*Region, error) {
	res, err := e.Apply(ctx, Mutation{Op: OpUpdate, ID: id, Patch: p})
	if err != nil {
		return nil, err
	}
	return res.Regions[0], nil
}

// Delete removes a region and returns it.
func (e *Engine) Delete(ctx context.Context, id string) (*Region, error) {
	res, err := e.Apply(ctx, Mutation{Op: OpDelete, ID: id})
	if err != nil {
		return nil, err
	}
	return res.Regions[0], nil
}

// Import adds regions as a single history entry.
func (e *Engine) Import(ctx context.Context, in []NewRegion, description string) ([]*Region, error) {
	res, err := e.Apply(ctx, Mutation{Op: OpImport, Regions: in, Description: description})
	if err != nil {
		return nil, err
	}
	return res.Regions, nil
}

// Undo reverts the last applied entry. The result has a nil Entry when there
// was nothing to undo.
func (e *Engine) Undo(ctx context.Context) (Result, error) {
	return e.Apply(ctx, Mutation{Op: OpUndo})
}

// Redo re-applies the last undone entry. The result has a nil Entry when
// there was nothing to redo.
func (e *Engine) Redo(ctx context.Context) (Result, error) {
	return e.Apply(ctx, Mutation{Op: OpRedo})
}

// Get returns a copy of a region.
func (e *Engine) Get(id string) (*Region, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Get(id)
}

// List returns copies of the regions selected by v.
func (e *Engine) List(v View) []*Region {
	e.mu.Lock()
	regions, layers := e.store.Regions(), e.store.Layers()
	e.mu.Unlock()
	return v.Apply(regions, layers)
}

// Tags returns every distinct tag in the workspace.
func (e *Engine) Tags() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return AllTags(e.store.regions)
}

// Hit is the containment result for one region.
type Hit struct {
	Region *Region `json:"region"`
	Inside bool    `json:"isInside"`
}

// CheckPoint tests pt against every region selected by v. The geometry work
// runs on copies outside the engine lock.
func (e *Engine) CheckPoint(ctx context.Context, pt geometry.Point, v View) ([]Hit, error) {
	_, endSpan := tracing.StartSpan(ctx, "region.check_point")
	regions := e.List(v)
	hits := make([]Hit, 0, len(regions))
	for _, r := range regions {
		shape, err := r.Shape()
		if err != nil {
			endSpan(err)
			return nil, &ValidationError{Field: "coordinates", Message: fmt.Sprintf("region %q: %v", r.ID, err)}
		}
		inside := shape.Contains(pt)
		if e.metrics != nil {
			e.metrics.IncContainmentCheck(string(r.Kind), inside)
		}
		hits = append(hits, Hit{Region: r, Inside: inside})
	}
	endSpan(nil)
	return hits, nil
}

// Layers returns copies of all layers.
func (e *Engine) Layers() []Layer {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Layers()
}

// CreateLayer adds a layer.
func (e *Engine) CreateLayer(ctx context.Context, l Layer) (Layer, error) {
	e.mu.Lock()
	out, err := e.store.CreateLayer(l)
	e.mu.Unlock()
	if err != nil {
		return Layer{}, err
	}
	e.changed(ctx, ChangeLayers)
	return out, nil
}

// UpdateLayer patches a layer.
func (e *Engine) UpdateLayer(ctx context.Context, id string, p LayerPatch) (Layer, error) {
	e.mu.Lock()
	out, err := e.store.UpdateLayer(id, p)
	e.mu.Unlock()
	if err != nil {
		return Layer{}, err
	}
	e.changed(ctx, ChangeLayers)
	return out, nil
}

// DeleteLayer removes an empty, non-default layer.
func (e *Engine) DeleteLayer(ctx context.Context, id string) error {
	e.mu.Lock()
	err := e.store.DeleteLayer(id)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.changed(ctx, ChangeLayers)
	return nil
}

// Settings returns the map settings.
func (e *Engine) Settings() MapSettings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Settings()
}

// SetSettings replaces the map settings.
func (e *Engine) SetSettings(ctx context.Context, ms MapSettings) error {
	e.mu.Lock()
	err := e.store.SetSettings(ms)
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.changed(ctx, ChangeSettings)
	return nil
}

// HistoryView is a read-only summary of the history stack.
type HistoryView struct {
	Entries []Entry `json:"entries"`
	Index   int     `json:"historyIndex"`
	CanUndo bool    `json:"canUndo"`
	CanRedo bool    `json:"canRedo"`
}

// History returns the current history stack.
func (e *Engine) History() HistoryView {
	e.mu.Lock()
	defer e.mu.Unlock()
	return HistoryView{
		Entries: e.history.Entries(),
		Index:   e.history.Cursor(),
		CanUndo: e.history.CanUndo(),
		CanRedo: e.history.CanRedo(),
	}
}

// Stats aggregates the workspace.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputeStats(e.store.regions, e.store.Layers())
}

// Export returns the workspace in the portable export format.
func (e *Engine) Export() Export {
	e.mu.Lock()
	defer e.mu.Unlock()
	return NewExport(e.store.Regions(), e.store.Layers(), e.store.Settings(), e.store.now())
}

// ImportExport replaces the workspace with the contents of an export
// document and clears the history.
func (e *Engine) ImportExport(ctx context.Context, doc Export) error {
	e.mu.Lock()
	err := e.store.replaceContents(doc.Regions, doc.Layers, doc.Settings)
	if err == nil {
		e.history.Clear()
	}
	e.mu.Unlock()
	if err != nil {
		return err
	}
	e.changed(ctx, ChangeRestore)
	return nil
}

// State returns the persisted form of the engine.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return State{
		Regions:      e.store.Regions(),
		Layers:       e.store.Layers(),
		Settings:     e.store.Settings(),
		History:      e.history.Entries(),
		HistoryIndex: e.history.Cursor(),
	}
}

// Restore replaces the workspace and the history with st. Subscribers are
// not notified, so loading persisted state does not schedule a save.
func (e *Engine) Restore(st State) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.store.replaceContents(st.Regions, st.Layers, st.Settings); err != nil {
		return err
	}
	e.history.Replace(st.History, st.HistoryIndex)
	if e.metrics != nil {
		e.metrics.SetRegions(e.store.Len())
	}
	return nil
}

func (e *Engine) changed(ctx context.Context, kind string) {
	e.mu.Lock()
	c := Change{Type: kind, HistoryIndex: e.history.Cursor(), At: e.store.now()}
	count := e.store.Len()
	e.mu.Unlock()
	if e.metrics != nil {
		e.metrics.SetRegions(count)
	}
	e.logger.DebugContext(ctx, "workspace changed", slog.String("change", kind))
	e.publish(c)
}
