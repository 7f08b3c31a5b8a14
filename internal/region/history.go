package region

import (
	"time"
)

// Action classifies a history entry.
type Action string

const (
	ActionAdd    Action = "add"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionBulk   Action = "bulk"
)

// DefaultHistoryLimit is the number of entries kept when no limit is configured.
const DefaultHistoryLimit = 100

// Entry is one committed region mutation.
//
// Snapshot holds the affected regions before the mutation for delete, edit
// and bulk removal, and the regions as added for add and bulk import. Edited
// holds the post-edit state used to redo an edit. Positions records where
// removed regions sat in the collection so an undo puts them back in place.
type Entry struct {
	Action      Action    `json:"action"`
	Snapshot    []*Region `json:"snapshot"`
	Edited      []*Region `json:"edited,omitempty"`
	Positions   []int     `json:"positions,omitempty"`
	Removal     bool      `json:"removal,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

func (e Entry) clone() Entry {
	c := e
	c.Snapshot = cloneRegions(e.Snapshot)
	c.Edited = cloneRegions(e.Edited)
	c.Positions = append([]int(nil), e.Positions...)
	return c
}

// RegionIDs returns the ids of the regions the entry touches.
func (e Entry) RegionIDs() []string {
	ids := make([]string, len(e.Snapshot))
	for i, r := range e.Snapshot {
		ids[i] = r.ID
	}
	return ids
}

// History is a bounded linear undo/redo stack with a cursor. The cursor is
// the index of the last applied entry, or -1 when nothing is applied.
//
// History is not safe for concurrent use; Engine serializes access to it.
type History struct {
	entries []Entry
	cursor  int
	limit   int
}

// NewHistory creates an empty history that keeps at most limit entries.
// A non-positive limit selects DefaultHistoryLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{cursor: -1, limit: limit}
}

// Cursor returns the index of the last applied entry.
func (h *History) Cursor() int {
	return h.cursor
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	return len(h.entries)
}

// CanUndo reports whether an entry is available to undo.
func (h *History) CanUndo() bool {
	return h.cursor >= 0
}

// CanRedo reports whether an undone entry is available to redo.
func (h *History) CanRedo() bool {
	return h.cursor < len(h.entries)-1
}

// Entries returns copies of the stored entries.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.clone()
	}
	return out
}

// Record discards every entry after the cursor, appends e and moves the
// cursor to it. When the stack is full the oldest entry is evicted.
func (h *History) Record(e Entry) {
	h.entries = append(h.entries[:h.cursor+1], e.clone())
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = append([]Entry(nil), h.entries[over:]...)
	}
	h.cursor = len(h.entries) - 1
}

// Undo reverts the entry at the cursor on s and moves the cursor back.
// It returns false when there is nothing to undo.
func (h *History) Undo(s *Store) (Entry, bool) {
	if !h.CanUndo() {
		return Entry{}, false
	}
	e := h.entries[h.cursor]
	switch e.Action {
	case ActionAdd:
		dropAll(s, e.Snapshot)
	case ActionDelete:
		restoreAt(s, e.Snapshot, e.Positions)
	case ActionEdit:
		restoreAt(s, e.Snapshot, nil)
	case ActionBulk:
		if e.Removal {
			restoreAt(s, e.Snapshot, e.Positions)
		} else {
			dropAll(s, e.Snapshot)
		}
	}
	h.cursor--
	return e.clone(), true
}

// Redo re-applies the entry after the cursor on s and moves the cursor forward.
// It returns false when there is nothing to redo.
func (h *History) Redo(s *Store) (Entry, bool) {
	if !h.CanRedo() {
		return Entry{}, false
	}
	e := h.entries[h.cursor+1]
	switch e.Action {
	case ActionAdd:
		restoreAt(s, e.Snapshot, nil)
	case ActionDelete:
		dropAll(s, e.Snapshot)
	case ActionEdit:
		restoreAt(s, e.Edited, nil)
	case ActionBulk:
		if e.Removal {
			dropAll(s, e.Snapshot)
		} else {
			restoreAt(s, e.Snapshot, nil)
		}
	}
	h.cursor++
	return e.clone(), true
}

// Replace swaps the stored entries and cursor, used when restoring persisted
// state. The cursor is clamped into range.
func (h *History) Replace(entries []Entry, cursor int) {
	h.entries = h.entries[:0]
	for _, e := range entries {
		h.entries = append(h.entries, e.clone())
	}
	if over := len(h.entries) - h.limit; over > 0 {
		h.entries = h.entries[over:]
		cursor -= over
	}
	if cursor >= len(h.entries) {
		cursor = len(h.entries) - 1
	}
	if cursor < -1 {
		cursor = -1
	}
	h.cursor = cursor
}

// Clear removes every entry.
func (h *History) Clear() {
	h.entries = nil
	h.cursor = -1
}

// restoreAt reinserts regions in order. positions, when present, are the
// ascending indices the regions held before removal.
func restoreAt(s *Store, regions []*Region, positions []int) {
	for i, r := range regions {
		pos := -1
		if i < len(positions) {
			pos = positions[i]
		}
		s.restore(r, pos)
	}
}

func dropAll(s *Store, regions []*Region) {
	for _, r := range regions {
		s.drop(r.ID)
	}
}

func cloneRegions(rs []*Region) []*Region {
	if rs == nil {
		return nil
	}
	out := make([]*Region, len(rs))
	for i, r := range rs {
		out[i] = r.Clone()
	}
	return out
}
