package region

import (
	"sort"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Tracker accumulates pending damage per window. Each window keeps one
// group of disjoint pieces per accrued rectangle, holding only the area no
// earlier group covers, so the groups together form the pending region.
type Tracker struct {
	// MaxChunkPixels caps the area returned by a single TakeOne call. Zero
	// means unlimited. Chunks are cut on whole rows and are at least one
	// row tall.
	MaxChunkPixels int

	groups map[platform.WindowID][]*Region
}

// NewTracker returns an empty tracker.
func NewTracker(maxChunkPixels int) *Tracker {
	return &Tracker{
		MaxChunkPixels: maxChunkPixels,
		groups:         make(map[platform.WindowID][]*Region),
	}
}

// Accrue unions r into the pending region of id.
func (t *Tracker) Accrue(id platform.WindowID, r platform.Rect) {
	if r.Empty() {
		return
	}
	piece := FromRect(r)
	for _, g := range t.groups[id] {
		for _, covered := range g.rects {
			piece.Subtract(covered)
		}
		if piece.IsEmpty() {
			return
		}
	}
	t.groups[id] = append(t.groups[id], piece)
}

// HasPending reports whether id has any pending damage.
func (t *Tracker) HasPending(id platform.WindowID) bool {
	return len(t.groups[id]) > 0
}

// Region returns a copy of the pending region for id.
func (t *Tracker) Region(id platform.WindowID) *Region {
	out := &Region{}
	for _, g := range t.groups[id] {
		out.rects = append(out.rects, g.rects...)
	}
	return out
}

// TakeOne removes and returns one rectangle of pending damage for id: the
// bounding box of the oldest group, cut to MaxChunkPixels. The box lies
// inside the rectangle that group was accrued from, though it may cover
// pixels already taken. Without chunking, every call retires a whole group,
// so a window drains in at most as many calls as rectangles were accrued.
func (t *Tracker) TakeOne(id platform.WindowID) (platform.Rect, bool) {
	groups := t.groups[id]
	if len(groups) == 0 {
		delete(t.groups, id)
		return platform.Rect{}, false
	}

	r := groups[0].BoundingBox()
	if t.MaxChunkPixels > 0 && r.Area() > t.MaxChunkPixels {
		rows := max(1, t.MaxChunkPixels/r.Width)
		r.Height = min(r.Height, rows)
	}

	kept := groups[:0]
	for _, g := range groups {
		g.Subtract(r)
		if !g.IsEmpty() {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		delete(t.groups, id)
	} else {
		t.groups[id] = kept
	}
	return r, true
}

// Invalidate discards all pending damage for id.
func (t *Tracker) Invalidate(id platform.WindowID) {
	delete(t.groups, id)
}

// Drop removes all tracking state for id.
func (t *Tracker) Drop(id platform.WindowID) {
	delete(t.groups, id)
}

// Pending returns the ids with pending damage in ascending order.
func (t *Tracker) Pending() []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(t.groups))
	for id, groups := range t.groups {
		if len(groups) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
