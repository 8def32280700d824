// Package desktop is the placement authority for mirrored windows: it holds
// their geometry and visibility, and decides through an election which
// placement policy controls each one.
package desktop

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/1broseidon/winmirror/internal/platform"
	"github.com/1broseidon/winmirror/internal/protocol"
)

// ManagerPolicyName is the name the Manager votes under.
const ManagerPolicyName = "remote"

// Record is the authoritative state of one tracked window.
type Record struct {
	ID       platform.WindowID
	Handle   platform.Handle
	Geometry platform.Rect
	Shown    bool
	Metadata protocol.Metadata
	Owner    string
}

// GeometryConflict reports that the native layer did not honour a requested
// size. The native size is adopted.
type GeometryConflict struct {
	ID   platform.WindowID
	Want platform.Size
	Got  platform.Size
}

func (e *GeometryConflict) Error() string {
	return fmt.Sprintf("window %d: requested %dx%d, native layer applied %dx%d",
		e.ID, e.Want.Width, e.Want.Height, e.Got.Width, e.Got.Height)
}

// Manager owns every Record. It is used from the event loop only.
type Manager struct {
	backend  platform.Backend
	log      *slog.Logger
	policies []Policy
	records  map[platform.WindowID]*Record
}

// NewManager returns a manager that competes with the given policies. The
// manager itself always comes first in the tie-break order.
func NewManager(backend platform.Backend, logger *slog.Logger, others ...Policy) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		backend: backend,
		log:     logger,
		records: make(map[platform.WindowID]*Record),
	}
	if len(others) == 0 {
		others = []Policy{NativePolicy{}}
	}
	m.policies = append([]Policy{m}, others...)
	return m
}

func (m *Manager) Name() string { return ManagerPolicyName }

// Vote claims the windows currently shown remotely and yields the rest.
func (m *Manager) Vote(rec Record) int {
	if rec.Shown {
		return 1
	}
	return -1
}

// Track begins managing a window at geometry r. It starts hidden.
func (m *Manager) Track(id platform.WindowID, h platform.Handle, r platform.Rect) error {
	if _, exists := m.records[id]; exists {
		return fmt.Errorf("window %d already tracked", id)
	}
	rec := &Record{ID: id, Handle: h, Geometry: r, Owner: NativePolicyName}
	m.records[id] = rec
	if err := m.elect(rec); err != nil {
		delete(m.records, id)
		return err
	}
	return nil
}

// Show places the window at r and claims it. It returns the geometry
// actually in effect, which differs from r when the native layer enforced
// its own size; in that case the error is a *GeometryConflict. If the
// window cannot be claimed the record is left as it was.
func (m *Manager) Show(id platform.WindowID, r platform.Rect) (platform.Rect, error) {
	rec, ok := m.records[id]
	if !ok {
		return platform.Rect{}, protocol.ErrUnknownWindow
	}
	prevGeom, prevShown := rec.Geometry, rec.Shown
	rec.Geometry = r
	rec.Shown = true
	if err := m.elect(rec); err != nil {
		rec.Geometry, rec.Shown = prevGeom, prevShown
		return rec.Geometry, err
	}

	var conflict error
	if rec.Owner == ManagerPolicyName {
		if err := m.backend.MoveResize(rec.Handle, r); err != nil {
			return rec.Geometry, fmt.Errorf("failed to place window %d: %w", id, err)
		}
		if actual, err := m.backend.Geometry(rec.Handle); err == nil && actual.Size() != r.Size() {
			conflict = &GeometryConflict{ID: id, Want: r.Size(), Got: actual.Size()}
			m.log.Warn("geometry conflict", "window", id, "error", conflict)
			rec.Geometry.Width = actual.Width
			rec.Geometry.Height = actual.Height
		}
	}
	if err := m.backend.SetIconic(rec.Handle, false); err != nil {
		m.log.Debug("failed to restore window", "window", id, "error", err)
	}
	return rec.Geometry, conflict
}

// Hide stops showing the window remotely and yields placement.
func (m *Manager) Hide(id platform.WindowID) error {
	rec, ok := m.records[id]
	if !ok {
		return protocol.ErrUnknownWindow
	}
	prevShown := rec.Shown
	rec.Shown = false
	if err := m.elect(rec); err != nil {
		rec.Shown = prevShown
		return err
	}
	if err := m.backend.SetIconic(rec.Handle, true); err != nil {
		m.log.Debug("failed to iconify window", "window", id, "error", err)
	}
	return nil
}

// SetGeometry records a geometry change reported by the native layer.
func (m *Manager) SetGeometry(id platform.WindowID, r platform.Rect) {
	if rec, ok := m.records[id]; ok {
		rec.Geometry = r
	}
}

func (m *Manager) Geometry(id platform.WindowID) (platform.Rect, bool) {
	rec, ok := m.records[id]
	if !ok {
		return platform.Rect{}, false
	}
	return rec.Geometry, true
}

func (m *Manager) Visible(id platform.WindowID) bool {
	rec, ok := m.records[id]
	return ok && rec.Shown
}

// Owner returns the name of the policy controlling the window.
func (m *Manager) Owner(id platform.WindowID) string {
	if rec, ok := m.records[id]; ok {
		return rec.Owner
	}
	return ""
}

// SetMetadata merges md into the window's metadata.
func (m *Manager) SetMetadata(id platform.WindowID, md protocol.Metadata) {
	if rec, ok := m.records[id]; ok {
		rec.Metadata.Merge(md)
	}
}

func (m *Manager) Metadata(id platform.WindowID) protocol.Metadata {
	if rec, ok := m.records[id]; ok {
		return rec.Metadata
	}
	return protocol.Metadata{}
}

// Record returns a copy of the window's record.
func (m *Manager) Record(id platform.WindowID) (Record, bool) {
	rec, ok := m.records[id]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Reorder restacks the native windows bottom to top. Unknown ids are
// skipped.
func (m *Manager) Reorder(bottomToTop []platform.WindowID) error {
	handles := make([]platform.Handle, 0, len(bottomToTop))
	for _, id := range bottomToTop {
		if rec, ok := m.records[id]; ok {
			handles = append(handles, rec.Handle)
		}
	}
	if len(handles) == 0 {
		return nil
	}
	return m.backend.Restack(handles)
}

// Untrack forgets the window.
func (m *Manager) Untrack(id platform.WindowID) {
	delete(m.records, id)
}

// IDs returns every tracked id in ascending order.
func (m *Manager) IDs() []platform.WindowID {
	ids := make([]platform.WindowID, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of tracked windows.
func (m *Manager) Len() int { return len(m.records) }

// elect re-runs the ownership election. Moving a window between owners
// reparents it into the winner's coordinate space and touches nothing else.
func (m *Manager) elect(rec *Record) error {
	winner := Elect(m.policies, *rec)
	if winner == nil || winner.Name() == rec.Owner {
		return nil
	}
	if err := m.backend.Reparent(rec.Handle, winner.Name() == ManagerPolicyName); err != nil {
		return fmt.Errorf("failed to reparent window %d: %w", rec.ID, err)
	}
	m.log.Debug("window owner changed", "window", rec.ID, "from", rec.Owner, "to", winner.Name())
	rec.Owner = winner.Name()
	return nil
}
