package platform

import (
	"fmt"
	"sort"
	"sync"
)

// FakeWindow is the state of one window held by Fake.
type FakeWindow struct {
	Bounds    Rect
	Title     string
	HasTitle  bool
	Hints     SizeHints
	Iconic    bool
	InDesktop bool
	Closed    bool
}

// Fake is an in-memory Backend. Pixel content is deterministic: the pixel
// at window coordinate (x, y) of handle h is {byte(x), byte(y), byte(h)}.
type Fake struct {
	mu        sync.Mutex
	windows   map[Handle]*FakeWindow
	events    chan Event
	Restacks  [][]Handle
	Reparents []FakeReparent
	Moves     []FakeMove

	// ReparentErr, when set, fails every Reparent call.
	ReparentErr error
}

// FakeReparent records a Reparent call.
type FakeReparent struct {
	Handle    Handle
	ToDesktop bool
}

// FakeMove records a MoveResize call.
type FakeMove struct {
	Handle Handle
	Bounds Rect
}

var _ Backend = (*Fake)(nil)

// NewFake returns an empty fake backend.
func NewFake() *Fake {
	return &Fake{
		windows: make(map[Handle]*FakeWindow),
		events:  make(chan Event, 64),
	}
}

// Add registers a window without emitting an event.
func (f *Fake) Add(h Handle, bounds Rect, title string) *FakeWindow {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &FakeWindow{Bounds: bounds, Title: title, HasTitle: title != ""}
	f.windows[h] = w
	return w
}

// Remove forgets a window without emitting an event.
func (f *Fake) Remove(h Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.windows, h)
}

// Window returns a copy of the window state.
func (f *Fake) Window(h Handle) (FakeWindow, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok {
		return FakeWindow{}, false
	}
	return *w, true
}

// Update mutates a window under the fake's lock.
func (f *Fake) Update(h Handle, fn func(w *FakeWindow)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if w, ok := f.windows[h]; ok {
		fn(w)
	}
}

// Emit queues a native event.
func (f *Fake) Emit(ev Event) {
	f.events <- ev
}

func (f *Fake) lookup(h Handle) (*FakeWindow, error) {
	w, ok := f.windows[h]
	if !ok {
		return nil, fmt.Errorf("fake: no window %d", h)
	}
	return w, nil
}

func (f *Fake) Windows() ([]Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Handle, 0, len(f.windows))
	for h := range f.windows {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (f *Fake) Geometry(h Handle) (Rect, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return Rect{}, err
	}
	return w.Bounds, nil
}

func (f *Fake) Snapshot(h Handle, r Rect) (Rect, []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return Rect{}, nil, err
	}
	clip := r.Intersect(Rect{Width: w.Bounds.Width, Height: w.Bounds.Height})
	if clip.Empty() {
		return Rect{}, nil, nil
	}
	return clip, FakePixels(h, clip), nil
}

// FakePixels returns the RGB24 content Fake reports for r.
func FakePixels(h Handle, r Rect) []byte {
	data := make([]byte, 0, r.Area()*3)
	for y := r.Y; y < r.Bottom(); y++ {
		for x := r.X; x < r.Right(); x++ {
			data = append(data, byte(x), byte(y), byte(h))
		}
	}
	return data
}

func (f *Fake) Title(h Handle) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.windows[h]
	if !ok || !w.HasTitle {
		return "", false
	}
	return w.Title, true
}

func (f *Fake) SizeHints(h Handle) (SizeHints, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return SizeHints{}, err
	}
	return w.Hints, nil
}

// MoveResize applies bounds, clamping the size to MaxSize/MinSize hints the
// way a compliant window manager would.
func (f *Fake) MoveResize(h Handle, bounds Rect) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	f.Moves = append(f.Moves, FakeMove{Handle: h, Bounds: bounds})
	if m := w.Hints.MaxSize; m != nil {
		bounds.Width = min(bounds.Width, m.Width)
		bounds.Height = min(bounds.Height, m.Height)
	}
	if m := w.Hints.MinSize; m != nil {
		bounds.Width = max(bounds.Width, m.Width)
		bounds.Height = max(bounds.Height, m.Height)
	}
	w.Bounds = bounds
	return nil
}

func (f *Fake) SetIconic(h Handle, iconic bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	w.Iconic = iconic
	return nil
}

func (f *Fake) Reparent(h Handle, toDesktop bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	if f.ReparentErr != nil {
		return f.ReparentErr
	}
	w.InDesktop = toDesktop
	f.Reparents = append(f.Reparents, FakeReparent{Handle: h, ToDesktop: toDesktop})
	return nil
}

func (f *Fake) Restack(bottomToTop []Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Restacks = append(f.Restacks, append([]Handle(nil), bottomToTop...))
	return nil
}

func (f *Fake) RequestClose(h Handle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, err := f.lookup(h)
	if err != nil {
		return err
	}
	w.Closed = true
	return nil
}

func (f *Fake) Events() <-chan Event {
	return f.events
}
