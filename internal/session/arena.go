package session

import (
	"sort"

	"github.com/1broseidon/winmirror/internal/platform"
)

// Arena assigns window ids to native handles. Ids are dense, start at 1 and
// are never reused within a process, so a stale id in flight can only ever
// miss.
type Arena struct {
	next     platform.WindowID
	byHandle map[platform.Handle]platform.WindowID
	byID     map[platform.WindowID]platform.Handle
}

func NewArena() *Arena {
	return &Arena{
		next:     1,
		byHandle: make(map[platform.Handle]platform.WindowID),
		byID:     make(map[platform.WindowID]platform.Handle),
	}
}

// Alloc returns the id of h, assigning a fresh one if h is new.
func (a *Arena) Alloc(h platform.Handle) platform.WindowID {
	if id, ok := a.byHandle[h]; ok {
		return id
	}
	id := a.next
	a.next++
	a.byHandle[h] = id
	a.byID[id] = h
	return id
}

func (a *Arena) ID(h platform.Handle) (platform.WindowID, bool) {
	id, ok := a.byHandle[h]
	return id, ok
}

func (a *Arena) Handle(id platform.WindowID) (platform.Handle, bool) {
	h, ok := a.byID[id]
	return h, ok
}

// Free releases both entries for id.
func (a *Arena) Free(id platform.WindowID) {
	if h, ok := a.byID[id]; ok {
		delete(a.byHandle, h)
		delete(a.byID, id)
	}
}

func (a *Arena) Len() int { return len(a.byID) }

// Handles returns every live handle in id order.
func (a *Arena) Handles() []platform.Handle {
	ids := make([]platform.WindowID, 0, len(a.byID))
	for id := range a.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]platform.Handle, len(ids))
	for i, id := range ids {
		out[i] = a.byID[id]
	}
	return out
}
