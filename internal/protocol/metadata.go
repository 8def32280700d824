package protocol

import (
	"github.com/1broseidon/winmirror/internal/platform"
)

// Metadata is the typed key/value set describing a window. A nil field means
// the key is absent; Merge only overrides keys that are present.
type Metadata struct {
	Title     *string         `json:"title,omitempty"`
	MaxSize   *platform.Size  `json:"size-constraint:maximum-size,omitempty"`
	MinSize   *platform.Size  `json:"size-constraint:minimum-size,omitempty"`
	BaseSize  *platform.Size  `json:"size-constraint:base-size,omitempty"`
	Increment *platform.Size  `json:"size-constraint:increment,omitempty"`
	MinAspect *platform.Ratio `json:"size-constraint:minimum-aspect,omitempty"`
	MaxAspect *platform.Ratio `json:"size-constraint:maximum-aspect,omitempty"`
}

// Merge overlays every key present in other onto m.
func (m *Metadata) Merge(other Metadata) {
	if other.Title != nil {
		m.Title = other.Title
	}
	if other.MaxSize != nil {
		m.MaxSize = other.MaxSize
	}
	if other.MinSize != nil {
		m.MinSize = other.MinSize
	}
	if other.BaseSize != nil {
		m.BaseSize = other.BaseSize
	}
	if other.Increment != nil {
		m.Increment = other.Increment
	}
	if other.MinAspect != nil {
		m.MinAspect = other.MinAspect
	}
	if other.MaxAspect != nil {
		m.MaxAspect = other.MaxAspect
	}
}

// IsEmpty reports whether no key is present.
func (m Metadata) IsEmpty() bool {
	return m == Metadata{}
}

// Hints returns the size-constraint subset as native hints.
func (m Metadata) Hints() platform.SizeHints {
	return platform.SizeHints{
		MaxSize:   m.MaxSize,
		MinSize:   m.MinSize,
		BaseSize:  m.BaseSize,
		Increment: m.Increment,
		MinAspect: m.MinAspect,
		MaxAspect: m.MaxAspect,
	}
}

// TitleMetadata returns metadata carrying only a title.
func TitleMetadata(title string) Metadata {
	return Metadata{Title: &title}
}

// HintsMetadata returns metadata carrying only the size constraints present
// in h.
func HintsMetadata(h platform.SizeHints) Metadata {
	return Metadata{
		MaxSize:   h.MaxSize,
		MinSize:   h.MinSize,
		BaseSize:  h.BaseSize,
		Increment: h.Increment,
		MinAspect: h.MinAspect,
		MaxAspect: h.MaxAspect,
	}
}
