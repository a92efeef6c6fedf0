// Package overlay keeps the live overlay layer (one box and one label per
// detected face, in display coordinates) and burns overlays into still images.
package overlay

import (
	"slices"
	"sync"

	"github.com/kozaktomas/facecam/internal/config"
	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// Element is one face overlay: a box and a label anchored at the box's
// top-left corner, both in display coordinates.
type Element struct {
	Box   geometry.Rect `json:"box"`
	Label string        `json:"label"`
}

// Layer is the on-screen overlay geometry, in drawing order.
type Layer []Element

// Renderer owns the live layer and the burn-in style.
type Renderer struct {
	style style

	mu   sync.RWMutex
	live Layer
}

// New creates a renderer with an empty live layer.
func New(cfg config.StyleConfig) (*Renderer, error) {
	st, err := parseStyle(cfg)
	if err != nil {
		return nil, err
	}
	return &Renderer{style: st}, nil
}

// Layout maps faces from source-frame pixels into display coordinates.
// It returns nil when the source size is unknown. An invalid display size
// means the frame is shown at its native size.
func Layout(faces []recognizer.Face, source, display geometry.Size) Layer {
	if !source.Valid() {
		return nil
	}
	if !display.Valid() {
		display = source
	}

	layer := make(Layer, 0, len(faces))
	for _, face := range faces {
		box, ok := geometry.MapRect(face.Location.Rect(), source, display)
		if !ok {
			return nil
		}
		layer = append(layer, Element{Box: box, Label: face.Name})
	}
	return layer
}

// RenderLive replaces the live layer with one element per face. With an
// unknown source size the layer is cleared and nothing is drawn.
func (r *Renderer) RenderLive(faces []recognizer.Face, source, display geometry.Size) Layer {
	layer := Layout(faces, source, display)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = layer
	return slices.Clone(layer)
}

// ClearLive empties the live layer.
func (r *Renderer) ClearLive() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = nil
}

// Live returns a copy of the live layer.
func (r *Renderer) Live() Layer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.live)
}

// Empty reports whether the live layer has no elements.
func (r *Renderer) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live) == 0
}
