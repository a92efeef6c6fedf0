// Package geometry maps face bounding boxes between source-frame pixel space
// and the space of the element the frame is displayed in.
package geometry

import (
	"fmt"
	"image"
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SizeOf returns the size of an image rectangle.
func SizeOf(r image.Rectangle) Size {
	return Size{Width: float64(r.Dx()), Height: float64(r.Dy())}
}

func (s Size) String() string {
	return fmt.Sprintf("%gx%g", s.Width, s.Height)
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect is an axis-aligned rectangle given by its top-left corner and extent.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Image converts the rectangle to integer pixel bounds, rounding to nearest.
func (r Rect) Image() image.Rectangle {
	x0, y0 := round(r.X), round(r.Y)
	return image.Rect(x0, y0, x0+round(r.W), y0+round(r.H))
}

// Location is a face box in source-frame pixels, as reported by the
// recognition service.
type Location struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Rect converts the corner form to [x, y, w, h].
func (l Location) Rect() Rect {
	return Rect{
		X: float64(l.Left),
		Y: float64(l.Top),
		W: float64(l.Right - l.Left),
		H: float64(l.Bottom - l.Top),
	}
}

// scale returns independent horizontal and vertical factors from one space to
// another. ok is false when the origin space has no area.
func scale(from, to Size) (sx, sy float64, ok bool) {
	if !from.Valid() {
		return 0, 0, false
	}
	return to.Width / from.Width, to.Height / from.Height, true
}

// MapRect converts a rect from source-frame pixels to display coordinates.
// Returns false without computing anything if the source size is not known yet
// (a zero-sized frame has no meaningful scale).
func MapRect(r Rect, source, display Size) (Rect, bool) {
	sx, sy, ok := scale(source, display)
	if !ok {
		return Rect{}, false
	}
	return Rect{X: r.X * sx, Y: r.Y * sy, W: r.W * sx, H: r.H * sy}, true
}

// UnmapRect converts a rect from display coordinates back to source-frame
// pixels. It is the inverse of MapRect.
func UnmapRect(r Rect, source, display Size) (Rect, bool) {
	if !display.Valid() {
		return Rect{}, false
	}
	return MapRect(r, display, source)
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}
