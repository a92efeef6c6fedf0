package overlay

import (
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/recognizer"
)

// BurnInto draws layer onto img at the image's native resolution. The layer
// is in display coordinates and is mapped back into source space, so the
// still shows exactly what was on screen. Nothing is drawn when display has
// no area.
func (r *Renderer) BurnInto(img *image.RGBA, layer Layer, source, display geometry.Size) {
	if !display.Valid() {
		display = source
	}
	for _, el := range layer {
		box, ok := geometry.UnmapRect(el.Box, source, display)
		if !ok {
			return
		}
		r.burnBox(img, box.Image())
	}
	// Labels go on top of every box, like the live layer stacks them.
	for _, el := range layer {
		box, ok := geometry.UnmapRect(el.Box, source, display)
		if !ok {
			return
		}
		r.burnLabel(img, box.Image().Min, el.Label)
	}
}

// BurnFaces draws raw detections onto img, for images that are not shown
// scaled (batch annotations).
func (r *Renderer) BurnFaces(img *image.RGBA, faces []recognizer.Face) {
	size := geometry.SizeOf(img.Bounds())
	r.BurnInto(img, Layout(faces, size, size), size, size)
}

func (r *Renderer) burnBox(img *image.RGBA, box image.Rectangle) {
	w := r.style.strokeWidth
	outer := box.Inset(-(w / 2))
	stroke := image.NewUniform(r.style.stroke)

	bands := []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, outer.Min.Y+w), // top
		image.Rect(outer.Min.X, outer.Max.Y-w, outer.Max.X, outer.Max.Y), // bottom
		image.Rect(outer.Min.X, outer.Min.Y, outer.Min.X+w, outer.Max.Y), // left
		image.Rect(outer.Max.X-w, outer.Min.Y, outer.Max.X, outer.Max.Y), // right
	}
	draw.Draw(img, box, image.NewUniform(r.style.fill), image.Point{}, draw.Over)
	for _, band := range bands {
		draw.Draw(img, band, stroke, image.Point{}, draw.Src)
	}
}

func (r *Renderer) burnLabel(img *image.RGBA, at image.Point, label string) {
	text := foldLabel(label)
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil() + 2*r.style.padding

	plate := image.Rect(at.X, at.Y-r.style.plateHeight, at.X+width, at.Y)
	draw.Draw(img, plate, image.NewUniform(r.style.plate), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(r.style.text),
		Face: face,
		Dot:  fixed.P(at.X+r.style.padding, at.Y-r.style.baseline),
	}
	d.DrawString(text)
}
