package camera

import (
	"fmt"
	"image"
	"sync"

	"github.com/vova616/screenshot"

	"github.com/kozaktomas/facecam/internal/geometry"
)

// ScreenDevice captures the primary display. Frames come at native screen
// resolution; the ideal size is ignored.
type ScreenDevice struct {
	mu   sync.Mutex
	rect image.Rectangle
	open bool
}

// NewScreenDevice creates a screen capture device.
func NewScreenDevice() *ScreenDevice {
	return &ScreenDevice{}
}

func (d *ScreenDevice) Name() string { return "screen" }

func (d *ScreenDevice) Open(_ geometry.Size) error {
	rect, err := screenshot.ScreenRect()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoDevice, err)
	}
	if rect.Empty() {
		return fmt.Errorf("%w: screen has no area", ErrNoDevice)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.rect = rect
	d.open = true
	return nil
}

func (d *ScreenDevice) Grab() (image.Image, error) {
	d.mu.Lock()
	open, rect := d.open, d.rect
	d.mu.Unlock()
	if !open {
		return nil, fmt.Errorf("device is closed")
	}

	img, err := screenshot.CaptureRect(rect)
	if err != nil {
		return nil, fmt.Errorf("could not capture screen: %w", err)
	}
	return img, nil
}

func (d *ScreenDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}
