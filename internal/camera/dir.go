package camera

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/kozaktomas/facecam/internal/geometry"
	"github.com/kozaktomas/facecam/internal/imaging"
)

var frameExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}

// DirDevice replays the image files of a directory in name order, looping
// forever. Frames are scaled to the ideal size requested on Open.
type DirDevice struct {
	dir string

	mu    sync.Mutex
	files []string
	next  int
	ideal geometry.Size
	open  bool
}

// NewDirDevice creates a device replaying images from dir.
func NewDirDevice(dir string) *DirDevice {
	return &DirDevice{dir: dir}
}

func (d *DirDevice) Name() string { return "dir:" + d.dir }

func (d *DirDevice) Open(ideal geometry.Size) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: directory %s does not exist", ErrNoDevice, d.dir)
		}
		return fmt.Errorf("could not read frame directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if slices.Contains(frameExtensions, ext) {
			files = append(files, filepath.Join(d.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: no images in %s", ErrNoDevice, d.dir)
	}
	slices.Sort(files)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.files = files
	d.next = 0
	d.ideal = ideal
	d.open = true
	return nil
}

func (d *DirDevice) Grab() (image.Image, error) {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return nil, errors.New("device is closed")
	}
	path := d.files[d.next]
	d.next = (d.next + 1) % len(d.files)
	ideal := d.ideal
	d.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read frame %s: %w", path, err)
	}
	img, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("frame %s: %w", filepath.Base(path), err)
	}
	if ideal.Valid() {
		return imaging.Fit(img, int(ideal.Width), int(ideal.Height)), nil
	}
	return img, nil
}

func (d *DirDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.files = nil
	return nil
}
