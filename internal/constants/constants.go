// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Polling constants
const (
	// DefaultPollInterval is the time between recognition ticks
	DefaultPollInterval = time.Second

	// DefaultPollJPEGQuality is the JPEG quality of frames submitted for recognition
	DefaultPollJPEGQuality = 80

	// DefaultRequestTimeout bounds every call to the recognition service
	DefaultRequestTimeout = 10 * time.Second
)

// Capture constants
const (
	// DefaultCaptureJPEGQuality is the JPEG quality of burned-in stills
	DefaultCaptureJPEGQuality = 90

	// CaptureFilenameLayout is the time layout of saved capture filenames
	CaptureFilenameLayout = "capture_20060102_150405.jpg"
)

// Camera constants
const (
	// IdealFrameWidth is the frame width requested from capture devices
	IdealFrameWidth = 640

	// IdealFrameHeight is the frame height requested from capture devices
	IdealFrameHeight = 480

	// DefaultCameraFPS is the default frame grab rate
	DefaultCameraFPS = 15

	// MaxConsecutiveGrabErrors is how many grab failures in a row release the device
	MaxConsecutiveGrabErrors = 10
)

// Image constants
const (
	// MaxImageSize is the maximum dimension (width or height) for images submitted from files
	MaxImageSize = 1920
)
