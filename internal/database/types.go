package database

import (
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/facecam/internal/recognizer"
)

// CaptureRecord is one saved still in the capture journal
type CaptureRecord struct {
	ID          uuid.UUID
	Filename    string            // filename requested from the service
	StoragePath string            // path reported back by the service
	Faces       []recognizer.Face // detections burned into the still
	People      []string          // full names of identified people
	CapturedAt  time.Time
	SavedAt     time.Time
}

// FaceCount returns the number of faces in the capture.
func (r *CaptureRecord) FaceCount() int {
	return len(r.Faces)
}

// PeopleNames extracts full names from detected people, skipping blanks.
func PeopleNames(people []recognizer.DetectedPerson) []string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		if p.Info.FullName != "" {
			names = append(names, p.Info.FullName)
		}
	}
	return names
}
