package recognizer

import "github.com/kozaktomas/facecam/internal/geometry"

// PersonRecord is the metadata the service keeps about a known person.
// It is passed through unmodified; optional fields are empty when absent.
type PersonRecord struct {
	FullName  string `json:"full_name"`
	BirthDate string `json:"birth_date,omitempty"`
	Rank      string `json:"rank,omitempty"`
	Position  string `json:"position,omitempty"`
	Unit      string `json:"unit,omitempty"`
}

// Face is a single detected face in source-frame pixels.
type Face struct {
	Location   geometry.Location `json:"location"`
	Name       string            `json:"name"`
	PersonInfo *PersonRecord     `json:"person_info,omitempty"`
}

// DetectedPerson is a recognized (non-Unknown) face with its metadata.
type DetectedPerson struct {
	Name string       `json:"name,omitempty"`
	Info PersonRecord `json:"info"`
}

// RecognizeResponse is the /recognize response body.
type RecognizeResponse struct {
	Success        bool             `json:"success"`
	Faces          []Face           `json:"faces"`
	DetectedPeople []DetectedPerson `json:"detected_people"`
	Error          string           `json:"error,omitempty"`
}

// SaveResponse is the /save_capture response body.
type SaveResponse struct {
	Success  bool   `json:"success"`
	FilePath string `json:"filepath,omitempty"`
	FullPath string `json:"full_path,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Settings describes the training state of the service.
type Settings struct {
	IsTrained           bool    `json:"is_trained"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// SettingsResponse is the /settings response body.
type SettingsResponse struct {
	Success  bool     `json:"success"`
	Settings Settings `json:"settings"`
	Error    string   `json:"error,omitempty"`
}

// ReloadResponse is the /reload_faces response body.
type ReloadResponse struct {
	Success    bool     `json:"success"`
	Message    string   `json:"message,omitempty"`
	KnownFaces []string `json:"known_faces"`
	Error      string   `json:"error,omitempty"`
}

// UploadResponse is the /upload_test response body.
type UploadResponse struct {
	Success        bool             `json:"success"`
	Faces          []Face           `json:"faces"`
	DetectedPeople []DetectedPerson `json:"detected_people"`
	ImageBase64    string           `json:"image_base64"`
	Error          string           `json:"error,omitempty"`
}

type recognizeRequest struct {
	Image string `json:"image"`
}

type saveRequest struct {
	Image    string `json:"image"`
	Filename string `json:"filename"`
}
