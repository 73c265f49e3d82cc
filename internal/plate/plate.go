// Package plate holds the data model shared by the detector stages, the
// redaction renderer and the orchestrator.
package plate

import (
	"errors"
	"image"

	"github.com/ironsheep/plate-redact/internal/geometry"
)

// ErrUnavailable is returned by a stage whose native backend (OpenCV,
// Tesseract) is not compiled in or could not be initialized.
var ErrUnavailable = errors.New("detector backend unavailable")

// Source tags which stage produced a candidate.
type Source string

const (
	SourceText     Source = "text"
	SourceEdge     Source = "edge"
	SourceColor    Source = "color"
	SourceLocal    Source = "local-model"
	SourceHosted   Source = "hosted-model"
	SourceFailsafe Source = "failsafe"
)

// Status is the outcome of a single pipeline invocation.
type Status string

const (
	StatusBlurred       Status = "blurred"
	StatusNoPlates      Status = "no_plates"
	StatusNoValidROIs   Status = "no_valid_rois"
	StatusDetectFailed  Status = "detect_failed"
	StatusDecodeFailed  Status = "decode_failed"
	StatusOpenCVMissing Status = "opencv_missing"
	StatusError         Status = "error"
)

// Changed reports whether a status means the output differs from the input.
func (s Status) Changed() bool { return s == StatusBlurred }

// Failed reports whether the status is one of the failure outcomes, as
// opposed to a clean run that simply found nothing.
func (s Status) Failed() bool {
	switch s {
	case StatusDetectFailed, StatusDecodeFailed, StatusOpenCVMissing, StatusError:
		return true
	}
	return false
}

// TextDetection is one recognized word from an OCR pass.
type TextDetection struct {
	Quad       [4]image.Point `json:"quad"`
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"` // 0..1
}

// Box returns the axis-aligned bounds of the detection quadrilateral.
func (t TextDetection) Box() geometry.Box {
	return geometry.FromQuad(t.Quad)
}

// QuadOf returns the corners of b clockwise from the top-left.
func QuadOf(b geometry.Box) [4]image.Point {
	return [4]image.Point{
		{X: b.X1, Y: b.Y1}, {X: b.X2, Y: b.Y1},
		{X: b.X2, Y: b.Y2}, {X: b.X1, Y: b.Y2},
	}
}

// Candidate is a proposed plate location.
//
// Candidates are never mutated after a stage returns them; the renderer works
// on padded and clamped copies.
type Candidate struct {
	Box           geometry.Box `json:"box"`
	Confidence    float64      `json:"confidence,omitempty"`
	HasConfidence bool         `json:"has_confidence"`
	Source        Source       `json:"source"`

	// Label is the recognized text or detector class, for diagnostics only.
	Label string `json:"label,omitempty"`
	// Pass names the OCR preprocessing pass that produced a text candidate.
	Pass string `json:"pass,omitempty"`

	// PadX and PadY are stage-specific padding in pixels, applied before
	// the renderer's generic expansion ratio.
	PadX int `json:"pad_x,omitempty"`
	PadY int `json:"pad_y,omitempty"`
}

// StageTrace records the result of one attempted stage.
type StageTrace struct {
	Stage   Source `json:"stage"`
	Found   int    `json:"found"`
	Applied int    `json:"applied"`
	Error   string `json:"error,omitempty"`
}

// Report is the structured result of one redaction call.
type Report struct {
	RequestID string `json:"request_id"`
	Status    Status `json:"status"`

	// Found counts candidates produced by all attempted stages.
	Found int `json:"found"`
	// Applied counts regions actually blurred.
	Applied int `json:"applied"`

	Stage    Source `json:"stage,omitempty"`
	OCRPass  string `json:"ocr_pass,omitempty"`
	Variant  string `json:"variant,omitempty"`
	Failsafe bool   `json:"failsafe,omitempty"`

	// PolicyGap is set when a pipeline without a failsafe tier found nothing.
	PolicyGap bool `json:"policy_gap,omitempty"`
	// Disabled is set when detection is switched off by configuration.
	Disabled bool `json:"disabled,omitempty"`

	Orientation  int    `json:"orientation,omitempty"`
	Format       string `json:"format,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`

	// Error holds diagnostic text. Hosted-service errors are stored with the
	// API key already removed.
	Error string `json:"error,omitempty"`

	Stages     []StageTrace `json:"stages,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}
