// Package ocr provides word-level text recognition for the plate text stage.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2) behind the
// Recognizer interface. A Recognizer returns one plate.TextDetection per
// recognized word, with its quadrilateral in the coordinates of the image it
// was given and a confidence in [0,1].
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The Tesseract recognizer needs cgo. Binaries built with CGO_ENABLED=0 get a
// recognizer whose constructor returns plate.ErrUnavailable; the pipeline then
// skips the text stage and falls through to the classical detectors.
//
// # Concurrency
//
// A Tesseract client is not safe for concurrent use. The Tesseract type
// serializes calls with a mutex, so one instance can be shared by a pipeline
// that is invoked from several goroutines.
package ocr
