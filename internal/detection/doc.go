// Package detection implements the plate detector stages.
//
// Every stage satisfies the Detector interface and returns plate candidates
// in the pixel coordinates of the decoded source image, already clamped to
// its bounds. The orchestrator runs the stages in priority order and is
// oblivious to which strategy backs each one.
//
// # Stages
//
//   - TextDetector: OCR words accepted by the plate classifier
//   - EdgeDetector: horizontal gradient blobs with plate-like geometry
//   - ColorDetector: yellow and white plate-colored blobs
//   - LocalDetector: a pretrained object detector run at several scales,
//     merged with non-maximum suppression
//   - HostedDetector: a remote object-detection service
//
// # Algorithm Overview
//
// The two classical stages share one pipeline:
//
//  1. Downscale: analysis runs on a copy no larger than 1280px on its long side
//  2. Mask: horizontal gradient + Otsu threshold, or an HSV color range
//  3. Close: a wide rectangular closing merges character strokes into one blob
//  4. Filter: aspect ratio, area fraction and vertical position
//  5. Select: the single best blob is padded and mapped back to source pixels
//
// # Errors
//
// A stage whose native backend is missing returns ErrUnavailable. Hosted
// failures are returned as *RequestError with the API key removed from the
// message. Any other error means the stage failed for this image only.
package detection
