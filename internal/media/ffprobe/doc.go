// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size)
//
// Primary entry points:
//   - Prober.Inspect: executes ffprobe and returns the parsed Result
//   - Parse: decodes captured ffprobe JSON
package ffprobe
