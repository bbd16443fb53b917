// Package distribution publishes edited episodes.
//
// Three modes are supported: "none" records the local path only, "local"
// copies the file into a publish directory with size and checksum
// verification, and "s3" uploads it to an S3-compatible bucket (AWS S3,
// Cloudflare R2, MinIO). Every mode returns a JSON Result that is stored on
// the job record as-is.
package distribution
