// Package upload accepts media files into the upload directory.
//
// Accept enforces the allowed MIME set and size limit, sanitizes the client
// filename, and stores the file as <stem>_<token><ext> where token is the
// job id without dashes. Every file later derived from the upload keeps the
// token in its name, so RemoveJobFiles can delete them together.
package upload
