package upload

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"clipmato/internal/services"
)

var (
	// ErrUnsupportedType rejects uploads outside the allowed MIME set.
	ErrUnsupportedType = fmt.Errorf("unsupported media type: %w", services.ErrValidation)
	// ErrTooLarge rejects uploads above the size limit.
	ErrTooLarge = fmt.Errorf("file too large: %w", services.ErrValidation)
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Store writes accepted uploads into one directory.
type Store struct {
	dir      string
	maxBytes int64
	allowed  map[string]struct{}
}

// Saved describes a stored upload.
type Saved struct {
	Path         string
	Name         string
	Size         int64
	DetectedType string
}

// NewStore returns a store for dir.
func NewStore(dir string, maxBytes int64, allowedTypes []string) *Store {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[normalizeType(t)] = struct{}{}
	}
	return &Store{dir: dir, maxBytes: maxBytes, allowed: allowed}
}

// Dir returns the upload directory.
func (s *Store) Dir() string {
	return s.dir
}

// MaxBytes returns the size limit.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// AllowedTypes returns the accepted MIME types in sorted order.
func (s *Store) AllowedTypes() []string {
	out := make([]string, 0, len(s.allowed))
	for t := range s.allowed {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Accept validates declaredType, streams r into the upload directory, and
// checks the stored bytes are media. Partial files are removed on failure.
func (s *Store) Accept(filename, declaredType, token string, r io.Reader) (Saved, error) {
	if _, ok := s.allowed[normalizeType(declaredType)]; !ok {
		return Saved{}, fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedType, declaredType, strings.Join(s.AllowedTypes(), ", "))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Saved{}, services.Wrap(services.ErrStoreIO, "", "accept upload", "create upload directory", err)
	}

	name := UniqueName(filename, token)
	dest := filepath.Join(s.dir, name)
	size, err := s.copyWithLimit(dest, r)
	if err != nil {
		_ = os.Remove(dest)
		return Saved{}, err
	}

	detected, err := mimetype.DetectFile(dest)
	if err != nil {
		_ = os.Remove(dest)
		return Saved{}, services.Wrap(services.ErrStoreIO, "", "accept upload", "sniff content", err)
	}
	if !isMedia(detected) {
		_ = os.Remove(dest)
		return Saved{}, fmt.Errorf("%w: content detected as %s", ErrUnsupportedType, detected.String())
	}
	return Saved{Path: dest, Name: name, Size: size, DetectedType: detected.String()}, nil
}

func (s *Store) copyWithLimit(dest string, r io.Reader) (int64, error) {
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, services.Wrap(services.ErrStoreIO, "", "accept upload", "create file", err)
	}
	defer out.Close()

	limit := s.maxBytes
	reader := r
	if limit > 0 {
		reader = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(out, reader)
	if err != nil {
		return n, services.Wrap(services.ErrStoreIO, "", "accept upload", "write file", err)
	}
	if limit > 0 && n > limit {
		return n, fmt.Errorf("%w: maximum size is %d MB", ErrTooLarge, limit/(1024*1024))
	}
	if err := out.Close(); err != nil {
		return n, services.Wrap(services.ErrStoreIO, "", "accept upload", "close file", err)
	}
	return n, nil
}

// RemoveJobFiles deletes every file in the upload directory carrying token
// and returns the removed paths.
func (s *Store) RemoveJobFiles(token string) ([]string, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_"+token+"*"))
	if err != nil {
		return nil, err
	}
	var removed []string
	var errs []error
	for _, match := range matches {
		if err := os.Remove(match); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, match)
	}
	return removed, errors.Join(errs...)
}

// Token returns the filename token for a job id.
func Token(jobID string) string {
	if id, err := uuid.Parse(jobID); err == nil {
		return strings.ReplaceAll(id.String(), "-", "")
	}
	return unsafeChars.ReplaceAllString(jobID, "_")
}

// Sanitize strips directories and replaces unsafe characters.
func Sanitize(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		name = ""
	}
	name = unsafeChars.ReplaceAllString(name, "_")
	if name == "" {
		return "upload"
	}
	return name
}

// UniqueName returns <stem>_<token><ext> for a sanitized filename. An empty
// token draws a fresh random one.
func UniqueName(filename, token string) string {
	if token == "" {
		token = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	clean := Sanitize(filename)
	ext := filepath.Ext(clean)
	stem := strings.TrimSuffix(clean, ext)
	if stem == "" {
		stem = "upload"
	}
	return stem + "_" + token + ext
}

func normalizeType(value string) string {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return mediaType
}

func isMedia(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		value := m.String()
		if strings.HasPrefix(value, "audio/") || strings.HasPrefix(value, "video/") || value == "application/ogg" {
			return true
		}
	}
	return false
}
