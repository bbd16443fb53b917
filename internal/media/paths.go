package media

import (
	"path/filepath"
	"strings"
)

var audioOnlyExtensions = map[string]struct{}{
	".flac": {},
	".m4a":  {},
	".mp3":  {},
	".mpga": {},
	".oga":  {},
	".ogg":  {},
	".wav":  {},
}

// IsAudioOnly reports whether path has an audio-only container extension.
func IsAudioOnly(path string) bool {
	_, ok := audioOnlyExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// DerivedPath returns dir/<stem><suffix><ext>. Non-audio containers get ext.
func DerivedPath(path, suffix, fallbackExt string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if !IsAudioOnly(path) && fallbackExt != "" {
		ext = fallbackExt
	}
	return stem + suffix + ext
}
