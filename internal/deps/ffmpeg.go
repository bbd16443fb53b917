package deps

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ResolveFFprobe returns the ffprobe binary matching ffmpegCommand. An
// executable ffprobe in the same directory as the resolved ffmpeg (the layout
// of static ffmpeg builds) is preferred over PATH lookup.
func ResolveFFprobe(ffmpegCommand string) string {
	ffmpegBinary := strings.TrimSpace(ffmpegCommand)
	if ffmpegBinary != "" {
		if resolved, err := exec.LookPath(ffmpegBinary); err == nil {
			if candidate, ok := siblingCandidate(resolved, "ffprobe"); ok {
				if info, statErr := os.Stat(candidate); statErr == nil && isExecutable(info) {
					return candidate
				}
			}
		}
	}
	return "ffprobe"
}

// MediaRequirements lists the binaries the transcription and audio stages
// execute.
func MediaRequirements(ffmpegCommand string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegCommand,
			Description: "Required for audio conversion, editing, and silence removal",
		},
		{
			Name:        "FFprobe",
			Command:     ResolveFFprobe(ffmpegCommand),
			Description: "Required for audio stream detection and durations",
		},
	}
}

func siblingCandidate(binaryPath, name string) (string, bool) {
	if binaryPath == "" {
		return "", false
	}
	dir := filepath.Dir(binaryPath)
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(dir, name), true
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
