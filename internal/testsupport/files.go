package testsupport

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// WAV returns a 16 kHz mono 16-bit PCM WAV file holding samples zero samples.
// WAV(0) is a bare header, which is enough for content sniffing.
func WAV(samples int) []byte {
	if samples < 0 {
		samples = 0
	}
	dataLen := uint32(samples * 2)
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVEfmt ")
	fmtChunk := struct {
		Size          uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
	}{16, 1, 1, 16000, 32000, 2, 16}
	_ = binary.Write(&buf, binary.LittleEndian, fmtChunk)
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// WriteWAV writes WAV(samples) to path, creating parent directories.
func WriteWAV(t testing.TB, path string, samples int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, WAV(samples), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
