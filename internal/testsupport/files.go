package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = 0x42
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WriteSplitPair creates the video and audio halves for base in dir. When
// inProgress is true an aria2 control file is left next to the video half.
func WriteSplitPair(t testing.TB, dir, base string, inProgress bool) (videoPath, audioPath string) {
	t.Helper()

	videoPath = filepath.Join(dir, base+".video.mp4")
	audioPath = filepath.Join(dir, base+".audio.m4a")
	WriteFile(t, videoPath, 1024)
	WriteFile(t, audioPath, 512)
	if inProgress {
		WriteFile(t, videoPath+".aria2", 1)
	}
	return videoPath, audioPath
}

// Exists reports whether path exists.
func Exists(t testing.TB, path string) bool {
	t.Helper()

	_, err := os.Stat(path)
	if err == nil {
		return true
	}
	if !os.IsNotExist(err) {
		t.Fatalf("stat %s: %v", path, err)
	}
	return false
}
