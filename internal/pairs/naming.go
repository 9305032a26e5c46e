package pairs

import (
	"path/filepath"
	"strings"
)

const (
	VideoSuffix   = ".video.mp4"
	AudioSuffix   = ".audio.m4a"
	OutputExt     = ".mp4"
	ControlSuffix = ".aria2"
)

// VideoName returns the video half's file name for base.
func VideoName(base string) string { return base + VideoSuffix }

// AudioName returns the audio half's file name for base.
func AudioName(base string) string { return base + AudioSuffix }

// OutputName returns the merged output's file name for base.
func OutputName(base string) string { return base + OutputExt }

// ControlPath returns the daemon's in-progress marker for path.
func ControlPath(path string) string { return path + ControlSuffix }

// SplitVideoPath reports whether path follows the video-half convention and
// returns its directory and base name.
func SplitVideoPath(path string) (dir, base string, ok bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, VideoSuffix) || len(name) == len(VideoSuffix) {
		return "", "", false
	}
	return filepath.Dir(path), strings.TrimSuffix(name, VideoSuffix), true
}

// SplitAudioPath is SplitVideoPath for the audio half.
func SplitAudioPath(path string) (dir, base string, ok bool) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, AudioSuffix) || len(name) == len(AudioSuffix) {
		return "", "", false
	}
	return filepath.Dir(path), strings.TrimSuffix(name, AudioSuffix), true
}
