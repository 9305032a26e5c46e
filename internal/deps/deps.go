// Package deps reports on the external binaries bobbin drives.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"bobbin/internal/config"
)

// Requirement defines an external dependency bobbin relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

var installHints = map[string]string{
	"aria2c":  "install aria2 (e.g. `apt install aria2` or `brew install aria2`)",
	"yt-dlp":  "install yt-dlp (e.g. `pipx install yt-dlp` or `brew install yt-dlp`)",
	"ffmpeg":  "install ffmpeg (e.g. `apt install ffmpeg` or `brew install ffmpeg`)",
	"ffprobe": "ffprobe ships with ffmpeg (e.g. `apt install ffmpeg`)",
}

// InstallHint returns installation guidance for a known binary name.
func InstallHint(command string) string {
	base := command
	if idx := strings.LastIndexAny(base, `/\`); idx >= 0 {
		base = base[idx+1:]
	}
	base = strings.TrimSuffix(base, ".exe")
	if hint, ok := installHints[base]; ok {
		return hint
	}
	return fmt.Sprintf("install %q and make sure it is on PATH", command)
}

// Lookup resolves command on PATH.
func Lookup(command string) (string, bool) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", false
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", false
	}
	return path, true
}

// Requirements lists the binaries used by the configured components.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "aria2", Command: cfg.Aria2.Binary, Description: "Download daemon"},
		{Name: "yt-dlp", Command: cfg.Extractor.Binary, Description: "Video URL resolution", Optional: true},
		{Name: "FFmpeg", Command: cfg.Merge.FFmpegBinary, Description: "Split audio/video merges", Optional: true},
		{Name: "FFprobe", Command: cfg.Merge.FFprobeBinary, Description: "Merge output verification", Optional: true},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, ok := Lookup(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case !ok:
			status.Detail = fmt.Sprintf("binary %q not found; %s", cmd, InstallHint(cmd))
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}
