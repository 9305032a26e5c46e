package daemonctl

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// findPIDByName scans procRoot/<pid>/comm for name; when procRoot is not
// readable it falls back to `pgrep -x`.
func findPIDByName(procRoot, name string) (int, bool) {
	name = strings.TrimSuffix(filepath.Base(name), ".exe")
	if name == "" {
		return 0, false
	}
	// comm is truncated to 15 bytes by the kernel.
	comm := name
	if len(comm) > 15 {
		comm = comm[:15]
	}

	entries, err := os.ReadDir(procRoot)
	if err != nil {
		return pgrep(name)
	}
	self := os.Getpid()
	for _, entry := range entries {
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid == self {
			continue
		}
		data, err := os.ReadFile(filepath.Join(procRoot, entry.Name(), "comm"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(data)) == comm {
			return pid, true
		}
	}
	return 0, false
}

func pgrep(name string) (int, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "pgrep", "-x", name).Output()
	if err != nil {
		return 0, false
	}
	first, _, _ := bytes.Cut(bytes.TrimSpace(out), []byte("\n"))
	pid, err := strconv.Atoi(string(first))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
