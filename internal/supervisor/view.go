package supervisor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"bobbin/internal/aria2"
)

// TaskView is the flattened, display-ready form of a daemon task.
type TaskView struct {
	GID            string
	Name           string
	Status         aria2.Status
	Progress       float64 // percent, 0-100
	TotalBytes     int64
	CompletedBytes int64
	DownloadSpeed  int64
	UploadSpeed    int64
	ETA            time.Duration // negative when unknown
	Dir            string
	FilePath       string
	IsTorrent      bool
	ErrorMessage   string
}

// Snapshot is one poll's complete task list. A new poll replaces it whole.
type Snapshot struct {
	Tasks     []TaskView
	FetchedAt time.Time
}

// Find returns the view for gid.
func (s Snapshot) Find(gid string) (TaskView, bool) {
	for _, t := range s.Tasks {
		if t.GID == gid {
			return t, true
		}
	}
	return TaskView{}, false
}

// FindByPath returns the view whose primary file is path.
func (s Snapshot) FindByPath(path string) (TaskView, bool) {
	if path == "" {
		return TaskView{}, false
	}
	for _, t := range s.Tasks {
		if t.FilePath == path {
			return t, true
		}
	}
	return TaskView{}, false
}

func newTaskView(task aria2.Task) TaskView {
	view := TaskView{
		GID:            task.GID,
		Name:           task.Name(),
		Status:         task.Status,
		TotalBytes:     task.TotalLength,
		CompletedBytes: task.CompletedLength,
		DownloadSpeed:  task.DownloadSpeed,
		UploadSpeed:    task.UploadSpeed,
		ETA:            -1,
		Dir:            task.Dir,
		FilePath:       task.PrimaryPath(),
		IsTorrent:      task.IsTorrent(),
		ErrorMessage:   task.ErrorMessage,
	}
	if task.TotalLength > 0 {
		view.Progress = math.Min(100, float64(task.CompletedLength)/float64(task.TotalLength)*100)
		remaining := task.TotalLength - task.CompletedLength
		switch {
		case remaining <= 0:
			view.ETA = 0
		case task.DownloadSpeed > 0:
			view.ETA = time.Duration(remaining/task.DownloadSpeed) * time.Second
		}
	}
	if task.Status == aria2.StatusComplete {
		view.Progress = 100
		view.ETA = 0
	}
	return view
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with 1024-based units and at most one decimal.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	rounded := math.Round(value*10) / 10
	// 1023.95 KB rounds up to the next unit rather than printing "1024 KB".
	if rounded >= 1024 && unit < len(byteUnits)-1 {
		unit++
		rounded = math.Round(value/1024*10) / 10
	}
	formatted := strconv.FormatFloat(rounded, 'f', 1, 64)
	return strings.TrimSuffix(formatted, ".0") + " " + byteUnits[unit]
}

// FormatSpeed renders a bytes-per-second rate.
func FormatSpeed(bytesPerSecond int64) string {
	return FormatBytes(bytesPerSecond) + "/s"
}

// FormatETA renders a remaining-time estimate; negative means unknown.
func FormatETA(d time.Duration) string {
	if d < 0 {
		return "--"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
