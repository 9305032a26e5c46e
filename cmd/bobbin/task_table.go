package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"bobbin/internal/aria2"
	"bobbin/internal/supervisor"
)

var taskColumns = []column{
	{header: "GID", align: text.AlignLeft},
	// Long titles would push the table past the terminal width.
	{header: "Name", align: text.AlignLeft, maxWidth: 48},
	{header: "Status", align: text.AlignLeft},
	{header: "Progress", align: text.AlignRight},
	{header: "Size", align: text.AlignRight},
	{header: "Down", align: text.AlignRight},
	{header: "Up", align: text.AlignRight},
	{header: "ETA", align: text.AlignRight},
}

func renderTaskTable(snap supervisor.Snapshot, colorize bool) string {
	if len(snap.Tasks) == 0 {
		return "No downloads"
	}
	rows := make([][]string, 0, len(snap.Tasks))
	for _, task := range snap.Tasks {
		rows = append(rows, []string{
			task.GID,
			taskName(task),
			statusCell(task.Status, colorize),
			fmt.Sprintf("%.1f%%", task.Progress),
			sizeCell(task),
			supervisor.FormatSpeed(task.DownloadSpeed),
			supervisor.FormatSpeed(task.UploadSpeed),
			etaCell(task),
		})
	}
	return renderTable(taskColumns, rows)
}

func taskName(task supervisor.TaskView) string {
	name := task.Name
	if task.IsTorrent {
		name = "[bt] " + name
	}
	if task.Status == aria2.StatusError && strings.TrimSpace(task.ErrorMessage) != "" {
		name = fmt.Sprintf("%s (%s)", name, task.ErrorMessage)
	}
	return name
}

func sizeCell(task supervisor.TaskView) string {
	if task.TotalBytes <= 0 {
		return "-"
	}
	if task.CompletedBytes >= task.TotalBytes {
		return supervisor.FormatBytes(task.TotalBytes)
	}
	return supervisor.FormatBytes(task.CompletedBytes) + " / " + supervisor.FormatBytes(task.TotalBytes)
}

func etaCell(task supervisor.TaskView) string {
	if task.Status != aria2.StatusActive {
		return "-"
	}
	return supervisor.FormatETA(task.ETA)
}

func statusCell(status aria2.Status, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	if color := statusColor(status); color != "" {
		return color + label + ansiReset
	}
	return label
}

func statusColor(status aria2.Status) string {
	switch status {
	case aria2.StatusActive:
		return ansiBlue
	case aria2.StatusComplete:
		return ansiGreen
	case aria2.StatusError:
		return ansiRed
	case aria2.StatusPaused, aria2.StatusWaiting:
		return ansiYellow
	default:
		return ""
	}
}
