package supervisor

import (
	"testing"
	"time"

	"bobbin/internal/aria2"
)

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{-5, "0 B"},
		{512, "512 B"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1048575, "1 MB"},
		{1024*1024 - 52, "1023.9 KB"},
		{1024*1024*1024 - 1, "1 GB"},
		{10 * 1024 * 1024, "10 MB"},
		{1288490189, "1.2 GB"},
		{5 * 1024 * 1024 * 1024 * 1024, "5 TB"},
		{3 * 1024 * 1024 * 1024 * 1024 * 1024, "3072 TB"},
	}
	for _, tc := range cases {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := FormatSpeed(1536); got != "1.5 KB/s" {
		t.Fatalf("FormatSpeed = %q", got)
	}
}

func TestFormatETA(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{-1, "--"},
		{0, "0s"},
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m05s"},
		{time.Hour + 2*time.Minute + 30*time.Second, "1h02m"},
	}
	for _, tc := range cases {
		if got := FormatETA(tc.in); got != tc.want {
			t.Fatalf("FormatETA(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNewTaskView(t *testing.T) {
	task := aria2.Task{
		GID:             "g1",
		Status:          aria2.StatusActive,
		TotalLength:     1000,
		CompletedLength: 250,
		DownloadSpeed:   75,
		Dir:             "/dl",
		Files:           []aria2.File{{Path: "/dl/file.iso"}},
	}
	view := newTaskView(task)
	if view.Name != "file.iso" || view.FilePath != "/dl/file.iso" {
		t.Fatalf("unexpected identity: %+v", view)
	}
	if view.Progress != 25 {
		t.Fatalf("progress = %v, want 25", view.Progress)
	}
	if view.ETA != 10*time.Second {
		t.Fatalf("eta = %s, want 10s", view.ETA)
	}

	task.DownloadSpeed = 0
	if eta := newTaskView(task).ETA; eta >= 0 {
		t.Fatalf("expected unknown eta without speed, got %s", eta)
	}

	task.Status = aria2.StatusComplete
	task.TotalLength = 0
	done := newTaskView(task)
	if done.Progress != 100 || done.ETA != 0 {
		t.Fatalf("complete task should be 100%% with zero eta: %+v", done)
	}
}

func TestSnapshotLookups(t *testing.T) {
	snap := Snapshot{Tasks: []TaskView{
		{GID: "a", FilePath: "/dl/a.video.mp4"},
		{GID: "b", FilePath: "/dl/a.audio.m4a"},
	}}
	if view, ok := snap.Find("b"); !ok || view.FilePath != "/dl/a.audio.m4a" {
		t.Fatalf("Find(b) = %+v, %v", view, ok)
	}
	if view, ok := snap.FindByPath("/dl/a.video.mp4"); !ok || view.GID != "a" {
		t.Fatalf("FindByPath = %+v, %v", view, ok)
	}
	if _, ok := snap.FindByPath(""); ok {
		t.Fatal("empty path must not match")
	}
}
