package supervisor

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"bobbin/internal/testsupport"
)

func TestMergeTickIsIdempotent(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.DownloadDir
	testsupport.WriteSplitPair(t, dir, "clip", false)
	merger := &fakeMerger{rec: rec, available: true, writeOutput: true}
	s := newTestSupervisor(t, cfg, Dependencies{Client: newFakeClient(rec), Merger: merger}, rec)

	merged, err := s.MergeTick(context.Background())
	if err != nil || merged != 1 {
		t.Fatalf("first tick merged=%d err=%v", merged, err)
	}
	if rec.count("fetch") != 1 {
		t.Fatalf("expected a refresh after merging, trace %v", rec.list())
	}

	for i := 0; i < 3; i++ {
		merged, err = s.MergeTick(context.Background())
		if err != nil || merged != 0 {
			t.Fatalf("repeat tick merged=%d err=%v", merged, err)
		}
	}
	if got := rec.count("merge:"); got != 1 {
		t.Fatalf("merge invoked %d times, want 1", got)
	}
	if rec.index("merge:"+filepath.Join(dir, "clip.mp4")) < 0 {
		t.Fatalf("unexpected merge target, trace %v", rec.list())
	}
}

func TestMergeTickSkipsIncompletePairs(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.DownloadDir
	// video still downloading
	testsupport.WriteSplitPair(t, dir, "busy", true)
	// audio half still downloading
	_, audio := testsupport.WriteSplitPair(t, dir, "busyaudio", false)
	testsupport.WriteFile(t, audio+".aria2", 1)
	// no audio half
	testsupport.WriteFile(t, filepath.Join(dir, "lonely.video.mp4"), 10)
	// a directory named like a candidate
	testsupport.WriteFile(t, filepath.Join(dir, "folder.video.mp4", "inner"), 10)

	s := newTestSupervisor(t, cfg, Dependencies{
		Client: newFakeClient(rec),
		Merger: &fakeMerger{rec: rec, available: true, writeOutput: true},
	}, rec)

	merged, err := s.MergeTick(context.Background())
	if err != nil || merged != 0 {
		t.Fatalf("merged=%d err=%v", merged, err)
	}
	if rec.count("merge:") != 0 || rec.count("fetch") != 0 {
		t.Fatalf("nothing should be merged or refreshed, trace %v", rec.list())
	}
}

func TestMergeTickContinuesPastFailures(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.DownloadDir
	testsupport.WriteSplitPair(t, dir, "a", false)
	testsupport.WriteSplitPair(t, dir, "b", false)
	s := newTestSupervisor(t, cfg, Dependencies{
		Client: newFakeClient(rec),
		Merger: &fakeMerger{rec: rec, available: true, err: errors.New("ffmpeg exploded")},
	}, rec)

	merged, err := s.MergeTick(context.Background())
	if err != nil || merged != 0 {
		t.Fatalf("merged=%d err=%v", merged, err)
	}
	if rec.count("merge:") != 2 {
		t.Fatalf("both pairs should be attempted, trace %v", rec.list())
	}
}

func TestMergeTickMarksPairMerged(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.DownloadDir
	store := testsupport.MustOpenPairs(t, cfg)
	pair, err := store.Record(context.Background(), dir, "show", "v1", "a1")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	testsupport.WriteSplitPair(t, dir, "show", false)
	s := newTestSupervisor(t, cfg, Dependencies{
		Client: newFakeClient(rec),
		Merger: &fakeMerger{rec: rec, available: true, writeOutput: true},
		Pairs:  store,
	}, rec)

	if _, err := s.MergeTick(context.Background()); err != nil {
		t.Fatalf("MergeTick: %v", err)
	}
	got, ok, err := store.FindByGID(context.Background(), "v1")
	if err != nil || !ok {
		t.Fatalf("FindByGID ok=%v err=%v", ok, err)
	}
	if got.ID != pair.ID || got.MergedAt == nil {
		t.Fatalf("pair not marked merged: %+v", got)
	}
}

func TestMergeTickWithoutMergerDoesNothing(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	testsupport.WriteSplitPair(t, cfg.Paths.DownloadDir, "clip", false)
	s := newTestSupervisor(t, cfg, Dependencies{Client: newFakeClient(rec)}, rec)

	if merged, err := s.MergeTick(context.Background()); err != nil || merged != 0 {
		t.Fatalf("merged=%d err=%v", merged, err)
	}
	if events := rec.list(); len(events) != 0 {
		t.Fatalf("expected no activity, got %v", events)
	}
}

func TestMergeTickRetriesFailedPair(t *testing.T) {
	rec := &recorder{}
	cfg := testsupport.NewConfig(t)
	dir := cfg.Paths.DownloadDir
	testsupport.WriteSplitPair(t, dir, "clip", false)
	merger := &fakeMerger{rec: rec, available: true, writeOutput: true, err: errors.New("exit status 1")}
	s := newTestSupervisor(t, cfg, Dependencies{Client: newFakeClient(rec), Merger: merger}, rec)

	if merged, err := s.MergeTick(context.Background()); err != nil || merged != 0 {
		t.Fatalf("failing tick merged=%d err=%v", merged, err)
	}
	merger.err = nil
	if merged, err := s.MergeTick(context.Background()); err != nil || merged != 1 {
		t.Fatalf("retry tick merged=%d err=%v", merged, err)
	}
	if rec.count("merge:") != 2 {
		t.Fatalf("expected the pair to be attempted twice, trace %v", rec.list())
	}
}
