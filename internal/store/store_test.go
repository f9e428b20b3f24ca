package store

import (
	"os"
	"path/filepath"
	"testing"

	"erraid/internal/common"
	"erraid/internal/paths"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	layout := paths.NewLayout(filepath.Join(root, "erraid"))
	if err := layout.EnsureDirs(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return New(layout)
}

func sampleTask(id uint64) common.Task {
	return common.Task{
		ID:   id,
		Type: common.TaskSimple,
		Commands: []common.Command{
			{"/bin/true"},
		},
		Schedule: common.Schedule{
			MinuteMask:  0x0FFFFFFFFFFFFFFF,
			HourMask:    0xFFFFFF,
			WeekdayMask: 0x7F,
			Enabled:     true,
		},
		LastRunEpoch: common.NeverRun,
	}
}

func TestFormatParseTaskRoundTrip(t *testing.T) {
	task := sampleTask(5)
	task.Type = common.TaskSequence
	task.Commands = []common.Command{
		{"/bin/sh", "-c", "echo A"},
		{"/bin/sh", "-c", "echo B"},
	}
	task.LastRunEpoch = 123456

	text, err := formatTask(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := parseTask([]byte(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if parsed.ID != task.ID || parsed.Type != task.Type || parsed.LastRunEpoch != task.LastRunEpoch {
		t.Fatalf("got %+v, want %+v", parsed, task)
	}
	if len(parsed.Commands) != len(task.Commands) {
		t.Fatalf("got %d commands, want %d", len(parsed.Commands), len(task.Commands))
	}
	for i := range task.Commands {
		for j := range task.Commands[i] {
			if parsed.Commands[i][j] != task.Commands[i][j] {
				t.Errorf("command %d arg %d = %q, want %q", i, j, parsed.Commands[i][j], task.Commands[i][j])
			}
		}
	}
	if parsed.Schedule != task.Schedule {
		t.Errorf("got schedule %+v, want %+v", parsed.Schedule, task.Schedule)
	}
}

func TestAbstractTaskScheduleDisabled(t *testing.T) {
	task := common.Task{ID: 1, Type: common.TaskAbstract, LastRunEpoch: common.NeverRun}
	text, err := formatTask(task)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parsed, err := parseTask([]byte(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if parsed.Schedule.Enabled {
		t.Fatal("expected ABSTRACT task's schedule to be disabled after round-trip")
	}
}

func TestSaveTaskThenLoadAll(t *testing.T) {
	s := newTestStore(t)
	t1 := sampleTask(1)
	t2 := sampleTask(2)

	if err := s.SaveTask(t1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SaveTask(t2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := s.LoadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("got %d tasks, want 2", len(loaded))
	}
	if loaded[0].ID != 1 || loaded[1].ID != 2 {
		t.Fatalf("expected tasks sorted by id, got ids %d, %d", loaded[0].ID, loaded[1].ID)
	}
}

func TestLoadAllEmptyDirReturnsNil(t *testing.T) {
	s := newTestStore(t)
	tasks, err := s.LoadAll()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tasks != nil {
		t.Fatalf("expected nil for an empty task directory, got %v", tasks)
	}
}

func TestAllocateIDSequential(t *testing.T) {
	s := newTestStore(t)
	id1, err := s.AllocateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id2, err := s.AllocateID()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id1 != 1 || id2 != 2 {
		t.Fatalf("got ids %d, %d, want 1, 2", id1, id2)
	}
}

func TestRemoveTaskDeletesEverything(t *testing.T) {
	s := newTestStore(t)
	task := sampleTask(9)
	if err := s.SaveTask(task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.AppendHistory(9, common.HistoryEntry{Epoch: 100, Status: 0, StdoutLen: 1, StderrLen: 0}, []byte("x"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.RemoveTask(9); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(s.layout.TaskFilePath(9)); !os.IsNotExist(err) {
		t.Fatal("expected task file to be removed")
	}
	if _, err := os.Stat(s.layout.TaskLogDir(9)); !os.IsNotExist(err) {
		t.Fatal("expected task log directory to be removed")
	}
}

func TestAppendHistoryAppendsLine(t *testing.T) {
	s := newTestStore(t)
	entry := common.HistoryEntry{Epoch: 1000, Status: 0, StdoutLen: 3, StderrLen: 0}
	if err := s.AppendHistory(1, entry, []byte("abc"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	history, err := s.ReadHistory(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 1 || history[0] != entry {
		t.Fatalf("got %+v, want one entry %+v", history, entry)
	}

	stdout, err := s.ReadLastStdio(1, "stdout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(stdout) != "abc" {
		t.Fatalf("got stdout %q, want abc", stdout)
	}
}

func TestSnapshotRotationKeepsFiveMostRecent(t *testing.T) {
	s := newTestStore(t)
	for i := 1; i <= 7; i++ {
		entry := common.HistoryEntry{Epoch: int64(1000 + i), Status: 0, StdoutLen: 1, StderrLen: 0}
		if err := s.AppendHistory(3, entry, []byte{byte('0' + i)}, nil); err != nil {
			t.Fatalf("run %d: unexpected error: %v", i, err)
		}
	}

	entries, err := os.ReadDir(s.layout.TaskLogDir(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snapshotCount := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".stdout" && e.Name() != "last.stdout" {
			snapshotCount++
		}
	}
	if snapshotCount != 5 {
		t.Fatalf("got %d snapshot files, want 5", snapshotCount)
	}

	lastStdout, err := s.ReadLastStdio(3, "stdout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(lastStdout) != "7" {
		t.Fatalf("got last.stdout %q, want 7", lastStdout)
	}
}
