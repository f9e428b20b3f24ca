// Package store persists tasks, run history, and stdio snapshots to disk:
// atomic task files, an append-only history log per task, and rotated
// stdio snapshots capped at five per extension.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"erraid/internal/codec"
	"erraid/internal/common"
	"erraid/internal/errs"
	"erraid/internal/paths"
)

// Store persists tasks and their run history under a Layout's directory
// tree.
type Store struct {
	layout paths.Layout
}

// New returns a Store rooted at layout.
func New(layout paths.Layout) *Store {
	return &Store{layout: layout}
}

// writeFileAtomic writes data to path via a sibling ".tmp" staging file,
// fsync, chmod, then rename — never leaving a partially written file at
// path on failure.
func writeFileAtomic(path string, data []byte) (err error) {
	tmpPath := path + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.FileMode)
	if err != nil {
		return fmt.Errorf("store: create %s: %w", tmpPath, err)
	}

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, werr := f.Write(data); werr != nil {
		f.Close()
		return fmt.Errorf("store: write %s: %w", tmpPath, werr)
	}
	if serr := f.Sync(); serr != nil {
		f.Close()
		return fmt.Errorf("store: sync %s: %w", tmpPath, serr)
	}
	if cerr := f.Close(); cerr != nil {
		return fmt.Errorf("store: close %s: %w", tmpPath, cerr)
	}
	if merr := os.Chmod(tmpPath, paths.FileMode); merr != nil {
		return fmt.Errorf("store: chmod %s: %w", tmpPath, merr)
	}
	if rerr := os.Rename(tmpPath, path); rerr != nil {
		return fmt.Errorf("store: rename %s: %w", tmpPath, rerr)
	}

	success = true
	return nil
}

// formatTask renders a task in the persisted text format.
func formatTask(t common.Task) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "%d\n", t.ID)
	fmt.Fprintf(&b, "%s\n", t.Type.String())
	fmt.Fprintf(&b, "%d\n", len(t.Commands))
	for _, cmd := range t.Commands {
		line, err := json.Marshal([]string(cmd))
		if err != nil {
			return "", errs.Wrap(err, errs.KindEncoding, "format-task")
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s\n", codec.EncodeMask(t.Schedule.MinuteMask, 15))
	fmt.Fprintf(&b, "%s\n", codec.EncodeMask(uint64(t.Schedule.HourMask), 6))
	fmt.Fprintf(&b, "%s\n", codec.EncodeMask(uint64(t.Schedule.WeekdayMask), 2))
	b.WriteString("0\n")
	fmt.Fprintf(&b, "%d\n", t.LastRunEpoch)
	return b.String(), nil
}

// parseTask parses a task file's text content.
func parseTask(data []byte) (common.Task, error) {
	lines := strings.Split(string(data), "\n")
	// Trailing newline produces one empty final element; drop it.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) < 7 {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}

	id, err := strconv.ParseUint(lines[0], 10, 64)
	if err != nil {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}
	typ, ok := common.ParseTaskType(lines[1])
	if !ok {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}
	count, err := strconv.Atoi(lines[2])
	if err != nil || count < 0 {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}

	idx := 3
	if len(lines) < idx+count+4 {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}

	commands := make([]common.Command, count)
	for i := 0; i < count; i++ {
		var args []string
		if err := json.Unmarshal([]byte(lines[idx+i]), &args); err != nil {
			return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
		}
		commands[i] = args
	}
	idx += count

	minuteMask, err := codec.DecodeMask(lines[idx], 15)
	if err != nil {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}
	hourMask, err := codec.DecodeMask(lines[idx+1], 6)
	if err != nil {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}
	weekdayMask, err := codec.DecodeMask(lines[idx+2], 2)
	if err != nil {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}
	// lines[idx+3] is the reserved flags field: written as "0", read
	// without validation.
	lastRun, err := strconv.ParseInt(lines[idx+4], 10, 64)
	if err != nil {
		return common.Task{}, errs.Wrap(errs.ErrStoreCorrupt, errs.KindPersistence, "parse-task")
	}

	return common.Task{
		ID:       id,
		Type:     typ,
		Commands: commands,
		Schedule: common.Schedule{
			MinuteMask:  minuteMask,
			HourMask:    uint32(hourMask),
			WeekdayMask: uint8(weekdayMask),
			Enabled:     typ != common.TaskAbstract,
		},
		LastRunEpoch: lastRun,
	}, nil
}

// SaveTask atomically persists t to its task file.
func (s *Store) SaveTask(t common.Task) error {
	text, err := formatTask(t)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.layout.TaskFilePath(t.ID), []byte(text)); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "save-task", t.ID)
	}
	return nil
}

// LoadAll reads and parses every persisted task file under the tasks
// directory, returning tasks sorted by id.
func (s *Store) LoadAll() ([]common.Task, error) {
	entries, err := os.ReadDir(s.layout.TasksDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(err, errs.KindPersistence, "load-all")
	}

	var tasks []common.Task
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".task") {
			continue
		}
		data, rerr := os.ReadFile(filepath.Join(s.layout.TasksDir, e.Name()))
		if rerr != nil {
			return nil, errs.Wrap(rerr, errs.KindPersistence, "load-all")
		}
		task, perr := parseTask(data)
		if perr != nil {
			return nil, perr
		}
		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

// AllocateID reads, increments, and persists the next_id counter,
// returning the id allocated for this call. Defaults to 1 if the counter
// file does not yet exist.
func (s *Store) AllocateID() (uint64, error) {
	next := uint64(1)

	data, err := os.ReadFile(s.layout.NextIDPath)
	if err == nil {
		parsed, perr := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
		if perr != nil {
			return 0, errs.Wrap(perr, errs.KindPersistence, "allocate-id")
		}
		next = parsed
	} else if !os.IsNotExist(err) {
		return 0, errs.Wrap(err, errs.KindPersistence, "allocate-id")
	}

	allocated := next
	if err := writeFileAtomic(s.layout.NextIDPath, []byte(fmt.Sprintf("%d\n", next+1))); err != nil {
		return 0, errs.Wrap(err, errs.KindPersistence, "allocate-id")
	}
	return allocated, nil
}

// RemoveTask deletes id's task file, history log, last stdio files,
// snapshots, and log directory. The task file deletion's error is
// returned; all other steps are best-effort.
func (s *Store) RemoveTask(id uint64) error {
	if err := os.Remove(s.layout.TaskFilePath(id)); err != nil && !os.IsNotExist(err) {
		return errs.WrapTask(err, errs.KindPersistence, "remove-task", id)
	}

	os.Remove(s.layout.HistoryLogPath(id))
	os.Remove(s.layout.LastStdioPath(id, "stdout"))
	os.Remove(s.layout.LastStdioPath(id, "stderr"))
	os.RemoveAll(s.layout.TaskLogDir(id))
	return nil
}

// AppendHistory rotates id's last stdout/stderr into timestamped
// snapshots, writes the new content, appends one history.log line, and
// prunes snapshots beyond the retention limit.
func (s *Store) AppendHistory(id uint64, entry common.HistoryEntry, stdout, stderr []byte) error {
	logDir := s.layout.TaskLogDir(id)
	if err := os.MkdirAll(logDir, paths.DirMode); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}

	for _, ext := range []string{"stdout", "stderr"} {
		if err := s.rotateLast(id, ext, entry.Epoch); err != nil {
			return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
		}
	}

	if err := writeFileAtomic(s.layout.LastStdioPath(id, "stdout"), stdout); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}
	if err := writeFileAtomic(s.layout.LastStdioPath(id, "stderr"), stderr); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}

	line := fmt.Sprintf("%d %d %d %d\n", entry.Epoch, entry.Status, entry.StdoutLen, entry.StderrLen)
	f, err := os.OpenFile(s.layout.HistoryLogPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FileMode)
	if err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}
	if err := f.Sync(); err != nil {
		return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
	}

	for _, ext := range []string{"stdout", "stderr"} {
		if err := s.pruneSnapshots(id, ext); err != nil {
			return errs.WrapTask(err, errs.KindPersistence, "append-history", id)
		}
	}
	return nil
}

// rotateLast renames a non-empty last.<ext> file into a snapshot named
// with epoch, picking the lowest free counter suffix.
func (s *Store) rotateLast(id uint64, ext string, epoch int64) error {
	lastPath := s.layout.LastStdioPath(id, ext)
	info, err := os.Stat(lastPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() == 0 {
		return nil
	}

	counter := 0
	for {
		dest := s.layout.SnapshotPath(id, epoch, counter, ext)
		if _, err := os.Stat(dest); os.IsNotExist(err) {
			return os.Rename(lastPath, dest)
		}
		counter++
	}
}

type snapshotFile struct {
	path    string
	epoch   int64
	counter int
}

// pruneSnapshots deletes the oldest snapshot files for ext beyond
// MaxSnapshotsPerExt, ordered by (epoch, counter) descending.
func (s *Store) pruneSnapshots(id uint64, ext string) error {
	logDir := s.layout.TaskLogDir(id)
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return err
	}

	var snaps []snapshotFile
	suffix := "." + ext
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, "snapshot-") || !strings.HasSuffix(name, suffix) {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(name, "snapshot-"), suffix)
		epoch, counter, ok := parseSnapshotStem(stem)
		if !ok {
			continue
		}
		snaps = append(snaps, snapshotFile{path: filepath.Join(logDir, name), epoch: epoch, counter: counter})
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].epoch != snaps[j].epoch {
			return snaps[i].epoch > snaps[j].epoch
		}
		return snaps[i].counter > snaps[j].counter
	})

	for i := common.MaxSnapshotsPerExt; i < len(snaps); i++ {
		os.Remove(snaps[i].path)
	}
	return nil
}

// parseSnapshotStem splits "<epoch>" or "<epoch>-<counter>" into its
// components.
func parseSnapshotStem(stem string) (epoch int64, counter int, ok bool) {
	parts := strings.SplitN(stem, "-", 2)
	e, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if len(parts) == 1 {
		return e, 0, true
	}
	c, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	return e, c, true
}

// ReadHistory reads and parses id's history.log into entries, in
// append (fire) order.
func (s *Store) ReadHistory(id uint64) ([]common.HistoryEntry, error) {
	f, err := os.Open(s.layout.HistoryLogPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.WrapTask(err, errs.KindPersistence, "read-history", id)
	}
	defer f.Close()

	var entries []common.HistoryEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e common.HistoryEntry
		if _, err := fmt.Sscanf(line, "%d %d %d %d", &e.Epoch, &e.Status, &e.StdoutLen, &e.StderrLen); err != nil {
			return nil, errs.WrapTask(err, errs.KindPersistence, "read-history", id)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, errs.WrapTask(err, errs.KindPersistence, "read-history", id)
	}
	return entries, nil
}

// ReadLastStdio reads id's most recent stdout or stderr snapshot.
func (s *Store) ReadLastStdio(id uint64, ext string) ([]byte, error) {
	data, err := os.ReadFile(s.layout.LastStdioPath(id, ext))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.WrapTask(errs.ErrTaskNotFound, errs.KindNotFound, "read-last-stdio", id)
		}
		return nil, errs.WrapTask(err, errs.KindPersistence, "read-last-stdio", id)
	}
	return data, nil
}
