// Package paths derives the on-disk directory tree and file names used by
// the daemon from a single root directory.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultRundirPrefix is the fallback base directory for the daemon's
// root when none is configured explicitly.
const DefaultRundirPrefix = "/tmp"

// DefaultRundirSuffix is appended to the current user name to form the
// conventional default root, "/tmp/<user>/erraid".
const DefaultRundirSuffix = "/erraid"

// DirMode is the mode applied to every directory the daemon creates.
const DirMode = 0700

// FileMode is the mode applied to every regular file and FIFO the daemon
// creates.
const FileMode = 0600

// RequestFifoName is the file name of the request control FIFO.
const RequestFifoName = "erraid-request-pipe"

// ReplyFifoName is the file name of the reply control FIFO.
const ReplyFifoName = "erraid-reply-pipe"

// NextIDFile is the file name of the task id allocation counter.
const NextIDFile = "next_id"

// Layout is the resolved set of directories and file paths derived from a
// root directory.
type Layout struct {
	Root        string
	TasksDir    string
	LogsDir     string
	StateDir    string
	PipesDir    string
	NextIDPath  string
	RequestFifo string
	ReplyFifo   string
}

// DefaultRoot resolves the conventional default root directory,
// "<RUNDIR_PREFIX>/<user><RUNDIR_SUFFIX>", using the current user's name.
func DefaultRoot() (string, error) {
	u := os.Getenv("USER")
	if u == "" {
		u = os.Getenv("LOGNAME")
	}
	if u == "" {
		return "", fmt.Errorf("paths: cannot determine current user for default root")
	}
	return filepath.Join(DefaultRundirPrefix, u+DefaultRundirSuffix), nil
}

// NewLayout derives a Layout from the given root directory.
func NewLayout(root string) Layout {
	tasksDir := filepath.Join(root, "tasks")
	logsDir := filepath.Join(root, "logs")
	stateDir := filepath.Join(root, "state")
	pipesDir := filepath.Join(root, "pipes")

	return Layout{
		Root:        root,
		TasksDir:    tasksDir,
		LogsDir:     logsDir,
		StateDir:    stateDir,
		PipesDir:    pipesDir,
		NextIDPath:  filepath.Join(tasksDir, NextIDFile),
		RequestFifo: filepath.Join(pipesDir, RequestFifoName),
		ReplyFifo:   filepath.Join(pipesDir, ReplyFifoName),
	}
}

// EnsureDirs creates the root and its four subdirectories with DirMode if
// they do not already exist.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.Root, l.TasksDir, l.LogsDir, l.StateDir, l.PipesDir} {
		if err := os.MkdirAll(dir, DirMode); err != nil {
			return fmt.Errorf("paths: create %s: %w", dir, err)
		}
	}
	return nil
}

// TaskFilePath returns the path to the persisted task file for id.
func (l Layout) TaskFilePath(id uint64) string {
	return filepath.Join(l.TasksDir, fmt.Sprintf("%d.task", id))
}

// TaskFileTmpPath returns the path used for the atomic-write staging file
// for id's task file.
func (l Layout) TaskFileTmpPath(id uint64) string {
	return l.TaskFilePath(id) + ".tmp"
}

// TaskLogDir returns the per-task log directory for id.
func (l Layout) TaskLogDir(id uint64) string {
	return filepath.Join(l.LogsDir, fmt.Sprintf("%d", id))
}

// HistoryLogPath returns the path to id's append-only history log.
func (l Layout) HistoryLogPath(id uint64) string {
	return filepath.Join(l.TaskLogDir(id), "history.log")
}

// LastStdioPath returns the path to id's most recent stdout or stderr
// file; ext must be "stdout" or "stderr".
func (l Layout) LastStdioPath(id uint64, ext string) string {
	return filepath.Join(l.TaskLogDir(id), "last."+ext)
}

// SnapshotPath returns the path for a rotated snapshot at the given
// epoch and de-duplication counter (0 means no suffix); ext must be
// "stdout" or "stderr".
func (l Layout) SnapshotPath(id uint64, epoch int64, counter int, ext string) string {
	name := fmt.Sprintf("snapshot-%d", epoch)
	if counter > 0 {
		name += fmt.Sprintf("-%d", counter)
	}
	name += "." + ext
	return filepath.Join(l.TaskLogDir(id), name)
}
