// Package executor forks and waits on a task's commands, capturing
// bounded stdout/stderr and mapping child exit status the way the event
// loop's firing path expects.
package executor

import (
	"os/exec"
	"syscall"

	"erraid/internal/common"
)

// boundedWriter accumulates up to common.MaxCaptureBytes of data across
// possibly multiple Write calls (one per command in a SEQUENCE), setting
// truncated once the cap is reached.
type boundedWriter struct {
	buf       []byte
	truncated bool
}

func (b *boundedWriter) Write(p []byte) (int, error) {
	room := common.MaxCaptureBytes - len(b.buf)
	if room <= 0 {
		b.truncated = true
		return len(p), nil
	}
	if len(p) > room {
		b.buf = append(b.buf, p[:room]...)
		b.truncated = true
		return len(p), nil
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Run executes task's commands and returns the captured result. SIMPLE
// runs the sole command; SEQUENCE runs every command in order regardless
// of intermediate failure and records the last command's exit status;
// ABSTRACT forks nothing and returns status 0 with empty buffers.
func Run(task common.Task) common.RunResult {
	if task.Type == common.TaskAbstract || len(task.Commands) == 0 {
		return common.RunResult{Status: 0}
	}

	var stdout, stderr boundedWriter
	status := 0

	for _, cmd := range task.Commands {
		status = runOne(cmd, &stdout, &stderr)
	}

	return common.RunResult{
		Status:          status,
		Stdout:          stdout.buf,
		Stderr:          stderr.buf,
		StdoutTruncated: stdout.truncated,
		StderrTruncated: stderr.truncated,
	}
}

// runOne forks/execs a single command, appending its captured stdio into
// out and err, and returns its mapped exit status.
func runOne(command common.Command, out, err *boundedWriter) int {
	if len(command) == 0 {
		return common.ExecFailureStatus
	}

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = out
	cmd.Stderr = err

	runErr := cmd.Run()
	if runErr == nil {
		return 0
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			switch {
			case ws.Exited():
				return ws.ExitStatus()
			case ws.Signaled():
				return 128 + int(ws.Signal())
			}
		}
		return common.ExecFailureStatus
	}

	// exec itself failed (binary not found, permission denied, etc.): the
	// child never ran, which the event loop treats the same as the child
	// performing _exit(127) before returning.
	return common.ExecChildFailureStatus
}
