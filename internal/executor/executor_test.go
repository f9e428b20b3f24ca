package executor

import (
	"strings"
	"testing"

	"erraid/internal/common"
)

func TestRunAbstractTaskDoesNotFork(t *testing.T) {
	task := common.Task{Type: common.TaskAbstract}
	result := Run(task)
	if result.Status != 0 || len(result.Stdout) != 0 || len(result.Stderr) != 0 {
		t.Fatalf("expected empty zero-status result, got %+v", result)
	}
}

func TestRunSimpleCapturesStdout(t *testing.T) {
	task := common.Task{
		Type:     common.TaskSimple,
		Commands: []common.Command{{"/bin/sh", "-c", "echo hello"}},
	}
	result := Run(task)
	if result.Status != 0 {
		t.Fatalf("got status %d, want 0", result.Status)
	}
	if strings.TrimSpace(string(result.Stdout)) != "hello" {
		t.Fatalf("got stdout %q, want hello", result.Stdout)
	}
}

func TestRunSimpleNonZeroExit(t *testing.T) {
	task := common.Task{
		Type:     common.TaskSimple,
		Commands: []common.Command{{"/bin/sh", "-c", "exit 2"}},
	}
	result := Run(task)
	if result.Status != 2 {
		t.Fatalf("got status %d, want 2", result.Status)
	}
}

func TestRunSequenceConcatenatesAndUsesLastStatus(t *testing.T) {
	task := common.Task{
		Type: common.TaskSequence,
		Commands: []common.Command{
			{"/bin/sh", "-c", "echo A"},
			{"/bin/sh", "-c", "echo B; exit 2"},
			{"/bin/sh", "-c", "echo C"},
		},
	}
	result := Run(task)
	if result.Status != 0 {
		t.Fatalf("got status %d, want 0 (last command's status)", result.Status)
	}
	if string(result.Stdout) != "A\nB\nC\n" {
		t.Fatalf("got stdout %q, want A\\nB\\nC\\n", result.Stdout)
	}
}

func TestRunExecFailureYieldsChildFailureStatus(t *testing.T) {
	task := common.Task{
		Type:     common.TaskSimple,
		Commands: []common.Command{{"/no/such/binary-xyz"}},
	}
	result := Run(task)
	if result.Status != common.ExecChildFailureStatus {
		t.Fatalf("got status %d, want %d", result.Status, common.ExecChildFailureStatus)
	}
}

func TestRunTruncatesOversizeStdout(t *testing.T) {
	task := common.Task{
		Type:     common.TaskSimple,
		Commands: []common.Command{{"/bin/sh", "-c", "head -c 200000 /dev/zero | tr '\\0' 'x'"}},
	}
	result := Run(task)
	if len(result.Stdout) != common.MaxCaptureBytes {
		t.Fatalf("got %d captured bytes, want %d", len(result.Stdout), common.MaxCaptureBytes)
	}
	if !result.StdoutTruncated {
		t.Fatal("expected StdoutTruncated to be set")
	}
}
