// Package common defines the shared types and wire constants used across
// the erraid daemon and client: task variants, schedules, message type
// codes, and the protocol's size limits.
package common

// TaskType identifies a task's execution variant.
type TaskType int

const (
	// TaskSimple runs exactly one command on each fire.
	TaskSimple TaskType = iota
	// TaskSequence runs an ordered chain of commands on each fire.
	TaskSequence
	// TaskAbstract never fires; it exists as an inert placeholder.
	TaskAbstract
)

// String returns the wire/text representation of a task type.
func (t TaskType) String() string {
	switch t {
	case TaskSimple:
		return "SIMPLE"
	case TaskSequence:
		return "SEQUENCE"
	case TaskAbstract:
		return "ABSTRACT"
	default:
		return "UNKNOWN"
	}
}

// ParseTaskType parses the text representation of a task type.
func ParseTaskType(s string) (TaskType, bool) {
	switch s {
	case "SIMPLE":
		return TaskSimple, true
	case "SEQUENCE":
		return TaskSequence, true
	case "ABSTRACT":
		return TaskAbstract, true
	default:
		return 0, false
	}
}

// Command is a single executable invocation: an ordered list of argument
// strings with 1 <= len(Command) <= MaxCommandArgs.
type Command []string

// Schedule holds the three calendar bitmasks that determine a task's fire
// minutes, plus whether the schedule is active at all.
type Schedule struct {
	// MinuteMask has bit m set when minute m (0..59) is allowed.
	MinuteMask uint64
	// HourMask has bit h set when hour h (0..23) is allowed.
	HourMask uint32
	// WeekdayMask has bit 0 set for Sunday through bit 6 for Saturday.
	WeekdayMask uint8
	// Enabled indicates whether the schedule ever fires.
	Enabled bool
}

// Task is a persisted, schedulable unit of work.
type Task struct {
	// ID is the monotonically allocated identifier.
	ID uint64
	// Type is the task's execution variant.
	Type TaskType
	// Commands holds the task's command sequence; length and emptiness
	// rules are enforced per Type (see MODULE invariants).
	Commands []Command
	// Schedule governs when the task fires; disabled for ABSTRACT tasks.
	Schedule Schedule
	// LastRunEpoch is the Unix timestamp of the most recent firing, or -1
	// if the task has never fired.
	LastRunEpoch int64
}

// NeverRun is the sentinel LastRunEpoch value for a task that has not yet
// fired.
const NeverRun int64 = -1

// PlanEntry is the scheduler's in-memory projection of a single task's
// next fire time.
type PlanEntry struct {
	// TaskID is the task this entry tracks.
	TaskID uint64
	// TaskIndex is the task's position within the daemon's task list at
	// the time the plan was built.
	TaskIndex int
	// NextEpoch is the next fire time, or NoOccurrence if none exists
	// within the search horizon.
	NextEpoch int64
}

// NoOccurrence is the PlanEntry.NextEpoch sentinel meaning "will not fire
// in the foreseeable future".
const NoOccurrence int64 = -1

// HistoryEntry is one append-only record of a task firing.
type HistoryEntry struct {
	// Epoch is when the run fired.
	Epoch int64
	// Status is the child's exit status: 0..255 for normal exit, 128+n
	// for termination by signal n, or -1 if the executor itself failed.
	Status int
	// StdoutLen is the number of captured stdout bytes.
	StdoutLen int
	// StderrLen is the number of captured stderr bytes.
	StderrLen int
}

// ExecFailureStatus is the HistoryEntry.Status sentinel recorded when the
// executor itself could not run or wait on a command.
const ExecFailureStatus = -1

// ExecChildFailureStatus is the status recorded when a child process could
// not exec its command at all.
const ExecChildFailureStatus = 127

// RunResult is the executor's outcome for one task firing.
type RunResult struct {
	Status           int
	Stdout           []byte
	Stderr           []byte
	StdoutTruncated  bool
	StderrTruncated  bool
}

// Limits matching the wire protocol and executor bounds.
const (
	// MaxCommandArgs is the maximum number of arguments in one command.
	MaxCommandArgs = 16
	// MaxSequenceCommands is the maximum number of commands in a SEQUENCE task.
	MaxSequenceCommands = 16
	// MaxPayloadLen is the maximum allowed payload length; payloads at or
	// above this size are rejected.
	MaxPayloadLen = 4096
	// MaxCaptureBytes is the per-stream stdio capture bound per task run.
	MaxCaptureBytes = 65536
	// MaxSnapshotsPerExt is the number of rotated snapshot files retained
	// per stream extension.
	MaxSnapshotsPerExt = 5
	// SearchHorizonSteps bounds next_occurrence's probing: one year of
	// minute-aligned steps.
	SearchHorizonSteps = 366 * 24 * 60
)

// MessageType identifies a framed protocol record's purpose.
type MessageType uint8

// Wire message type codes, per the protocol's fixed header layout.
const (
	MsgPing             MessageType = 0x01
	MsgPong             MessageType = 0x02
	MsgReqListTasks     MessageType = 0x10
	MsgRspListTasks     MessageType = 0x11
	MsgReqCreateSimple  MessageType = 0x20
	MsgReqCreateSeq     MessageType = 0x21
	MsgReqCreateAbs     MessageType = 0x22
	MsgRspCreate        MessageType = 0x23
	MsgReqRemove        MessageType = 0x30
	MsgRspRemove        MessageType = 0x31
	MsgReqListHistory   MessageType = 0x40
	MsgRspListHistory   MessageType = 0x41
	MsgReqGetStdout     MessageType = 0x50
	MsgRspGetStdout     MessageType = 0x51
	MsgReqGetStderr     MessageType = 0x52
	MsgRspGetStderr     MessageType = 0x53
	MsgReqShutdown      MessageType = 0x60
	MsgRspShutdown      MessageType = 0x61
	MsgRspError         MessageType = 0x7F
)

// String returns a human-readable name for a message type, for logging.
func (m MessageType) String() string {
	switch m {
	case MsgPing:
		return "PING"
	case MsgPong:
		return "PONG"
	case MsgReqListTasks:
		return "REQ_LIST_TASKS"
	case MsgRspListTasks:
		return "RSP_LIST_TASKS"
	case MsgReqCreateSimple:
		return "REQ_CREATE_SIMPLE"
	case MsgReqCreateSeq:
		return "REQ_CREATE_SEQUENCE"
	case MsgReqCreateAbs:
		return "REQ_CREATE_ABSTRACT"
	case MsgRspCreate:
		return "RSP_CREATE"
	case MsgReqRemove:
		return "REQ_REMOVE"
	case MsgRspRemove:
		return "RSP_REMOVE"
	case MsgReqListHistory:
		return "REQ_LIST_HISTORY"
	case MsgRspListHistory:
		return "RSP_LIST_HISTORY"
	case MsgReqGetStdout:
		return "REQ_GET_STDOUT"
	case MsgRspGetStdout:
		return "RSP_GET_STDOUT"
	case MsgReqGetStderr:
		return "REQ_GET_STDERR"
	case MsgRspGetStderr:
		return "RSP_GET_STDERR"
	case MsgReqShutdown:
		return "REQ_SHUTDOWN"
	case MsgRspShutdown:
		return "RSP_SHUTDOWN"
	case MsgRspError:
		return "RSP_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error codes surfaced in RSP_ERROR replies.
const (
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeTaskNotFound    = "TASK_NOT_FOUND"
	CodePersistence     = "PERSISTENCE_ERROR"
	CodeMemory          = "MEMORY_ERROR"
	CodeScheduler       = "SCHEDULER_ERROR"
	CodeListFailed      = "LIST_FAILED"
	CodeHistoryFailed   = "HISTORY_FAILED"
	CodeStdoutFailed    = "STDOUT_FAILED"
	CodeStderrFailed    = "STDERR_FAILED"
	CodeUnknownRequest  = "UNKNOWN_REQUEST"
	CodeEncodingError   = "ENCODING_ERROR"
)

// Protocol framing constants.
const (
	// Magic is the fixed 4-byte header magic, "ERID" read little-endian.
	Magic uint32 = 0x44495245
	// Version is the only supported header version.
	Version uint8 = 0x01
	// HeaderLen is the fixed size, in bytes, of the framing header.
	HeaderLen = 12
)
