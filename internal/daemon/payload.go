package daemon

import (
	"erraid/internal/codec"
	"erraid/internal/common"
)

// scheduleJSON is the wire shape of a schedule in create/list payloads.
type scheduleJSON struct {
	Minutes  string `json:"minutes"`
	Hours    string `json:"hours"`
	Weekdays string `json:"weekdays"`
}

// createRequest is the payload shape for REQ_CREATE_{SIMPLE,SEQUENCE,ABSTRACT}.
type createRequest struct {
	Commands [][]string    `json:"commands"`
	Schedule *scheduleJSON `json:"schedule"`
}

// createReply is the RSP_CREATE payload.
type createReply struct {
	Status string `json:"status"`
	TaskID uint64 `json:"task_id"`
}

// taskIDRequest is the payload shape for REQ_REMOVE, REQ_LIST_HISTORY,
// REQ_GET_STDOUT, and REQ_GET_STDERR.
type taskIDRequest struct {
	TaskID uint64 `json:"task_id"`
}

// statusReply is a bare status reply, used for PONG and RSP_REMOVE/RSP_SHUTDOWN.
type statusReply struct {
	Status string `json:"status"`
}

// taskSummary is one entry in a RSP_LIST_TASKS reply.
type taskSummary struct {
	TaskID   uint64       `json:"task_id"`
	Type     string       `json:"type"`
	LastRun  int64        `json:"last_run"`
	Schedule scheduleJSON `json:"schedule"`
}

// listTasksReply is the RSP_LIST_TASKS payload.
type listTasksReply struct {
	Status string        `json:"status"`
	Tasks  []taskSummary `json:"tasks"`
}

// historyItem is one entry in a RSP_LIST_HISTORY reply.
type historyItem struct {
	Epoch     int64 `json:"epoch"`
	Status    int   `json:"status"`
	StdoutLen int   `json:"stdout_len"`
	StderrLen int   `json:"stderr_len"`
}

// listHistoryReply is the RSP_LIST_HISTORY payload.
type listHistoryReply struct {
	Status  string        `json:"status"`
	History []historyItem `json:"history"`
}

// stdioReply is the RSP_GET_STDOUT/RSP_GET_STDERR payload; only one of
// Stdout/Stderr is populated depending on message type.
type stdioReply struct {
	Status string `json:"status"`
	Stdout string `json:"stdout,omitempty"`
	Stderr string `json:"stderr,omitempty"`
}

// errorReply is the RSP_ERROR payload.
type errorReply struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toScheduleJSON(s common.Schedule) scheduleJSON {
	return scheduleJSON{
		Minutes:  codec.EncodeMask(s.MinuteMask, 15),
		Hours:    codec.EncodeMask(uint64(s.HourMask), 6),
		Weekdays: codec.EncodeMask(uint64(s.WeekdayMask), 2),
	}
}
