package main

import (
	"encoding/json"
	"fmt"

	"erraid/internal/common"
)

// scheduleJSON mirrors the daemon's wire shape for a schedule.
type scheduleJSON struct {
	Minutes  string `json:"minutes"`
	Hours    string `json:"hours"`
	Weekdays string `json:"weekdays"`
}

type createRequest struct {
	Commands [][]string    `json:"commands"`
	Schedule *scheduleJSON `json:"schedule"`
}

type taskIDRequest struct {
	TaskID uint64 `json:"task_id"`
}

// buildRequest translates validated options into exactly one message
// type and JSON payload.
func buildRequest(opts options) (common.MessageType, []byte, error) {
	switch {
	case opts.list:
		return common.MsgReqListTasks, []byte("{}"), nil

	case opts.shutdown:
		return common.MsgReqShutdown, []byte("{}"), nil

	case opts.remove:
		return marshalFixed(common.MsgReqRemove, taskIDRequest{TaskID: opts.taskID})

	case opts.history:
		return marshalFixed(common.MsgReqListHistory, taskIDRequest{TaskID: opts.taskID})

	case opts.stdout:
		return marshalFixed(common.MsgReqGetStdout, taskIDRequest{TaskID: opts.taskID})

	case opts.stderr:
		return marshalFixed(common.MsgReqGetStderr, taskIDRequest{TaskID: opts.taskID})

	case opts.createSim:
		return buildCreateRequest(common.MsgReqCreateSimple, opts)

	case opts.createSeq:
		return buildCreateRequest(common.MsgReqCreateSeq, opts)

	case opts.createAbs:
		return buildCreateRequest(common.MsgReqCreateAbs, opts)
	}

	return 0, nil, fmt.Errorf("no operation selected")
}

func buildCreateRequest(msgType common.MessageType, opts options) (common.MessageType, []byte, error) {
	req := createRequest{Commands: opts.commands}
	if opts.hasSchedule {
		minutes, hours, weekdays := opts.scheduleMasks()
		req.Schedule = &scheduleJSON{Minutes: minutes, Hours: hours, Weekdays: weekdays}
	}
	return marshalFixed(msgType, req)
}

func marshalFixed(msgType common.MessageType, v any) (common.MessageType, []byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return 0, nil, err
	}
	return msgType, payload, nil
}
