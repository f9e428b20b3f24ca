package main

import (
	"encoding/json"
	"testing"

	"erraid/internal/common"
)

func TestBuildRequestList(t *testing.T) {
	msgType, payload, err := buildRequest(options{list: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != common.MsgReqListTasks {
		t.Fatalf("got type 0x%02X, want REQ_LIST_TASKS", msgType)
	}
	if string(payload) != "{}" {
		t.Fatalf("got payload %q, want {}", payload)
	}
}

func TestBuildRequestRemove(t *testing.T) {
	msgType, payload, err := buildRequest(options{remove: true, taskID: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != common.MsgReqRemove {
		t.Fatalf("got type 0x%02X, want REQ_REMOVE", msgType)
	}
	var req taskIDRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.TaskID != 5 {
		t.Fatalf("got task id %d, want 5", req.TaskID)
	}
}

func TestBuildRequestCreateSimpleWithSchedule(t *testing.T) {
	opts := options{
		createSim:   true,
		hasSchedule: true,
		minutes:     "000000000000000",
		hours:       "000000",
		weekdays:    "00",
		commands:    [][]string{{"/bin/true"}},
	}
	msgType, payload, err := buildRequest(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != common.MsgReqCreateSimple {
		t.Fatalf("got type 0x%02X, want REQ_CREATE_SIMPLE", msgType)
	}
	var req createRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Commands) != 1 || req.Schedule == nil || req.Schedule.Minutes != "000000000000000" {
		t.Fatalf("got %+v", req)
	}
}

func TestBuildRequestCreateAbstractOmitsSchedule(t *testing.T) {
	opts := options{createAbs: true, commands: [][]string{}}
	_, payload, err := buildRequest(opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var req createRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Schedule != nil {
		t.Fatalf("expected nil schedule, got %+v", req.Schedule)
	}
}
