package daemon

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"erraid/internal/codec"
	"erraid/internal/common"
	"erraid/internal/errs"
	"erraid/internal/erlog"
	"erraid/internal/proto"
)

// codeForKind maps an errs.Kind to the wire-level RSP_ERROR code a
// handler should reply with when it has no more specific code of its
// own (e.g. HISTORY_FAILED, STDOUT_FAILED) to report.
func codeForKind(kind errs.Kind) string {
	switch kind {
	case errs.KindNotFound:
		return common.CodeTaskNotFound
	case errs.KindPersistence:
		return common.CodePersistence
	case errs.KindScheduler:
		return common.CodeScheduler
	case errs.KindProtocol, errs.KindEncoding:
		return common.CodeEncodingError
	case errs.KindUnknownRequest:
		return common.CodeUnknownRequest
	default:
		return common.CodeInvalidRequest
	}
}

// dispatch routes one request record to its handler and writes the
// reply. Every handler is infallible at the protocol level: internal
// errors become an RSP_ERROR reply and the loop continues.
func (d *Daemon) dispatch(msg proto.Message) {
	requestID := uuid.New().String()
	start := time.Now()
	logger := erlog.WithRequest(erlog.WithOperation(d.logger, msg.Type.String()), requestID)
	logger.Debug("dispatching request")

	var (
		replyType common.MessageType
		payload   []byte
	)

	switch msg.Type {
	case common.MsgPing:
		replyType, payload = common.MsgPong, d.marshalOrError(statusReply{Status: "OK"})

	case common.MsgReqListTasks:
		replyType, payload = d.handleListTasks()

	case common.MsgReqCreateSimple:
		replyType, payload = d.handleCreate(msg.Payload, common.TaskSimple)

	case common.MsgReqCreateSeq:
		replyType, payload = d.handleCreate(msg.Payload, common.TaskSequence)

	case common.MsgReqCreateAbs:
		replyType, payload = d.handleCreate(msg.Payload, common.TaskAbstract)

	case common.MsgReqRemove:
		replyType, payload = d.handleRemove(msg.Payload)

	case common.MsgReqListHistory:
		replyType, payload = d.handleListHistory(msg.Payload)

	case common.MsgReqGetStdout:
		replyType, payload = d.handleGetStdio(msg.Payload, "stdout")

	case common.MsgReqGetStderr:
		replyType, payload = d.handleGetStdio(msg.Payload, "stderr")

	case common.MsgReqShutdown:
		replyType, payload = common.MsgRspShutdown, d.marshalOrError(statusReply{Status: "OK"})
		d.writeReply(replyType, payload)
		logger.Debug("shutdown requested", "duration", time.Since(start))
		d.bridge.RequestShutdown()
		return

	default:
		unknown := errs.New(errs.KindUnknownRequest, "dispatch", "unknown request type")
		replyType, payload = d.errorPayload(codeForKind(unknown.Kind), unknown.Detail)
	}

	d.writeReply(replyType, payload)
	logger.Debug("dispatch complete", "reply_type", replyType.String(), "duration", time.Since(start))
}

// errorPayload builds an RSP_ERROR reply.
func (d *Daemon) errorPayload(code, message string) (common.MessageType, []byte) {
	return common.MsgRspError, d.marshalOrError(errorReply{Status: "ERROR", Code: code, Message: message})
}

func (d *Daemon) handleListTasks() (common.MessageType, []byte) {
	summaries := make([]taskSummary, len(d.tasks))
	for i, t := range d.tasks {
		summaries[i] = taskSummary{
			TaskID:   t.ID,
			Type:     t.Type.String(),
			LastRun:  t.LastRunEpoch,
			Schedule: toScheduleJSON(t.Schedule),
		}
	}
	return common.MsgRspListTasks, d.marshalOrError(listTasksReply{Status: "OK", Tasks: summaries})
}

// parseCreateRequest validates and converts a create payload into a Task
// for the given variant; the schedule is required for SIMPLE/SEQUENCE
// and ignored (may be null or absent) for ABSTRACT.
func parseCreateRequest(payload []byte, typ common.TaskType) (common.Task, error) {
	var req createRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return common.Task{}, errs.Wrap(err, errs.KindInvalidRequest, "parse-create")
	}

	commands := make([]common.Command, len(req.Commands))
	for i, args := range req.Commands {
		if len(args) < 1 || len(args) > common.MaxCommandArgs {
			return common.Task{}, errs.ErrInvalidCommand
		}
		commands[i] = args
	}

	switch typ {
	case common.TaskSimple:
		if len(commands) != 1 {
			return common.Task{}, errs.ErrInvalidCommandCount
		}
	case common.TaskSequence:
		if len(commands) < 1 || len(commands) > common.MaxSequenceCommands {
			return common.Task{}, errs.ErrInvalidCommandCount
		}
	case common.TaskAbstract:
		// zero or more commands allowed; schedule is ignored.
	}

	var sched common.Schedule
	if typ == common.TaskAbstract {
		sched = common.Schedule{Enabled: false}
	} else {
		if req.Schedule == nil {
			return common.Task{}, errs.ErrScheduleRequired
		}
		minuteMask, err := codec.DecodeMask(req.Schedule.Minutes, 15)
		if err != nil {
			return common.Task{}, errs.ErrInvalidSchedule
		}
		hourMask, err := codec.DecodeMask(req.Schedule.Hours, 6)
		if err != nil {
			return common.Task{}, errs.ErrInvalidSchedule
		}
		weekdayMask, err := codec.DecodeMask(req.Schedule.Weekdays, 2)
		if err != nil {
			return common.Task{}, errs.ErrInvalidSchedule
		}
		sched = common.Schedule{
			MinuteMask:  minuteMask,
			HourMask:    uint32(hourMask),
			WeekdayMask: uint8(weekdayMask),
			Enabled:     true,
		}
	}

	return common.Task{
		Type:         typ,
		Commands:     commands,
		Schedule:     sched,
		LastRunEpoch: common.NeverRun,
	}, nil
}

func (d *Daemon) handleCreate(payload []byte, typ common.TaskType) (common.MessageType, []byte) {
	task, err := parseCreateRequest(payload, typ)
	if err != nil {
		code := common.CodeInvalidRequest
		if kind, ok := errs.GetKind(err); ok {
			code = codeForKind(kind)
		}
		return d.errorPayload(code, err.Error())
	}

	id, err := d.store.AllocateID()
	if err != nil {
		if !errs.IsKind(err, errs.KindPersistence) {
			d.logger.Warn("id allocation failed with unexpected error kind", "err", err)
		}
		return d.errorPayload(common.CodePersistence, "id allocation failed")
	}
	task.ID = id

	if err := d.store.SaveTask(task); err != nil {
		if !errs.IsKind(err, errs.KindPersistence) {
			d.logger.Warn("task persist failed with unexpected error kind", "err", err)
		}
		return d.errorPayload(common.CodePersistence, "persist failed")
	}

	d.tasks = append(d.tasks, task)
	d.rebuildPlan()

	return common.MsgRspCreate, d.marshalOrError(createReply{Status: "OK", TaskID: id})
}

func (d *Daemon) handleRemove(payload []byte) (common.MessageType, []byte) {
	var req taskIDRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return d.errorPayload(common.CodeInvalidRequest, "malformed remove request")
	}

	idx := d.indexOfTaskID(req.TaskID)
	if idx < 0 {
		return d.errorPayload(common.CodeTaskNotFound, "task not found")
	}

	if err := d.store.RemoveTask(req.TaskID); err != nil {
		if !errs.IsKind(err, errs.KindPersistence) {
			d.logger.Warn("task removal failed with unexpected error kind", "err", err)
		}
		return d.errorPayload(common.CodePersistence, "remove failed")
	}

	d.tasks = append(d.tasks[:idx], d.tasks[idx+1:]...)
	d.rebuildPlan()

	return common.MsgRspRemove, d.marshalOrError(statusReply{Status: "OK"})
}

func (d *Daemon) handleListHistory(payload []byte) (common.MessageType, []byte) {
	var req taskIDRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return d.errorPayload(common.CodeInvalidRequest, "malformed history request")
	}

	// HISTORY_FAILED covers every load failure for this op regardless of
	// errs.Kind, so the reply code is fixed rather than kind-derived.
	history, err := d.store.ReadHistory(req.TaskID)
	if err != nil {
		return d.errorPayload(common.CodeHistoryFailed, "history read failed")
	}

	items := make([]historyItem, len(history))
	for i, h := range history {
		items[i] = historyItem{Epoch: h.Epoch, Status: h.Status, StdoutLen: h.StdoutLen, StderrLen: h.StderrLen}
	}
	return common.MsgRspListHistory, d.marshalOrError(listHistoryReply{Status: "OK", History: items})
}

func (d *Daemon) handleGetStdio(payload []byte, ext string) (common.MessageType, []byte) {
	var req taskIDRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return d.errorPayload(common.CodeInvalidRequest, "malformed stdio request")
	}

	// STDOUT_FAILED/STDERR_FAILED cover every load failure for this op
	// regardless of errs.Kind, so the reply code is fixed rather than
	// kind-derived, same as handleListHistory above.
	data, err := d.store.ReadLastStdio(req.TaskID, ext)
	failCode := common.CodeStdoutFailed
	replyType := common.MsgRspGetStdout
	if ext == "stderr" {
		failCode = common.CodeStderrFailed
		replyType = common.MsgRspGetStderr
	}
	if err != nil {
		return d.errorPayload(failCode, "stdio read failed")
	}

	encoded := codec.EncodeBase64(data)
	reply := stdioReply{Status: "OK"}
	if ext == "stdout" {
		reply.Stdout = encoded
	} else {
		reply.Stderr = encoded
	}
	return replyType, d.marshalOrError(reply)
}
