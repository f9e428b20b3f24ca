// Package daemon implements erraid's event loop: it owns the in-memory
// task list and run plan, multiplexes the request FIFO and the signal
// bridge's wake pipe, dispatches request records to handlers, and fires
// due tasks between I/O iterations.
package daemon

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"erraid/internal/common"
	"erraid/internal/erlog"
	"erraid/internal/executor"
	"erraid/internal/paths"
	"erraid/internal/proto"
	"erraid/internal/scheduler"
	"erraid/internal/signalbridge"
	"erraid/internal/store"
)

// Daemon owns the authoritative task list, the run plan, and the four
// descriptors the event loop multiplexes.
type Daemon struct {
	layout paths.Layout
	store  *store.Store
	logger *slog.Logger
	bridge *signalbridge.Bridge

	tasks []common.Task
	plan  []common.PlanEntry

	requestReader *os.File
	requestDummy  *os.File
	reply         *os.File
}

// New constructs a Daemon rooted at layout, using logger for structured
// logging. Call Init before Run.
func New(layout paths.Layout, logger *slog.Logger) *Daemon {
	if logger == nil {
		logger = erlog.Default()
	}
	return &Daemon{
		layout: layout,
		store:  store.New(layout),
		logger: logger,
	}
}

// Init creates the directory tree and FIFOs if absent, opens the request
// and reply descriptors (holding a dummy writer on the request FIFO and
// both ends of the reply FIFO so the daemon never observes EOF), starts
// the signal bridge, and loads the persisted task list, building the
// initial plan. Any failure here is fatal.
func (d *Daemon) Init() error {
	if err := d.layout.EnsureDirs(); err != nil {
		return fmt.Errorf("daemon: init: %w", err)
	}

	if err := ensureFifo(d.layout.RequestFifo); err != nil {
		return fmt.Errorf("daemon: init: %w", err)
	}
	if err := ensureFifo(d.layout.ReplyFifo); err != nil {
		return fmt.Errorf("daemon: init: %w", err)
	}

	reader, err := os.OpenFile(d.layout.RequestFifo, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("daemon: open request pipe: %w", err)
	}
	d.requestReader = reader

	dummy, err := os.OpenFile(d.layout.RequestFifo, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("daemon: open request pipe dummy writer: %w", err)
	}
	d.requestDummy = dummy

	reply, err := os.OpenFile(d.layout.ReplyFifo, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("daemon: open reply pipe: %w", err)
	}
	d.reply = reply

	bridge, err := signalbridge.New()
	if err != nil {
		return fmt.Errorf("daemon: start signal bridge: %w", err)
	}
	d.bridge = bridge

	if err := d.reload(); err != nil {
		return fmt.Errorf("daemon: load tasks: %w", err)
	}

	return nil
}

// ensureFifo creates a FIFO at path with FileMode if it does not already
// exist, tolerating EEXIST.
func ensureFifo(path string) error {
	err := unix.Mkfifo(path, paths.FileMode)
	if err != nil && err != unix.EEXIST {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// reload reloads the task list from disk and rebuilds the plan wholesale
// from the current time; this is the "reload from disk" recovery used
// after any mid-operation persistence failure.
func (d *Daemon) reload() error {
	tasks, err := d.store.LoadAll()
	if err != nil {
		return err
	}
	d.tasks = tasks
	d.rebuildPlan()
	return nil
}

func (d *Daemon) rebuildPlan() {
	d.plan = scheduler.ComputePlan(d.tasks, time.Now().Unix())
}

// Close releases the daemon's descriptors and stops the signal bridge.
func (d *Daemon) Close() {
	if d.bridge != nil {
		d.bridge.Stop()
	}
	if d.requestReader != nil {
		d.requestReader.Close()
	}
	if d.requestDummy != nil {
		d.requestDummy.Close()
	}
	if d.reply != nil {
		d.reply.Close()
	}
}

// Run executes the main loop until a shutdown request or termination
// signal is observed.
func (d *Daemon) Run() error {
	for {
		if d.bridge.ShouldQuit() {
			return nil
		}

		timeoutMs := d.pollTimeoutMillis()

		n, err := unix.Poll(d.pollFDs(), timeoutMs)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("daemon: poll: %w", err)
		}

		if n > 0 {
			if d.wakeReadable() {
				d.bridge.Drain()
			}
			if d.requestReadable() {
				d.drainRequests()
			}
		}

		d.fireDueTasks()

		if d.bridge.ShouldQuit() {
			return nil
		}
	}
}

// pollFDs returns a fresh pollfd set for the request pipe and the wake
// pipe; unix.Poll mutates Revents in place so a new slice is built per
// call.
func (d *Daemon) pollFDs() []unix.PollFd {
	return []unix.PollFd{
		{Fd: int32(d.requestReader.Fd()), Events: unix.POLLIN},
		{Fd: int32(d.bridge.ReadFD().Fd()), Events: unix.POLLIN},
	}
}

func (d *Daemon) requestReadable() bool {
	fds := d.pollFDs()
	n, err := unix.Poll(fds[:1], 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

func (d *Daemon) wakeReadable() bool {
	fds := d.pollFDs()
	n, err := unix.Poll(fds[1:], 0)
	return err == nil && n > 0 && fds[1].Revents&unix.POLLIN != 0
}

// pollTimeoutMillis computes the main loop's poll deadline from the
// earliest plan entry, or -1 (block indefinitely) if none exist.
func (d *Daemon) pollTimeoutMillis() int {
	deadline, ok := scheduler.NextDeadline(d.plan)
	if !ok {
		return -1
	}
	now := time.Now().Unix()
	remaining := deadline - now
	if remaining < 0 {
		remaining = 0
	}
	ms := remaining * 1000
	if ms > int64(^uint(0)>>1) {
		ms = int64(^uint(0) >> 1)
	}
	return int(ms)
}

// drainRequests repeatedly reads and dispatches one record at a time,
// coalescing a burst by polling the request pipe with a zero timeout
// between dispatches, stopping when it would block.
func (d *Daemon) drainRequests() {
	for {
		msg, err := proto.ReadMessage(d.requestReader)
		if err != nil {
			d.logger.Error("protocol read failed", "error", err)
			return
		}

		d.dispatch(msg)

		if !d.requestReadable() {
			return
		}
	}
}

// fireDueTasks repeatedly scans the plan for due entries and fires them,
// stopping once a full pass finds nothing due or should_quit is set.
func (d *Daemon) fireDueTasks() {
	for !d.bridge.ShouldQuit() {
		now := time.Now().Unix()
		due := scheduler.DueEntries(d.plan, now)
		if len(due) == 0 {
			return
		}
		for _, idx := range due {
			d.fireOne(idx, now)
		}
	}
}

// fireOne runs the task named by plan[idx], persists the run's history
// and stdio snapshots, updates LastRunEpoch, and recomputes that single
// plan entry from now.
func (d *Daemon) fireOne(idx int, now int64) {
	entry := d.plan[idx]
	taskPos := d.indexOfTaskID(entry.TaskID)
	if taskPos < 0 {
		d.plan[idx].NextEpoch = common.NoOccurrence
		return
	}

	task := d.tasks[taskPos]
	result := executor.Run(task)

	histEntry := common.HistoryEntry{
		Epoch:     now,
		Status:    result.Status,
		StdoutLen: len(result.Stdout),
		StderrLen: len(result.Stderr),
	}
	if err := d.store.AppendHistory(task.ID, histEntry, result.Stdout, result.Stderr); err != nil {
		d.logger.Error("append history failed", "task_id", task.ID, "error", err)
	}

	task.LastRunEpoch = now
	d.tasks[taskPos] = task
	if err := d.store.SaveTask(task); err != nil {
		d.logger.Error("save task after fire failed", "task_id", task.ID, "error", err)
		if rerr := d.reload(); rerr != nil {
			d.logger.Error("reload after fire failure failed", "error", rerr)
		}
		return
	}

	next := common.NoOccurrence
	if occ, ok := scheduler.NextOccurrence(task.Schedule, now); ok {
		next = occ
	}
	d.plan[idx].NextEpoch = next
}

func (d *Daemon) indexOfTaskID(id uint64) int {
	for i, t := range d.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// writeReply packs and writes a reply record; a broken reply pipe is
// treated as transient and logged, not fatal.
func (d *Daemon) writeReply(msgType common.MessageType, payload []byte) {
	if err := proto.WriteMessage(d.reply, msgType, payload); err != nil {
		d.logger.Warn("reply write failed, dropping", "error", err)
	}
}

// marshalOrError is a convenience for handlers that JSON-encode a reply
// payload, mapping an encode failure onto RSP_ERROR.
func (d *Daemon) marshalOrError(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		d.logger.Error("marshal reply failed", "error", err)
		data, _ = json.Marshal(errorReply{Status: "ERROR", Code: common.CodeEncodingError, Message: "encoding error"})
	}
	return data
}
