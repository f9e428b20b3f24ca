package main

import (
	"fmt"
	"strings"
)

// options is the resolved, validated set of inputs driving one request.
type options struct {
	list      bool
	shutdown  bool
	createSim bool
	createSeq bool
	createAbs bool

	remove  bool
	history bool
	stdout  bool
	stderr  bool
	taskID  uint64

	hasSchedule bool
	minutes     string
	hours       string
	weekdays    string

	commands [][]string
}

// newOptions validates that exactly one operation flag was selected and,
// for create operations, splits the trailing positional arguments into
// commands on literal "--" separators.
func newOptions(args []string) (options, error) {
	opts := options{
		list:        optList,
		shutdown:    optShutdown,
		createSim:   optCreateSim,
		createSeq:   optCreateSeq,
		createAbs:   optCreateAbs,
		remove:      sawRemove,
		history:     sawHistory,
		stdout:      sawStdout,
		stderr:      sawStderr,
		hasSchedule: optMinutes != "" || optHours != "" || optWeekdays != "",
		minutes:     optMinutes,
		hours:       optHours,
		weekdays:    optWeekdays,
	}

	switch {
	case opts.remove:
		opts.taskID = optRemoveID
	case opts.history:
		opts.taskID = optHistoryID
	case opts.stdout:
		opts.taskID = optStdoutID
	case opts.stderr:
		opts.taskID = optStderrID
	}

	count := 0
	for _, selected := range []bool{opts.list, opts.shutdown, opts.createSim, opts.createSeq, opts.createAbs, opts.remove, opts.history, opts.stdout, opts.stderr} {
		if selected {
			count++
		}
	}
	if count != 1 {
		return options{}, fmt.Errorf("exactly one operation flag must be given, got %d", count)
	}

	if opts.createSim || opts.createSeq || opts.createAbs {
		opts.commands = splitCommands(args)

		if opts.createSim && len(opts.commands) != 1 {
			return options{}, fmt.Errorf("create-simple takes exactly one command")
		}
		if opts.createSeq && len(opts.commands) == 0 {
			return options{}, fmt.Errorf("create-sequence requires at least one command")
		}
		for _, c := range opts.commands {
			if len(c) == 0 {
				return options{}, fmt.Errorf("empty command in sequence")
			}
		}
		if (opts.createSim || opts.createSeq) && !opts.hasSchedule {
			return options{}, fmt.Errorf("a schedule (-m -H -w) is required for this task type")
		}
	}

	if opts.hasSchedule {
		if len(opts.minutes) != 15 {
			return options{}, fmt.Errorf("minute mask must be 15 hex digits")
		}
		if len(opts.hours) != 6 {
			return options{}, fmt.Errorf("hour mask must be 6 hex digits")
		}
		if len(opts.weekdays) != 2 {
			return options{}, fmt.Errorf("weekday mask must be 2 hex digits")
		}
	}

	return opts, nil
}

// splitCommands groups positional arguments into commands, splitting on
// literal "--" separators left over once cobra's own leading "--" has
// already stopped flag parsing.
func splitCommands(args []string) [][]string {
	var commands [][]string
	var current []string
	for _, a := range args {
		if a == "--" {
			if len(current) > 0 {
				commands = append(commands, current)
				current = nil
			}
			continue
		}
		current = append(current, a)
	}
	if len(current) > 0 {
		commands = append(commands, current)
	}
	return commands
}

func (o options) scheduleMasks() (minutes, hours, weekdays string) {
	return strings.ToUpper(o.minutes), strings.ToUpper(o.hours), strings.ToUpper(o.weekdays)
}
