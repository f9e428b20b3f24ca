package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	optList      bool
	optShutdown  bool
	optCreateSim bool
	optCreateSeq bool
	optCreateAbs bool

	optRemoveID  uint64
	optHistoryID uint64
	optStdoutID  uint64
	optStderrID  uint64
	sawRemove    bool
	sawHistory   bool
	sawStdout    bool
	sawStderr    bool

	optPipesDir string
	optMinutes  string
	optHours    string
	optWeekdays string
)

var rootCmd = &cobra.Command{
	Use:           "tadmor",
	Short:         "control client for erraidd",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTadmor,
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVarP(&optList, "list", "l", false, "list tasks")
	flags.BoolVarP(&optShutdown, "shutdown", "q", false, "request daemon shutdown")
	flags.BoolVarP(&optCreateSim, "create-simple", "c", false, "create a simple task")
	flags.BoolVarP(&optCreateSeq, "create-sequence", "s", false, "create a sequence task")
	flags.BoolVarP(&optCreateAbs, "create-abstract", "n", false, "create an abstract task")

	flags.Uint64VarP(&optRemoveID, "remove", "r", 0, "remove a task by id")
	flags.Uint64VarP(&optHistoryID, "history", "x", 0, "show a task's run history")
	flags.Uint64VarP(&optStdoutID, "stdout", "o", 0, "show a task's last stdout")
	flags.Uint64VarP(&optStderrID, "stderr", "e", 0, "show a task's last stderr")

	flags.StringVarP(&optPipesDir, "pipes-dir", "p", "", "daemon pipes directory")
	flags.StringVarP(&optMinutes, "minutes", "m", "", "minute mask, 15 hex digits")
	flags.StringVarP(&optHours, "hours", "H", "", "hour mask, 6 hex digits")
	flags.StringVarP(&optWeekdays, "weekdays", "w", "", "weekday mask, 2 hex digits")
}

// runTadmor builds exactly one request from the selected operation flag,
// round-trips it over the daemon's pipes, and renders the reply.
func runTadmor(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	sawRemove = flags.Changed("remove")
	sawHistory = flags.Changed("history")
	sawStdout = flags.Changed("stdout")
	sawStderr = flags.Changed("stderr")

	opts, err := newOptions(args)
	if err != nil {
		return err
	}

	msgType, payload, err := buildRequest(opts)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	conn, err := connect(optPipesDir)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.close()

	if err := conn.send(msgType, payload); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	reply, err := conn.receive()
	if err != nil {
		return fmt.Errorf("receive reply: %w", err)
	}

	return renderReply(os.Stdout, os.Stderr, opts, reply)
}
