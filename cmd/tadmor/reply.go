package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"erraid/internal/common"
	"erraid/internal/proto"
)

type errorReply struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type stdioReply struct {
	Status string `json:"status"`
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
}

// renderReply writes the reply payload to out, or the error payload to
// errOut, mirroring the daemon's JSON back to the caller; for
// GET_STDOUT/GET_STDERR it additionally decodes and writes the captured
// bytes to out. An RSP_ERROR reply is surfaced as a non-nil error so the
// process exits non-zero.
func renderReply(out, errOut io.Writer, opts options, reply proto.Message) error {
	if reply.Type == common.MsgRspError {
		var e errorReply
		if err := json.Unmarshal(reply.Payload, &e); err != nil {
			fmt.Fprintln(errOut, string(reply.Payload))
		} else {
			fmt.Fprintf(errOut, "%s: %s\n", e.Code, e.Message)
		}
		return fmt.Errorf("daemon reported an error")
	}

	fmt.Fprintln(out, string(reply.Payload))

	if opts.stdout || opts.stderr {
		var sio stdioReply
		if err := json.Unmarshal(reply.Payload, &sio); err != nil {
			return fmt.Errorf("decode stdio reply: %w", err)
		}
		encoded := sio.Stdout
		if opts.stderr {
			encoded = sio.Stderr
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return fmt.Errorf("decode base64 payload: %w", err)
		}
		out.Write(decoded)
	}

	return nil
}
