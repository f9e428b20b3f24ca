package main

import (
	"fmt"
	"os"
	"path/filepath"

	"erraid/internal/common"
	"erraid/internal/paths"
	"erraid/internal/proto"
)

// connection holds the two FIFO descriptors for one request/reply
// round trip.
type connection struct {
	request *os.File
	reply   *os.File
}

// connect opens the request pipe for writing and the reply pipe for
// reading, under the given pipes directory (or the conventional default
// if empty).
func connect(pipesDirArg string) (*connection, error) {
	pipesDir, err := resolvePipesDir(pipesDirArg)
	if err != nil {
		return nil, err
	}

	requestPath := filepath.Join(pipesDir, paths.RequestFifoName)
	replyPath := filepath.Join(pipesDir, paths.ReplyFifoName)

	request, err := os.OpenFile(requestPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open request pipe %s: %w", requestPath, err)
	}

	reply, err := os.OpenFile(replyPath, os.O_RDONLY, 0)
	if err != nil {
		request.Close()
		return nil, fmt.Errorf("open reply pipe %s: %w", replyPath, err)
	}

	return &connection{request: request, reply: reply}, nil
}

// resolvePipesDir returns pipesDirArg verbatim if set, otherwise the
// pipes directory under the conventional default root.
func resolvePipesDir(pipesDirArg string) (string, error) {
	if pipesDirArg != "" {
		return pipesDirArg, nil
	}
	root, err := paths.DefaultRoot()
	if err != nil {
		return "", fmt.Errorf("resolve default pipes directory: %w", err)
	}
	return paths.NewLayout(root).PipesDir, nil
}

func (c *connection) send(msgType common.MessageType, payload []byte) error {
	return proto.WriteMessage(c.request, msgType, payload)
}

func (c *connection) receive() (proto.Message, error) {
	return proto.ReadMessage(c.reply)
}

func (c *connection) close() {
	c.request.Close()
	c.reply.Close()
}
