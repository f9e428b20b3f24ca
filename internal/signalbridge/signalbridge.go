// Package signalbridge converts termination and broken-pipe signals into
// a loop-visible quit flag and a wake byte, via a self-pipe, so that no
// signal-unsafe work runs inside the handler itself.
package signalbridge

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// Bridge owns the self-pipe and the should_quit flag observed by the
// event loop.
type Bridge struct {
	read  *os.File
	write *os.File

	shouldQuit atomic.Bool
	sigCh      chan os.Signal
	done       chan struct{}
}

// New creates a self-pipe and starts watching SIGINT, SIGTERM, and
// SIGPIPE. SIGINT/SIGTERM set the quit flag and wake the loop; SIGPIPE
// only wakes it.
func New() (*Bridge, error) {
	fds := make([]int, 2)
	if err := syscall.Pipe(fds); err != nil {
		return nil, err
	}

	// Wrap the descriptors while they are still blocking so os.NewFile does
	// not hand them to the runtime poller; once switched to non-blocking,
	// reads and writes then return EAGAIN instead of parking the caller.
	b := &Bridge{
		read:  os.NewFile(uintptr(fds[0]), "erraid-wake-read"),
		write: os.NewFile(uintptr(fds[1]), "erraid-wake-write"),
		sigCh: make(chan os.Signal, 4),
		done:  make(chan struct{}),
	}
	if err := syscall.SetNonblock(fds[0], true); err != nil {
		return nil, err
	}
	if err := syscall.SetNonblock(fds[1], true); err != nil {
		return nil, err
	}

	signal.Notify(b.sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGPIPE)
	go b.watch()

	return b, nil
}

func (b *Bridge) watch() {
	for {
		select {
		case sig, ok := <-b.sigCh:
			if !ok {
				return
			}
			if sig == syscall.SIGINT || sig == syscall.SIGTERM {
				b.shouldQuit.Store(true)
			}
			b.wake()
		case <-b.done:
			return
		}
	}
}

// wake writes one byte to the self-pipe, ignoring errors from a full
// buffer (the loop only needs to be told "something happened" once).
func (b *Bridge) wake() {
	b.write.Write([]byte{0})
}

// ReadFD returns the self-pipe's readable end, suitable for inclusion in
// a poll/select set alongside the request pipe.
func (b *Bridge) ReadFD() *os.File {
	return b.read
}

// Drain discards any pending bytes on the self-pipe's readable end.
func (b *Bridge) Drain() {
	buf := make([]byte, 64)
	for {
		n, err := b.read.Read(buf)
		if n == 0 || err != nil {
			return
		}
	}
}

// ShouldQuit reports whether a termination signal has been observed.
func (b *Bridge) ShouldQuit() bool {
	return b.shouldQuit.Load()
}

// RequestShutdown sets the quit flag directly, for use by the request
// dispatcher handling an explicit shutdown request (as opposed to a
// termination signal).
func (b *Bridge) RequestShutdown() {
	b.shouldQuit.Store(true)
}

// Stop uninstalls the signal handlers and closes the self-pipe.
func (b *Bridge) Stop() {
	signal.Stop(b.sigCh)
	close(b.done)
	b.read.Close()
	b.write.Close()
}
