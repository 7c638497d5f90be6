// Package ptysession maintains named interactive PTY/pipe shell sessions
// that persist across tool calls within a conversation.
//
// Corresponds to: codex-rs/core/src/unified_exec/ (session table, reader
// task, output accumulation).
package ptysession

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creack/pty"
)

// pollInterval is how often CollectOutput checks for new output.
const pollInterval = 25 * time.Millisecond

// exitGrace is how long CollectOutput keeps draining output after the
// child exits before returning, per the spec's "25 ms grace window after
// exit".
const exitGrace = 25 * time.Millisecond

// ErrStdinClosed is returned by Write when the session has no stdin to
// write to (neither a PTY file nor a stdin pipe).
var ErrStdinClosed = errors.New("stdin is closed")

// SessionID identifies a registered PTY session within a manager.
type SessionID int64

// SessionOpts configures a new session.
type SessionOpts struct {
	Command []string // [program, args...]
	Cwd     string
	Env     []string // full environment; nil means inherit
	TTY     bool
}

// Session wraps a running process (PTY or pipes) with background output
// collection. Sessions persist in worker memory across activity calls.
//
// Maps to: codex-rs/core/src/unified_exec/process.rs UnifiedExecProcess
type Session struct {
	ID        SessionID
	Command   []string
	Cwd       string
	TTY       bool
	StartedAt time.Time
	LastUsed  time.Time

	cmd       *exec.Cmd
	ptyFile   *os.File
	stdinPipe io.WriteCloser
	outputBuf *HeadTailBuffer
	exitCode  atomic.Int32
	exited    atomic.Bool
	exitCh    chan struct{}
	readerWg  sync.WaitGroup
	mu        sync.Mutex
}

// startSession spawns a process and returns a session for interacting with
// it. id is assigned by the owning Manager.
func startSession(id SessionID, opts SessionOpts) (*Session, error) {
	if len(opts.Command) == 0 {
		return nil, errors.New("empty command")
	}

	s := &Session{
		ID:        id,
		Command:   opts.Command,
		Cwd:       opts.Cwd,
		TTY:       opts.TTY,
		StartedAt: time.Now(),
		LastUsed:  time.Now(),
		outputBuf: NewHeadTailBuffer(DefaultMaxBytes),
		exitCh:    make(chan struct{}),
	}
	s.exitCode.Store(-1) // sentinel: not exited yet

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	if opts.Cwd != "" {
		cmd.Dir = opts.Cwd
	}
	if opts.Env != nil {
		cmd.Env = opts.Env
	}
	s.cmd = cmd

	var err error
	if opts.TTY {
		err = s.startPTY(cmd)
	} else {
		err = s.startPipes(cmd)
	}
	if err != nil {
		return nil, err
	}

	go s.waitForExit()
	return s, nil
}

func (s *Session) startPTY(cmd *exec.Cmd) error {
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: 24, Cols: 80})
	if err != nil {
		return err
	}
	s.ptyFile = ptmx
	s.readerWg.Add(1)
	go s.readLoop(ptmx)
	return nil
}

func (s *Session) startPipes(cmd *exec.Cmd) error {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	s.stdinPipe = stdin

	if err := cmd.Start(); err != nil {
		return err
	}

	s.readerWg.Add(2)
	go s.readLoop(stdout)
	go s.readLoop(stderr)
	return nil
}

func (s *Session) readLoop(r io.Reader) {
	defer s.readerWg.Done()
	buf := make([]byte, 8192)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			s.outputBuf.Push(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

func (s *Session) waitForExit() {
	// cmd.Wait() closes pipe read ends; readers must drain first (see
	// os/exec.Cmd.StdoutPipe docs).
	s.readerWg.Wait()
	err := s.cmd.Wait()

	code := -1
	if err == nil {
		code = 0
	} else {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		}
	}
	s.exitCode.Store(int32(code))
	s.exited.Store(true)
	close(s.exitCh)
}

// Write sends data to the process's stdin.
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.TTY {
		if s.ptyFile == nil {
			return ErrStdinClosed
		}
		_, err := s.ptyFile.Write(data)
		return err
	}
	if s.stdinPipe == nil {
		return ErrStdinClosed
	}
	_, err := s.stdinPipe.Write(data)
	return err
}

// CollectOutput waits until the deadline for new output, returning a
// middle-truncated snapshot of everything accumulated so far. If heartbeat
// is non-nil, it is called roughly every 5 seconds during the wait.
func (s *Session) CollectOutput(deadline time.Time, heartbeat func(details ...interface{})) []byte {
	mark := s.outputBuf.TotalWritten()
	heartbeatInterval := 5 * time.Second
	lastHeartbeat := time.Now()
	var exitedAt time.Time

	for {
		now := time.Now()
		if s.HasExited() {
			if exitedAt.IsZero() {
				exitedAt = now
			}
			if now.Sub(exitedAt) >= exitGrace {
				break
			}
		} else if now.After(deadline) {
			break
		}

		if heartbeat != nil && now.Sub(lastHeartbeat) >= heartbeatInterval {
			heartbeat("collecting output")
			lastHeartbeat = now
		}

		time.Sleep(pollInterval)
	}

	_ = mark
	s.mu.Lock()
	s.LastUsed = time.Now()
	s.mu.Unlock()

	return s.outputBuf.Snapshot()
}

// HasExited returns true if the process has terminated.
func (s *Session) HasExited() bool {
	return s.exited.Load()
}

// ExitCode returns the exit code, or nil if the process is still running.
func (s *Session) ExitCode() *int {
	if !s.exited.Load() {
		return nil
	}
	code := int(s.exitCode.Load())
	return &code
}

// Close terminates the process and releases its resources.
func (s *Session) Close() {
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	if s.ptyFile != nil {
		_ = s.ptyFile.Close()
	}
	if s.stdinPipe != nil {
		_ = s.stdinPipe.Close()
	}
}
