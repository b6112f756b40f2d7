// Package cliexec runs external commands on behalf of workflow nodes with a
// hard timeout and capped output capture. The working directory must have
// passed the filesystem capability check before a request reaches this
// package; that is the caller's obligation.
package cliexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/gridnote/studio/internal/ctxlog"
)

// DefaultMaxOutputBytes caps captured stdout/stderr when a request does not
// set its own limit.
const DefaultMaxOutputBytes = 1 << 20

// Request describes one command invocation.
type Request struct {
	Command        string
	Args           []string
	Cwd            string
	Env            map[string]string
	TimeoutMs      int
	MaxOutputBytes int
}

// Response is the structured result of an invocation. A timeout is reported
// through TimedOut rather than an error; callers decide whether that is
// fatal for them.
type Response struct {
	ExitCode int
	Stdout   string
	Stderr   string
	TimedOut bool
}

// Runner abstracts command execution so node tests can substitute a fake.
type Runner interface {
	Run(ctx context.Context, req Request) (Response, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes the request. It returns an error only for environmental
// failures (missing binary, cancelled run, unstartable process); a non-zero
// exit or a timeout is a normal Response.
func (ExecRunner) Run(ctx context.Context, req Request) (Response, error) {
	if req.Command == "" {
		return Response{}, errors.New("cliexec: empty command")
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if req.TimeoutMs > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	maxBytes := req.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	cmd.Dir = req.Cwd
	if len(req.Env) > 0 {
		env := cmd.Environ()
		for k, v := range req.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	stdout := newCappedBuffer(maxBytes)
	stderr := newCappedBuffer(maxBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	logger := ctxlog.FromContext(ctx).With("command", req.Command)
	logger.Debug("Running external command.", "args", req.Args, "cwd", req.Cwd, "timeoutMs", req.TimeoutMs)

	err := cmd.Run()

	resp := Response{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	switch {
	case err == nil:
		return resp, nil
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		// The per-request budget expired; the run itself is still live.
		resp.TimedOut = true
		resp.ExitCode = -1
		logger.Warn("External command timed out.", "timeoutMs", req.TimeoutMs)
		return resp, nil
	case ctx.Err() != nil:
		return Response{}, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		resp.ExitCode = exitErr.ExitCode()
		return resp, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		return Response{}, fmt.Errorf("command %q not found: install it or add it to PATH", req.Command)
	}
	return Response{}, fmt.Errorf("run %q: %w", req.Command, err)
}

// ProcessExitError is returned by Response.ExitError when a command exited
// non-zero and the caller treats that as fatal.
type ProcessExitError struct {
	Command  string
	ExitCode int
	Stderr   string
	Stdout   string
}

func (e *ProcessExitError) Error() string {
	detail := strings.TrimSpace(e.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(e.Stdout)
	}
	if detail != "" {
		detail = truncate(detail, 512)
		return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, detail)
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// ExitError converts a non-zero exit into a ProcessExitError; it returns nil
// for a zero exit. Timeouts are not covered here, callers inspect TimedOut.
func (r Response) ExitError(command string) error {
	if r.ExitCode == 0 {
		return nil
	}
	return &ProcessExitError{Command: command, ExitCode: r.ExitCode, Stderr: r.Stderr, Stdout: r.Stdout}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// cappedBuffer keeps at most max bytes and silently drops the rest.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	remaining := b.max - b.buf.Len()
	if remaining > 0 {
		if len(p) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	// Report full consumption so the child process never sees a write error.
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	return b.buf.String()
}
