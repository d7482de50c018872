// Package tools runs the external media tools (ffmpeg, ffprobe, ImageMagick)
// and provides the fallback ladder used by the asset and thumbnail stages.
package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024  // tail of stderr kept for diagnostics
	maxStdoutBytes = 64 * 1024 // probe output is small
)

var (
	// ErrToolMissing means the binary could not be found on PATH
	ErrToolMissing = errors.New("tool not found")
	// ErrTimeout means the command exceeded its deadline
	ErrTimeout = errors.New("tool timed out")
)

// Command is one external tool invocation
type Command struct {
	Name    string
	Args    []string
	Timeout time.Duration // 0 = bounded only by ctx
}

func (c Command) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result is the structured outcome of a finished command
type Result struct {
	ExitCode   int
	Stdout     string
	StderrTail string
	Duration   time.Duration
}

// ExitError is returned when a tool exits non-zero
type ExitError struct {
	Name       string
	ExitCode   int
	StderrTail string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited %d: %s", e.Name, e.ExitCode, truncate(e.StderrTail, 512))
}

// Runner executes external tools. Tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands as real subprocesses
type ExecRunner struct {
	Verbose bool // log every command line
}

// NewExecRunner creates an ExecRunner
func NewExecRunner(verbose bool) *ExecRunner {
	return &ExecRunner{Verbose: verbose}
}

// Run executes cmd, bounded by cmd.Timeout when set
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	start := time.Now()

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	if _, err := exec.LookPath(cmd.Name); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("%s: %w", cmd.Name, ErrToolMissing)
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	c.Stdout = io.Writer(&tailWriter{w: &stdoutBuf, limit: maxStdoutBytes})
	c.Stderr = io.Writer(&tailWriter{w: &stderrBuf, limit: maxStderrBytes})

	if r.Verbose {
		log.Printf("[tools] $ %s", cmd)
	}

	err := c.Run()
	res := Result{
		Stdout:     stdoutBuf.String(),
		StderrTail: stderrBuf.String(),
		Duration:   time.Since(start),
	}

	if ctx.Err() == context.DeadlineExceeded {
		res.ExitCode = -1
		return res, fmt.Errorf("%s after %s: %w", cmd.Name, res.Duration.Round(time.Millisecond), ErrTimeout)
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, &ExitError{Name: cmd.Name, ExitCode: res.ExitCode, StderrTail: res.StderrTail}
		}
		res.ExitCode = -1
		return res, fmt.Errorf("run %s: %w", cmd.Name, err)
	}
	return res, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// tailWriter is an io.Writer that keeps only the last `limit` bytes.
type tailWriter struct {
	w     *bytes.Buffer
	limit int
}

func (tw *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	tw.w.Write(p)
	if tw.w.Len() > tw.limit {
		b := tw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-tw.limit:]...)
		tw.w.Reset()
		tw.w.Write(tail)
	}
	return n, nil
}
