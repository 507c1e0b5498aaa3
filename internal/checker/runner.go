package checker

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"time"
)

// defaultMaxOutputBytes caps captured stdout/stderr per job (10MB).
// Mathlib-sized error cascades can otherwise dwarf the results file.
const defaultMaxOutputBytes = 10 * 1024 * 1024

// runResult is the raw outcome of one subprocess run.
// A non-zero exit code is a result, not an infrastructure error: the Lean
// frontend exits 1 whenever the unit has elaboration errors.
type runResult struct {
	Stdout     string
	Stderr     string
	ExitCode   int
	Killed     bool
	KillReason string
	Err        string // infrastructure-level failure (binary missing, etc.)
	Duration   time.Duration
}

// commandRunner abstracts subprocess execution so scheduler tests can
// substitute a stub.
type commandRunner interface {
	Run(ctx context.Context, binary string, args []string, dir string, timeout time.Duration) runResult
}

// execRunner runs commands directly on the host via os/exec.
type execRunner struct {
	maxOutputBytes int64
}

func newExecRunner() *execRunner {
	return &execRunner{maxOutputBytes: defaultMaxOutputBytes}
}

func (r *execRunner) Run(ctx context.Context, binary string, args []string, dir string, timeout time.Duration) runResult {
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, binary, args...)
	cmd.Dir = dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &limitedWriter{w: &stdoutBuf, max: r.maxOutputBytes}
	cmd.Stderr = &limitedWriter{w: &stderrBuf, max: r.maxOutputBytes}

	start := time.Now()
	err := cmd.Run()

	result := runResult{
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		ExitCode: 0,
		Duration: time.Since(start),
	}

	if err != nil {
		switch {
		case execCtx.Err() == context.DeadlineExceeded:
			result.Killed = true
			result.KillReason = "timeout after " + timeout.String()
		case execCtx.Err() == context.Canceled:
			result.Killed = true
			result.KillReason = "context canceled"
		default:
			if exitErr, ok := err.(*exec.ExitError); ok {
				result.ExitCode = exitErr.ExitCode()
			} else {
				result.ExitCode = -1
				result.Err = err.Error()
			}
		}
	}

	return result
}

// limitedWriter is an io.Writer that limits total bytes written. Excess
// bytes are discarded while reporting success to the writer, so the child
// process never sees a short write.
type limitedWriter struct {
	w       io.Writer
	max     int64
	written int64
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	if lw.written >= lw.max {
		return n, nil
	}
	if remaining := lw.max - lw.written; int64(n) > remaining {
		p = p[:remaining]
	}
	written, err := lw.w.Write(p)
	lw.written += int64(written)
	if err != nil {
		return written, err
	}
	return n, nil
}
