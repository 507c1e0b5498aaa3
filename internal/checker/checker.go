// Package checker submits Lean 4 source units to a bounded pool of Lean
// frontend processes and collects structured outcomes.
//
// The scheduler mirrors the shape evaluation pipelines expect from a
// checking service: Submit is non-blocking and returns an opaque handle,
// AwaitAll blocks once for a whole batch, and Release tears the instance
// down exactly once. Concurrency and the per-job timeout are fixed at
// construction; callers never throttle submissions themselves.
package checker

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"leanverify/internal/logging"
)

// Config fixes the scheduler's behavior at construction time.
type Config struct {
	// MaxConcurrent is the number of Lean jobs allowed to run at once.
	MaxConcurrent int

	// Timeout is the per-job wall-clock limit. A job that exceeds it is
	// killed and reported as a system-error outcome, never an error.
	Timeout time.Duration

	// MemoryLimitGB is handed to the Lean frontend as its --memory ceiling.
	// Zero disables the flag.
	MemoryLimitGB int

	// Name scopes scratch files and log output for this instance.
	Name string

	// LeanWorkspace is the Lake workspace jobs compile against.
	LeanWorkspace string
}

// Request describes one checking job.
type Request struct {
	// Code is the complete source unit to check.
	Code string

	// LeanWorkspace overrides the scheduler's workspace when non-empty.
	LeanWorkspace string

	// Tactics and AST request tactic-level detail and the syntax tree in
	// outcomes. The subprocess frontend reports neither; the flags are
	// part of the request surface so richer checker backends can honor
	// them without changing callers.
	Tactics bool
	AST     bool
}

// RequestID is the opaque handle returned by Submit. Its only use is to
// correlate an outcome back to the submission.
type RequestID string

// Message is one positioned diagnostic from the Lean frontend.
type Message struct {
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Data   string `json:"data"`
}

// Outcome is the structured result of one checking job.
type Outcome struct {
	// Pass means the unit elaborated with no errors.
	Pass bool `json:"pass"`

	// Complete means the unit passed and carries no incomplete-proof
	// markers: the proof is fully closed.
	Complete bool `json:"complete"`

	Errors   []Message `json:"errors"`
	Warnings []Message `json:"warnings"`

	// Sorries lists incomplete-proof markers reported by the frontend.
	Sorries []string `json:"sorries"`

	// SystemErrors is non-empty when the job failed at the infrastructure
	// level: timeout, missing toolchain, crash. Mutually authoritative
	// over the other fields.
	SystemErrors string `json:"system_errors,omitempty"`

	// VerifyTime is the job's wall-clock time in seconds. Queue wait under
	// the concurrency ceiling is included, matching how batch elapsed
	// time is accounted upstream.
	VerifyTime float64 `json:"verify_time"`
}

// Scheduler runs checking jobs under a fixed concurrency ceiling.
type Scheduler struct {
	cfg    Config
	sem    *semaphore.Weighted
	runner commandRunner
	log    *zap.SugaredLogger

	mu      sync.Mutex
	pending map[RequestID]chan Outcome

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewScheduler constructs a scheduler. The caller owns the instance and
// must Release it when the batch is done.
func NewScheduler(cfg Config) *Scheduler {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300 * time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "proof_verifier"
	}
	return &Scheduler{
		cfg:     cfg,
		sem:     semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
		runner:  newExecRunner(),
		log:     logging.Named("checker").With("instance", cfg.Name),
		pending: make(map[RequestID]chan Outcome),
	}
}

// Submit queues one checking job and returns immediately. The returned
// handle is redeemed through AwaitAll.
func (s *Scheduler) Submit(ctx context.Context, req Request) RequestID {
	id := RequestID(uuid.NewString())
	done := make(chan Outcome, 1)

	s.mu.Lock()
	s.pending[id] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		done <- s.runJob(ctx, req)
	}()

	return id
}

// AwaitAll blocks until every given handle has an outcome and returns the
// outcomes in handle order. Each handle is redeemable once.
func (s *Scheduler) AwaitAll(ids []RequestID) []Outcome {
	outcomes := make([]Outcome, len(ids))
	for i, id := range ids {
		s.mu.Lock()
		done, ok := s.pending[id]
		delete(s.pending, id)
		s.mu.Unlock()

		if !ok {
			outcomes[i] = Outcome{SystemErrors: fmt.Sprintf("unknown request id %s", id)}
			continue
		}
		outcomes[i] = <-done
	}
	return outcomes
}

// Release waits for any still-running jobs and tears the instance down.
// Idempotent: only the first call does work.
func (s *Scheduler) Release() {
	s.closeOnce.Do(func() {
		s.wg.Wait()
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		s.log.Debugw("scheduler released")
	})
}

// runJob acquires a concurrency slot, runs the Lean frontend, and shapes
// the raw result into an Outcome. Infrastructure failures are folded into
// the outcome's SystemErrors; this function never fails.
func (s *Scheduler) runJob(ctx context.Context, req Request) Outcome {
	start := time.Now()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Outcome{
			SystemErrors: fmt.Sprintf("job canceled before execution: %v", err),
			VerifyTime:   time.Since(start).Seconds(),
		}
	}
	defer s.sem.Release(1)

	out := s.check(ctx, req)
	out.VerifyTime = time.Since(start).Seconds()
	return out
}

// check writes the unit to a scratch file inside the workspace and runs
// `lake env lean --json` over it.
func (s *Scheduler) check(ctx context.Context, req Request) Outcome {
	workspace := req.LeanWorkspace
	if workspace == "" {
		workspace = s.cfg.LeanWorkspace
	}

	f, err := os.CreateTemp(workspace, s.cfg.Name+"_*.lean")
	if err != nil {
		return Outcome{SystemErrors: fmt.Sprintf("failed to create scratch file: %v", err)}
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(req.Code); err != nil {
		f.Close()
		return Outcome{SystemErrors: fmt.Sprintf("failed to write scratch file: %v", err)}
	}
	if err := f.Close(); err != nil {
		return Outcome{SystemErrors: fmt.Sprintf("failed to write scratch file: %v", err)}
	}

	args := []string{"env", "lean", "--json"}
	if s.cfg.MemoryLimitGB > 0 {
		args = append(args, fmt.Sprintf("--memory=%d", s.cfg.MemoryLimitGB*1024))
	}
	args = append(args, path)

	s.log.Debugw("running lean job", "file", path, "bytes", len(req.Code))
	res := s.runner.Run(ctx, "lake", args, workspace, s.cfg.Timeout)

	switch {
	case res.Err != "":
		return Outcome{SystemErrors: fmt.Sprintf("lean invocation failed: %s", res.Err)}
	case res.Killed:
		return Outcome{SystemErrors: fmt.Sprintf("lean job killed: %s", res.KillReason)}
	}

	return parseDiagnostics(res.Stdout, res.Stderr, res.ExitCode)
}
