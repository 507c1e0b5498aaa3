// Package verify orchestrates a batch of extracted proof units against the
// checking service and pairs every unit with exactly one outcome, in input
// order.
package verify

import (
	"context"
	"strings"

	"leanverify/internal/checker"
	"leanverify/internal/logging"
)

// Service is the checking-service surface the orchestrator consumes. It is
// satisfied by *checker.Scheduler.
type Service interface {
	Submit(ctx context.Context, req checker.Request) checker.RequestID
	AwaitAll(ids []checker.RequestID) []checker.Outcome
}

// Unit is one extracted proof unit headed for verification.
type Unit struct {
	// Code is the reconstructed source. Empty means extraction found no
	// code; nothing is submitted for it.
	Code string

	// ExtractErr is a fatal extraction failure (ambiguous or missing
	// placeholder). The unit is not submitted; it degrades to a per-entry
	// system-error outcome so the batch keeps its one-record-per-entry
	// invariant.
	ExtractErr error
}

// Result pairs one input unit with its outcome, positionally.
type Result struct {
	Outcome checker.Outcome

	// NoCode marks the placeholder outcome synthesized for units with no
	// extracted code. Such results bypass classification entirely.
	NoCode bool
}

// Run submits every non-empty unit, synthesizes placeholder outcomes for
// the rest, and blocks once for the whole batch. The returned slice is
// aligned with units: outcome i belongs to unit i no matter what order the
// service finishes jobs in. Correlation goes through an explicit
// handle-to-index map, never through completion order.
//
// Releasing the service is the caller's responsibility; Run never takes
// ownership of it.
func Run(ctx context.Context, svc Service, units []Unit) []Result {
	log := logging.Named("verify")

	results := make([]Result, len(units))
	handleIndex := make(map[checker.RequestID]int)
	var handles []checker.RequestID

	for i, u := range units {
		switch {
		case u.ExtractErr != nil:
			results[i] = Result{Outcome: checker.Outcome{
				SystemErrors: "EXTRACTION_ERROR: " + u.ExtractErr.Error(),
			}}
		case strings.TrimSpace(u.Code) == "":
			results[i] = Result{NoCode: true}
		default:
			id := svc.Submit(ctx, checker.Request{Code: u.Code, Tactics: true})
			handleIndex[id] = i
			handles = append(handles, id)
		}
	}

	log.Infow("batch submitted",
		"total", len(units),
		"submitted", len(handles),
		"no_code", len(units)-len(handles))

	if len(handles) == 0 {
		return results
	}

	outcomes := svc.AwaitAll(handles)
	for j, id := range handles {
		results[handleIndex[id]] = Result{Outcome: outcomes[j]}
	}
	return results
}
