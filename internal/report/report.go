// Package report merges extraction and verification outcomes into output
// records, computes batch statistics, and persists records as JSONL.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"leanverify/internal/checker"
	"leanverify/internal/dataset"
	"leanverify/internal/logging"
	"leanverify/internal/status"
	"leanverify/internal/verify"
)

// ResultRecord is the write-once output record: the input entry's fields
// plus everything verification produced. Exactly one exists per parseable
// input line, regardless of how extraction or verification went.
type ResultRecord struct {
	Idx                  int64            `json:"idx"`
	FormalStatement      string           `json:"formal_statement"`
	Response             dataset.Response `json:"response"`
	VerifiedLeanCode     string           `json:"verified_lean_code"`
	VerificationPass     bool             `json:"verification_pass"`
	VerificationComplete bool             `json:"verification_complete"`
	VerificationStatus   status.Status    `json:"verification_status"`
	Errors               int              `json:"errors"`
	Warnings             int              `json:"warnings"`
	Sorries              int              `json:"sorries"`
	VerifyTime           float64          `json:"verify_time"`
	ErrorCheck           string           `json:"error_check"`
	FullVerifierOutput   *checker.Outcome `json:"full_verifier_output,omitempty"`
}

// Build merges one entry, its reconstructed source, and its verification
// result into a record.
func Build(entry dataset.Entry, code string, res verify.Result) ResultRecord {
	rec := ResultRecord{
		Idx:              entry.Idx,
		FormalStatement:  entry.FormalStatement,
		Response:         entry.Response,
		VerifiedLeanCode: code,
	}

	if res.NoCode {
		rec.VerificationStatus = status.NoCodeFound
		rec.ErrorCheck = status.Describe(res.Outcome, status.NoCodeFound)
		return rec
	}

	out := res.Outcome
	st := status.Classify(out)

	rec.VerificationPass = out.Pass
	rec.VerificationComplete = out.Complete
	rec.VerificationStatus = st
	rec.Errors = len(out.Errors)
	rec.Warnings = len(out.Warnings)
	rec.Sorries = len(out.Sorries)
	rec.VerifyTime = out.VerifyTime
	rec.ErrorCheck = status.Describe(out, st)
	rec.FullVerifierOutput = &out
	return rec
}

// Summary aggregates a full batch of records.
type Summary struct {
	Total          int
	StatusCounts   map[status.Status]int
	Passed         int
	Completed      int
	PassRate       float64
	CompletionRate float64
	MeanVerifyTime float64
}

// Summarize computes batch statistics over every record, including
// NO_CODE_FOUND entries, which contribute zero time and false flags.
func Summarize(records []ResultRecord) Summary {
	s := Summary{
		Total:        len(records),
		StatusCounts: make(map[status.Status]int),
	}
	if s.Total == 0 {
		return s
	}

	var totalTime float64
	for _, rec := range records {
		s.StatusCounts[rec.VerificationStatus]++
		if rec.VerificationPass {
			s.Passed++
		}
		if rec.VerificationComplete {
			s.Completed++
		}
		totalTime += rec.VerifyTime
	}

	n := float64(s.Total)
	s.PassRate = float64(s.Passed) / n
	s.CompletionRate = float64(s.Completed) / n
	s.MeanVerifyTime = totalTime / n
	return s
}

// Render formats the summary for the console.
func (s Summary) Render() string {
	var b strings.Builder
	b.WriteString("Verification Summary:\n")
	fmt.Fprintf(&b, "Total entries processed: %d\n", s.Total)

	b.WriteString("Status counts:")
	for _, st := range status.All {
		if count := s.StatusCounts[st]; count > 0 {
			fmt.Fprintf(&b, " %s=%d", st, count)
		}
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Passed verification: %d (%.2f%%)\n", s.Passed, s.PassRate*100)
	fmt.Fprintf(&b, "Complete proofs: %d (%.2f%%)\n", s.Completed, s.CompletionRate*100)
	fmt.Fprintf(&b, "Average verification time: %.2fs", s.MeanVerifyTime)
	return b.String()
}

// WriteRecords persists records as line-delimited JSON, one record per
// line, in record order.
func WriteRecords(path string, records []ResultRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode record %d: %w", rec.Idx, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}

	logging.Named("report").Infow("results saved", "path", path, "records", len(records))
	return nil
}
