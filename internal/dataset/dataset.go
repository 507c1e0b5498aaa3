// Package dataset reads line-delimited proof attempt entries.
//
// Each input line is a JSON object with an identifier, a formal statement
// skeleton, and a model response. Malformed lines are skipped, never fatal.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"leanverify/internal/extract"
	"leanverify/internal/logging"
)

// Response is the model output attached to an entry. Input data stores it
// either as a single text or as an ordered list of conversational turns.
// The variant is resolved once when the entry is decoded; downstream code
// only ever sees Text().
type Response struct {
	raw  json.RawMessage
	text string
}

// UnmarshalJSON accepts a string, a list of strings, or any other JSON
// value coerced to its encoded form, matching the loose shapes found in
// generation dumps.
func (r *Response) UnmarshalJSON(data []byte) error {
	r.raw = append(json.RawMessage(nil), data...)

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		r.text = single
		return nil
	}

	var turns []string
	if err := json.Unmarshal(data, &turns); err == nil {
		for i := len(turns) - 1; i >= 0; i-- {
			if turns[i] != "" {
				r.text = turns[i]
				break
			}
		}
		return nil
	}

	// Anything else (number, object, null) is coerced to its raw text so
	// extraction degrades to the no-code path instead of failing the line.
	r.text = string(data)
	return nil
}

// MarshalJSON round-trips the original shape so output records carry the
// response exactly as it arrived.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.raw == nil {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Text returns the resolved response text: the last non-empty turn for the
// list shape, the string itself otherwise.
func (r Response) Text() string {
	return r.text
}

// Entry is one proof attempt read from the input file. Immutable once read.
type Entry struct {
	Idx             int64            `json:"idx"`
	FormalStatement string           `json:"formal_statement"`
	Response        Response         `json:"response"`
	Skeleton        extract.Skeleton `json:"-"`
}

// entryLine is the decode shape; Idx is optional in the input and defaults
// to the entry's position.
type entryLine struct {
	Idx             *int64   `json:"idx"`
	FormalStatement string   `json:"formal_statement"`
	Response        Response `json:"response"`
}

// ReadEntries reads up to maxEntries entries from a JSONL file. A
// maxEntries of zero or less reads everything. Lines that fail to parse
// are skipped and counted, matching the non-fatal malformed-line policy.
func ReadEntries(path string, maxEntries int) ([]Entry, error) {
	log := logging.Named("dataset")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	skipped := 0
	lineNo := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	for scanner.Scan() {
		lineNo++
		if maxEntries > 0 && len(entries) >= maxEntries {
			break
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var el entryLine
		if err := json.Unmarshal(line, &el); err != nil {
			skipped++
			log.Debugw("skipping malformed line", "line", lineNo, "error", err)
			continue
		}

		e := Entry{
			FormalStatement: el.FormalStatement,
			Response:        el.Response,
			// Placeholder spans are located exactly once, here.
			Skeleton: extract.NewSkeleton(el.FormalStatement),
		}
		if el.Idx != nil {
			e.Idx = *el.Idx
		} else {
			e.Idx = int64(len(entries))
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	if skipped > 0 {
		log.Warnw("skipped malformed input lines", "count", skipped)
	}
	log.Infow("loaded entries", "path", path, "count", len(entries))
	return entries, nil
}
