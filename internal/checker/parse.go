package checker

import (
	"encoding/json"
	"strings"
)

// sorryMarker is the diagnostic text the Lean frontend attaches to every
// declaration whose proof contains a sorry.
const sorryMarker = "declaration uses 'sorry'"

// leanMessage is one JSON-line diagnostic as emitted by `lean --json`.
type leanMessage struct {
	Severity string `json:"severity"`
	Pos      struct {
		Line   int `json:"line"`
		Column int `json:"column"`
	} `json:"pos"`
	Data string `json:"data"`
}

// parseDiagnostics shapes the frontend's JSON-line output into an Outcome.
//
// Pass means no errors were reported. Complete additionally requires that
// no incomplete-proof markers were reported. A non-zero exit with no
// parsable error diagnostics means the frontend itself misbehaved and is
// surfaced as a system error.
func parseDiagnostics(stdout, stderr string, exitCode int) Outcome {
	var out Outcome

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] != '{' {
			continue
		}

		var msg leanMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}

		m := Message{Line: msg.Pos.Line, Column: msg.Pos.Column, Data: msg.Data}
		switch msg.Severity {
		case "error":
			out.Errors = append(out.Errors, m)
		case "warning":
			if strings.Contains(msg.Data, sorryMarker) {
				out.Sorries = append(out.Sorries, msg.Data)
			} else {
				out.Warnings = append(out.Warnings, m)
			}
		}
	}

	if exitCode != 0 && len(out.Errors) == 0 {
		detail := strings.TrimSpace(stderr)
		if detail == "" {
			detail = strings.TrimSpace(stdout)
		}
		out.SystemErrors = "lean exited abnormally: " + firstLine(detail)
		return out
	}

	out.Pass = len(out.Errors) == 0
	out.Complete = out.Pass && len(out.Sorries) == 0
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	if s == "" {
		return "(no output)"
	}
	return s
}
