// Package extract reconstructs a checkable Lean 4 source unit from a model
// response and a formal statement skeleton.
//
// The response is scanned for a fenced code excerpt, the proof body is
// lifted out of the excerpt, and the body is spliced over the skeleton's
// ":= sorry" placeholder. Everything here is pure: identical inputs always
// produce identical outputs.
package extract

import (
	"errors"
	"regexp"
	"strings"
)

// Marker is the section heading that, when present, takes precedence over
// plain fence scanning. The text immediately after it must open a strict
// (```lean4) fence for the marker rule to apply.
const Marker = "### Complete Lean 4 Proof\n\n"

const (
	fenceStrict = "```lean4"
	fenceLoose  = "```lean"
	fenceClose  = "```"
)

var (
	// ErrNoPlaceholder means the skeleton has no ":= sorry" span to splice
	// into, yet the response supplied a separate proof body.
	ErrNoPlaceholder = errors.New("no ':= sorry' placeholder in statement to replace with proof body")

	// ErrAmbiguousPlaceholder means the skeleton has more than one
	// ":= sorry" span, so there is no unambiguous splice target. A splice
	// at the last occurrence would be computable; it is deliberately
	// discarded.
	ErrAmbiguousPlaceholder = errors.New("multiple ':= sorry' placeholders in statement, splice target is ambiguous")
)

var (
	proofBodyRe   = regexp.MustCompile(`(?s):=\s*(.*)`)
	placeholderRe = regexp.MustCompile(`:=\s*sorry`)
)

// Skeleton is a formal statement whose placeholder spans were located once,
// at read time. The span count is never recomputed downstream.
type Skeleton struct {
	Text  string
	spans [][]int
}

// NewSkeleton scans text for ":= sorry" placeholder spans.
func NewSkeleton(text string) Skeleton {
	return Skeleton{
		Text:  text,
		spans: placeholderRe.FindAllStringIndex(text, -1),
	}
}

// Placeholders reports how many ":= sorry" spans the skeleton contains.
func (s Skeleton) Placeholders() int {
	return len(s.spans)
}

// Extract reconstructs a complete Lean source unit from a response and a
// statement skeleton.
//
// An empty result with a nil error is the soft-failure case: no fenced
// Lean code was found in the response. A non-nil error is the fatal case:
// a proof body was found but the skeleton has no unambiguous splice point.
func Extract(response string, skel Skeleton) (string, error) {
	code := fencedExcerpt(response)
	if code == "" {
		return "", nil
	}

	m := proofBodyRe.FindStringSubmatch(code)
	if m == nil {
		// No assignment operator anywhere in the excerpt: the model is
		// assumed to have restated the skeleton with its proof inline.
		return strings.TrimSpace(skel.Text), nil
	}
	body := strings.TrimSpace(m[1])

	switch len(skel.spans) {
	case 1:
		span := skel.spans[0]
		spliced := skel.Text[:span[0]] + ":= " + body + skel.Text[span[1]:]
		return strings.TrimSpace(spliced), nil
	case 0:
		return "", ErrNoPlaceholder
	default:
		return "", ErrAmbiguousPlaceholder
	}
}

// fencedExcerpt locates the fenced Lean code in a response, checking the
// section marker first, then the last strict fence, then the last loose
// fence. Returns "" when no rule matches.
func fencedExcerpt(response string) string {
	// Rule 1: text after the last section marker, when it immediately
	// opens a strict fence.
	if i := strings.LastIndex(response, Marker); i >= 0 {
		after := strings.TrimLeft(response[i+len(Marker):], " \t\r\n")
		if strings.HasPrefix(after, fenceStrict) {
			if code := untilFenceClose(after[len(fenceStrict):]); code != "" {
				return code
			}
		}
	}

	// Rules 2 and 3: last fence anywhere, strict dialect preferred. The
	// loose tag is only consulted when no strict tag exists at all, since
	// every strict tag also contains the loose one.
	if strings.Contains(response, fenceStrict) {
		i := strings.LastIndex(response, fenceStrict)
		return untilFenceClose(response[i+len(fenceStrict):])
	}
	if strings.Contains(response, fenceLoose) {
		i := strings.LastIndex(response, fenceLoose)
		return untilFenceClose(response[i+len(fenceLoose):])
	}
	return ""
}

// untilFenceClose trims text at the next closing fence. Without a closing
// fence the whole remainder is used.
func untilFenceClose(text string) string {
	if end := strings.Index(text, fenceClose); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}
