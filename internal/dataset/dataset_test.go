package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInput(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.jsonl")
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadEntries(t *testing.T) {
	path := writeInput(t,
		`{"idx": 7, "formal_statement": "theorem t : True := sorry", "response": "no proof"}`,
		`{"formal_statement": "theorem u : True := sorry", "response": "also nothing"}`,
	)

	entries, err := ReadEntries(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(7), entries[0].Idx)
	assert.Equal(t, "theorem t : True := sorry", entries[0].FormalStatement)
	assert.Equal(t, "no proof", entries[0].Response.Text())
	assert.Equal(t, 1, entries[0].Skeleton.Placeholders())

	// Missing idx defaults to the entry's position.
	assert.Equal(t, int64(1), entries[1].Idx)
}

func TestReadEntriesSkipsMalformedLines(t *testing.T) {
	path := writeInput(t,
		`{"formal_statement": "theorem a : True := sorry", "response": "x"}`,
		`{not json at all`,
		``,
		`{"formal_statement": "theorem b : True := sorry", "response": "y"}`,
	)

	entries, err := ReadEntries(path, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "theorem a : True := sorry", entries[0].FormalStatement)
	assert.Equal(t, "theorem b : True := sorry", entries[1].FormalStatement)
}

func TestReadEntriesMaxEntries(t *testing.T) {
	path := writeInput(t,
		`{"formal_statement": "a", "response": "1"}`,
		`{"formal_statement": "b", "response": "2"}`,
		`{"formal_statement": "c", "response": "3"}`,
	)

	entries, err := ReadEntries(path, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestReadEntriesMissingFile(t *testing.T) {
	_, err := ReadEntries(filepath.Join(t.TempDir(), "absent.jsonl"), 0)
	assert.Error(t, err)
}

func TestResponseStringShape(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`"plain text"`), &r))
	assert.Equal(t, "plain text", r.Text())
}

func TestResponseListShapeUsesLastNonEmptyTurn(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`["first turn", "final turn", ""]`), &r))
	assert.Equal(t, "final turn", r.Text())
}

func TestResponseOtherShapesCoerced(t *testing.T) {
	var r Response
	require.NoError(t, json.Unmarshal([]byte(`{"content": "nested"}`), &r))
	assert.Equal(t, `{"content": "nested"}`, r.Text())
}

func TestResponseRoundTripsOriginalShape(t *testing.T) {
	for _, raw := range []string{`"text"`, `["a","b"]`, `{"k":1}`} {
		var r Response
		require.NoError(t, json.Unmarshal([]byte(raw), &r))
		out, err := json.Marshal(r)
		require.NoError(t, err)
		assert.JSONEq(t, raw, string(out))
	}
}
