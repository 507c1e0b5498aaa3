package verify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"leanverify/internal/checker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// The real scheduler must keep satisfying the orchestrator's surface.
var _ Service = (*checker.Scheduler)(nil)

// fakeService answers AwaitAll from a per-code outcome table and records
// what was submitted. It deliberately returns outcomes for a shuffled view
// internally to prove correlation never depends on completion order.
type fakeService struct {
	submitted map[checker.RequestID]string
	order     []checker.RequestID
	outcomes  map[string]checker.Outcome
}

func newFakeService() *fakeService {
	return &fakeService{
		submitted: make(map[checker.RequestID]string),
		outcomes:  make(map[string]checker.Outcome),
	}
}

func (f *fakeService) Submit(ctx context.Context, req checker.Request) checker.RequestID {
	id := checker.RequestID(fmt.Sprintf("req-%d", len(f.order)))
	f.submitted[id] = req.Code
	f.order = append(f.order, id)
	return id
}

func (f *fakeService) AwaitAll(ids []checker.RequestID) []checker.Outcome {
	outcomes := make([]checker.Outcome, len(ids))
	for i, id := range ids {
		outcomes[i] = f.outcomes[f.submitted[id]]
	}
	return outcomes
}

func TestRunPositionalCorrelation(t *testing.T) {
	svc := newFakeService()
	svc.outcomes["unit-a"] = checker.Outcome{Pass: true, Complete: true}
	svc.outcomes["unit-b"] = checker.Outcome{Pass: false}
	svc.outcomes["unit-c"] = checker.Outcome{Pass: true}

	units := []Unit{{Code: "unit-a"}, {Code: "unit-b"}, {Code: "unit-c"}}
	results := Run(context.Background(), svc, units)

	require.Len(t, results, 3)
	assert.True(t, results[0].Outcome.Complete)
	assert.False(t, results[1].Outcome.Pass)
	assert.True(t, results[2].Outcome.Pass)
	assert.False(t, results[2].Outcome.Complete)
}

func TestRunEmptyUnitsNotSubmitted(t *testing.T) {
	svc := newFakeService()
	svc.outcomes["real"] = checker.Outcome{Pass: true, Complete: true}

	units := []Unit{{Code: ""}, {Code: "real"}, {Code: "   \n"}}
	results := Run(context.Background(), svc, units)

	require.Len(t, results, 3)
	assert.True(t, results[0].NoCode)
	assert.True(t, results[2].NoCode)
	assert.False(t, results[1].NoCode)
	assert.True(t, results[1].Outcome.Pass)
	assert.Len(t, svc.submitted, 1, "only the non-empty unit may reach the service")
}

func TestRunExtractionErrorDegradesToSystemError(t *testing.T) {
	svc := newFakeService()

	units := []Unit{{ExtractErr: fmt.Errorf("multiple ':= sorry' placeholders")}}
	results := Run(context.Background(), svc, units)

	require.Len(t, results, 1)
	assert.False(t, results[0].NoCode)
	assert.Equal(t,
		"EXTRACTION_ERROR: multiple ':= sorry' placeholders",
		results[0].Outcome.SystemErrors)
	assert.Empty(t, svc.submitted)
}

func TestRunAllEmptySkipsAwait(t *testing.T) {
	svc := newFakeService()

	results := Run(context.Background(), svc, []Unit{{Code: ""}, {Code: ""}})
	require.Len(t, results, 2)
	assert.True(t, results[0].NoCode)
	assert.True(t, results[1].NoCode)
}

func TestRunNoUnits(t *testing.T) {
	results := Run(context.Background(), newFakeService(), nil)
	assert.Empty(t, results)
}
