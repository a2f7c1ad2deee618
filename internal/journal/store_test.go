package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/factor"
)

// #region helpers
func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeResult(id string, impact int, at time.Time) engine.Result {
	d := classify.Classify(impact)
	return engine.Result{
		RunID:  id,
		Impact: impact,
		Label:  d.Label,
		Status: d.Status,
		Contributions: []engine.Contribution{
			{Factor: factor.Sleep, Value: 8, Points: 20},
		},
		Inputs:      map[string]float64{factor.Sleep: 8},
		StartedAt:   at.Add(-time.Second),
		CompletedAt: at,
	}
}

// #endregion helpers

// #region record-tests
func TestRecordAndGet(t *testing.T) {
	s := tempStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(makeResult("run-1", 80, at)))

	e, err := s.Get("run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", e.RunID)
	assert.Equal(t, 80, e.Impact)
	assert.Equal(t, classify.LabelOptimal, e.Label)
	assert.Equal(t, classify.StatusNominal, e.Status)
	assert.Equal(t, 8.0, e.Inputs[factor.Sleep])
	require.Len(t, e.Contributions, 1)
	assert.Equal(t, 20, e.Contributions[0].Points)
	assert.True(t, e.CompletedAt.Equal(at))
	assert.False(t, e.RecordedAt.IsZero())
}

func TestRecordIsIdempotent(t *testing.T) {
	s := tempStore(t)
	res := makeResult("run-1", 15, time.Now())
	require.NoError(t, s.Record(res))
	require.NoError(t, s.Record(res))

	entries, err := s.List(10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetMissing(t *testing.T) {
	s := tempStore(t)
	_, err := s.Get("nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGetRejectsCorruptTimestamp(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.Record(makeResult("run-1", 15, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))))

	_, err := s.db.Exec(`UPDATE runs SET started_at = 'not-a-time' WHERE run_id = ?`, "run-1")
	require.NoError(t, err)

	_, err = s.Get("run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "started_at")

	_, err = s.List(10)
	assert.Error(t, err)
}

func TestRecordOnClosedDB(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	s.Close()

	require.Error(t, s.Record(makeResult("run-1", 0, time.Now())))
}

// #endregion record-tests

// #region list-tests
func TestListNewestFirstWithLimit(t *testing.T) {
	s := tempStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// whole-second and fractional timestamps interleave correctly
	require.NoError(t, s.Record(makeResult("a", 80, base)))
	require.NoError(t, s.Record(makeResult("b", 15, base.Add(500*time.Millisecond))))
	require.NoError(t, s.Record(makeResult("c", -85, base.Add(time.Second))))

	entries, err := s.List(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].RunID)
	assert.Equal(t, "b", entries[1].RunID)
}

func TestSummarize(t *testing.T) {
	s := tempStore(t)

	empty, err := s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Total)

	now := time.Now()
	require.NoError(t, s.Record(makeResult("a", 80, now)))
	require.NoError(t, s.Record(makeResult("b", 15, now)))
	require.NoError(t, s.Record(makeResult("c", -85, now)))
	require.NoError(t, s.Record(makeResult("d", 20, now)))

	sum, err := s.Summarize()
	require.NoError(t, err)
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.ByStatus[classify.StatusNominal])
	assert.Equal(t, 1, sum.ByStatus[classify.StatusWarning])
	assert.Equal(t, 1, sum.ByStatus[classify.StatusCritical])
	assert.Equal(t, -85, sum.MinImpact)
	assert.Equal(t, 80, sum.MaxImpact)
	assert.InDelta(t, 7.5, sum.AvgImpact, 1e-9)
}

// #endregion list-tests

// #region subscriber-tests
func TestSubscriberRecordsPublishedRuns(t *testing.T) {
	s := tempStore(t)
	c, err := engine.New(engine.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	recorded := make(chan string, 1)
	record := s.Subscriber()
	c.Subscribe(func(r engine.Result) error {
		err := record(r)
		recorded <- r.RunID
		return err
	})

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	select {
	case id := <-recorded:
		assert.Equal(t, res.RunID, id)
	case <-time.After(5 * time.Second):
		t.Fatal("subscriber never ran")
	}

	e, err := s.Get(res.RunID)
	require.NoError(t, err)
	assert.Equal(t, 15, e.Impact)
	assert.Equal(t, classify.StatusWarning, e.Status)
	assert.Len(t, e.Contributions, 6)
}

// #endregion subscriber-tests
