package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
)

type saveRecorder struct {
	mu       sync.Mutex
	payloads []SavePayload
	block    chan struct{}
	err      error
}

func (r *saveRecorder) save(_ context.Context, p SavePayload) (*SaveOutcome, error) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return &SaveOutcome{Response: &models.Response{StudentID: p.StudentID}}, nil
}

func (r *saveRecorder) saved() []SavePayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SavePayload, len(r.payloads))
	copy(out, r.payloads)
	return out
}

func payloadWith(answer string) SavePayload {
	return SavePayload{
		StudentID:  "stu-1",
		ActivityID: "act-1",
		Cycle:      1,
		Answers:    map[string]string{"q1": answer},
		Status:     models.ResponseInProgress,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSaveQueue_CoalescesRapidSchedules(t *testing.T) {
	rec := &saveRecorder{}
	q := NewSaveQueue(30*time.Millisecond, rec.save, nil, nil)
	defer q.Close()

	q.Schedule(payloadWith("a"))
	q.Schedule(payloadWith("ab"))
	q.Schedule(payloadWith("abc"))

	waitFor(t, func() bool { return len(rec.saved()) == 1 })
	// Quiet period: no further writes.
	time.Sleep(100 * time.Millisecond)

	saved := rec.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "abc", saved[0].Answers["q1"])
}

func TestSaveQueue_ReschedulesDuringInFlight(t *testing.T) {
	rec := &saveRecorder{block: make(chan struct{})}
	q := NewSaveQueue(10*time.Millisecond, rec.save, nil, nil)
	defer q.Close()

	q.Schedule(payloadWith("first"))
	// Let the first save start and hang, then schedule newer state.
	time.Sleep(30 * time.Millisecond)
	q.Schedule(payloadWith("second"))
	time.Sleep(30 * time.Millisecond)

	close(rec.block)

	waitFor(t, func() bool { return len(rec.saved()) == 2 })
	saved := rec.saved()
	assert.Equal(t, "first", saved[0].Answers["q1"])
	assert.Equal(t, "second", saved[1].Answers["q1"])
}

func TestSaveQueue_FlushSupersedesPending(t *testing.T) {
	rec := &saveRecorder{}
	q := NewSaveQueue(time.Hour, rec.save, nil, nil)
	defer q.Close()

	q.Schedule(payloadWith("stale"))

	outcome, err := q.Flush(context.Background(), payloadWith("final"))
	require.NoError(t, err)
	require.NotNil(t, outcome)

	saved := rec.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, "final", saved[0].Answers["q1"])
}

func TestSaveQueue_ResultCallbackSeesError(t *testing.T) {
	rec := &saveRecorder{err: assert.AnError}

	var mu sync.Mutex
	var gotErr error
	onResult := func(_ SavePayload, _ *SaveOutcome, err error) {
		mu.Lock()
		gotErr = err
		mu.Unlock()
	}

	q := NewSaveQueue(10*time.Millisecond, rec.save, onResult, nil)
	defer q.Close()

	q.Schedule(payloadWith("x"))

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return gotErr != nil
	})
}

func TestSaveQueue_CloseDropsPending(t *testing.T) {
	rec := &saveRecorder{}
	q := NewSaveQueue(20*time.Millisecond, rec.save, nil, nil)

	q.Schedule(payloadWith("doomed"))
	q.Close()

	time.Sleep(60 * time.Millisecond)
	assert.Empty(t, rec.saved())
}
