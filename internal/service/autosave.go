package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
)

// SavePayload carries everything the save pipeline needs for one upsert of
// the live response of a (student, activity) pair. MinutesSpent and
// WordCount are pointers because they are only known at completion time.
type SavePayload struct {
	StudentID    string
	ActivityID   string
	Cycle        int
	Answers      map[string]string
	Status       models.ResponseStatus
	MinutesSpent *int
	WordCount    *int
}

// SaveOutcome reports what a persisted save produced.
type SaveOutcome struct {
	Response *models.Response
	Unlocked []models.AchievementAward
}

// SaveFunc performs the actual persistence of a payload.
type SaveFunc func(context.Context, SavePayload) (*SaveOutcome, error)

// ResultFunc observes the outcome of saves fired from the debounce timer.
type ResultFunc func(SavePayload, *SaveOutcome, error)

// SaveQueue coalesces rapid Schedule calls into a single remote write.
// Scheduling resets a fixed delay timer; when it fires the most recently
// scheduled payload wins. At most one save is in flight at a time: a timer
// firing during an in-flight save leaves the latest payload pending, and it
// is rescheduled as soon as the in-flight save completes, so the newest
// state is always eventually persisted. Failures reach the caller through
// the result callback; there is no automatic retry.
type SaveQueue struct {
	delay    time.Duration
	save     SaveFunc
	onResult ResultFunc
	logger   *zap.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	timer    *time.Timer
	latest   *SavePayload
	inFlight bool
	closed   bool
}

// NewSaveQueue builds a save queue around the given persistence function.
func NewSaveQueue(delay time.Duration, save SaveFunc, onResult ResultFunc, logger *zap.Logger) *SaveQueue {
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	q := &SaveQueue{delay: delay, save: save, onResult: onResult, logger: logger}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Schedule records the payload as the latest state and resets the delay
// timer. Payloads scheduled within one delay window collapse into a single
// write carrying the last payload.
func (q *SaveQueue) Schedule(payload SavePayload) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	p := payload
	q.latest = &p
	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(q.delay, q.fire)
}

// Flush cancels any pending timer and persists the given payload
// synchronously, waiting first for any in-flight save to finish. The
// payload supersedes whatever was pending.
func (q *SaveQueue) Flush(ctx context.Context, payload SavePayload) (*SaveOutcome, error) {
	q.mu.Lock()
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.latest = nil
	for q.inFlight {
		q.cond.Wait()
	}
	if q.closed {
		q.mu.Unlock()
		return nil, context.Canceled
	}
	q.inFlight = true
	q.mu.Unlock()

	outcome, err := q.save(ctx, payload)

	q.mu.Lock()
	q.inFlight = false
	pending := q.latest
	q.latest = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	if pending != nil {
		q.Schedule(*pending)
	}
	return outcome, err
}

// Close stops the timer and rejects further scheduling. Pending state is
// dropped; callers flush before closing when the state must survive.
func (q *SaveQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
	q.latest = nil
}

func (q *SaveQueue) fire() {
	q.mu.Lock()
	if q.closed || q.latest == nil {
		q.mu.Unlock()
		return
	}
	if q.inFlight {
		// Leave the latest payload pending; the completing save reschedules it.
		q.mu.Unlock()
		return
	}
	payload := *q.latest
	q.latest = nil
	q.inFlight = true
	q.mu.Unlock()

	go q.run(payload)
}

func (q *SaveQueue) run(payload SavePayload) {
	outcome, err := q.save(context.Background(), payload)

	q.mu.Lock()
	q.inFlight = false
	pending := q.latest
	q.latest = nil
	q.cond.Broadcast()
	q.mu.Unlock()

	if err != nil {
		q.logger.Warn("debounced save failed",
			zap.String("student_id", payload.StudentID),
			zap.String("activity_id", payload.ActivityID),
			zap.Error(err),
		)
	}
	if q.onResult != nil {
		q.onResult(payload, outcome, err)
	}
	if pending != nil {
		q.Schedule(*pending)
	}
}
