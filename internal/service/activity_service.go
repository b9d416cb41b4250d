package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/dto"
	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
	"github.com/vespa-learn/activity-api/pkg/jobs"
)

// JobCatalogRefresh re-fetches the content catalog in the background.
const JobCatalogRefresh = "catalog_refresh"

const catalogCacheKey = "catalog:entries"

type activityLister interface {
	activityFinder
	List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error)
}

type catalogFetcher interface {
	Fetch(ctx context.Context) ([]models.CatalogEntry, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// ActivityService serves the activity catalogue: listing and lookup from the
// record store, media enrichment from the static content catalog, and the
// per-student prescribed/suggested split.
type ActivityService struct {
	activities activityLister
	students   linkStore
	catalog    catalogFetcher
	cache      resumeCache
	queue      jobQueue
	cacheTTL   time.Duration
	logger     *zap.Logger

	mu      sync.RWMutex
	entries map[string]models.CatalogEntry
}

// NewActivityService constructs an activity service. The queue is optional;
// without one, refreshes run inline.
func NewActivityService(
	activities activityLister,
	students linkStore,
	catalog catalogFetcher,
	cache resumeCache,
	queue jobQueue,
	cacheTTL time.Duration,
	logger *zap.Logger,
) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &ActivityService{
		activities: activities,
		students:   students,
		catalog:    catalog,
		cache:      cache,
		queue:      queue,
		cacheTTL:   cacheTTL,
		logger:     logger,
	}
}

// SetQueue wires the background queue after construction; the queue's
// handler is this service, so the two cannot be built in one step.
func (s *ActivityService) SetQueue(queue jobQueue) {
	s.queue = queue
}

// List pages through activities, enriched with catalog media links.
func (s *ActivityService) List(ctx context.Context, filter models.ActivityFilter) ([]models.Activity, *models.Pagination, error) {
	activities, pagination, err := s.activities.List(ctx, filter)
	if err != nil {
		return nil, nil, err
	}
	for i := range activities {
		s.enrich(&activities[i])
	}
	return activities, pagination, nil
}

// Get returns one activity, enriched with catalog media links.
func (s *ActivityService) Get(ctx context.Context, id string) (*models.Activity, error) {
	activity, err := s.activities.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.enrich(activity)
	return activity, nil
}

// ForStudent splits the catalogue for one student: the activities staff
// prescribed, and the score-gated suggestions drawn from the rest. An
// activity already prescribed or finished is never suggested.
func (s *ActivityService) ForStudent(ctx context.Context, studentID string) (*dto.StudentActivitiesResponse, error) {
	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		return nil, err
	}

	prescribed := make([]models.Activity, 0, len(link.Prescribed))
	for _, id := range link.Prescribed {
		activity, err := s.activities.FindByID(ctx, id)
		if err != nil {
			if appErrors.FromError(err).Code == appErrors.ErrNotFound.Code {
				s.logger.Warn("prescribed activity missing from store",
					zap.String("student_id", studentID), zap.String("activity_id", id))
				continue
			}
			return nil, err
		}
		s.enrich(activity)
		prescribed = append(prescribed, *activity)
	}

	all, _, err := s.activities.List(ctx, models.ActivityFilter{PageSize: 1000})
	if err != nil {
		return nil, err
	}

	var suggested []models.Activity
	for _, activity := range all {
		if link.HasPrescribed(activity.ID) || link.HasFinished(activity.ID) {
			continue
		}
		if !activity.RelevantFor(link.Scores.Score(activity.Category)) {
			continue
		}
		s.enrich(&activity)
		suggested = append(suggested, activity)
	}

	return &dto.StudentActivitiesResponse{
		Prescribed: prescribed,
		Suggested:  suggested,
		Finished:   link.Finished,
	}, nil
}

// EnqueueRefresh schedules a background catalog refresh, falling back to an
// inline refresh when no queue is wired.
func (s *ActivityService) EnqueueRefresh(ctx context.Context) error {
	if s.queue == nil {
		return s.RefreshCatalog(ctx)
	}
	return s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: JobCatalogRefresh})
}

// HandleJob dispatches queue jobs owned by this service.
func (s *ActivityService) HandleJob(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobCatalogRefresh:
		return s.RefreshCatalog(ctx)
	default:
		s.logger.Warn("unknown job type", zap.String("type", job.Type))
		return nil
	}
}

// RefreshCatalog fetches the content catalog, replaces the in-memory index
// and writes the result through to Redis so restarts warm from cache.
func (s *ActivityService) RefreshCatalog(ctx context.Context) error {
	entries, err := s.catalog.Fetch(ctx)
	if err != nil {
		return err
	}
	s.setEntries(entries)

	if err := s.cache.Set(ctx, catalogCacheKey, entries, s.cacheTTL); err != nil {
		s.logger.Warn("catalog cache write failed", zap.Error(err))
	}
	s.logger.Info("content catalog refreshed", zap.Int("entries", len(entries)))
	return nil
}

// WarmCatalog seeds the in-memory index from Redis, falling back to a live
// fetch when the cache is cold. Failures are logged only: enrichment simply
// stays empty until the next refresh succeeds.
func (s *ActivityService) WarmCatalog(ctx context.Context) {
	var entries []models.CatalogEntry
	if err := s.cache.Get(ctx, catalogCacheKey, &entries); err == nil && len(entries) > 0 {
		s.setEntries(entries)
		return
	}
	if err := s.RefreshCatalog(ctx); err != nil {
		s.logger.Warn("initial catalog fetch failed", zap.Error(err))
	}
}

func (s *ActivityService) setEntries(entries []models.CatalogEntry) {
	index := make(map[string]models.CatalogEntry, len(entries))
	for _, entry := range entries {
		index[entry.Name] = entry
	}
	s.mu.Lock()
	s.entries = index
	s.mu.Unlock()
}

// enrich fills media links absent from the primary store with the catalog's
// values, matching on activity name.
func (s *ActivityService) enrich(activity *models.Activity) {
	s.mu.RLock()
	entry, ok := s.entries[activity.Name]
	s.mu.RUnlock()
	if !ok {
		return
	}
	if activity.VideoURL == "" {
		activity.VideoURL = entry.VideoURL
	}
	if activity.SlidesURL == "" {
		activity.SlidesURL = entry.SlidesURL
	}
	if activity.PDFURL == "" {
		activity.PDFURL = entry.PDFURL
	}
}
