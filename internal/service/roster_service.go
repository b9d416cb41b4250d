package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

type studentDirectory interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	FindLink(ctx context.Context, studentID string) (*models.StudentActivityLink, error)
	SaveLink(ctx context.Context, link *models.StudentActivityLink) error
}

type progressAudit interface {
	Create(ctx context.Context, record *models.ProgressRecord) error
	FindAssigned(ctx context.Context, studentID, activityID string) (*models.ProgressRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.ProgressStatus) error
}

// RosterService maintains the staff-managed prescribed and finished sets on
// the student record. Mutations to one student's link are serialised through
// a per-student lock, so two staff tabs editing the same student cannot
// interleave a read-modify-write and drop each other's change.
type RosterService struct {
	students   studentDirectory
	activities activityFinder
	progress   progressAudit
	logger     *zap.Logger
	now        func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRosterService constructs a roster service.
func NewRosterService(students studentDirectory, activities activityFinder, progress progressAudit, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		students:   students,
		activities: activities,
		progress:   progress,
		logger:     logger,
		now:        time.Now,
		locks:      map[string]*sync.Mutex{},
	}
}

// ListStudents pages through the student directory.
func (s *RosterService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return s.students.List(ctx, filter)
}

// Link returns the student's current prescribed and finished sets.
func (s *RosterService) Link(ctx context.Context, studentID string) (*models.StudentActivityLink, error) {
	return s.students.FindLink(ctx, studentID)
}

// Assign prescribes the activity to the student. Idempotent: assigning an
// already-prescribed activity changes nothing. A staff-assigned audit row is
// written best-effort alongside the link update.
func (s *RosterService) Assign(ctx context.Context, studentID, activityID string) (*models.StudentActivityLink, error) {
	if _, err := s.activities.FindByID(ctx, activityID); err != nil {
		return nil, err
	}

	unlock := s.lockStudent(studentID)
	defer unlock()

	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if link.HasPrescribed(activityID) {
		return link, nil
	}

	link.Prescribed = append(link.Prescribed, activityID)
	if err := s.students.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	record := &models.ProgressRecord{
		StudentID:   studentID,
		ActivityID:  activityID,
		AssignedAt:  &now,
		Status:      models.ProgressAssigned,
		SelectedVia: models.SelectedViaStaff,
	}
	if err := s.progress.Create(ctx, record); err != nil {
		s.logger.Warn("assignment audit row failed",
			zap.String("student_id", studentID),
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
	}

	return link, nil
}

// Unassign removes the activity from both the prescribed and finished sets,
// keeping finished a subset of prescribed. The audit row, when one exists,
// flips to removed rather than being deleted.
func (s *RosterService) Unassign(ctx context.Context, studentID, activityID string) (*models.StudentActivityLink, error) {
	unlock := s.lockStudent(studentID)
	defer unlock()

	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !link.HasPrescribed(activityID) && !link.HasFinished(activityID) {
		return link, nil
	}

	link.Prescribed = removeID(link.Prescribed, activityID)
	link.Finished = removeID(link.Finished, activityID)
	if err := s.students.SaveLink(ctx, link); err != nil {
		return nil, err
	}

	if record, err := s.progress.FindAssigned(ctx, studentID, activityID); err != nil {
		s.logger.Warn("assignment audit lookup failed",
			zap.String("student_id", studentID),
			zap.String("activity_id", activityID),
			zap.Error(err),
		)
	} else if record != nil {
		if err := s.progress.UpdateStatus(ctx, record.ID, models.ProgressRemoved); err != nil {
			s.logger.Warn("assignment audit removal failed",
				zap.String("student_id", studentID),
				zap.String("activity_id", activityID),
				zap.Error(err),
			)
		}
	}

	return link, nil
}

// MarkComplete adds the activity to the finished set. The activity must
// already be prescribed: the finished set is always a subset of the
// prescribed set, which keeps the completed count bounded by the prescribed
// count on every report.
func (s *RosterService) MarkComplete(ctx context.Context, studentID, activityID string) (*models.StudentActivityLink, error) {
	unlock := s.lockStudent(studentID)
	defer unlock()

	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !link.HasPrescribed(activityID) {
		return nil, appErrors.Clone(appErrors.ErrConflict,
			fmt.Sprintf("activity %s is not prescribed to student %s", activityID, studentID))
	}
	if link.HasFinished(activityID) {
		return link, nil
	}

	link.Finished = append(link.Finished, activityID)
	if err := s.students.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// UnmarkComplete removes the activity from the finished set only, leaving
// the prescription in place.
func (s *RosterService) UnmarkComplete(ctx context.Context, studentID, activityID string) (*models.StudentActivityLink, error) {
	unlock := s.lockStudent(studentID)
	defer unlock()

	link, err := s.students.FindLink(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !link.HasFinished(activityID) {
		return link, nil
	}

	link.Finished = removeID(link.Finished, activityID)
	if err := s.students.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *RosterService) lockStudent(studentID string) func() {
	s.mu.Lock()
	lock, ok := s.locks[studentID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[studentID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
