package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vespa-learn/activity-api/internal/models"
	appErrors "github.com/vespa-learn/activity-api/pkg/errors"
)

type fakeStudentDirectory struct {
	fakeLinkStore
	students []models.Student
}

func (f *fakeStudentDirectory) List(context.Context, models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	return f.students, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(f.students)}, nil
}

type fakeProgressAudit struct {
	created  []models.ProgressRecord
	assigned *models.ProgressRecord
	statuses map[string]models.ProgressStatus
	findErr  error
}

func (f *fakeProgressAudit) Create(_ context.Context, record *models.ProgressRecord) error {
	record.ID = "prog-1"
	f.created = append(f.created, *record)
	return nil
}

func (f *fakeProgressAudit) FindAssigned(context.Context, string, string) (*models.ProgressRecord, error) {
	return f.assigned, f.findErr
}

func (f *fakeProgressAudit) UpdateStatus(_ context.Context, id string, status models.ProgressStatus) error {
	if f.statuses == nil {
		f.statuses = map[string]models.ProgressStatus{}
	}
	f.statuses[id] = status
	return nil
}

func newRosterFixture(prescribed, finished []string) (*RosterService, *fakeStudentDirectory, *fakeProgressAudit) {
	dir := &fakeStudentDirectory{}
	dir.link = &models.StudentActivityLink{
		StudentID:  "stu-1",
		Prescribed: prescribed,
		Finished:   finished,
	}
	audit := &fakeProgressAudit{}
	svc := NewRosterService(dir, &fakeActivityFinder{activity: &models.Activity{ID: "act-1"}}, audit, nil)
	return svc, dir, audit
}

func TestRosterAssign_AddsAndAudits(t *testing.T) {
	svc, dir, audit := newRosterFixture(nil, nil)

	link, err := svc.Assign(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.True(t, link.HasPrescribed("act-1"))
	require.NotNil(t, dir.saved)
	require.Len(t, audit.created, 1)
	assert.Equal(t, models.ProgressAssigned, audit.created[0].Status)
	assert.Equal(t, models.SelectedViaStaff, audit.created[0].SelectedVia)
	assert.NotNil(t, audit.created[0].AssignedAt)
	assert.Nil(t, audit.created[0].CompletedAt)
}

func TestRosterAssign_Idempotent(t *testing.T) {
	svc, dir, audit := newRosterFixture([]string{"act-1"}, nil)

	link, err := svc.Assign(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"act-1"}, link.Prescribed)
	assert.Nil(t, dir.saved)
	assert.Empty(t, audit.created)
}

func TestRosterAssign_UnknownActivity(t *testing.T) {
	dir := &fakeStudentDirectory{}
	dir.link = &models.StudentActivityLink{StudentID: "stu-1"}
	svc := NewRosterService(dir, &fakeActivityFinder{err: appErrors.ErrNotFound}, &fakeProgressAudit{}, nil)

	_, err := svc.Assign(context.Background(), "stu-1", "act-404")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRosterUnassign_RemovesFromBothSets(t *testing.T) {
	svc, dir, audit := newRosterFixture([]string{"act-1", "act-2"}, []string{"act-1"})
	audit.assigned = &models.ProgressRecord{ID: "prog-9", Status: models.ProgressAssigned}

	link, err := svc.Unassign(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"act-2"}, link.Prescribed)
	assert.Empty(t, link.Finished)
	require.NotNil(t, dir.saved)
	assert.Equal(t, models.ProgressRemoved, audit.statuses["prog-9"])
}

func TestRosterUnassign_NoopWhenAbsent(t *testing.T) {
	svc, dir, _ := newRosterFixture([]string{"act-2"}, nil)

	link, err := svc.Unassign(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"act-2"}, link.Prescribed)
	assert.Nil(t, dir.saved)
}

func TestRosterMarkComplete_RequiresPrescription(t *testing.T) {
	svc, dir, _ := newRosterFixture(nil, nil)

	_, err := svc.MarkComplete(context.Background(), "stu-1", "act-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
	assert.Nil(t, dir.saved)
}

func TestRosterMarkComplete_KeepsFinishedSubsetOfPrescribed(t *testing.T) {
	svc, _, _ := newRosterFixture([]string{"act-1", "act-2"}, nil)

	link, err := svc.MarkComplete(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)

	assert.True(t, link.HasFinished("act-1"))
	assert.LessOrEqual(t, link.FinishedCount(), link.PrescribedCount())
}

func TestRosterMarkComplete_Idempotent(t *testing.T) {
	svc, dir, _ := newRosterFixture([]string{"act-1"}, []string{"act-1"})

	link, err := svc.MarkComplete(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"act-1"}, link.Finished)
	assert.Nil(t, dir.saved)
}

func TestRosterUnmarkComplete(t *testing.T) {
	svc, _, _ := newRosterFixture([]string{"act-1"}, []string{"act-1"})

	link, err := svc.UnmarkComplete(context.Background(), "stu-1", "act-1")
	require.NoError(t, err)
	assert.Empty(t, link.Finished)
	assert.True(t, link.HasPrescribed("act-1"))
}

func TestRosterListStudents(t *testing.T) {
	dir := &fakeStudentDirectory{students: []models.Student{{ID: "stu-1"}, {ID: "stu-2"}}}
	dir.link = &models.StudentActivityLink{StudentID: "stu-1"}
	svc := NewRosterService(dir, &fakeActivityFinder{}, &fakeProgressAudit{}, nil)

	students, pagination, err := svc.ListStudents(context.Background(), models.StudentFilter{})
	require.NoError(t, err)
	assert.Len(t, students, 2)
	assert.Equal(t, 2, pagination.TotalCount)
}
