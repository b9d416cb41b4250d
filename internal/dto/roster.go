package dto

import "github.com/vespa-learn/activity-api/internal/models"

// AssignActivityRequest prescribes one activity to a student.
type AssignActivityRequest struct {
	ActivityID string `json:"activity_id" binding:"required"`
}

// StudentLinkResponse is the per-student activity state shown in the
// staff console.
type StudentLinkResponse struct {
	StudentID       string             `json:"student_id"`
	Prescribed      []string           `json:"prescribed"`
	Finished        []string           `json:"finished"`
	PrescribedCount int                `json:"prescribed_count"`
	FinishedCount   int                `json:"finished_count"`
	Scores          models.VESPAScores `json:"scores"`
}

// NewStudentLinkResponse builds the console view of a link.
func NewStudentLinkResponse(link *models.StudentActivityLink) *StudentLinkResponse {
	return &StudentLinkResponse{
		StudentID:       link.StudentID,
		Prescribed:      link.Prescribed,
		Finished:        link.Finished,
		PrescribedCount: link.PrescribedCount(),
		FinishedCount:   link.FinishedCount(),
		Scores:          link.Scores,
	}
}
