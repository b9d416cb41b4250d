package dto

import "github.com/vespa-learn/activity-api/internal/models"

// StudentActivitiesResponse groups a student's activities for the player:
// what staff prescribed, and what the score gating suggests next.
type StudentActivitiesResponse struct {
	Prescribed []models.Activity `json:"prescribed"`
	Suggested  []models.Activity `json:"suggested"`
	Finished   []string          `json:"finished"`
}
