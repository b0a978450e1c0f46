package dto

import (
	"time"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// StudentProgressResponse summarises a student's graded work.
type StudentProgressResponse struct {
	StudentID          string   `json:"student_id"`
	CompletedQuestions []string `json:"completed_questions"`
	AverageScore       float64  `json:"average_score"`
	ImprovementAreas   []string `json:"improvement_areas"`
}

// PerformanceSummaryResponse condenses progress into counts.
type PerformanceSummaryResponse struct {
	StudentID          string   `json:"student_id"`
	TotalSubmissions   int      `json:"total_submissions"`
	GradedSubmissions  int      `json:"graded_submissions"`
	AverageScore       float64  `json:"average_score"`
	CompletedQuestions int      `json:"completed_questions"`
	ImprovementAreas   []string `json:"improvement_areas"`
}

// PaginationMeta captures pagination metadata for list responses.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ActivityListRequest defines filters for retrieving the grading audit trail.
type ActivityListRequest struct {
	Page       int    `query:"page" validate:"omitempty,gte=1"`
	PageSize   int    `query:"page_size" validate:"omitempty,gte=1,lte=200"`
	ActorID    string `query:"actor_id"`
	Action     string `query:"action"`
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
}

// ActivityResponse serializes audit entries.
type ActivityResponse struct {
	ID         uint                   `json:"id"`
	ActorID    string                 `json:"actor_id"`
	ActorRole  string                 `json:"actor_role"`
	Action     string                 `json:"action"`
	EntityType string                 `json:"entity_type"`
	EntityID   string                 `json:"entity_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	CreatedAt  time.Time              `json:"created_at"`
}

// ActivityListResponse wraps paginated audit entries.
type ActivityListResponse struct {
	Items      []ActivityResponse `json:"items"`
	Pagination PaginationMeta     `json:"pagination"`
}

// NewActivityResponse converts a model into an activity DTO.
func NewActivityResponse(entry models.ActivityLog) ActivityResponse {
	metadata := map[string]interface{}{}
	for key, value := range entry.Metadata {
		metadata[key] = value
	}

	return ActivityResponse{
		ID:         entry.ID,
		ActorID:    entry.ActorID,
		ActorRole:  entry.ActorRole,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   metadata,
		CreatedAt:  entry.CreatedAt,
	}
}
