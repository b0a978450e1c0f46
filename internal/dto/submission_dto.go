package dto

import (
	"time"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// SubmissionCreateRequest captures a student's answer.
type SubmissionCreateRequest struct {
	QuestionID string `json:"question_id" validate:"required,max=64"`
	StudentID  string `json:"student_id" validate:"required,max=128"`
	AnswerText string `json:"answer_text" validate:"required,max=50000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	QuestionID string `query:"question_id" validate:"omitempty,max=64"`
	StudentID  string `query:"student_id" validate:"omitempty,max=128"`
	Graded     *bool  `query:"graded"`
}

// GradeUpdateRequest records a manual grade for a submission.
type GradeUpdateRequest struct {
	Score    *float64 `json:"score" validate:"required,gte=0"`
	Feedback string   `json:"feedback" validate:"max=20000"`
}

// OverrideCreateRequest replaces a computed score with a teacher's judgement.
type OverrideCreateRequest struct {
	QuestionID    string   `json:"question_id" validate:"required,max=64"`
	StudentID     string   `json:"student_id" validate:"required,max=128"`
	OverrideScore *float64 `json:"override_score" validate:"required,gte=0"`
	Reason        string   `json:"override_reason" validate:"required,min=3,max=2000"`
	TeacherID     string   `json:"teacher_id" validate:"required,max=128"`
}

// OverrideFilter narrows override listings.
type OverrideFilter struct {
	QuestionID string `query:"question_id"`
	StudentID  string `query:"student_id"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID             uint       `json:"id"`
	QuestionID     string     `json:"question_id"`
	StudentID      string     `json:"student_id"`
	AnswerText     string     `json:"answer_text"`
	Score          *float64   `json:"score"`
	Feedback       string     `json:"feedback"`
	EvaluationMode string     `json:"evaluation_mode,omitempty"`
	Graded         bool       `json:"graded"`
	SubmittedAt    time.Time  `json:"submitted_at"`
	GradedAt       *time.Time `json:"graded_at"`
}

// OverrideResponse serializes a grading override.
type OverrideResponse struct {
	ID            uint      `json:"id"`
	QuestionID    string    `json:"question_id"`
	StudentID     string    `json:"student_id"`
	OriginalScore float64   `json:"original_score"`
	OverrideScore float64   `json:"override_score"`
	Reason        string    `json:"override_reason"`
	TeacherID     string    `json:"teacher_id"`
	CreatedAt     time.Time `json:"override_date"`
}

// SubmissionGradeResponse pairs the stored submission with the grading detail that produced it.
type SubmissionGradeResponse struct {
	Submission SubmissionResponse  `json:"submission"`
	Rubric     *GradingResult      `json:"rubric,omitempty"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	return SubmissionResponse{
		ID:             model.ID,
		QuestionID:     model.QuestionID,
		StudentID:      model.StudentID,
		AnswerText:     model.AnswerText,
		Score:          model.Score,
		Feedback:       model.Feedback,
		EvaluationMode: model.EvaluationMode,
		Graded:         model.Graded,
		SubmittedAt:    model.SubmittedAt,
		GradedAt:       model.GradedAt,
	}
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(items []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(items))
	for _, submission := range items {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}

// NewOverrideResponse converts a GradingOverride model into a DTO.
func NewOverrideResponse(model models.GradingOverride) OverrideResponse {
	return OverrideResponse{
		ID:            model.ID,
		QuestionID:    model.QuestionID,
		StudentID:     model.StudentID,
		OriginalScore: model.OriginalScore,
		OverrideScore: model.OverrideScore,
		Reason:        model.Reason,
		TeacherID:     model.TeacherID,
		CreatedAt:     model.CreatedAt,
	}
}

// NewOverrideResponseSlice converts override models into DTOs.
func NewOverrideResponseSlice(items []models.GradingOverride) []OverrideResponse {
	responses := make([]OverrideResponse, 0, len(items))
	for _, override := range items {
		responses = append(responses, NewOverrideResponse(override))
	}

	return responses
}

// GradeEvent is pushed to live feed subscribers whenever a submission receives a grade.
type GradeEvent struct {
	SubmissionID uint      `json:"submission_id"`
	QuestionID   string    `json:"question_id"`
	StudentID    string    `json:"student_id"`
	Score        float64   `json:"score"`
	Mode         string    `json:"evaluation_mode"`
	GradedAt     time.Time `json:"graded_at"`
}

// NewGradeEvent derives a live feed event from a graded submission.
func NewGradeEvent(model models.Submission) GradeEvent {
	event := GradeEvent{
		SubmissionID: model.ID,
		QuestionID:   model.QuestionID,
		StudentID:    model.StudentID,
		Mode:         model.EvaluationMode,
	}
	if model.Score != nil {
		event.Score = *model.Score
	}
	if model.GradedAt != nil {
		event.GradedAt = *model.GradedAt
	}
	return event
}
