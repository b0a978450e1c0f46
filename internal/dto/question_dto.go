package dto

import (
	"time"

	"github.com/Vishnu-Gupta-K/AI-Auto-Grader/internal/models"
)

// RubricItemRequest describes a rubric item in create and update payloads.
type RubricItemRequest struct {
	Description string   `json:"description" validate:"max=1000"`
	Points      float64  `json:"points" validate:"gte=0"`
	Keywords    []string `json:"keywords" validate:"omitempty,dive,required,max=256"`
	Concepts    []string `json:"concepts" validate:"omitempty,dive,required,max=512"`
}

// QuestionCreateRequest captures a new question. An empty id is generated server-side.
type QuestionCreateRequest struct {
	ID              string                       `json:"id" validate:"omitempty,max=64"`
	Subject         string                       `json:"subject" validate:"required,max=128"`
	Topic           string                       `json:"topic" validate:"max=255"`
	Text            string                       `json:"text" validate:"required,max=20000"`
	ExpectedAnswer  string                       `json:"expected_answer" validate:"max=50000"`
	GradingCriteria string                       `json:"grading_criteria" validate:"max=20000"`
	ReferenceAnswer string                       `json:"reference_answer" validate:"max=50000"`
	Rubric          map[string]RubricItemRequest `json:"rubric" validate:"omitempty,dive,keys,required,max=128,endkeys"`
	TotalPoints     float64                      `json:"total_points" validate:"gte=0"`
}

// QuestionUpdateRequest applies a partial update.
type QuestionUpdateRequest struct {
	Subject         *string                      `json:"subject" validate:"omitempty,min=1,max=128"`
	Topic           *string                      `json:"topic" validate:"omitempty,max=255"`
	Text            *string                      `json:"text" validate:"omitempty,min=1,max=20000"`
	ExpectedAnswer  *string                      `json:"expected_answer" validate:"omitempty,max=50000"`
	GradingCriteria *string                      `json:"grading_criteria" validate:"omitempty,max=20000"`
	ReferenceAnswer *string                      `json:"reference_answer" validate:"omitempty,max=50000"`
	Rubric          map[string]RubricItemRequest `json:"rubric" validate:"omitempty,dive,keys,required,max=128,endkeys"`
	TotalPoints     *float64                     `json:"total_points" validate:"omitempty,gte=0"`
}

// RubricUpdateRequest merges items into a question's rubric by name.
type RubricUpdateRequest struct {
	Items map[string]RubricItemRequest `json:"items" validate:"required,min=1,dive,keys,required,max=128,endkeys"`
}

// QuestionImportRequest carries a batch of questions for bulk import.
type QuestionImportRequest struct {
	Questions []QuestionCreateRequest `json:"questions" validate:"required,min=1,max=1000,dive"`
}

// QuestionImportResponse reports the outcome of a bulk import.
type QuestionImportResponse struct {
	Imported  int      `json:"imported"`
	FailedIDs []string `json:"failed_ids"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID              string                       `json:"id"`
	Subject         string                       `json:"subject"`
	Topic           string                       `json:"topic"`
	Text            string                       `json:"text"`
	ExpectedAnswer  string                       `json:"expected_answer"`
	GradingCriteria string                       `json:"grading_criteria"`
	ReferenceAnswer string                       `json:"reference_answer"`
	Rubric          map[string]RubricItemRequest `json:"rubric"`
	TotalPoints     float64                      `json:"total_points"`
	CreatedAt       time.Time                    `json:"created_at"`
	UpdatedAt       time.Time                    `json:"updated_at"`
}

// RubricItemsToModel converts wire rubric items into their stored shape.
func RubricItemsToModel(items map[string]RubricItemRequest) map[string]models.RubricItem {
	out := make(map[string]models.RubricItem, len(items))
	for name, item := range items {
		out[name] = models.RubricItem{
			Description: item.Description,
			Points:      item.Points,
			Keywords:    item.Keywords,
			Concepts:    item.Concepts,
		}
	}
	return out
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	rubric := make(map[string]RubricItemRequest)
	for name, item := range model.RubricItems() {
		rubric[name] = RubricItemRequest{
			Description: item.Description,
			Points:      item.Points,
			Keywords:    item.Keywords,
			Concepts:    item.Concepts,
		}
	}

	return QuestionResponse{
		ID:              model.ID,
		Subject:         model.Subject,
		Topic:           model.Topic,
		Text:            model.Text,
		ExpectedAnswer:  model.ExpectedAnswer,
		GradingCriteria: model.GradingCriteria,
		ReferenceAnswer: model.ReferenceAnswer,
		Rubric:          rubric,
		TotalPoints:     model.TotalPoints,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(items []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(items))
	for _, question := range items {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}
