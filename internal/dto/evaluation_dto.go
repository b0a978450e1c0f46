package dto

import "github.com/Vishnu-Gupta-K/AI-Auto-Grader/pkg/ai"

// EvaluationRequest asks the LLM evaluator to grade a single answer.
type EvaluationRequest struct {
	Question        string `json:"question" validate:"required,max=20000"`
	StudentAnswer   string `json:"student_answer" validate:"required,max=50000"`
	ExpectedAnswer  string `json:"expected_answer" validate:"max=50000"`
	GradingCriteria string `json:"grading_criteria" validate:"max=20000"`
}

// ToInput converts the request into evaluator input.
func (r EvaluationRequest) ToInput() ai.EvaluationInput {
	return ai.EvaluationInput{
		Question:        r.Question,
		StudentAnswer:   r.StudentAnswer,
		ExpectedAnswer:  r.ExpectedAnswer,
		GradingCriteria: r.GradingCriteria,
	}
}

// EvaluationResponse wraps an evaluation outcome.
type EvaluationResponse struct {
	ai.EvaluationOutcome
	Degraded bool `json:"degraded"`
}

// NewEvaluationResponse converts an outcome into its wire shape.
func NewEvaluationResponse(outcome ai.EvaluationOutcome) EvaluationResponse {
	return EvaluationResponse{EvaluationOutcome: outcome, Degraded: outcome.Degraded()}
}
