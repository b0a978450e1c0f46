package models

import "time"

// Submission is a student's answer to a question. A student answers each question once.
type Submission struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	QuestionID     string     `gorm:"size:64;not null;uniqueIndex:idx_submission_student_question" json:"question_id"`
	StudentID      string     `gorm:"size:128;not null;uniqueIndex:idx_submission_student_question" json:"student_id"`
	AnswerText     string     `gorm:"type:text;not null" json:"answer_text"`
	Score          *float64   `json:"score"`
	Feedback       string     `gorm:"type:text" json:"feedback"`
	EvaluationMode string     `gorm:"size:32" json:"evaluation_mode"`
	Graded         bool       `gorm:"not null;default:false;index" json:"graded"`
	SubmittedAt    time.Time  `gorm:"autoCreateTime" json:"submitted_at"`
	GradedAt       *time.Time `json:"graded_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

const (
	// EvaluationModeRubric marks grades produced by the rubric pipeline.
	EvaluationModeRubric = "rubric"
	// EvaluationModeAPI marks grades produced by a remote model.
	EvaluationModeAPI = "api"
	// EvaluationModeSimulated marks grades produced by the word-count heuristic.
	EvaluationModeSimulated = "simulated"
	// EvaluationModeManual marks grades entered or overridden by a teacher.
	EvaluationModeManual = "manual"
)

// IsGraded reports whether the submission has a final grade.
func (s Submission) IsGraded() bool {
	return s.Graded
}

// GradingOverride records a teacher replacing a computed score.
type GradingOverride struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	QuestionID    string    `gorm:"size:64;not null;index" json:"question_id"`
	StudentID     string    `gorm:"size:128;not null;index" json:"student_id"`
	OriginalScore float64   `json:"original_score"`
	OverrideScore float64   `json:"override_score"`
	Reason        string    `gorm:"type:text;not null" json:"override_reason"`
	TeacherID     string    `gorm:"size:128;not null" json:"teacher_id"`
	CreatedAt     time.Time `json:"override_date"`
}
