package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// RubricItem groups the keywords and concepts that together earn a share of a question's points.
type RubricItem struct {
	Description string   `json:"description"`
	Points      float64  `json:"points"`
	Keywords    []string `json:"keywords"`
	Concepts    []string `json:"concepts"`
}

// Question is an authored prompt with its optional reference material and rubric.
type Question struct {
	ID              string         `gorm:"primaryKey;size:64" json:"id"`
	Subject         string         `gorm:"size:128;index;not null" json:"subject"`
	Topic           string         `gorm:"size:255" json:"topic"`
	Text            string         `gorm:"type:text;not null" json:"text"`
	ExpectedAnswer  string         `gorm:"type:text" json:"expected_answer"`
	GradingCriteria string         `gorm:"type:text" json:"grading_criteria"`
	ReferenceAnswer string         `gorm:"type:text" json:"reference_answer"`
	Rubric          datatypes.JSON `gorm:"type:json" json:"-"`
	TotalPoints     float64        `json:"total_points"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// SetRubric serializes the rubric items into the JSON storage column.
func (q *Question) SetRubric(items map[string]RubricItem) {
	if items == nil {
		items = map[string]RubricItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		q.Rubric = datatypes.JSON([]byte("{}"))
		return
	}
	q.Rubric = datatypes.JSON(data)
}

// RubricItems deserializes the stored rubric.
func (q Question) RubricItems() map[string]RubricItem {
	items := map[string]RubricItem{}
	if len(q.Rubric) == 0 {
		return items
	}
	if err := json.Unmarshal(q.Rubric, &items); err != nil {
		return map[string]RubricItem{}
	}
	return items
}
