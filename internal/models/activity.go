package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityLog captures auditable grading events.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    string            `gorm:"size:128;not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   string            `gorm:"size:128" json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}

// All returns every model managed by the schema migration.
func All() []interface{} {
	return []interface{}{
		&Question{},
		&Submission{},
		&GradingOverride{},
		&ActivityLog{},
	}
}
