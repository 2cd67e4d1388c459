package models

import (
	"time"

	"github.com/google/uuid"
)

// PlanHistoryEntry records one recipe placed into a persisted plan. The
// table is an append-only log: rows are written once per filled slot and
// never mutated.
type PlanHistoryEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	RecipeID    uuid.UUID `gorm:"type:uuid;not null;index" json:"recipe_id"`
	DayIndex    int       `gorm:"not null" json:"day_index"`
	MealType    string    `gorm:"size:20;not null" json:"meal_type"`
	GeneratedAt time.Time `gorm:"not null;index" json:"generated_at"`
	Method      string    `gorm:"size:30;not null" json:"method"`
}

func (PlanHistoryEntry) TableName() string {
	return "plan_history"
}
