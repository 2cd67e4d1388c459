package models

import (
	"time"

	"github.com/google/uuid"
)

// Rating is a user's signed preference for a recipe. At most one rating
// exists per (user, recipe) pair; a resubmission overwrites the prior value.
type Rating struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_recipe" json:"user_id"`
	RecipeID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_ratings_user_recipe" json:"recipe_id"`
	Liked     bool      `gorm:"not null" json:"liked"`
}

func (Rating) TableName() string {
	return "ratings"
}

// RatingCounts aggregates a user's rating volume for routing decisions.
type RatingCounts struct {
	Total       int            `json:"total"`
	PerMealType map[string]int `json:"per_meal_type"`
}
