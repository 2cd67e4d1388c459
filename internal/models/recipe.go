package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	pgvector "github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// Meal type tags a recipe may carry. A recipe can carry more than one.
const (
	MealTypeBreakfast = "breakfast"
	MealTypeLunch     = "lunch"
	MealTypeDinner    = "dinner"
	MealTypeSnack     = "snack"
)

// JSONBStringArray is a custom type for handling string arrays in JSONB
type JSONBStringArray []string

// Value implements the driver.Valuer interface
func (a JSONBStringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *JSONBStringArray) Scan(value interface{}) error {
	if value == nil {
		*a = JSONBStringArray{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return nil
	}

	return json.Unmarshal(bytes, a)
}

// Contains reports whether the array holds the given value.
func (a JSONBStringArray) Contains(s string) bool {
	for _, v := range a {
		if v == s {
			return true
		}
	}
	return false
}

// Recipe is a catalog entry. Nutrition fields are pointers: a nil value
// means the figure is unknown, which must never be read as zero when
// scoring macro fit.
type Recipe struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    gorm.DeletedAt   `gorm:"index" json:"-"`
	Title        string           `gorm:"size:255;not null" json:"title"`
	Description  string           `gorm:"type:text" json:"description"`
	MealTypes    JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"meal_types"`
	DietaryTags  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"dietary_tags"`
	Cuisine      string           `gorm:"size:50" json:"cuisine"`
	Ingredients  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"ingredients"`
	Instructions JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"instructions"`
	Calories     *float64         `gorm:"type:float" json:"calories,omitempty"`
	Protein      *float64         `gorm:"type:float" json:"protein,omitempty"`
	Carbs        *float64         `gorm:"type:float" json:"carbs,omitempty"`
	Fat          *float64         `gorm:"type:float" json:"fat,omitempty"`
	CookMinutes  int              `json:"cook_minutes"`
	Active       bool             `gorm:"not null;default:true;index" json:"active"`
	Embedding    pgvector.Vector  `gorm:"type:vector(3)" json:"-"`
}

func (Recipe) TableName() string {
	return "recipes"
}

// HasCompleteNutrition reports whether all four macro fields are known.
func (r *Recipe) HasCompleteNutrition() bool {
	return r.Calories != nil && r.Protein != nil && r.Carbs != nil && r.Fat != nil
}

// HasMealType reports whether the recipe is tagged for the given slot type.
func (r *Recipe) HasMealType(mealType string) bool {
	return r.MealTypes.Contains(mealType)
}

// SatisfiesRestrictions reports whether every restriction appears in the
// recipe's dietary tags. Restrictions are a hard filter.
func (r *Recipe) SatisfiesRestrictions(restrictions []string) bool {
	for _, restriction := range restrictions {
		if !r.DietaryTags.Contains(restriction) {
			return false
		}
	}
	return true
}
