package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Plan generation lifecycle states.
const (
	PlanStatusPending = "pending"
	PlanStatusRunning = "running"
	PlanStatusSuccess = "success"
	PlanStatusError   = "error"
)

// Which path produced the final plan.
const (
	SourceGenerative         = "generative"
	SourceSolver             = "solver"
	SourceGenerativeFallback = "generative_fallback"
)

// Translation lifecycle states. "none" is implicit: a missing
// PlanTranslation row means no translation was requested.
const (
	TranslationStatusPending = "pending"
	TranslationStatusSuccess = "success"
	TranslationStatusError   = "error"
)

// Error codes stored on a failed plan request. Each maps to a different
// user-facing remedy.
const (
	ErrCodeValidation        = "validation"
	ErrCodeGenerativeService = "generative_service"
	ErrCodeSolverInfeasible  = "solver_infeasible"
	ErrCodeSolverTimeout     = "solver_timeout"
	ErrCodePersistence       = "persistence"
)

// JSONB wraps arbitrary JSON for a jsonb column.
type JSONB json.RawMessage

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	return []byte(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[0:0], v...)
	case string:
		*j = JSONB(v)
	default:
		return fmt.Errorf("unsupported type for JSONB: %T", value)
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (j JSONB) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSONB) UnmarshalJSON(data []byte) error {
	*j = append((*j)[0:0], data...)
	return nil
}

// PlanRequest is one plan-generation request. The request layer creates it;
// the background worker that owns the request is the only writer of its
// status fields afterwards.
type PlanRequest struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`

	// Biometric and goal inputs for macro-target derivation.
	Age           int     `gorm:"not null" json:"age"`
	Sex           string  `gorm:"size:10;not null" json:"sex"`
	HeightCM      float64 `gorm:"not null" json:"height_cm"`
	WeightKG      float64 `gorm:"not null" json:"weight_kg"`
	ActivityLevel string  `gorm:"size:20;not null" json:"activity_level"`
	Goal          string  `gorm:"size:20;not null" json:"goal"`

	// Hard dietary filter and soft preferences.
	DietaryRestrictions JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"dietary_restrictions"`
	CuisinePreferences  JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"cuisine_preferences"`
	MealTypes           JSONBStringArray `gorm:"type:jsonb;not null;default:'[]'" json:"meal_types"`
	MaxCookMinutes      int              `json:"max_cook_minutes"`
	TargetLanguage      string           `gorm:"size:10" json:"target_language"`

	// Outcome, written once by the owning worker.
	PlanStatus       string `gorm:"size:20;not null;default:'pending';index" json:"plan_status"`
	GenerationSource string `gorm:"size:30" json:"generation_source,omitempty"`
	ResultJSON       JSONB  `gorm:"type:jsonb" json:"-"`
	ErrorCode        string `gorm:"size:30" json:"error_code,omitempty"`
	ErrorMessage     string `gorm:"type:text" json:"error_message,omitempty"`
	Hint             string `gorm:"type:text" json:"hint,omitempty"`
}

func (PlanRequest) TableName() string {
	return "plan_requests"
}

// PlanTranslation is the translation state machine row for one
// (plan, language) pair. It never touches the plan request's own status.
type PlanTranslation struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	PlanRequestID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_plan_translations_plan_lang" json:"plan_request_id"`
	Language      string    `gorm:"size:10;not null;uniqueIndex:idx_plan_translations_plan_lang" json:"language"`
	Status        string    `gorm:"size:20;not null;default:'pending'" json:"status"`
	PayloadJSON   JSONB     `gorm:"type:jsonb" json:"-"`
	ErrorMessage  string    `gorm:"type:text" json:"error_message,omitempty"`
}

func (PlanTranslation) TableName() string {
	return "plan_translations"
}

// MacroTarget is the per-day calorie and macro goal a plan is built against.
type MacroTarget struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// PlanMeal is one filled slot in the persisted plan payload.
type PlanMeal struct {
	RecipeID     uuid.UUID `json:"recipe_id"`
	Title        string    `json:"title"`
	Calories     float64   `json:"calories"`
	Protein      float64   `json:"protein"`
	Carbs        float64   `json:"carbs"`
	Fat          float64   `json:"fat"`
	Ingredients  []string  `json:"ingredients,omitempty"`
	Instructions []string  `json:"instructions,omitempty"`
}

// PlanDay is one day of the payload. Meals holds only the meal types the
// user takes; absent slots are absent keys, not nulls.
type PlanDay struct {
	DayIndex int                 `json:"day_index"`
	Calories float64             `json:"calories"`
	Protein  float64             `json:"protein"`
	Carbs    float64             `json:"carbs"`
	Fat      float64             `json:"fat"`
	Meals    map[string]PlanMeal `json:"meals"`
}

// PlanPayload is the persisted shape of a finished plan.
type PlanPayload struct {
	Days   []PlanDay   `json:"days"`
	Target MacroTarget `json:"target"`
}
