package types

import "encoding/json"

// SubmitPlanRequest is the inbound preference payload for plan generation.
type SubmitPlanRequest struct {
	Age                 int      `json:"age" binding:"required"`
	Sex                 string   `json:"sex" binding:"required"`
	HeightCM            float64  `json:"height_cm" binding:"required"`
	WeightKG            float64  `json:"weight_kg" binding:"required"`
	ActivityLevel       string   `json:"activity_level" binding:"required"`
	Goal                string   `json:"goal" binding:"required"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	CuisinePreferences  []string `json:"cuisine_preferences"`
	MealTypes           []string `json:"meal_types" binding:"required"`
	MaxCookMinutes      int      `json:"max_cook_minutes"`
	TargetLanguage      string   `json:"target_language"`
}

// SubmitPlanResponse acknowledges an accepted plan request.
type SubmitPlanResponse struct {
	ID         string `json:"id"`
	PlanStatus string `json:"plan_status"`
}

// PlanErrorPayload carries enough detail to distinguish "try again later"
// from "add more ratings".
type PlanErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PlanPollResponse is the idempotent poll payload for one plan request.
type PlanPollResponse struct {
	ID                string            `json:"id"`
	PlanStatus        string            `json:"plan_status"`
	Plan              json.RawMessage   `json:"plan"`
	GenerationSource  string            `json:"generation_source,omitempty"`
	TranslationStatus string            `json:"translation_status"`
	Hint              string            `json:"hint,omitempty"`
	Error             *PlanErrorPayload `json:"error"`
}

// RateRecipeRequest submits or overwrites a like/dislike rating.
type RateRecipeRequest struct {
	RecipeID string `json:"recipe_id" binding:"required"`
	Liked    *bool  `json:"liked" binding:"required"`
}
