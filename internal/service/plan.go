package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/planner"
	"github.com/weekplate/backend/internal/types"
)

// TranslationStatusNone is reported when no translation row exists for the
// requested language.
const TranslationStatusNone = "none"

var validMealTypes = map[string]bool{
	models.MealTypeBreakfast: true,
	models.MealTypeLunch:     true,
	models.MealTypeDinner:    true,
	models.MealTypeSnack:     true,
}

var validSexes = map[string]bool{"male": true, "female": true, "other": true}

var validActivityLevels = map[string]bool{
	"sedentary": true, "light": true, "moderate": true, "active": true, "athlete": true,
}

var validGoals = map[string]bool{"lose": true, "maintain": true, "gain": true}

// PlanService persists plan requests and owns their status transitions.
// Status updates are guarded by the expected prior state so a worker can
// never regress a terminal request.
type PlanService struct {
	db    *gorm.DB
	cache *RedisCoordinator
}

// NewPlanService creates a new PlanService instance. The cache is optional.
func NewPlanService(db *gorm.DB, cache *RedisCoordinator) *PlanService {
	return &PlanService{db: db, cache: cache}
}

// ValidateSubmit rejects malformed preferences before any background work
// is scheduled.
func (s *PlanService) ValidateSubmit(req *types.SubmitPlanRequest) error {
	switch {
	case req.Age < 13 || req.Age > 120:
		return &planner.ValidationError{Field: "age", Message: "must be between 13 and 120"}
	case !validSexes[req.Sex]:
		return &planner.ValidationError{Field: "sex", Message: "must be male, female or other"}
	case req.HeightCM < 100 || req.HeightCM > 250:
		return &planner.ValidationError{Field: "height_cm", Message: "must be between 100 and 250"}
	case req.WeightKG < 30 || req.WeightKG > 350:
		return &planner.ValidationError{Field: "weight_kg", Message: "must be between 30 and 350"}
	case !validActivityLevels[req.ActivityLevel]:
		return &planner.ValidationError{Field: "activity_level", Message: "is not a known activity level"}
	case !validGoals[req.Goal]:
		return &planner.ValidationError{Field: "goal", Message: "must be lose, maintain or gain"}
	case len(req.MealTypes) == 0:
		return &planner.ValidationError{Field: "meal_types", Message: "must not be empty"}
	case req.MaxCookMinutes < 0:
		return &planner.ValidationError{Field: "max_cook_minutes", Message: "must not be negative"}
	}

	for _, mt := range req.MealTypes {
		if !validMealTypes[mt] {
			return &planner.ValidationError{Field: "meal_types", Message: fmt.Sprintf("unknown meal type %q", mt)}
		}
	}
	if req.TargetLanguage != "" && (len(req.TargetLanguage) < 2 || len(req.TargetLanguage) > 5) {
		return &planner.ValidationError{Field: "target_language", Message: "must be an ISO language code"}
	}

	return nil
}

// CreatePlanRequest persists an accepted preference with status pending.
func (s *PlanService) CreatePlanRequest(ctx context.Context, userID uuid.UUID, req *types.SubmitPlanRequest) (*models.PlanRequest, error) {
	pref := &models.PlanRequest{
		ID:                  uuid.New(),
		UserID:              userID,
		Age:                 req.Age,
		Sex:                 req.Sex,
		HeightCM:            req.HeightCM,
		WeightKG:            req.WeightKG,
		ActivityLevel:       req.ActivityLevel,
		Goal:                req.Goal,
		DietaryRestrictions: req.DietaryRestrictions,
		CuisinePreferences:  req.CuisinePreferences,
		MealTypes:           req.MealTypes,
		MaxCookMinutes:      req.MaxCookMinutes,
		TargetLanguage:      req.TargetLanguage,
		PlanStatus:          models.PlanStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(pref).Error; err != nil {
		return nil, err
	}
	return pref, nil
}

// GetPlanRequest retrieves a plan request by ID
func (s *PlanService) GetPlanRequest(ctx context.Context, id uuid.UUID) (*models.PlanRequest, error) {
	var pref models.PlanRequest
	if err := s.db.WithContext(ctx).First(&pref, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pref, nil
}

// MarkRunning transitions pending -> running.
func (s *PlanService) MarkRunning(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.PlanRequest{}).
		Where("id = ? AND plan_status = ?", id, models.PlanStatusPending).
		Update("plan_status", models.PlanStatusRunning)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan request %s is not pending", id)
	}
	return nil
}

// MarkSuccess transitions running -> success and writes the result exactly
// once.
func (s *PlanService) MarkSuccess(ctx context.Context, id uuid.UUID, source string, payload *models.PlanPayload, hint string) error {
	encoded, err := planner.EncodePayload(payload)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.PlanRequest{}).
		Where("id = ? AND plan_status = ?", id, models.PlanStatusRunning).
		Updates(map[string]interface{}{
			"plan_status":       models.PlanStatusSuccess,
			"generation_source": source,
			"result_json":       encoded,
			"hint":              hint,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan request %s is not running", id)
	}
	return nil
}

// MarkError transitions running -> error with a coded cause.
func (s *PlanService) MarkError(ctx context.Context, id uuid.UUID, code, message string) error {
	res := s.db.WithContext(ctx).Model(&models.PlanRequest{}).
		Where("id = ? AND plan_status = ?", id, models.PlanStatusRunning).
		Updates(map[string]interface{}{
			"plan_status":   models.PlanStatusError,
			"error_code":    code,
			"error_message": message,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("plan request %s is not running", id)
	}
	return nil
}

// GetTranslation returns the translation row for one (plan, language) key.
func (s *PlanService) GetTranslation(ctx context.Context, planID uuid.UUID, language string) (*models.PlanTranslation, error) {
	var tr models.PlanTranslation
	err := s.db.WithContext(ctx).
		Where("plan_request_id = ? AND language = ?", planID, language).
		First(&tr).Error
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

// EnsureTranslation creates a pending translation row if none exists yet.
// It reports whether the row was created by this call.
func (s *PlanService) EnsureTranslation(ctx context.Context, planID uuid.UUID, language string) (bool, error) {
	existing, err := s.GetTranslation(ctx, planID, language)
	if err == nil && existing != nil {
		return false, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, err
	}

	tr := &models.PlanTranslation{
		ID:            uuid.New(),
		PlanRequestID: planID,
		Language:      language,
		Status:        models.TranslationStatusPending,
	}
	if err := s.db.WithContext(ctx).Create(tr).Error; err != nil {
		return false, err
	}
	return true, nil
}

// MarkTranslation finishes one translation attempt.
func (s *PlanService) MarkTranslation(ctx context.Context, planID uuid.UUID, language, status string, payload *models.PlanPayload, errMsg string) error {
	updates := map[string]interface{}{
		"status":        status,
		"error_message": errMsg,
		"updated_at":    time.Now(),
	}
	if payload != nil {
		encoded, err := planner.EncodePayload(payload)
		if err != nil {
			return err
		}
		updates["payload_json"] = encoded
	}
	return s.db.WithContext(ctx).Model(&models.PlanTranslation{}).
		Where("plan_request_id = ? AND language = ?", planID, language).
		Updates(updates).Error
}

// Poll assembles the idempotent poll response for one request and language.
// Once the plan is terminal the plan content is byte-stable: it is written
// once and served verbatim, through the Redis cache when available.
func (s *PlanService) Poll(ctx context.Context, id uuid.UUID, language string) (*types.PlanPollResponse, error) {
	pref, err := s.GetPlanRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := &types.PlanPollResponse{
		ID:                pref.ID.String(),
		PlanStatus:        pref.PlanStatus,
		GenerationSource:  pref.GenerationSource,
		TranslationStatus: TranslationStatusNone,
		Hint:              pref.Hint,
	}

	if pref.PlanStatus == models.PlanStatusError {
		resp.Error = &types.PlanErrorPayload{Code: pref.ErrorCode, Message: pref.ErrorMessage}
		return resp, nil
	}
	if pref.PlanStatus != models.PlanStatusSuccess {
		return resp, nil
	}

	// The untranslated plan stays servable regardless of translation
	// state. Only a successful translation swaps the content.
	contentLang := ""
	content := []byte(pref.ResultJSON)

	if language != "" {
		tr, err := s.GetTranslation(ctx, id, language)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Leave status at none; the handler decides whether to
			// start a translation.
		case err != nil:
			return nil, err
		default:
			resp.TranslationStatus = tr.Status
			if tr.Status == models.TranslationStatusSuccess && len(tr.PayloadJSON) > 0 {
				contentLang = language
				content = []byte(tr.PayloadJSON)
			}
		}
	}

	if s.cache != nil {
		if cached, err := s.cache.GetPlanContent(ctx, id, contentLang); err == nil && cached != nil {
			resp.Plan = json.RawMessage(cached)
			return resp, nil
		}
		if err := s.cache.CachePlanContent(ctx, id, contentLang, content); err != nil {
			log.Printf("[PlanService] failed to cache plan content: %v", err)
		}
	}

	resp.Plan = json.RawMessage(content)
	return resp, nil
}
