package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/planner"
	"github.com/weekplate/backend/internal/types"
)

// IPlanService defines the plan request surface consumed by the handlers.
type IPlanService interface {
	ValidateSubmit(req *types.SubmitPlanRequest) error
	CreatePlanRequest(ctx context.Context, userID uuid.UUID, req *types.SubmitPlanRequest) (*models.PlanRequest, error)
	GetPlanRequest(ctx context.Context, id uuid.UUID) (*models.PlanRequest, error)
	EnsureTranslation(ctx context.Context, planID uuid.UUID, language string) (bool, error)
	Poll(ctx context.Context, id uuid.UUID, language string) (*types.PlanPollResponse, error)
}

// IRatingService defines the rating surface consumed by the handlers.
type IRatingService interface {
	Rate(ctx context.Context, userID, recipeID uuid.UUID, liked bool) (*models.Rating, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error)
	Counts(ctx context.Context, userID uuid.UUID) (models.RatingCounts, error)
}

// ICatalogService defines the catalog read surface.
type ICatalogService interface {
	ListActive(ctx context.Context) ([]models.Recipe, error)
	ListActiveByMealType(ctx context.Context, mealType string) ([]models.Recipe, error)
	SearchByText(ctx context.Context, query, mealType string, limit int) ([]models.Recipe, error)
	GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
}

// ITextService is the generative text dependency, satisfied by LLMService.
type ITextService interface {
	planner.TextService
	planner.TranslationService
}
