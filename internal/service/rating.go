package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/planner"
)

// RatingService handles like/dislike preference signal.
type RatingService struct {
	db *gorm.DB
}

// NewRatingService creates a new RatingService instance
func NewRatingService(db *gorm.DB) *RatingService {
	return &RatingService{db: db}
}

// Rate stores a user's rating for a recipe. A second submission for the
// same (user, recipe) pair overwrites the prior value and bumps the
// timestamp.
func (s *RatingService) Rate(ctx context.Context, userID, recipeID uuid.UUID, liked bool) (*models.Rating, error) {
	var rating models.Rating
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND recipe_id = ?", userID, recipeID).
		First(&rating).Error

	switch {
	case err == nil:
		rating.Liked = liked
		rating.UpdatedAt = time.Now()
		if err := s.db.WithContext(ctx).Save(&rating).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rating = models.Rating{ID: uuid.New(), UserID: userID, RecipeID: recipeID, Liked: liked}
		if err := s.db.WithContext(ctx).Create(&rating).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return &rating, nil
}

// ListByUser returns all of a user's ratings.
func (s *RatingService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Rating, error) {
	var ratings []models.Rating
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&ratings).Error; err != nil {
		return nil, err
	}
	return ratings, nil
}

// Signal returns the user's rating map keyed by recipe id.
func (s *RatingService) Signal(ctx context.Context, userID uuid.UUID) (planner.Signal, error) {
	ratings, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sig := make(planner.Signal, len(ratings))
	for _, r := range ratings {
		sig[r.RecipeID] = r.Liked
	}
	return sig, nil
}

// Counts aggregates the user's rating volume in total and per meal type.
// A rating on a recipe tagged with several meal types counts toward each
// of them. The per-type split is computed in Go because the tag arrays are
// JSONB and the containment operators differ per dialect.
func (s *RatingService) Counts(ctx context.Context, userID uuid.UUID) (models.RatingCounts, error) {
	ratings, err := s.ListByUser(ctx, userID)
	if err != nil {
		return models.RatingCounts{}, err
	}

	counts := models.RatingCounts{
		Total:       len(ratings),
		PerMealType: make(map[string]int),
	}
	if len(ratings) == 0 {
		return counts, nil
	}

	ids := make([]uuid.UUID, len(ratings))
	for i, r := range ratings {
		ids[i] = r.RecipeID
	}

	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return models.RatingCounts{}, err
	}
	for _, r := range recipes {
		for _, mt := range r.MealTypes {
			counts.PerMealType[mt]++
		}
	}

	return counts, nil
}
