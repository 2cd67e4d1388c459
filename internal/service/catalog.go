package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/models"
)

// CatalogService is the read surface over the recipe catalog. The catalog
// is read-mostly and safe to share across concurrent solves without
// locking; writes happen through admin tooling outside this service.
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a new CatalogService instance
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// ListActive returns all active recipes.
func (s *CatalogService) ListActive(ctx context.Context) ([]models.Recipe, error) {
	var recipes []models.Recipe
	if err := s.db.WithContext(ctx).Where("active = ?", true).Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// ListActiveByMealType returns active recipes tagged with the meal type.
// Tag containment is checked in Go: the JSONB operators differ between
// postgres and the sqlite used in tests.
func (s *CatalogService) ListActiveByMealType(ctx context.Context, mealType string) ([]models.Recipe, error) {
	recipes, err := s.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	filtered := recipes[:0]
	for _, r := range recipes {
		if r.HasMealType(mealType) {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// SearchByText returns active recipes matching the query, best match
// first. On postgres the match combines embedding similarity with keyword
// search; elsewhere it falls back to keyword search alone.
func (s *CatalogService) SearchByText(ctx context.Context, query, mealType string, limit int) ([]models.Recipe, error) {
	if limit <= 0 {
		limit = 10
	}

	var recipes []models.Recipe
	dbQuery := s.db.WithContext(ctx).Where("active = ?", true)

	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		if s.db.Dialector.Name() == "postgres" {
			vec := GenerateEmbedding(query)
			subQuery := s.db.Model(&models.Recipe{}).
				Select("id, embedding <-> ? as similarity", vec).
				Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(ingredients::text) LIKE ?", like, like, like)
			dbQuery = dbQuery.Joins("JOIN (?) as search ON recipes.id = search.id", subQuery).
				Order("search.similarity ASC")
		} else {
			dbQuery = dbQuery.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(ingredients) LIKE ?", like, like, like).
				Order("title ASC")
		}
	}

	if err := dbQuery.Limit(limit * 2).Find(&recipes).Error; err != nil {
		return nil, err
	}

	// Meal-type filtering happens after the fetch for the same dialect
	// reason as ListActiveByMealType. The limit is widened above so the
	// filter still leaves enough matches.
	filtered := make([]models.Recipe, 0, limit)
	for _, r := range recipes {
		if mealType == "" || r.HasMealType(mealType) {
			filtered = append(filtered, r)
			if len(filtered) == limit {
				break
			}
		}
	}
	return filtered, nil
}

// GetRecipe retrieves a recipe by ID
func (s *CatalogService) GetRecipe(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.WithContext(ctx).First(&recipe, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// CreateRecipe inserts a catalog entry. Used by seeding and admin tooling.
func (s *CatalogService) CreateRecipe(ctx context.Context, recipe *models.Recipe) (*models.Recipe, error) {
	if recipe.ID == uuid.Nil {
		recipe.ID = uuid.New()
	}
	recipe.Embedding = GenerateEmbedding(recipe.Title + " " + recipe.Description)
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}
