package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/planner"
)

// HistoryService reads and appends the plan-history log. Entries are
// written once per placed recipe and never updated.
type HistoryService struct {
	db *gorm.DB
}

// NewHistoryService creates a new HistoryService instance
func NewHistoryService(db *gorm.DB) *HistoryService {
	return &HistoryService{db: db}
}

// Recency returns the recipes served to the user since the cutoff, keyed
// by recipe id with the latest serving time.
func (s *HistoryService) Recency(ctx context.Context, userID uuid.UUID, since time.Time) (planner.RecencySet, error) {
	var entries []models.PlanHistoryEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND generated_at >= ?", userID, since).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	set := make(planner.RecencySet, len(entries))
	for _, e := range entries {
		if last, ok := set[e.RecipeID]; !ok || e.GeneratedAt.After(last) {
			set[e.RecipeID] = e.GeneratedAt
		}
	}
	return set, nil
}

// AppendPlacements writes one history row per filled plan cell.
func (s *HistoryService) AppendPlacements(ctx context.Context, entries []models.PlanHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == uuid.Nil {
			entries[i].ID = uuid.New()
		}
	}
	return s.db.WithContext(ctx).Create(&entries).Error
}

// ListByUser returns the user's history newest first, for display and
// debugging.
func (s *HistoryService) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PlanHistoryEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var entries []models.PlanHistoryEntry
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
