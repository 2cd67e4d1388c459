package planner

import (
	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

// Path identifies which generation pipeline serves a request.
type Path string

const (
	PathGenerative Path = "generative"
	PathSolver     Path = "solver"
)

// ChoosePath routes a request between the generative planner and the
// constraint solver based on accumulated rating volume. Both the total
// count and the per-meal-type counts must clear their configured minimums:
// a user with plenty of breakfast ratings but none for dinner is still a
// cold start for planning purposes.
func ChoosePath(counts models.RatingCounts, mealTypes []string, cfg config.PlannerConfig) Path {
	if counts.Total < cfg.MinTotalRatings {
		return PathGenerative
	}
	for _, mt := range mealTypes {
		if counts.PerMealType[mt] < cfg.MinRatingsPerMealType {
			return PathGenerative
		}
	}
	return PathSolver
}
