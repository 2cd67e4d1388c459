package planner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

// minReconcileFitness is the floor below which a text-suggested match is
// discarded in favor of the catalog's best eligible candidate for the slot.
const minReconcileFitness = 0.1

// GenerativeCalorieTolerance is the tolerance the generative path aims for
// around the daily calorie target. Reconciliation prefers candidates that
// keep the day inside the band; unlike the solver band it is not a hard
// constraint, so a thin catalog still yields a plan, with a hint on the
// result when a day lands outside it.
const GenerativeCalorieTolerance = 0.30

// candidateSearchLimit bounds how many catalog matches are pulled per
// suggested meal name.
const candidateSearchLimit = 10

// TextService is the generative text dependency of the cold-start path.
type TextService interface {
	// DeriveMacroTarget asks the service for a daily macro target from
	// the user's biometrics and goal, constrained to structured numeric
	// output.
	DeriveMacroTarget(ctx context.Context, pref *models.PlanRequest) (models.MacroTarget, error)

	// SuggestMeals returns a meal-name suggestion per (day, meal type)
	// cell for the requested horizon.
	SuggestMeals(ctx context.Context, pref *models.PlanRequest, target models.MacroTarget, days int, mealTypes []string) ([]map[string]string, error)
}

// CandidateSource is the catalog read surface the generative path
// reconciles against.
type CandidateSource interface {
	// SearchByText returns active catalog recipes matching the query,
	// best match first.
	SearchByText(ctx context.Context, query, mealType string, limit int) ([]models.Recipe, error)

	// ListActiveByMealType returns all active recipes tagged with the
	// meal type.
	ListActiveByMealType(ctx context.Context, mealType string) ([]models.Recipe, error)
}

// GenerativePlanner is the cold-start path: it derives a macro target and a
// candidate plan from the text service, then reconciles every suggestion
// against the recipe catalog. It never returns a partially filled plan.
type GenerativePlanner struct {
	text    TextService
	catalog CandidateSource
	cfg     config.PlannerConfig
}

// NewGenerativePlanner creates a GenerativePlanner.
func NewGenerativePlanner(text TextService, catalog CandidateSource, cfg config.PlannerConfig) *GenerativePlanner {
	return &GenerativePlanner{text: text, catalog: catalog, cfg: cfg}
}

// Generate produces a complete weekly plan or fails with a typed error.
// The rating signal is carried through scoring so a fallback run after a
// solver failure is not blind to the user's preferences. The returned hint
// is non-empty when the catalog could not keep every day's calories inside
// the stated tolerance band.
func (g *GenerativePlanner) Generate(ctx context.Context, pref *models.PlanRequest, sig Signal, recency RecencySet) (*models.PlanPayload, string, error) {
	mealTypes := canonicalMealTypes(pref.MealTypes)
	if len(mealTypes) == 0 {
		return nil, "", &ValidationError{Field: "meal_types", Message: "must not be empty"}
	}

	target, err := g.text.DeriveMacroTarget(ctx, pref)
	if err != nil {
		return nil, "", &GenerativeServiceError{Op: "derive macro target", Err: err}
	}
	if target.Calories <= 0 {
		// Unusable numeric output. Fall back to the biometric formula
		// rather than failing the whole attempt over a bad number.
		target = DeriveMacroTarget(pref)
	}

	suggestions, err := g.text.SuggestMeals(ctx, pref, target, PlanDays, mealTypes)
	if err != nil {
		return nil, "", &GenerativeServiceError{Op: "suggest meals", Err: err}
	}
	if len(suggestions) < PlanDays {
		return nil, "", &GenerativeServiceError{Op: "suggest meals", Err: fmt.Errorf("got %d days, want %d", len(suggestions), PlanDays)}
	}

	loCal := target.Calories * (1 - GenerativeCalorieTolerance)
	hiCal := target.Calories * (1 + GenerativeCalorieTolerance)

	used := make(map[uuid.UUID]bool)
	payload := &models.PlanPayload{Target: target, Days: make([]models.PlanDay, 0, PlanDays)}
	offTarget := false

	for day := 0; day < PlanDays; day++ {
		pd := models.PlanDay{DayIndex: day, Meals: make(map[string]models.PlanMeal, len(mealTypes))}
		allKnown := true

		for i, mt := range mealTypes {
			slot := SlotContext{
				MealType:       mt,
				Restrictions:   pref.DietaryRestrictions,
				Target:         target,
				MealsPerDay:    len(mealTypes),
				MaxCookMinutes: pref.MaxCookMinutes,
				// Suggestions without catalog nutrition stay usable
				// here; they are placed unscored instead of dropped.
				RequireNutrition: false,
			}

			// Remaining calorie room for the day. The last slot must also
			// lift the total over the band floor.
			win := calorieWindow{max: hiCal - pd.Calories}
			if i == len(mealTypes)-1 {
				win.min = loCal - pd.Calories
			}

			recipe, err := g.reconcileSlot(ctx, suggestions[day][mt], slot, sig, recency, used, win)
			if err != nil {
				return nil, "", err
			}

			used[recipe.ID] = true
			meal := models.PlanMeal{
				RecipeID:     recipe.ID,
				Title:        recipe.Title,
				Ingredients:  recipe.Ingredients,
				Instructions: recipe.Instructions,
			}
			// Only known figures enter the day summary. A missing field
			// stays missing; it must not count as zero.
			if recipe.HasCompleteNutrition() {
				meal.Calories = *recipe.Calories
				meal.Protein = *recipe.Protein
				meal.Carbs = *recipe.Carbs
				meal.Fat = *recipe.Fat
				pd.Calories += meal.Calories
				pd.Protein += meal.Protein
				pd.Carbs += meal.Carbs
				pd.Fat += meal.Fat
			} else {
				allKnown = false
			}
			pd.Meals[mt] = meal
		}

		// Days with partial nutrition cannot be judged against the band.
		if allKnown && (pd.Calories < loCal || pd.Calories > hiCal) {
			offTarget = true
		}

		payload.Days = append(payload.Days, pd)
	}

	var hint string
	if offTarget {
		hint = "the available recipes could not match your daily calorie target; some days fall outside the expected range"
	}
	return payload, hint, nil
}

// calorieWindow is the calorie room left in the current day. A recipe with
// unknown calories never fits a window.
type calorieWindow struct {
	min, max float64
}

func (w calorieWindow) admits(r *models.Recipe) bool {
	if r.Calories == nil {
		return false
	}
	return *r.Calories >= w.min && *r.Calories <= w.max
}

// reconcileSlot matches one suggested meal name against the catalog.
// Candidates that keep the day inside the calorie window win over better
// scored ones that do not. If no eligible match clears the fitness floor,
// the slot falls back to the catalog's best eligible candidate rather than
// staying empty; if even that yields nothing, the whole attempt fails.
func (g *GenerativePlanner) reconcileSlot(ctx context.Context, suggestion string, slot SlotContext, sig Signal, recency RecencySet, used map[uuid.UUID]bool, win calorieWindow) (*models.Recipe, error) {
	if suggestion != "" {
		matches, err := g.catalog.SearchByText(ctx, suggestion, slot.MealType, candidateSearchLimit)
		if err != nil {
			return nil, fmt.Errorf("search catalog for %q: %w", suggestion, err)
		}
		if recipe := pickCandidate(RankCandidates(matches, slot, sig, recency), used, minReconcileFitness, win); recipe != nil {
			return recipe, nil
		}
	}

	all, err := g.catalog.ListActiveByMealType(ctx, slot.MealType)
	if err != nil {
		return nil, fmt.Errorf("list catalog for %s: %w", slot.MealType, err)
	}
	if recipe := pickCandidate(RankCandidates(all, slot, sig, recency), used, -1, win); recipe != nil {
		return recipe, nil
	}

	return nil, &GenerativeServiceError{
		Op:  "reconcile",
		Err: fmt.Errorf("no eligible catalog recipe left for %s", slot.MealType),
	}
}

// pickCandidate takes the best unused candidate above the fitness floor,
// preferring ones inside the calorie window.
func pickCandidate(ranked []Candidate, used map[uuid.UUID]bool, floor float64, win calorieWindow) *models.Recipe {
	var fallback *models.Recipe
	for _, c := range ranked {
		if used[c.Recipe.ID] || c.Fitness < floor {
			continue
		}
		if win.admits(c.Recipe) {
			return c.Recipe
		}
		if fallback == nil {
			fallback = c.Recipe
		}
	}
	return fallback
}
