package planner

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/weekplate/backend/internal/models"
)

// Objective weights. Preference signal dominates, variety comes next, and
// macro closeness last since macro totals are also enforced as a hard band
// by the solver.
const (
	weightPreference = 0.5
	weightNovelty    = 0.3
	weightMacroFit   = 0.2
)

// Signal is a user's rating map: recipe id to liked/disliked.
type Signal map[uuid.UUID]bool

// RecencySet maps recipe ids to the last time they were served to the user.
type RecencySet map[uuid.UUID]time.Time

// Contains reports whether the recipe was served at or after the cutoff.
// A zero cutoff counts every entry.
func (rs RecencySet) Contains(id uuid.UUID, cutoff time.Time) bool {
	served, ok := rs[id]
	if !ok {
		return false
	}
	if cutoff.IsZero() {
		return true
	}
	return !served.Before(cutoff)
}

// SlotContext carries everything needed to judge a recipe for one meal slot.
type SlotContext struct {
	MealType     string
	Restrictions []string
	Target       models.MacroTarget
	MealsPerDay  int

	// MaxCookMinutes caps the cooking time when positive. Both planning
	// paths share this gate so a fallback plan never ignores a limit the
	// solver just enforced.
	MaxCookMinutes int

	// RequireNutrition gates recipes with missing macro fields out of
	// slots where macro fit is being optimized. The generative path sets
	// it false and treats such recipes as unscored.
	RequireNutrition bool

	// RecencyCutoff bounds how far back the recency set reaches. Zero
	// means the whole set counts.
	RecencyCutoff time.Time
}

// Score judges a recipe for a slot. It returns a fitness in [-1, 1] and
// whether the recipe is eligible at all. Ineligible recipes get fitness 0.
// The function is deterministic and side-effect free.
func Score(r *models.Recipe, slot SlotContext, sig Signal, recency RecencySet) (float64, bool) {
	if !Eligible(r, slot) {
		return 0, false
	}

	var fitness float64

	// Macro fit only contributes when the figures are actually known. A
	// recipe with a missing field never reaches this point with
	// RequireNutrition set, and without it the term simply stays zero.
	if r.HasCompleteNutrition() && slot.MealsPerDay > 0 {
		fitness += weightMacroFit * macroFit(r, slot.Target, slot.MealsPerDay)
	}

	if liked, ok := sig[r.ID]; ok {
		if liked {
			fitness += weightPreference
		} else {
			fitness -= weightPreference
		}
	}

	if !recency.Contains(r.ID, slot.RecencyCutoff) {
		fitness += weightNovelty
	}

	return fitness, true
}

// Eligible applies the hard gate: active flag, meal-type tag, every dietary
// restriction, the cooking-time cap, and complete nutrition when the slot
// is macro-scored.
func Eligible(r *models.Recipe, slot SlotContext) bool {
	if !r.Active {
		return false
	}
	if !r.HasMealType(slot.MealType) {
		return false
	}
	if !r.SatisfiesRestrictions(slot.Restrictions) {
		return false
	}
	if slot.MaxCookMinutes > 0 && r.CookMinutes > slot.MaxCookMinutes {
		return false
	}
	if slot.RequireNutrition && !r.HasCompleteNutrition() {
		return false
	}
	return true
}

// macroFit returns 1 minus the normalized distance between the recipe's
// per-serving macros and a pro-rated per-meal share of the daily target,
// clipped to [0, 1].
func macroFit(r *models.Recipe, target models.MacroTarget, mealsPerDay int) float64 {
	share := float64(mealsPerDay)
	pairs := [][2]float64{
		{*r.Calories, target.Calories / share},
		{*r.Protein, target.Protein / share},
		{*r.Carbs, target.Carbs / share},
		{*r.Fat, target.Fat / share},
	}

	var total float64
	var n int
	for _, p := range pairs {
		if p[1] <= 0 {
			continue
		}
		d := (p[0] - p[1]) / p[1]
		if d < 0 {
			d = -d
		}
		total += d
		n++
	}
	if n == 0 {
		return 0
	}

	fit := 1 - total/float64(n)
	if fit < 0 {
		return 0
	}
	if fit > 1 {
		return 1
	}
	return fit
}

// Candidate pairs a recipe with its fitness for one slot.
type Candidate struct {
	Recipe  *models.Recipe
	Fitness float64
}

// RankCandidates scores every recipe for the slot and returns the eligible
// ones ordered best first. Ties prefer complete nutrition data, then stable
// recipe id order, so runs are reproducible.
func RankCandidates(recipes []models.Recipe, slot SlotContext, sig Signal, recency RecencySet) []Candidate {
	candidates := make([]Candidate, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		fitness, ok := Score(r, slot, sig, recency)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{Recipe: r, Fitness: fitness})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Fitness != b.Fitness {
			return a.Fitness > b.Fitness
		}
		ac, bc := a.Recipe.HasCompleteNutrition(), b.Recipe.HasCompleteNutrition()
		if ac != bc {
			return ac
		}
		return a.Recipe.ID.String() < b.Recipe.ID.String()
	})

	return candidates
}
