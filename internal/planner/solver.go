package planner

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

// PlanDays is the planning horizon.
const PlanDays = 7

// deadlineCheckInterval bounds how often the search polls the clock.
const deadlineCheckInterval = 64

// SolveInput carries the read-only state the solver works against. The
// solver never touches external state itself: catalog, ratings and recency
// are loaded by the orchestrator before the solve starts.
type SolveInput struct {
	Preference *models.PlanRequest
	Target     models.MacroTarget
	Recipes    []models.Recipe
	Signal     Signal
	Recency    RecencySet
	Now        time.Time
}

// Solver assembles a weekly plan as a constrained assignment over the
// catalog. Calls are bounded by the configured time budget and perform no
// I/O mid-solve.
type Solver struct {
	cfg config.PlannerConfig
}

// NewSolver creates a Solver with the given tuning.
func NewSolver(cfg config.PlannerConfig) *Solver {
	return &Solver{cfg: cfg}
}

// solveStage is one rung of the progressive relaxation ladder.
type solveStage struct {
	calorieTolerance float64
	recencyDays      int
	budgetShare      float64
}

// Solve returns a complete plan, a SolverInfeasibleError naming the
// under-constrained meal types, or a SolverTimeoutError when the budget
// runs out. The relaxation order is fixed: widen the calorie band first,
// shrink the recency lookback second. The no-repeat-this-week rule is
// never relaxed.
func (s *Solver) Solve(ctx context.Context, in SolveInput) (*models.PlanPayload, error) {
	mealTypes := canonicalMealTypes(in.Preference.MealTypes)
	if len(mealTypes) == 0 {
		return nil, &ValidationError{Field: "meal_types", Message: "must not be empty"}
	}

	pool, blocked := s.buildPool(in, mealTypes)
	if len(blocked) > 0 {
		return nil, &SolverInfeasibleError{MealTypes: blocked}
	}

	// The no-repeat rule is never relaxed, so a meal type with fewer
	// eligible recipes than days cannot fill the week. Fail fast and name
	// it instead of spending the budget proving the obvious.
	var short []string
	for _, mt := range mealTypes {
		if len(pool[mt]) < PlanDays {
			short = append(short, mt)
		}
	}
	if len(short) > 0 {
		sort.Strings(short)
		return nil, &SolverInfeasibleError{MealTypes: short}
	}

	stages := []solveStage{
		{calorieTolerance: s.cfg.MacroTolerance, recencyDays: s.cfg.RecencyWindowDays, budgetShare: 0.4},
		{calorieTolerance: s.cfg.MacroToleranceRelaxed, recencyDays: s.cfg.RecencyWindowDays, budgetShare: 0.3},
		{calorieTolerance: s.cfg.MacroToleranceRelaxed, recencyDays: s.cfg.RecencyWindowMinDays, budgetShare: 0.3},
	}

	budget := s.cfg.SolveTimeBudget
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < budget {
			budget = remaining
		}
	}
	start := time.Now()

	for _, stage := range stages {
		if ctx.Err() != nil {
			return nil, &SolverTimeoutError{Budget: budget}
		}

		stageDeadline := start.Add(budget)
		slice := time.Duration(stage.budgetShare * float64(budget))
		if sliceDeadline := time.Now().Add(slice); sliceDeadline.Before(stageDeadline) {
			stageDeadline = sliceDeadline
		}

		assignment, ok := s.solveStage(ctx, in, mealTypes, pool, stage, stageDeadline)
		if ok {
			return buildPayload(assignment, mealTypes, in.Target), nil
		}

		if time.Since(start) >= budget {
			return nil, &SolverTimeoutError{Budget: budget}
		}
	}

	// Every stage exhausted its slice without a solution and time remains:
	// the constraint set is genuinely unsatisfiable for this catalog. Every
	// meal type cleared the pool minimums above, so no meal type is named;
	// the blocker is the constraint combination, not a recipe shortage.
	if time.Since(start) < budget {
		return nil, &SolverInfeasibleError{}
	}
	return nil, &SolverTimeoutError{Budget: budget}
}

// buildPool applies the hard eligibility filter per meal type: dietary
// restrictions, meal-type tag, the cooking-time cap, complete nutrition,
// and exclusion of recipes the user disliked. It returns the per-meal-type
// candidate pool and the meal types that fail the pre-feasibility minimum.
func (s *Solver) buildPool(in SolveInput, mealTypes []string) (map[string][]Candidate, []string) {
	pool := make(map[string][]Candidate, len(mealTypes))
	var blocked []string

	for _, mt := range mealTypes {
		slot := SlotContext{
			MealType:         mt,
			Restrictions:     in.Preference.DietaryRestrictions,
			Target:           in.Target,
			MealsPerDay:      len(mealTypes),
			MaxCookMinutes:   in.Preference.MaxCookMinutes,
			RequireNutrition: true,
			RecencyCutoff:    in.Now.AddDate(0, 0, -s.cfg.RecencyWindowDays),
		}

		eligible := make([]models.Recipe, 0, len(in.Recipes))
		for i := range in.Recipes {
			r := &in.Recipes[i]
			if liked, rated := in.Signal[r.ID]; rated && !liked {
				continue
			}
			if Eligible(r, slot) {
				eligible = append(eligible, *r)
			}
		}

		if len(eligible) < s.cfg.MinEligiblePerMealType {
			blocked = append(blocked, mt)
			continue
		}
		pool[mt] = RankCandidates(eligible, slot, in.Signal, in.Recency)
	}

	sort.Strings(blocked)
	return pool, blocked
}

// solveStage runs a deadline-bounded backtracking search over the
// day x meal-type grid. Candidates are tried best-fitness first, so the
// first complete assignment found is the greedy maximum of the weighted
// objective under the stage's constraints.
func (s *Solver) solveStage(ctx context.Context, in SolveInput, mealTypes []string, pool map[string][]Candidate, stage solveStage, deadline time.Time) (map[int]map[string]*models.Recipe, bool) {
	recencyCutoff := in.Now.AddDate(0, 0, -stage.recencyDays)

	// Stage-local candidate lists: recipes served inside the lookback
	// window are held out entirely; shrinking the window at the last
	// stage readmits the older ones.
	stagePool := make(map[string][]Candidate, len(mealTypes))
	for _, mt := range mealTypes {
		kept := make([]Candidate, 0, len(pool[mt]))
		for _, c := range pool[mt] {
			if in.Recency.Contains(c.Recipe.ID, recencyCutoff) {
				continue
			}
			kept = append(kept, c)
		}
		if len(kept) == 0 {
			return nil, false
		}
		stagePool[mt] = kept
	}

	lo := in.Target.Calories * (1 - stage.calorieTolerance)
	hi := in.Target.Calories * (1 + stage.calorieTolerance)

	search := &slotSearch{
		mealTypes: mealTypes,
		pool:      stagePool,
		loCal:     lo,
		hiCal:     hi,
		used:      make(map[uuid.UUID]bool),
		deadline:  deadline,
		ctx:       ctx,
	}

	assignment := make(map[int]map[string]*models.Recipe, PlanDays)
	for day := 0; day < PlanDays; day++ {
		assignment[day] = make(map[string]*models.Recipe, len(mealTypes))
	}

	if search.fill(assignment, 0, 0, 0) {
		return assignment, true
	}
	return nil, false
}

// slotSearch holds the mutable state of one stage's backtracking run.
type slotSearch struct {
	mealTypes []string
	pool      map[string][]Candidate
	loCal     float64
	hiCal     float64
	used      map[uuid.UUID]bool
	deadline  time.Time
	ctx       context.Context
	steps     int
	expired   bool
}

func (ss *slotSearch) timedOut() bool {
	if ss.expired {
		return true
	}
	ss.steps++
	if ss.steps%deadlineCheckInterval == 0 {
		if time.Now().After(ss.deadline) || ss.ctx.Err() != nil {
			ss.expired = true
		}
	}
	return ss.expired
}

// fill assigns the slot at (day, slotIdx) and recurses. dayCalories is the
// running calorie sum of the current day.
func (ss *slotSearch) fill(assignment map[int]map[string]*models.Recipe, day, slotIdx int, dayCalories float64) bool {
	if day == PlanDays {
		return true
	}
	if ss.timedOut() {
		return false
	}

	mt := ss.mealTypes[slotIdx]
	lastSlot := slotIdx == len(ss.mealTypes)-1

	for _, c := range ss.pool[mt] {
		if ss.used[c.Recipe.ID] {
			continue
		}

		calories := *c.Recipe.Calories
		total := dayCalories + calories
		if total > ss.hiCal {
			continue
		}
		if lastSlot && total < ss.loCal {
			continue
		}

		assignment[day][mt] = c.Recipe
		ss.used[c.Recipe.ID] = true

		var ok bool
		if lastSlot {
			ok = ss.fill(assignment, day+1, 0, 0)
		} else {
			ok = ss.fill(assignment, day, slotIdx+1, total)
		}
		if ok {
			return true
		}

		delete(ss.used, c.Recipe.ID)
		delete(assignment[day], mt)

		if ss.expired {
			return false
		}
	}

	return false
}

// canonicalMealTypes orders the requested meal types breakfast first,
// snack last, dropping anything unknown, so slot traversal is stable.
func canonicalMealTypes(requested []string) []string {
	order := []string{models.MealTypeBreakfast, models.MealTypeLunch, models.MealTypeDinner, models.MealTypeSnack}
	var out []string
	for _, mt := range order {
		for _, req := range requested {
			if req == mt {
				out = append(out, mt)
				break
			}
		}
	}
	return out
}

// buildPayload converts a complete assignment into the persisted plan shape.
func buildPayload(assignment map[int]map[string]*models.Recipe, mealTypes []string, target models.MacroTarget) *models.PlanPayload {
	payload := &models.PlanPayload{Target: target, Days: make([]models.PlanDay, 0, PlanDays)}

	for day := 0; day < PlanDays; day++ {
		pd := models.PlanDay{DayIndex: day, Meals: make(map[string]models.PlanMeal, len(mealTypes))}
		for _, mt := range mealTypes {
			r := assignment[day][mt]
			meal := models.PlanMeal{
				RecipeID:     r.ID,
				Title:        r.Title,
				Calories:     *r.Calories,
				Protein:      *r.Protein,
				Carbs:        *r.Carbs,
				Fat:          *r.Fat,
				Ingredients:  r.Ingredients,
				Instructions: r.Instructions,
			}
			pd.Meals[mt] = meal
			pd.Calories += meal.Calories
			pd.Protein += meal.Protein
			pd.Carbs += meal.Carbs
			pd.Fat += meal.Fat
		}
		payload.Days = append(payload.Days, pd)
	}

	return payload
}
