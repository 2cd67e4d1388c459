package planner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplate/backend/internal/models"
)

type fakeTextService struct {
	target      models.MacroTarget
	targetErr   error
	suggestions []map[string]string
	suggestErr  error
}

func (f *fakeTextService) DeriveMacroTarget(ctx context.Context, pref *models.PlanRequest) (models.MacroTarget, error) {
	return f.target, f.targetErr
}

func (f *fakeTextService) SuggestMeals(ctx context.Context, pref *models.PlanRequest, target models.MacroTarget, days int, mealTypes []string) ([]map[string]string, error) {
	if f.suggestErr != nil {
		return nil, f.suggestErr
	}
	if f.suggestions != nil {
		return f.suggestions, nil
	}
	out := make([]map[string]string, days)
	for d := range out {
		out[d] = map[string]string{}
		for _, mt := range mealTypes {
			out[d][mt] = fmt.Sprintf("%s %d", mt, d)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	recipes []models.Recipe
}

func (f *fakeCatalog) SearchByText(ctx context.Context, query, mealType string, limit int) ([]models.Recipe, error) {
	var out []models.Recipe
	for _, r := range f.recipes {
		if r.HasMealType(mealType) && strings.Contains(strings.ToLower(r.Title), strings.ToLower(query)) {
			out = append(out, r)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListActiveByMealType(ctx context.Context, mealType string) ([]models.Recipe, error) {
	var out []models.Recipe
	for _, r := range f.recipes {
		if r.Active && r.HasMealType(mealType) {
			out = append(out, r)
		}
	}
	return out, nil
}

func generativePref() *models.PlanRequest {
	return &models.PlanRequest{
		UserID:        uuid.New(),
		Age:           30,
		Sex:           "male",
		HeightCM:      180,
		WeightKG:      80,
		ActivityLevel: "moderate",
		Goal:          "maintain",
		MealTypes:     models.JSONBStringArray{models.MealTypeDinner},
	}
}

func TestGenerateFillsWholeWeek(t *testing.T) {
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	catalog := &fakeCatalog{recipes: dinnerPool(10, 650)}
	text := &fakeTextService{target: target}

	payload, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	require.NoError(t, err)
	require.Len(t, payload.Days, PlanDays)
	assert.Equal(t, target, payload.Target)

	seen := map[uuid.UUID]bool{}
	for _, day := range payload.Days {
		require.Contains(t, day.Meals, models.MealTypeDinner)
		meal := day.Meals[models.MealTypeDinner]
		assert.False(t, seen[meal.RecipeID], "recipe repeated within the week")
		seen[meal.RecipeID] = true
	}
}

func TestGenerateFallsBackToFormulaTarget(t *testing.T) {
	// Unusable numeric output from the text service.
	text := &fakeTextService{target: models.MacroTarget{Calories: 0}}
	catalog := &fakeCatalog{recipes: dinnerPool(10, 650)}
	pref := generativePref()

	payload, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), pref, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DeriveMacroTarget(pref), payload.Target)
}

func TestGenerateTargetErrorIsTyped(t *testing.T) {
	text := &fakeTextService{targetErr: fmt.Errorf("connection refused")}
	catalog := &fakeCatalog{recipes: dinnerPool(10, 650)}

	_, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	var svcErr *GenerativeServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestGenerateShortSuggestionGridFails(t *testing.T) {
	text := &fakeTextService{
		target:      models.MacroTarget{Calories: 2000},
		suggestions: make([]map[string]string, 3),
	}
	catalog := &fakeCatalog{recipes: dinnerPool(10, 650)}

	_, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	var svcErr *GenerativeServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestGenerateAllOrNothing(t *testing.T) {
	// Fewer catalog recipes than days: the last slots cannot be filled
	// without repeating, so the whole attempt fails.
	text := &fakeTextService{target: models.MacroTarget{Calories: 2000}}
	catalog := &fakeCatalog{recipes: dinnerPool(5, 650)}

	payload, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	var svcErr *GenerativeServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Nil(t, payload)
}

func TestGenerateUnknownNutritionStaysUnknown(t *testing.T) {
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	recipes := dinnerPool(7, 650)
	for i := range recipes {
		// Strip macros so every placement is an unscored one.
		recipes[i].Calories = nil
		recipes[i].Protein = nil
		recipes[i].Carbs = nil
		recipes[i].Fat = nil
	}
	text := &fakeTextService{target: target}
	catalog := &fakeCatalog{recipes: recipes}

	payload, hint, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	require.NoError(t, err)
	// Days with unknown nutrition are never judged against the calorie
	// band, so nothing is flagged.
	assert.Empty(t, hint)

	for _, day := range payload.Days {
		// Unknown macros never masquerade as zero-calorie meals in the
		// summed day totals.
		assert.Zero(t, day.Calories)
		require.Contains(t, day.Meals, models.MealTypeDinner)
		assert.NotEmpty(t, day.Meals[models.MealTypeDinner].Title)
	}
}

func TestGenerateCarriesRatingSignal(t *testing.T) {
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	recipes := dinnerPool(8, 650)
	disliked := recipes[0].ID

	// Suggestions that match nothing force every slot through the
	// catalog fallback, where ranking applies the signal.
	text := &fakeTextService{
		target:      target,
		suggestions: makeSuggestions("no such dish"),
	}
	catalog := &fakeCatalog{recipes: recipes}
	sig := Signal{disliked: false}

	payload, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), sig, nil)
	require.NoError(t, err)

	for _, day := range payload.Days {
		assert.NotEqual(t, disliked, day.Meals[models.MealTypeDinner].RecipeID,
			"disliked recipe chosen while better candidates remain")
	}
}

func TestGenerateKeepsDailyCaloriesWithinTolerance(t *testing.T) {
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	light := dinnerPool(8, 650)
	pool := append(light, dinnerPool(8, 2000)...)

	// Liking every light recipe makes them win on fitness alone; the
	// calorie window still has to steer each day toward the target.
	sig := Signal{}
	for _, r := range light {
		sig[r.ID] = true
	}

	text := &fakeTextService{target: target}
	catalog := &fakeCatalog{recipes: pool}

	payload, hint, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), sig, nil)
	require.NoError(t, err)
	assert.Empty(t, hint)

	lo := target.Calories * (1 - GenerativeCalorieTolerance)
	hi := target.Calories * (1 + GenerativeCalorieTolerance)
	for _, day := range payload.Days {
		assert.GreaterOrEqual(t, day.Calories, lo)
		assert.LessOrEqual(t, day.Calories, hi)
	}
}

func TestGenerateHintsWhenCaloriesOffTarget(t *testing.T) {
	// Nothing in the catalog can lift a day near the 2000 kcal target.
	// The plan still succeeds, but the miss must be surfaced.
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	text := &fakeTextService{target: target}
	catalog := &fakeCatalog{recipes: dinnerPool(10, 650)}

	payload, hint, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), generativePref(), nil, nil)
	require.NoError(t, err)
	require.Len(t, payload.Days, PlanDays)
	assert.NotEmpty(t, hint)
}

func TestGenerateHonorsMaxCookMinutes(t *testing.T) {
	target := models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}
	recipes := dinnerPool(14, 2000)
	slow := map[uuid.UUID]bool{}
	for i := range recipes {
		if i < 7 {
			recipes[i].CookMinutes = 20
		} else {
			recipes[i].CookMinutes = 90
			slow[recipes[i].ID] = true
		}
	}
	text := &fakeTextService{target: target}
	catalog := &fakeCatalog{recipes: recipes}
	pref := generativePref()
	pref.MaxCookMinutes = 30

	payload, _, err := NewGenerativePlanner(text, catalog, solverConfig()).
		Generate(context.Background(), pref, nil, nil)
	require.NoError(t, err)

	for _, day := range payload.Days {
		meal := day.Meals[models.MealTypeDinner]
		assert.False(t, slow[meal.RecipeID], "slow recipe served despite the cooking-time cap")
	}
}

func makeSuggestions(name string) []map[string]string {
	out := make([]map[string]string, PlanDays)
	for d := range out {
		out[d] = map[string]string{models.MealTypeDinner: name}
	}
	return out
}
