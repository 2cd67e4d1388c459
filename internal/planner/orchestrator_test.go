package planner

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

type fakePlanStore struct {
	mu           sync.Mutex
	plans        map[uuid.UUID]*models.PlanRequest
	translations map[string]*models.PlanTranslation
}

func newFakePlanStore() *fakePlanStore {
	return &fakePlanStore{
		plans:        map[uuid.UUID]*models.PlanRequest{},
		translations: map[string]*models.PlanTranslation{},
	}
}

func trKey(planID uuid.UUID, language string) string {
	return planID.String() + ":" + language
}

func (f *fakePlanStore) GetPlanRequest(ctx context.Context, id uuid.UUID) (*models.PlanRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %s not found", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlanStore) MarkRunning(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plans[id].PlanStatus = models.PlanStatusRunning
	return nil
}

func (f *fakePlanStore) MarkSuccess(ctx context.Context, id uuid.UUID, source string, payload *models.PlanPayload, hint string) error {
	encoded, err := EncodePayload(payload)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.plans[id]
	p.PlanStatus = models.PlanStatusSuccess
	p.GenerationSource = source
	p.ResultJSON = encoded
	p.Hint = hint
	return nil
}

func (f *fakePlanStore) MarkError(ctx context.Context, id uuid.UUID, code, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.plans[id]
	p.PlanStatus = models.PlanStatusError
	p.ErrorCode = code
	p.ErrorMessage = message
	return nil
}

func (f *fakePlanStore) GetTranslation(ctx context.Context, planID uuid.UUID, language string) (*models.PlanTranslation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr, ok := f.translations[trKey(planID, language)]
	if !ok {
		return nil, fmt.Errorf("translation %s/%s not found", planID, language)
	}
	cp := *tr
	return &cp, nil
}

func (f *fakePlanStore) MarkTranslation(ctx context.Context, planID uuid.UUID, language, status string, payload *models.PlanPayload, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	tr := f.translations[trKey(planID, language)]
	tr.Status = status
	tr.ErrorMessage = errMsg
	if payload != nil {
		encoded, err := EncodePayload(payload)
		if err != nil {
			return err
		}
		tr.PayloadJSON = encoded
	}
	return nil
}

type fakeCatalogStore struct {
	recipes []models.Recipe
}

func (f *fakeCatalogStore) ListActive(ctx context.Context) ([]models.Recipe, error) {
	return f.recipes, nil
}

type fakeRatingStore struct {
	signal Signal
	counts models.RatingCounts
}

func (f *fakeRatingStore) Signal(ctx context.Context, userID uuid.UUID) (Signal, error) {
	return f.signal, nil
}

func (f *fakeRatingStore) Counts(ctx context.Context, userID uuid.UUID) (models.RatingCounts, error) {
	return f.counts, nil
}

type fakeHistoryStore struct {
	mu      sync.Mutex
	recency RecencySet
	entries []models.PlanHistoryEntry
}

func (f *fakeHistoryStore) Recency(ctx context.Context, userID uuid.UUID, since time.Time) (RecencySet, error) {
	return f.recency, nil
}

func (f *fakeHistoryStore) AppendPlacements(ctx context.Context, entries []models.PlanHistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entries...)
	return nil
}

type fakeTranslator struct {
	err error
}

func (f *fakeTranslator) TranslatePlan(ctx context.Context, payload *models.PlanPayload, language string) (*models.PlanPayload, error) {
	if f.err != nil {
		return nil, f.err
	}
	translated := *payload
	translated.Days = make([]models.PlanDay, len(payload.Days))
	for i, day := range payload.Days {
		td := day
		td.Meals = make(map[string]models.PlanMeal, len(day.Meals))
		for mt, meal := range day.Meals {
			tm := meal
			tm.Title = "[" + language + "] " + meal.Title
			td.Meals[mt] = tm
		}
		translated.Days[i] = td
	}
	return &translated, nil
}

type fakeLocker struct {
	mu    sync.Mutex
	held  map[string]bool
	deny  bool
	locks int
}

func (f *fakeLocker) AcquireTranslationLock(ctx context.Context, planID uuid.UUID, language string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deny {
		return false, nil
	}
	if f.held == nil {
		f.held = map[string]bool{}
	}
	key := trKey(planID, language)
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	f.locks++
	return true, nil
}

func (f *fakeLocker) ReleaseTranslationLock(ctx context.Context, planID uuid.UUID, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, trKey(planID, language))
	return nil
}

type orchestratorFixture struct {
	orch    *Orchestrator
	plans   *fakePlanStore
	history *fakeHistoryStore
	ratings *fakeRatingStore
	locker  *fakeLocker
	trans   *fakeTranslator
}

func orchestratorTestConfig() config.PlannerConfig {
	cfg := solverConfig()
	cfg.PlanWorkers = 2
	cfg.TranslationWorkers = 1
	cfg.QueueSize = 16
	return cfg
}

func newFixture(recipes []models.Recipe, counts models.RatingCounts, sig Signal) *orchestratorFixture {
	cfg := orchestratorTestConfig()
	plans := newFakePlanStore()
	history := &fakeHistoryStore{recency: RecencySet{}}
	ratings := &fakeRatingStore{signal: sig, counts: counts}
	catalog := &fakeCatalogStore{recipes: recipes}
	locker := &fakeLocker{}
	trans := &fakeTranslator{}

	text := &fakeTextService{target: models.MacroTarget{Calories: 2000, Protein: 150, Carbs: 200, Fat: 67}}
	searchable := &fakeCatalog{recipes: recipes}

	orch := NewOrchestrator(Deps{
		Plans:      plans,
		Catalog:    catalog,
		Ratings:    ratings,
		History:    history,
		Generative: NewGenerativePlanner(text, searchable, cfg),
		Solver:     NewSolver(cfg),
		Translator: trans,
		Locker:     locker,
	}, cfg)

	return &orchestratorFixture{
		orch:    orch,
		plans:   plans,
		history: history,
		ratings: ratings,
		locker:  locker,
		trans:   trans,
	}
}

func pendingPlan(f *orchestratorFixture) *models.PlanRequest {
	pref := generativePref()
	pref.ID = uuid.New()
	pref.PlanStatus = models.PlanStatusPending
	f.plans.plans[pref.ID] = pref
	return pref
}

func TestProcessPlanColdStartUsesGenerativePath(t *testing.T) {
	f := newFixture(dinnerPool(10, 2000), models.RatingCounts{Total: 0}, nil)
	pref := pendingPlan(f)

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	assert.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)
	assert.Equal(t, models.SourceGenerative, stored.GenerationSource)
	assert.NotEmpty(t, stored.ResultJSON)
	assert.Empty(t, stored.Hint)

	for _, e := range f.history.entries {
		assert.Equal(t, models.SourceGenerative, e.Method)
	}
	assert.Len(t, f.history.entries, PlanDays)
}

func TestProcessPlanRatedUserUsesSolver(t *testing.T) {
	// Catalog calibrated to the Mifflin-St Jeor target of the test user
	// (about 2759 kcal/day for one dinner slot).
	counts := models.RatingCounts{
		Total:       12,
		PerMealType: map[string]int{models.MealTypeDinner: 12},
	}
	f := newFixture(dinnerPool(10, 2700), counts, nil)
	pref := pendingPlan(f)

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	assert.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)
	assert.Equal(t, models.SourceSolver, stored.GenerationSource)
}

func TestProcessPlanFallbackCarriesHintAndSignal(t *testing.T) {
	// Enough ratings for the solver path, but most of the catalog sits
	// far outside the calorie band: solver infeasible, generative
	// fallback required.
	counts := models.RatingCounts{
		Total:       12,
		PerMealType: map[string]int{models.MealTypeDinner: 12},
	}
	recipes := append(dinnerPool(4, 2700), dinnerPool(4, 6000)...)
	sig := Signal{recipes[0].ID: false}
	f := newFixture(recipes, counts, sig)
	pref := pendingPlan(f)

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	require.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)
	assert.Equal(t, models.SourceGenerativeFallback, stored.GenerationSource)
	// The calorie band blocked the solver, not a recipe shortage, so the
	// hint must not tell the user to rate more dinner recipes.
	assert.NotEmpty(t, stored.Hint)
	assert.NotContains(t, stored.Hint, models.MealTypeDinner)

	// The fallback still honors the dislike signal.
	payload, err := decodePayload(stored.ResultJSON)
	require.NoError(t, err)
	for _, day := range payload.Days {
		meal := day.Meals[models.MealTypeDinner]
		liked, rated := sig[meal.RecipeID]
		assert.False(t, rated && !liked, "disliked recipe served by fallback")
	}
}

func TestProcessPlanFallbackNamesShortMealTypes(t *testing.T) {
	// Only two dinners carry full nutrition, so the solver pool check
	// fails before any search. That shortage is worth naming in the hint.
	counts := models.RatingCounts{
		Total:       12,
		PerMealType: map[string]int{models.MealTypeDinner: 12},
	}
	recipes := append(dinnerPool(2, 2700), dinnerPool(8, 2700)...)
	for i := 2; i < len(recipes); i++ {
		recipes[i].Calories = nil
		recipes[i].Protein = nil
		recipes[i].Carbs = nil
		recipes[i].Fat = nil
	}
	f := newFixture(recipes, counts, nil)
	pref := pendingPlan(f)

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	require.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)
	assert.Equal(t, models.SourceGenerativeFallback, stored.GenerationSource)
	assert.Contains(t, stored.Hint, models.MealTypeDinner)
}

func TestProcessPlanSkipsNonPending(t *testing.T) {
	f := newFixture(dinnerPool(10, 650), models.RatingCounts{}, nil)
	pref := pendingPlan(f)
	pref.PlanStatus = models.PlanStatusSuccess
	pref.GenerationSource = models.SourceSolver

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	assert.Equal(t, models.SourceSolver, stored.GenerationSource)
}

func TestProcessPlanMarksTypedErrors(t *testing.T) {
	// Empty catalog: the generative path cannot reconcile anything.
	f := newFixture(nil, models.RatingCounts{Total: 0}, nil)
	pref := pendingPlan(f)

	f.orch.processPlan(context.Background(), pref.ID)

	stored := f.plans.plans[pref.ID]
	assert.Equal(t, models.PlanStatusError, stored.PlanStatus)
	assert.Equal(t, models.ErrCodeGenerativeService, stored.ErrorCode)
	assert.NotEmpty(t, stored.ErrorMessage)
	assert.Empty(t, f.history.entries)
}

func successfulPlanWithResult(t *testing.T, f *orchestratorFixture) *models.PlanRequest {
	t.Helper()
	pref := pendingPlan(f)
	f.orch.processPlan(context.Background(), pref.ID)
	stored := f.plans.plans[pref.ID]
	require.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)
	return stored
}

func TestProcessTranslationSuccess(t *testing.T) {
	f := newFixture(dinnerPool(10, 650), models.RatingCounts{}, nil)
	stored := successfulPlanWithResult(t, f)

	f.plans.translations[trKey(stored.ID, "es")] = &models.PlanTranslation{
		ID:            uuid.New(),
		PlanRequestID: stored.ID,
		Language:      "es",
		Status:        models.TranslationStatusPending,
	}

	f.orch.processTranslation(context.Background(), translationJob{PlanID: stored.ID, Language: "es"})

	tr := f.plans.translations[trKey(stored.ID, "es")]
	assert.Equal(t, models.TranslationStatusSuccess, tr.Status)
	require.NotEmpty(t, tr.PayloadJSON)

	payload, err := decodePayload(tr.PayloadJSON)
	require.NoError(t, err)
	for _, day := range payload.Days {
		for _, meal := range day.Meals {
			assert.Contains(t, meal.Title, "[es]")
		}
	}

	// The plan itself is untouched by translation.
	assert.Equal(t, models.PlanStatusSuccess, f.plans.plans[stored.ID].PlanStatus)
}

func TestProcessTranslationFailureLeavesPlanServable(t *testing.T) {
	f := newFixture(dinnerPool(10, 650), models.RatingCounts{}, nil)
	stored := successfulPlanWithResult(t, f)
	f.trans.err = fmt.Errorf("translation backend down")

	f.plans.translations[trKey(stored.ID, "fr")] = &models.PlanTranslation{
		ID:            uuid.New(),
		PlanRequestID: stored.ID,
		Language:      "fr",
		Status:        models.TranslationStatusPending,
	}

	f.orch.processTranslation(context.Background(), translationJob{PlanID: stored.ID, Language: "fr"})

	tr := f.plans.translations[trKey(stored.ID, "fr")]
	assert.Equal(t, models.TranslationStatusError, tr.Status)
	assert.NotEmpty(t, tr.ErrorMessage)
	assert.Equal(t, models.PlanStatusSuccess, f.plans.plans[stored.ID].PlanStatus)
	assert.NotEmpty(t, f.plans.plans[stored.ID].ResultJSON)
}

func TestProcessTranslationRespectsLock(t *testing.T) {
	f := newFixture(dinnerPool(10, 650), models.RatingCounts{}, nil)
	stored := successfulPlanWithResult(t, f)
	f.locker.deny = true

	f.plans.translations[trKey(stored.ID, "de")] = &models.PlanTranslation{
		ID:            uuid.New(),
		PlanRequestID: stored.ID,
		Language:      "de",
		Status:        models.TranslationStatusPending,
	}

	f.orch.processTranslation(context.Background(), translationJob{PlanID: stored.ID, Language: "de"})

	tr := f.plans.translations[trKey(stored.ID, "de")]
	assert.Equal(t, models.TranslationStatusPending, tr.Status)
}

func TestOrchestratorStartEnqueueStop(t *testing.T) {
	f := newFixture(dinnerPool(10, 650), models.RatingCounts{}, nil)
	pref := pendingPlan(f)

	f.orch.Start(context.Background())
	require.NoError(t, f.orch.EnqueuePlan(pref.ID))
	f.orch.Stop()

	stored := f.plans.plans[pref.ID]
	assert.Equal(t, models.PlanStatusSuccess, stored.PlanStatus)

	// Enqueueing after Stop is refused rather than panicking.
	assert.Error(t, f.orch.EnqueuePlan(pref.ID))
	assert.Error(t, f.orch.EnqueueTranslation(pref.ID, "es"))
}
