package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

// PlanStore is the persistence surface for plan requests and translations.
// The orchestrator's worker is the single writer of a request's status
// fields once it picks the request up.
type PlanStore interface {
	GetPlanRequest(ctx context.Context, id uuid.UUID) (*models.PlanRequest, error)
	MarkRunning(ctx context.Context, id uuid.UUID) error
	MarkSuccess(ctx context.Context, id uuid.UUID, source string, payload *models.PlanPayload, hint string) error
	MarkError(ctx context.Context, id uuid.UUID, code, message string) error

	GetTranslation(ctx context.Context, planID uuid.UUID, language string) (*models.PlanTranslation, error)
	MarkTranslation(ctx context.Context, planID uuid.UUID, language, status string, payload *models.PlanPayload, errMsg string) error
}

// CatalogStore supplies the active recipe snapshot for a solve.
type CatalogStore interface {
	ListActive(ctx context.Context) ([]models.Recipe, error)
}

// RatingStore supplies the user's preference signal.
type RatingStore interface {
	Signal(ctx context.Context, userID uuid.UUID) (Signal, error)
	Counts(ctx context.Context, userID uuid.UUID) (models.RatingCounts, error)
}

// HistoryStore supplies the recency window and records plan placements.
type HistoryStore interface {
	Recency(ctx context.Context, userID uuid.UUID, since time.Time) (RecencySet, error)
	AppendPlacements(ctx context.Context, entries []models.PlanHistoryEntry) error
}

// TranslationService translates a finished plan payload.
type TranslationService interface {
	TranslatePlan(ctx context.Context, payload *models.PlanPayload, language string) (*models.PlanPayload, error)
}

// TranslationLocker serializes translation writes per (plan, language) key
// across processes.
type TranslationLocker interface {
	AcquireTranslationLock(ctx context.Context, planID uuid.UUID, language string) (bool, error)
	ReleaseTranslationLock(ctx context.Context, planID uuid.UUID, language string) error
}

// translationJob identifies one pending translation unit of work.
type translationJob struct {
	PlanID   uuid.UUID
	Language string
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Plans      PlanStore
	Catalog    CatalogStore
	Ratings    RatingStore
	History    HistoryStore
	Generative *GenerativePlanner
	Solver     *Solver
	Translator TranslationService
	Locker     TranslationLocker
}

// Orchestrator runs plan generation and translation as background units of
// work. Each plan request walks pending -> running -> success|error; each
// (plan, language) translation walks pending -> success|error. The two
// machines are connected only by the rule that translation requires a
// successful plan.
type Orchestrator struct {
	deps Deps
	cfg  config.PlannerConfig

	planCh chan uuid.UUID
	trCh   chan translationJob

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// userLocks serializes plan generation per user so concurrent
	// requests for the same user never interleave writes.
	userLocks sync.Map
}

// NewOrchestrator creates an Orchestrator. Call Start before enqueueing.
func NewOrchestrator(deps Deps, cfg config.PlannerConfig) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		cfg:    cfg,
		planCh: make(chan uuid.UUID, cfg.QueueSize),
		trCh:   make(chan translationJob, cfg.QueueSize),
	}
}

// Start launches the worker pools. Workers keep draining their queues until
// Stop is called; in-flight work always runs to completion so a late poll
// can still observe the result.
func (o *Orchestrator) Start(ctx context.Context) {
	for i := 0; i < o.cfg.PlanWorkers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for id := range o.planCh {
				o.processPlan(ctx, id)
			}
		}()
	}
	for i := 0; i < o.cfg.TranslationWorkers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for job := range o.trCh {
				o.processTranslation(ctx, job)
			}
		}()
	}
}

// Stop closes the queues and waits for in-flight work to finish.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.planCh)
		close(o.trCh)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// EnqueuePlan schedules background generation for an accepted request.
func (o *Orchestrator) EnqueuePlan(id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("orchestrator is stopped")
	}
	select {
	case o.planCh <- id:
		return nil
	default:
		return fmt.Errorf("plan queue is full")
	}
}

// EnqueueTranslation schedules translation of a successful plan into the
// given language.
func (o *Orchestrator) EnqueueTranslation(planID uuid.UUID, language string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return fmt.Errorf("orchestrator is stopped")
	}
	select {
	case o.trCh <- translationJob{PlanID: planID, Language: language}:
		return nil
	default:
		return fmt.Errorf("translation queue is full")
	}
}

func (o *Orchestrator) userLock(userID uuid.UUID) *sync.Mutex {
	lock, _ := o.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// processPlan executes the full decision pipeline for one request.
func (o *Orchestrator) processPlan(ctx context.Context, id uuid.UUID) {
	pref, err := o.deps.Plans.GetPlanRequest(ctx, id)
	if err != nil {
		log.Printf("[planner] plan %s: load failed: %v", id, err)
		return
	}
	if pref.PlanStatus != models.PlanStatusPending {
		log.Printf("[planner] plan %s: skipping, status is %s", id, pref.PlanStatus)
		return
	}

	lock := o.userLock(pref.UserID)
	lock.Lock()
	defer lock.Unlock()

	if err := o.deps.Plans.MarkRunning(ctx, id); err != nil {
		log.Printf("[planner] plan %s: mark running failed: %v", id, err)
		return
	}

	payload, source, hint, genErr := o.generate(ctx, pref)
	if genErr != nil {
		code, msg := classifyError(genErr)
		log.Printf("[planner] plan %s: generation failed (%s): %v", id, code, genErr)
		if err := o.deps.Plans.MarkError(ctx, id, code, msg); err != nil {
			log.Printf("[planner] plan %s: mark error failed: %v", id, err)
		}
		return
	}

	if err := o.deps.Plans.MarkSuccess(ctx, id, source, payload, hint); err != nil {
		log.Printf("[planner] plan %s: persist failed: %v", id, err)
		if markErr := o.deps.Plans.MarkError(ctx, id, models.ErrCodePersistence, "failed to store the generated plan"); markErr != nil {
			log.Printf("[planner] plan %s: mark error failed: %v", id, markErr)
		}
		return
	}

	o.appendHistory(ctx, pref.UserID, source, payload)
	log.Printf("[planner] plan %s: success via %s", id, source)
}

// generate routes between the two paths and owns the fallback contract:
// a solver Infeasible or Timeout is recovered locally by rerunning the
// generative path with the user's rating signal attached.
func (o *Orchestrator) generate(ctx context.Context, pref *models.PlanRequest) (*models.PlanPayload, string, string, error) {
	userID := pref.UserID

	counts, err := o.deps.Ratings.Counts(ctx, userID)
	if err != nil {
		return nil, "", "", &PersistenceError{Op: "load rating counts", Err: err}
	}
	sig, err := o.deps.Ratings.Signal(ctx, userID)
	if err != nil {
		return nil, "", "", &PersistenceError{Op: "load ratings", Err: err}
	}

	now := time.Now()
	recency, err := o.deps.History.Recency(ctx, userID, now.AddDate(0, 0, -o.cfg.RecencyWindowDays))
	if err != nil {
		return nil, "", "", &PersistenceError{Op: "load plan history", Err: err}
	}

	path := ChoosePath(counts, pref.MealTypes, o.cfg)
	if path == PathGenerative {
		payload, hint, err := o.deps.Generative.Generate(ctx, pref, sig, recency)
		if err != nil {
			return nil, "", "", err
		}
		return payload, models.SourceGenerative, hint, nil
	}

	recipes, err := o.deps.Catalog.ListActive(ctx)
	if err != nil {
		return nil, "", "", &PersistenceError{Op: "load catalog", Err: err}
	}

	solveCtx, cancel := context.WithTimeout(ctx, o.cfg.SolveTimeBudget)
	defer cancel()

	payload, solveErr := o.deps.Solver.Solve(solveCtx, SolveInput{
		Preference: pref,
		Target:     DeriveMacroTarget(pref),
		Recipes:    recipes,
		Signal:     sig,
		Recency:    recency,
		Now:        now,
	})
	if solveErr == nil {
		return payload, models.SourceSolver, "", nil
	}

	var infeasible *SolverInfeasibleError
	var timeout *SolverTimeoutError
	if !errors.As(solveErr, &infeasible) && !errors.As(solveErr, &timeout) {
		return nil, "", "", solveErr
	}

	// Mandatory fallback. The rating signal rides along so the fallback
	// plan is not blind to preference.
	log.Printf("[planner] user %s: solver failed (%v), falling back to generative", userID, solveErr)
	payload, genHint, genErr := o.deps.Generative.Generate(ctx, pref, sig, recency)
	if genErr != nil {
		return nil, "", "", genErr
	}
	hint := fallbackHint(infeasible)
	if genHint != "" {
		hint = hint + "; " + genHint
	}
	return payload, models.SourceGenerativeFallback, hint, nil
}

// fallbackHint tells the user how to get solver-grade plans next time. It
// is surfaced even though the fallback succeeded.
func fallbackHint(infeasible *SolverInfeasibleError) string {
	if infeasible == nil {
		return "the plan optimizer ran out of time; this plan was generated instead"
	}
	if len(infeasible.MealTypes) == 0 {
		return "the plan optimizer could not satisfy your constraints; this plan was generated instead"
	}
	return fmt.Sprintf("not enough suitable recipes for %s; rate more %s recipes or relax your restrictions",
		strings.Join(infeasible.MealTypes, ", "), strings.Join(infeasible.MealTypes, "/"))
}

// appendHistory writes one append-only entry per filled cell. Failures are
// logged but do not demote the plan: history only feeds future variety.
func (o *Orchestrator) appendHistory(ctx context.Context, userID uuid.UUID, source string, payload *models.PlanPayload) {
	now := time.Now()
	var entries []models.PlanHistoryEntry
	for _, day := range payload.Days {
		for mt, meal := range day.Meals {
			entries = append(entries, models.PlanHistoryEntry{
				UserID:      userID,
				RecipeID:    meal.RecipeID,
				DayIndex:    day.DayIndex,
				MealType:    mt,
				GeneratedAt: now,
				Method:      source,
			})
		}
	}
	if err := o.deps.History.AppendPlacements(ctx, entries); err != nil {
		log.Printf("[planner] user %s: history append failed: %v", userID, err)
	}
}

// processTranslation translates a successful plan into one language. The
// plan's own state machine is never touched: a failed translation leaves
// the untranslated plan servable.
func (o *Orchestrator) processTranslation(ctx context.Context, job translationJob) {
	acquired, err := o.deps.Locker.AcquireTranslationLock(ctx, job.PlanID, job.Language)
	if err != nil {
		log.Printf("[planner] translation %s/%s: lock failed: %v", job.PlanID, job.Language, err)
		return
	}
	if !acquired {
		// Another worker owns this language key.
		return
	}
	defer func() {
		if err := o.deps.Locker.ReleaseTranslationLock(ctx, job.PlanID, job.Language); err != nil {
			log.Printf("[planner] translation %s/%s: unlock failed: %v", job.PlanID, job.Language, err)
		}
	}()

	row, err := o.deps.Plans.GetTranslation(ctx, job.PlanID, job.Language)
	if err != nil {
		log.Printf("[planner] translation %s/%s: load failed: %v", job.PlanID, job.Language, err)
		return
	}
	if row.Status != models.TranslationStatusPending {
		return
	}

	pref, err := o.deps.Plans.GetPlanRequest(ctx, job.PlanID)
	if err != nil || pref.PlanStatus != models.PlanStatusSuccess || len(pref.ResultJSON) == 0 {
		log.Printf("[planner] translation %s/%s: no successful plan to translate", job.PlanID, job.Language)
		return
	}

	payload, err := decodePayload(pref.ResultJSON)
	if err != nil {
		log.Printf("[planner] translation %s/%s: decode failed: %v", job.PlanID, job.Language, err)
		return
	}

	translated, err := o.deps.Translator.TranslatePlan(ctx, payload, job.Language)
	if err != nil {
		log.Printf("[planner] translation %s/%s: failed: %v", job.PlanID, job.Language, err)
		if markErr := o.deps.Plans.MarkTranslation(ctx, job.PlanID, job.Language, models.TranslationStatusError, nil, err.Error()); markErr != nil {
			log.Printf("[planner] translation %s/%s: mark error failed: %v", job.PlanID, job.Language, markErr)
		}
		return
	}

	if err := o.deps.Plans.MarkTranslation(ctx, job.PlanID, job.Language, models.TranslationStatusSuccess, translated, ""); err != nil {
		log.Printf("[planner] translation %s/%s: persist failed: %v", job.PlanID, job.Language, err)
	}
}

// classifyError maps a generation failure onto the stored error taxonomy.
// Each code has a distinct user-facing remedy, so the mapping is explicit.
func classifyError(err error) (code, message string) {
	var validation *ValidationError
	var generative *GenerativeServiceError
	var infeasible *SolverInfeasibleError
	var timeout *SolverTimeoutError
	var persistence *PersistenceError

	switch {
	case errors.As(err, &validation):
		return models.ErrCodeValidation, validation.Error()
	case errors.As(err, &generative):
		return models.ErrCodeGenerativeService, "the meal suggestion service is unavailable; please try again later"
	case errors.As(err, &infeasible):
		return models.ErrCodeSolverInfeasible, infeasible.Error()
	case errors.As(err, &timeout):
		return models.ErrCodeSolverTimeout, "plan generation ran out of time; please try again"
	case errors.As(err, &persistence):
		return models.ErrCodePersistence, "a storage error prevented plan generation; please try again later"
	default:
		return models.ErrCodePersistence, "an unexpected error prevented plan generation"
	}
}
