package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/middleware"
	"github.com/weekplate/backend/internal/models"
	"github.com/weekplate/backend/internal/planner"
	"github.com/weekplate/backend/internal/service"
	"github.com/weekplate/backend/internal/types"
)

// Plan generation is the expensive endpoint, so submissions get a tight
// per-user budget while polling stays unthrottled.
const (
	defaultRateLimitWindow = time.Hour
	defaultRateLimitCount  = 10
)

// PlanEnqueuer hands accepted work to the background orchestrator.
type PlanEnqueuer interface {
	EnqueuePlan(id uuid.UUID) error
	EnqueueTranslation(planID uuid.UUID, language string) error
}

type PlanHandler struct {
	plans       service.IPlanService
	queue       PlanEnqueuer
	authService *service.AuthService
	limiter     *middleware.RateLimiter
}

func NewPlanHandler(plans service.IPlanService, queue PlanEnqueuer, authService *service.AuthService, limiter *middleware.RateLimiter) *PlanHandler {
	return &PlanHandler{
		plans:       plans,
		queue:       queue,
		authService: authService,
		limiter:     limiter,
	}
}

func (h *PlanHandler) RegisterRoutes(router *gin.RouterGroup) {
	plans := router.Group("/plans")
	plans.Use(middleware.AuthMiddleware(h.authService))
	{
		submit := []gin.HandlerFunc{}
		if h.limiter != nil {
			submit = append(submit, h.limiter.RateLimitMiddleware())
		}
		submit = append(submit, h.SubmitPlan)
		plans.POST("", submit...)
		plans.GET("/:id", h.PollPlan)
	}
}

// SubmitPlan validates the preference, persists it as pending and enqueues
// generation. The response carries only the id to poll.
func (h *PlanHandler) SubmitPlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req types.SubmitPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.plans.ValidateSubmit(&req); err != nil {
		var verr *planner.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref, err := h.plans.CreatePlanRequest(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create plan request"})
		return
	}

	if err := h.queue.EnqueuePlan(pref.ID); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Plan queue is full, try again shortly"})
		return
	}

	c.JSON(http.StatusAccepted, types.SubmitPlanResponse{
		ID:         pref.ID.String(),
		PlanStatus: pref.PlanStatus,
	})
}

// PollPlan returns the current state of a plan request. Polling a finished
// plan always returns the same content; requesting an untranslated language
// on a successful plan lazily starts a translation and reports it pending.
func (h *PlanHandler) PollPlan(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid plan id"})
		return
	}

	language := c.Query("language")

	pref, err := h.plans.GetPlanRequest(c.Request.Context(), id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch plan"})
		return
	}
	if pref.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Plan not found"})
		return
	}

	resp, err := h.plans.Poll(c.Request.Context(), id, language)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch plan"})
		return
	}

	// Lazily start a translation the first time a language is requested
	// on a successful plan.
	if language != "" &&
		resp.PlanStatus == models.PlanStatusSuccess &&
		resp.TranslationStatus == service.TranslationStatusNone {
		created, err := h.plans.EnsureTranslation(c.Request.Context(), id, language)
		if err == nil && created {
			if err := h.queue.EnqueueTranslation(id, language); err == nil {
				resp.TranslationStatus = models.TranslationStatusPending
			}
		} else if err == nil {
			resp.TranslationStatus = models.TranslationStatusPending
		}
	}

	c.JSON(http.StatusOK, resp)
}

func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v, true
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, false
		}
		return id, true
	default:
		return uuid.Nil, false
	}
}
