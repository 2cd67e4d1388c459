package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/middleware"
	"github.com/weekplate/backend/internal/service"
	"github.com/weekplate/backend/internal/types"
)

type RatingHandler struct {
	ratings     service.IRatingService
	catalog     service.ICatalogService
	authService *service.AuthService
}

func NewRatingHandler(ratings service.IRatingService, catalog service.ICatalogService, authService *service.AuthService) *RatingHandler {
	return &RatingHandler{
		ratings:     ratings,
		catalog:     catalog,
		authService: authService,
	}
}

func (h *RatingHandler) RegisterRoutes(router *gin.RouterGroup) {
	ratings := router.Group("/ratings")
	ratings.Use(middleware.AuthMiddleware(h.authService))
	{
		ratings.POST("", h.RateRecipe)
		ratings.GET("", h.ListRatings)
	}
}

// RateRecipe records a like or dislike. Re-rating the same recipe
// overwrites the previous value rather than adding a second row.
func (h *RatingHandler) RateRecipe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req types.RateRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recipeID, err := uuid.Parse(req.RecipeID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid recipe id"})
		return
	}

	if _, err := h.catalog.GetRecipe(c.Request.Context(), recipeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Recipe not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recipe"})
		return
	}

	rating, err := h.ratings.Rate(c.Request.Context(), userID, recipeID, *req.Liked)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rating"})
		return
	}

	c.JSON(http.StatusOK, rating)
}

// ListRatings returns the caller's ratings.
func (h *RatingHandler) ListRatings(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ratings, err := h.ratings.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch ratings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ratings": ratings})
}
