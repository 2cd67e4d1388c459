package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weekplate/backend/internal/service"
	"github.com/weekplate/backend/internal/testhelpers"
	"github.com/weekplate/backend/internal/types"
)

// fakeEnqueuer records enqueued work instead of running it.
type fakeEnqueuer struct {
	mu           sync.Mutex
	plans        []uuid.UUID
	translations []string
	planErr      error
}

func (f *fakeEnqueuer) EnqueuePlan(id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.planErr != nil {
		return f.planErr
	}
	f.plans = append(f.plans, id)
	return nil
}

func (f *fakeEnqueuer) EnqueueTranslation(planID uuid.UUID, language string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.translations = append(f.translations, planID.String()+":"+language)
	return nil
}

type testEnv struct {
	router  *gin.Engine
	db      *gorm.DB
	queue   *fakeEnqueuer
	plans   *service.PlanService
	catalog *service.CatalogService
	ratings *service.RatingService
	auth    *service.AuthService
	userID  uuid.UUID
	token   string
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupSQLiteDB(t)
	authService := service.NewAuthService("test-jwt-secret")
	planService := service.NewPlanService(db, nil)
	catalogService := service.NewCatalogService(db)
	ratingService := service.NewRatingService(db)
	queue := &fakeEnqueuer{}

	router := gin.New()
	v1 := router.Group("/api/v1")
	NewPlanHandler(planService, queue, authService, nil).RegisterRoutes(v1)
	NewRatingHandler(ratingService, catalogService, authService).RegisterRoutes(v1)

	userID := uuid.New()
	token, err := authService.GenerateToken(&types.TokenClaims{UserID: userID, Username: "tester"})
	require.NoError(t, err)

	return &testEnv{
		router:  router,
		db:      db,
		queue:   queue,
		plans:   planService,
		catalog: catalogService,
		ratings: ratingService,
		auth:    authService,
		userID:  userID,
		token:   token,
	}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func validSubmitBody() map[string]interface{} {
	return map[string]interface{}{
		"age":            30,
		"sex":            "male",
		"height_cm":      180,
		"weight_kg":      80,
		"activity_level": "moderate",
		"goal":           "maintain",
		"meal_types":     []string{"breakfast", "dinner"},
	}
}
