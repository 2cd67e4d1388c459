package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/api"
	"github.com/weekplate/backend/internal/database"
	"github.com/weekplate/backend/internal/middleware"
	"github.com/weekplate/backend/internal/planner"
	"github.com/weekplate/backend/internal/service"
)

// Server owns the HTTP listener and the background plan orchestrator.
type Server struct {
	cfg          *config.Config
	router       *gin.Engine
	http         *http.Server
	db           *gorm.DB
	redis        *redis.Client
	orchestrator *planner.Orchestrator
	cancel       context.CancelFunc
}

// New assembles the full service graph: storage, Redis coordination, the
// generative and solver planners, the orchestrator, and the HTTP routes.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg)
	if err != nil {
		return nil, err
	}

	redisClient, err := database.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	llmService, err := service.NewLLMService(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	cache := service.NewRedisCoordinator(redisClient)
	planService := service.NewPlanService(db, cache)
	catalogService := service.NewCatalogService(db)
	ratingService := service.NewRatingService(db)
	historyService := service.NewHistoryService(db)

	orchestrator := planner.NewOrchestrator(planner.Deps{
		Plans:      planService,
		Catalog:    catalogService,
		Ratings:    ratingService,
		History:    historyService,
		Generative: planner.NewGenerativePlanner(llmService, catalogService, cfg.Planner),
		Solver:     planner.NewSolver(cfg.Planner),
		Translator: llmService,
		Locker:     cache,
	}, cfg.Planner)

	router := gin.Default()
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.CORS())

	router.GET("/health", healthHandler(db, redisClient))

	api.SetupAPI(router, db, redisClient, cfg.JWTSecret, orchestrator)

	return &Server{
		cfg:          cfg,
		router:       router,
		db:           db,
		redis:        redisClient,
		orchestrator: orchestrator,
	}, nil
}

// Start launches the orchestrator workers and the HTTP listener. It blocks
// until the listener stops.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.orchestrator.Start(ctx)

	s.http = &http.Server{
		Addr:    ":" + s.cfg.ServerPort,
		Handler: s.router,
	}

	log.Printf("Listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the listener, then drains the orchestrator so in-flight
// plans finish before the process exits.
func (s *Server) Shutdown(ctx context.Context) error {
	var first error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			first = err
		}
	}
	if s.orchestrator != nil {
		s.orchestrator.Stop()
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Router exposes the Gin engine for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func healthHandler(db *gorm.DB, redisClient *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := gin.H{"database": "ok", "redis": "ok"}

		if err := database.HealthCheck(ctx, db); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := redisClient.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{"status": httpStatusWord(status), "checks": checks})
	}
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "degraded"
}
