package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateConfig checks that the loaded configuration is usable. Connection
// settings are required everywhere; planner knobs are checked for internal
// consistency so a bad deployment fails at startup rather than mid-solve.
func ValidateConfig(cfg *Config) error {
	var errs []string

	required := map[string]string{
		"SERVER_PORT": cfg.ServerPort,
		"DB_HOST":     cfg.DBHost,
		"DB_PORT":     cfg.DBPort,
		"DB_USER":     cfg.DBUser,
		"DB_NAME":     cfg.DBName,
		"REDIS_HOST":  cfg.RedisHost,
		"REDIS_PORT":  cfg.RedisPort,
		"JWT_SECRET":  cfg.JWTSecret,
	}
	for field, value := range required {
		if value == "" {
			errs = append(errs, ValidationError{Field: field, Message: "is required"}.Error())
		}
	}

	p := cfg.Planner
	if p.MinTotalRatings < 0 {
		errs = append(errs, ValidationError{Field: "PLANNER_MIN_TOTAL_RATINGS", Message: "must not be negative"}.Error())
	}
	if p.MinRatingsPerMealType < 0 {
		errs = append(errs, ValidationError{Field: "PLANNER_MIN_RATINGS_PER_MEAL_TYPE", Message: "must not be negative"}.Error())
	}
	if p.MinEligiblePerMealType < 1 {
		errs = append(errs, ValidationError{Field: "PLANNER_MIN_ELIGIBLE_PER_MEAL_TYPE", Message: "must be at least 1"}.Error())
	}
	if p.SolveTimeBudget <= 0 {
		errs = append(errs, ValidationError{Field: "PLANNER_SOLVE_TIME_BUDGET", Message: "must be positive"}.Error())
	}
	if p.MacroTolerance <= 0 || p.MacroTolerance >= 1 {
		errs = append(errs, ValidationError{Field: "PLANNER_MACRO_TOLERANCE", Message: "must be in (0, 1)"}.Error())
	}
	if p.MacroToleranceRelaxed < p.MacroTolerance {
		errs = append(errs, ValidationError{Field: "PLANNER_MACRO_TOLERANCE_RELAXED", Message: "must not be tighter than PLANNER_MACRO_TOLERANCE"}.Error())
	}
	if p.RecencyWindowMinDays < 0 || p.RecencyWindowMinDays > p.RecencyWindowDays {
		errs = append(errs, ValidationError{Field: "PLANNER_RECENCY_WINDOW_MIN_DAYS", Message: "must be between 0 and PLANNER_RECENCY_WINDOW_DAYS"}.Error())
	}
	if p.PlanWorkers < 1 {
		errs = append(errs, ValidationError{Field: "PLANNER_PLAN_WORKERS", Message: "must be at least 1"}.Error())
	}
	if p.TranslationWorkers < 1 {
		errs = append(errs, ValidationError{Field: "PLANNER_TRANSLATION_WORKERS", Message: "must be at least 1"}.Error())
	}
	if p.QueueSize < 1 {
		errs = append(errs, ValidationError{Field: "PLANNER_QUEUE_SIZE", Message: "must be at least 1"}.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}
