package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weekplate/backend/config"
	"github.com/weekplate/backend/internal/models"
)

// macroTargetCacheTTL bounds how long a derived macro target is reused for
// identical biometric inputs.
const macroTargetCacheTTL = 24 * time.Hour

// LLMService handles interactions with the DeepSeek API. It backs the
// generative planning path and plan translation.
type LLMService struct {
	apiKey    string
	apiURL    string
	model     string
	maxTokens int
	client    *http.Client
	redis     *redis.Client
}

// NewLLMService creates a new LLMService instance. The redis client is
// optional; without it macro-target derivation is simply uncached.
func NewLLMService(cfg *config.Config, redisClient *redis.Client) (*LLMService, error) {
	if cfg.LLMAPIKey == "" {
		return nil, fmt.Errorf("DEEPSEEK_API_KEY or DEEPSEEK_API_KEY_FILE must be set")
	}

	return &LLMService{
		apiKey:    cfg.LLMAPIKey,
		apiURL:    cfg.LLMAPIURL,
		model:     cfg.LLMModel,
		maxTokens: cfg.LLMMaxTokens,
		client:    &http.Client{Timeout: cfg.LLMTimeout},
		redis:     redisClient,
	}, nil
}

// Message represents a message in the chat
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request represents a request to the DeepSeek API
type Request struct {
	Model          string            `json:"model"`
	Messages       []Message         `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
}

// chat sends one chat-completion request and returns the message content.
func (s *LLMService) chat(ctx context.Context, system, user string, temperature float64) (string, error) {
	reqBody := Request{
		Model: s.model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    temperature,
		MaxTokens:      s.maxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[LLMService] API request failed with status %d: %s", resp.StatusCode, string(body))
		return "", fmt.Errorf("API request failed with status %d", resp.StatusCode)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no response from API")
	}

	return result.Choices[0].Message.Content, nil
}

// DeriveMacroTarget asks the model for a daily calorie and macro target
// from the user's biometrics and goal. Identical inputs hit a Redis cache
// first: the derivation is deterministic enough to reuse for a day.
func (s *LLMService) DeriveMacroTarget(ctx context.Context, pref *models.PlanRequest) (models.MacroTarget, error) {
	cacheKey := fmt.Sprintf("llm:macro_target:%s:%d:%.0f:%.0f:%s:%s",
		pref.Sex, pref.Age, pref.HeightCM, pref.WeightKG, pref.ActivityLevel, pref.Goal)

	if s.redis != nil {
		if data, err := s.redis.Get(ctx, cacheKey).Bytes(); err == nil {
			var target models.MacroTarget
			if json.Unmarshal(data, &target) == nil {
				return target, nil
			}
		}
	}

	system := `You are a nutritionist. Respond only with JSON like {"calories":0,"protein":0,"carbs":0,"fat":0}. All fields must be numbers: daily kilocalories and grams of protein, carbs and fat.`
	user := fmt.Sprintf("Daily nutrition target for: sex %s, age %d, height %.0f cm, weight %.0f kg, activity level %s, goal: %s weight.",
		pref.Sex, pref.Age, pref.HeightCM, pref.WeightKG, pref.ActivityLevel, pref.Goal)

	content, err := s.chat(ctx, system, user, 0.2)
	if err != nil {
		return models.MacroTarget{}, err
	}

	var target models.MacroTarget
	if err := json.Unmarshal([]byte(content), &target); err != nil {
		return models.MacroTarget{}, fmt.Errorf("failed to parse macro target: %w", err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(target); err == nil {
			if err := s.redis.Set(ctx, cacheKey, data, macroTargetCacheTTL).Err(); err != nil {
				log.Printf("[LLMService] failed to cache macro target: %v", err)
			}
		}
	}

	return target, nil
}

// SuggestMeals asks the model for one meal-name suggestion per (day, meal
// type) cell of the horizon.
func (s *LLMService) SuggestMeals(ctx context.Context, pref *models.PlanRequest, target models.MacroTarget, days int, mealTypes []string) ([]map[string]string, error) {
	system := fmt.Sprintf(`You are a professional chef and meal planner. Respond only with JSON shaped like {"days":[{"meals":{%s}}]} with exactly %d entries in "days". Each meal value is a concrete dish name, no recipe text.`,
		exampleMealsObject(mealTypes), days)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Plan %d days of meals (%s per day) around a daily target of %.0f kcal (%.0fg protein, %.0fg carbs, %.0fg fat).",
		days, strings.Join(mealTypes, ", "), target.Calories, target.Protein, target.Carbs, target.Fat)
	if len(pref.DietaryRestrictions) > 0 {
		fmt.Fprintf(&sb, " Every meal must be %s.", strings.Join(pref.DietaryRestrictions, " and "))
	}
	if len(pref.CuisinePreferences) > 0 {
		fmt.Fprintf(&sb, " Prefer %s cuisine.", strings.Join(pref.CuisinePreferences, " or "))
	}
	if pref.MaxCookMinutes > 0 {
		fmt.Fprintf(&sb, " Keep cooking time under %d minutes.", pref.MaxCookMinutes)
	}
	sb.WriteString(" Avoid repeating the same dish twice in the week.")

	content, err := s.chat(ctx, system, sb.String(), 0.9)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Days []struct {
			Meals map[string]string `json:"meals"`
		} `json:"days"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse meal suggestions: %w", err)
	}

	suggestions := make([]map[string]string, len(parsed.Days))
	for i, day := range parsed.Days {
		suggestions[i] = day.Meals
	}
	return suggestions, nil
}

// TranslatePlan translates the user-facing strings of a finished plan.
// Recipe ids, macros and structure are preserved; only titles, ingredients
// and instructions change.
func (s *LLMService) TranslatePlan(ctx context.Context, payload *models.PlanPayload, language string) (*models.PlanPayload, error) {
	original, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plan for translation: %w", err)
	}

	system := fmt.Sprintf(`You are a translator. The user sends a JSON meal plan. Return the same JSON with every "title" and every entry of "ingredients" and "instructions" translated to the language with ISO code %q. Do not change any other field, key, number or id.`, language)

	content, err := s.chat(ctx, system, string(original), 0.2)
	if err != nil {
		return nil, err
	}

	var translated models.PlanPayload
	if err := json.Unmarshal([]byte(content), &translated); err != nil {
		return nil, fmt.Errorf("failed to parse translated plan: %w", err)
	}
	if len(translated.Days) != len(payload.Days) {
		return nil, fmt.Errorf("translated plan lost days: got %d, want %d", len(translated.Days), len(payload.Days))
	}

	return &translated, nil
}

// exampleMealsObject renders the meals object of the response schema, e.g.
// "breakfast":"...","dinner":"...".
func exampleMealsObject(mealTypes []string) string {
	parts := make([]string, len(mealTypes))
	for i, mt := range mealTypes {
		parts[i] = fmt.Sprintf("%q:%q", mt, "dish name")
	}
	return strings.Join(parts, ",")
}
