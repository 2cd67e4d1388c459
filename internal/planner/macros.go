package planner

import (
	"strings"

	"github.com/weekplate/backend/internal/models"
)

// Activity multipliers applied to basal metabolic rate.
var activityFactors = map[string]float64{
	"sedentary": 1.2,
	"light":     1.375,
	"moderate":  1.55,
	"active":    1.725,
	"athlete":   1.9,
}

// Goal adjustments as a fraction of maintenance calories.
var goalAdjustments = map[string]float64{
	"lose":     -0.20,
	"maintain": 0,
	"gain":     0.15,
}

// DeriveMacroTarget computes a daily macro target from biometrics using the
// Mifflin-St Jeor equation. The solver path uses it because the solve must
// not block on network calls; the generative path derives its target from
// the text service instead and only falls back to this when that output is
// unusable.
func DeriveMacroTarget(pref *models.PlanRequest) models.MacroTarget {
	// BMR in kcal/day.
	bmr := 10*pref.WeightKG + 6.25*pref.HeightCM - 5*float64(pref.Age)
	if strings.EqualFold(pref.Sex, "male") {
		bmr += 5
	} else {
		bmr -= 161
	}

	factor, ok := activityFactors[strings.ToLower(pref.ActivityLevel)]
	if !ok {
		factor = activityFactors["moderate"]
	}
	calories := bmr * factor

	if adj, ok := goalAdjustments[strings.ToLower(pref.Goal)]; ok {
		calories *= 1 + adj
	}
	if calories < 1200 {
		calories = 1200
	}

	// 30/40/30 protein/carb/fat split. 4 kcal per gram of protein and
	// carbs, 9 per gram of fat.
	return models.MacroTarget{
		Calories: calories,
		Protein:  calories * 0.30 / 4,
		Carbs:    calories * 0.40 / 4,
		Fat:      calories * 0.30 / 9,
	}
}
