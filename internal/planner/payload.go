package planner

import (
	"encoding/json"
	"fmt"

	"github.com/weekplate/backend/internal/models"
)

// EncodePayload serializes a plan payload for the jsonb result column.
func EncodePayload(p *models.PlanPayload) (models.JSONB, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan payload: %w", err)
	}
	return models.JSONB(data), nil
}

func decodePayload(raw models.JSONB) (*models.PlanPayload, error) {
	var p models.PlanPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("decode plan payload: %w", err)
	}
	return &p, nil
}
