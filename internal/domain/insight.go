package domain

import (
	"fmt"
	"time"
)

// InsightCategory names one section of a sprint insight report.
type InsightCategory string

// Categories produced for every sprint.
const (
	CategoryBacklog       InsightCategory = "Backlog"
	CategoryContributions InsightCategory = "Contributions"
	CategoryAgileCeremony InsightCategory = "Agile ceremonies"
)

// AllCategories lists the categories in the order they are generated.
func AllCategories() []InsightCategory {
	return []InsightCategory{CategoryBacklog, CategoryContributions, CategoryAgileCeremony}
}

// SprintInsight is the generated text for one category of a sprint.
// (SprintID, Category) is unique; regeneration overwrites Content.
type SprintInsight struct {
	SprintID  int64           `json:"sprint_id"`
	Category  InsightCategory `json:"category"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSprintInsight creates a SprintInsight stamped with the current time.
func NewSprintInsight(sprintID int64, category InsightCategory, content string) (*SprintInsight, error) {
	now := time.Now().UTC()
	insight := &SprintInsight{
		SprintID:  sprintID,
		Category:  category,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := insight.Validate(); err != nil {
		return nil, err
	}

	return insight, nil
}

// Validate checks that the insight can be persisted.
func (i *SprintInsight) Validate() error {
	if i.SprintID <= 0 {
		return fmt.Errorf("%w: sprint ID must be positive", ErrValidation)
	}

	if i.Category == "" {
		return fmt.Errorf("%w: category cannot be empty", ErrValidation)
	}

	if i.Content == "" {
		return ErrEmptyContent
	}

	return nil
}
