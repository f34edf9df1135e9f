package api

import (
	"time"

	"github.com/phrazzld/sprint-insights/internal/domain"
)

// EnqueueResponse acknowledges an accepted generation request.
type EnqueueResponse struct {
	ProjectID int64  `json:"projectId"`
	SprintID  int64  `json:"sprintId"`
	Status    string `json:"status"`
	Room      string `json:"room"`
}

// GeneratingResponse reports whether a sprint is being processed.
type GeneratingResponse struct {
	Generating bool `json:"generating"`
}

// InsightResponse is one stored insight category.
type InsightResponse struct {
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SprintInsightsResponse lists the stored insights of a sprint.
type SprintInsightsResponse struct {
	SprintID int64             `json:"sprintId"`
	Insights []InsightResponse `json:"insights"`
}

func insightsToResponse(sprintID int64, insights []*domain.SprintInsight) SprintInsightsResponse {
	out := SprintInsightsResponse{
		SprintID: sprintID,
		Insights: make([]InsightResponse, 0, len(insights)),
	}
	for _, i := range insights {
		out.Insights = append(out.Insights, InsightResponse{
			Category:  string(i.Category),
			Content:   i.Content,
			UpdatedAt: i.UpdatedAt,
		})
	}
	return out
}
