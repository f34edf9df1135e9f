package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/sprint-insights/internal/api/shared"
	"github.com/phrazzld/sprint-insights/internal/domain"
	"github.com/phrazzld/sprint-insights/internal/platform/logger"
)

// TaskPublisher queues insight tasks and reports on in-flight work.
type TaskPublisher interface {
	Enqueue(ctx context.Context, projectID, sprintID int64, user string) error
	IsGenerating(ctx context.Context, projectID, sprintID int64) (bool, error)
}

// InsightReader reads stored insights.
type InsightReader interface {
	ListBySprint(ctx context.Context, sprintID int64) ([]*domain.SprintInsight, error)
}

// InsightHandler serves the sprint insight endpoints.
type InsightHandler struct {
	publisher TaskPublisher
	insights  InsightReader
	logger    *slog.Logger
}

// NewInsightHandler creates an InsightHandler.
func NewInsightHandler(publisher TaskPublisher, insights InsightReader, logger *slog.Logger) *InsightHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InsightHandler{
		publisher: publisher,
		insights:  insights,
		logger:    logger.With("component", "insight_handler"),
	}
}

// RequestInsights handles POST /api/projects/{projectId}/sprints/{sprintId}/insights.
// It answers 202 once the task is queued; results arrive over the push gateway.
func (h *InsightHandler) RequestInsights(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	user, ok := shared.GetUser(r.Context())
	if !ok {
		shared.RespondWithError(w, r, http.StatusBadRequest, "X-User header is required")
		return
	}

	projectID, sprintID, ok := getProjectAndSprint(w, r)
	if !ok {
		return
	}

	if err := h.publisher.Enqueue(r.Context(), projectID, sprintID, user); err != nil {
		log.Error("failed to enqueue insight task",
			"project_id", projectID,
			"sprint_id", sprintID,
			"error", err)
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, EnqueueResponse{
		ProjectID: projectID,
		SprintID:  sprintID,
		Status:    "queued",
		Room:      domain.InsightRoom(sprintID),
	})
}

// GetGenerating handles GET /api/projects/{projectId}/sprints/{sprintId}/insights/generating.
func (h *InsightHandler) GetGenerating(w http.ResponseWriter, r *http.Request) {
	projectID, sprintID, ok := getProjectAndSprint(w, r)
	if !ok {
		return
	}

	generating, err := h.publisher.IsGenerating(r.Context(), projectID, sprintID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, GeneratingResponse{Generating: generating})
}

// ListInsights handles GET /api/sprints/{sprintId}/insights.
func (h *InsightHandler) ListInsights(w http.ResponseWriter, r *http.Request) {
	sprintID, err := getPathID(r, "sprintId")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid sprintId")
		return
	}

	insights, err := h.insights.ListBySprint(r.Context(), sprintID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, insightsToResponse(sprintID, insights))
}

// Routes registers the insight endpoints on r, which should be mounted
// at /api.
func (h *InsightHandler) Routes(r chi.Router) {
	r.Route("/projects/{projectId}/sprints/{sprintId}/insights", func(r chi.Router) {
		r.Post("/", h.RequestInsights)
		r.Get("/generating", h.GetGenerating)
	})
	r.Get("/sprints/{sprintId}/insights", h.ListInsights)
}
