package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/sprint-insights/internal/domain"
)

// getPathID parses a positive integer path parameter.
func getPathID(r *http.Request, paramName string) (int64, error) {
	raw := chi.URLParam(r, paramName)
	if raw == "" {
		return 0, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, paramName)
	}

	return id, nil
}

// getProjectAndSprint parses {projectId} and {sprintId}, writing a 400 on failure.
func getProjectAndSprint(w http.ResponseWriter, r *http.Request) (projectID, sprintID int64, ok bool) {
	projectID, err := getPathID(r, "projectId")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid projectId")
		return 0, 0, false
	}

	sprintID, err = getPathID(r, "sprintId")
	if err != nil {
		HandleAPIError(w, r, err, "Invalid sprintId")
		return 0, 0, false
	}

	return projectID, sprintID, true
}
