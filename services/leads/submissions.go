package leads

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"leadwizard/api/services/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// HandleListSubmissions returns stored submissions, newest first.
// Optional query parameters: variant and limit.
func (s *Service) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	rid := reqID(r)
	variant := r.URL.Query().Get("variant")

	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeErrorJSON(w, "INVALID_LIMIT", "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	subs, err := s.storage.ListSubmissions(r.Context(), variant, limit)
	if err != nil {
		slog.Error("failed to list submissions", "variant", variant, "requestId", rid, "error", err)
		writeErrorJSON(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"submissions": nonNil(subs)})
}

// HandleGetSubmission returns one stored submission.
func (s *Service) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	rid := reqID(r)
	id := mux.Vars(r)["id"]

	subID, err := uuid.Parse(id)
	if err != nil {
		slog.Warn("invalid submission id", "id", id, "requestId", rid, "error", err)
		writeErrorJSON(w, "INVALID_ID", "invalid submission id", http.StatusBadRequest)
		return
	}

	sub, err := s.storage.GetSubmission(r.Context(), subID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			slog.Warn("submission not found", "id", subID, "requestId", rid)
			writeErrorJSON(w, "NOT_FOUND", "submission not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get submission", "id", subID, "requestId", rid, "error", err)
		writeErrorJSON(w, "INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, sub)
}
