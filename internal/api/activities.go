package api

import (
	"net/http"
	"strconv"

	"engagement-engine/internal/apperrors"
	"engagement-engine/internal/moderation"
)

func (s *Server) handleRecentActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, r, apperrors.Validation("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	activities, err := s.inbox.Recent(r.Context(), actorFrom(r), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (s *Server) handleReadActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := s.inbox.MarkRead(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.inbox.Remove(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var in moderation.ReportInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	report, err := s.moderation.FileReport(r.Context(), actorFrom(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}
