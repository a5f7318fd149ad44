package api

import (
	"net/http"

	"engagement-engine/internal/engagement"
)

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var in engagement.JobInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.engagement.CreateJob(r.Context(), actorFrom(r), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, engagement.View(job, s.now(), s.engagement.BaseURL()))
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.engagement.GetJob(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.engagement.DeleteJob(r.Context(), actorFrom(r), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.engagement.UpdateJobStatus(r.Context(), actorFrom(r), r.PathValue("id"), req.Status)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engagement.View(job, s.now(), s.engagement.BaseURL()))
}

func (s *Server) handleCloneJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.engagement.CloneJob(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, engagement.View(job, s.now(), s.engagement.BaseURL()))
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	job, err := s.moderation.Unfreeze(r.Context(), actorFrom(r), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, engagement.View(job, s.now(), s.engagement.BaseURL()))
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var in engagement.RecommendInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.engagement.Recommend(r.Context(), actorFrom(r), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}
