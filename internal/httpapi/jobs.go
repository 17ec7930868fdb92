package httpapi

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/goCred/jobs"
)

type notificationRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

func (s *Server) jobStatus(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue not configured")
		return
	}
	st, err := s.jobs.Status(r.Context())
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) addNotification(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "Job queue not configured")
		return
	}
	var req notificationRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "userId and message are required")
		return
	}
	job, err := s.jobs.Enqueue(r.Context(), jobs.JobSendNotification, map[string]string{
		"userId":  req.UserID,
		"message": req.Message,
	})
	if err != nil {
		s.writeEngineError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}
