package server

import (
	"net/http"
	"strconv"

	"tweet_monitor/internal/domain"
)

type messageResponse struct {
	Message string `json:"message"`
}

type runResponse struct {
	Success   bool `json:"success"`
	NewTweets int  `json:"newTweets"`
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.Run(r.Context())
	if err != nil {
		s.logger.Error("monitor run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	if report.Message != "" {
		writeJSON(w, http.StatusOK, messageResponse{Message: report.Message})
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Success: true, NewTweets: report.NewTweets})
}

// handleCallStatus records the form-encoded status callback the international
// provider posts as a call progresses.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid form body"})
		return
	}

	update := &domain.CallStatusUpdate{
		CallSID: r.PostForm.Get("CallSid"),
		Status:  r.PostForm.Get("CallStatus"),
	}
	if update.CallSID == "" || update.Status == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "CallSid and CallStatus are required"})
		return
	}
	if raw := r.PostForm.Get("CallDuration"); raw != "" {
		if d, err := strconv.Atoi(raw); err == nil {
			update.Duration = &d
		}
	}

	if err := s.statuses.InsertStatusUpdate(r.Context(), update); err != nil {
		s.logger.Error("failed to record call status", "call_sid", update.CallSID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to record status"})
		return
	}

	s.logger.Info("call status updated", "call_sid", update.CallSID, "status", update.Status)
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
