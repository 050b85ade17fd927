// internal/api/cron.go
package api

import (
	"net/http"

	stderrors "jobmatcher/internal/common/errors"
)

// handleSendEmails triggers one digest pass. The shared-secret check runs
// in middleware; by the time we are here the caller is the scheduler.
func (s *Server) handleSendEmails(w http.ResponseWriter, r *http.Request) {
	frequency := r.URL.Query().Get("frequency")

	result, err := s.digests.Run(r.Context(), frequency)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
