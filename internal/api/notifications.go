// internal/api/notifications.go
package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	stderrors "jobmatcher/internal/common/errors"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			stderrors.WriteHTTP(w, stderrors.NewInvalidInputError("limit must be a positive integer"), s.logger)
			return
		}
		limit = n
	}

	notifications, err := s.notifier.ListForUser(r.Context(), userID, limit)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	userID := UserID(r.Context())
	notificationID := chi.URLParam(r, "id")

	if err := s.notifier.MarkAsRead(r.Context(), notificationID, userID); err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}
