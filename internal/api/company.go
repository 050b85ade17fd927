// internal/api/company.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	stderrors "jobmatcher/internal/common/errors"
	"jobmatcher/internal/common/validation"
	"jobmatcher/internal/services/appstate"
)

// handleCompanyView resolves a magic link and returns the bound application
// with its job summary. Unknown and expired tokens both come back 403.
func (s *Server) handleCompanyView(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	resolved, err := s.magicLinks.ResolveApplication(r.Context(), token)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"application": resolved.Application,
		"job":         resolved.Job,
		"linkData":    resolved.LinkData,
	})
}

// handleCompanyUpdate applies a company's status decision through the magic
// link. Token check comes first so invalid links never learn whether the
// application exists.
func (s *Server) handleCompanyUpdate(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	resolved, err := s.magicLinks.ResolveApplication(r.Context(), token)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		stderrors.WriteHTTP(w, stderrors.NewInvalidInputError("request body must be valid JSON"), s.logger)
		return
	}
	if err := validation.Validate(validation.CompanyUpdateSchema, body); err != nil {
		stderrors.WriteHTTP(w, stderrors.NewInvalidInputError(err.Error()), s.logger)
		return
	}

	status, _ := body["status"].(string)
	fields, err := parseUpdateFields(body)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	app, err := s.appState.Transition(r.Context(), resolved.Application.ID, status, fields)
	if err != nil {
		stderrors.WriteHTTP(w, err, s.logger)
		return
	}

	// Notification and used_at are secondary effects. The status write is
	// already durable, so failures here are logged and the response stays 200.
	if _, err := s.notifier.NotifyStatusChange(r.Context(), app); err != nil {
		s.logger.Error("status notification failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err.Error(),
		})
	}
	if err := s.magicLinks.MarkUsed(r.Context(), token); err != nil {
		s.logger.Warn("mark token used failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"application": map[string]interface{}{
			"id":        app.ID,
			"status":    app.Status,
			"updatedAt": app.StatusUpdatedAt.UTC().Format(time.RFC3339),
		},
	})
}

func parseUpdateFields(body map[string]interface{}) (appstate.Fields, error) {
	var fields appstate.Fields

	if v, ok := body["companyNotes"].(string); ok {
		fields.CompanyNotes = &v
	}
	if v, ok := body["interviewer"].(string); ok {
		fields.InterviewerName = &v
	}
	if v, ok := body["location"].(string); ok {
		fields.InterviewLocation = &v
	}
	if v, ok := body["interviewDate"].(string); ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return fields, stderrors.NewInvalidInputError("interviewDate must be RFC 3339")
		}
		fields.InterviewDate = &t
	}

	return fields, nil
}
