// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jobmatcher/internal/common/logger"
	"jobmatcher/internal/common/observability"
	"jobmatcher/internal/models"
	"jobmatcher/internal/services/appstate"
	"jobmatcher/internal/services/digest"
	"jobmatcher/internal/services/magiclink"
)

// Narrow service surfaces so handlers can be tested against fakes.
type MagicLinkResolver interface {
	ResolveApplication(ctx context.Context, token string) (*magiclink.ResolvedLink, error)
	MarkUsed(ctx context.Context, token string) error
}

type ApplicationUpdater interface {
	Transition(ctx context.Context, applicationID, newStatus string, fields appstate.Fields) (*models.Application, error)
}

type Notifier interface {
	NotifyStatusChange(ctx context.Context, app *models.Application) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) error
}

type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.Session, error)
}

type DigestRunner interface {
	Run(ctx context.Context, frequency string) (*digest.Result, error)
}

type Server struct {
	logger     logger.Logger
	obs        *observability.Observability
	magicLinks MagicLinkResolver
	appState   ApplicationUpdater
	notifier   Notifier
	sessions   SessionResolver
	digests    DigestRunner
	cronSecret string
	timeout    time.Duration
}

func NewServer(
	log logger.Logger,
	obs *observability.Observability,
	magicLinks MagicLinkResolver,
	appState ApplicationUpdater,
	notifier Notifier,
	sessions SessionResolver,
	digests DigestRunner,
	cronSecret string,
	timeout time.Duration,
) *Server {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		logger:     log.WithFields(map[string]interface{}{"component": "api"}),
		obs:        obs,
		magicLinks: magicLinks,
		appState:   appState,
		notifier:   notifier,
		sessions:   sessions,
		digests:    digests,
		cronSecret: cronSecret,
		timeout:    timeout,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(s.timeout))
	r.Use(s.requestMetrics)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/company/application/{token}", func(r chi.Router) {
		r.Get("/", s.handleCompanyView)
		r.Post("/update", s.handleCompanyUpdate)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleListNotifications)
		r.Post("/{id}/read", s.handleMarkRead)
	})

	r.With(s.requireCronSecret).Get("/cron/send-emails", s.handleSendEmails)

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
