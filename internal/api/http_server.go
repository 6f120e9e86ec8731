// Package api exposes the scheduling engine over HTTP. The booking flow
// endpoints are public and gated by phone verification; owner endpoints
// require an API key.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slotnik/internal/config"
	"slotnik/internal/database"
	"slotnik/internal/domain"
	"slotnik/internal/export"
	"slotnik/internal/metrics"
	"slotnik/internal/service"
	"slotnik/internal/timeutil"
	"slotnik/internal/verification"
	"slotnik/internal/workflow"

	"github.com/rs/zerolog"
)

// HTTPServer wires the engine's services into HTTP handlers.
type HTTPServer struct {
	cfg      config.APIConfig
	repo     domain.Repository
	schedule *service.ScheduleService
	bookings *service.BookingService
	engine   *workflow.Engine
	drafts   domain.DraftStore
	gate     *verification.Gate
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	repo domain.Repository,
	schedule *service.ScheduleService,
	bookings *service.BookingService,
	engine *workflow.Engine,
	drafts domain.DraftStore,
	gate *verification.Gate,
	exporter *export.Exporter,
	logger *zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		repo:     repo,
		schedule: schedule,
		bookings: bookings,
		engine:   engine,
		drafts:   drafts,
		gate:     gate,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	mux.HandleFunc("/api/v1/businesses/", srv.routeBusinesses)
	mux.HandleFunc("/api/v1/sessions/", srv.routeSessions)
	mux.HandleFunc("/api/v1/bookings", srv.handleOwnerCreate)
	mux.HandleFunc("/api/v1/bookings/", srv.routeBookings)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler exposes the routing stack for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// routeBusinesses dispatches /api/v1/businesses/{slug}/{action}.
func (s *HTTPServer) routeBusinesses(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/businesses/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	slug, action := parts[0], parts[1]

	switch action {
	case "slots":
		s.handleSlots(w, r, slug)
	case "calendar":
		s.handleCalendar(w, r, slug)
	case "export":
		s.handleExport(w, r, slug)
	case "sessions":
		s.handleSessionBegin(w, r, slug)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// routeSessions dispatches /api/v1/sessions/{id} and its actions.
func (s *HTTPServer) routeSessions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	sessionID := parts[0]

	if len(parts) == 1 {
		s.handleSessionGet(w, r, sessionID)
		return
	}

	switch parts[1] {
	case "advance":
		s.handleSessionAdvance(w, r, sessionID)
	case "back":
		s.handleSessionBack(w, r, sessionID)
	case "abandon":
		s.handleSessionAbandon(w, r, sessionID)
	case "resend":
		s.handleSessionResend(w, r, sessionID)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// routeBookings dispatches /api/v1/bookings/{id} and its actions.
func (s *HTTPServer) routeBookings(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	id, err := parseID(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	if len(parts) == 1 {
		s.handleBookingGet(w, r, id)
		return
	}

	switch parts[1] {
	case "status":
		s.handleBookingStatus(w, r, id)
	case "reschedule":
		s.handleBookingReschedule(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(endpointLabel(r.URL.Path))
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// endpointLabel collapses path parameters so the metric cardinality stays
// bounded.
func endpointLabel(path string) string {
	switch {
	case path == "/healthz":
		return "healthz"
	case strings.HasPrefix(path, "/api/v1/businesses/"):
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) == 4 {
			return "businesses/" + parts[3]
		}
		return "businesses"
	case strings.HasPrefix(path, "/api/v1/sessions/"):
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) == 4 {
			return "sessions/" + parts[3]
		}
		return "sessions"
	case strings.HasPrefix(path, "/api/v1/bookings"):
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) == 4 {
			return "bookings/" + parts[3]
		}
		return "bookings"
	}
	return "other"
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps domain errors onto HTTP status codes.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	var cooldown *verification.CooldownError

	switch {
	case errors.Is(err, database.ErrNotFound),
		errors.Is(err, database.ErrUnknownBusiness):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrSlotTaken),
		errors.Is(err, database.ErrVersionMismatch),
		errors.Is(err, workflow.ErrWrongStep),
		errors.Is(err, workflow.ErrFinished):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &cooldown):
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(cooldown.Remaining.Seconds())))
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, verification.ErrCodeExpired),
		errors.Is(err, verification.ErrCodeMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, timeutil.ErrInvalidTime),
		errors.Is(err, database.ErrUnknownService),
		errors.Is(err, database.ErrPastDate),
		errors.Is(err, database.ErrDateTooFar),
		errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, verification.ErrBadChannel):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("unhandled error in http handler")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
