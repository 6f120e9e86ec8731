package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"slotnik/internal/database"
	"slotnik/internal/metrics"
	"slotnik/internal/models"
	"slotnik/internal/service"
	"slotnik/internal/timeutil"
	"slotnik/internal/workflow"
)

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// GET /api/v1/businesses/{slug}/slots?date=YYYY-MM-DD&service_id=N
func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}
	serviceID, err := parseID(strings.TrimSpace(r.URL.Query().Get("service_id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	slots, err := s.schedule.AvailableSlots(r.Context(), slug, dateStr, serviceID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	metrics.IncSlotQueries()

	writeJSON(w, http.StatusOK, map[string]any{
		"date":       dateStr,
		"service_id": serviceID,
		"slots":      slots,
	})
}

// GET /api/v1/businesses/{slug}/calendar?date=YYYY-MM-DD
func (s *HTTPServer) handleCalendar(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	if dateStr == "" {
		writeError(w, http.StatusBadRequest, "date is required")
		return
	}

	bookings, layout, err := s.schedule.DayCalendar(r.Context(), slug, dateStr)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"date":     dateStr,
		"bookings": bookings,
		"layout":   layout,
	})
}

// GET /api/v1/businesses/{slug}/export?from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, err := timeutil.ParseDate(strings.TrimSpace(r.URL.Query().Get("from")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
		return
	}
	to, err := timeutil.ParseDate(strings.TrimSpace(r.URL.Query().Get("to")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not precede from")
		return
	}

	business, err := s.repo.GetBusinessBySlug(r.Context(), slug)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	path, err := s.exporter.ExportBookings(r.Context(), business.ID, from, to)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename=\""+filepathBase(path)+"\"")
	http.ServeFile(w, r, path)
}

func filepathBase(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// POST /api/v1/businesses/{slug}/sessions
func (s *HTTPServer) handleSessionBegin(w http.ResponseWriter, r *http.Request, slug string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.engine.Begin(r.Context(), slug)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.drafts.SaveDraft(r.Context(), draft); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, draft)
}

// GET /api/v1/sessions/{id}
func (s *HTTPServer) handleSessionGet(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.loadDraft(w, r, sessionID)
	if draft == nil || err != nil {
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// POST /api/v1/sessions/{id}/advance
func (s *HTTPServer) handleSessionAdvance(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.loadDraft(w, r, sessionID)
	if draft == nil || err != nil {
		return
	}

	var in workflow.Input
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	next, err := s.engine.Advance(r.Context(), draft, in)
	if errors.Is(err, database.ErrSlotTaken) {
		// The regressed draft carries fresh slots; persist it so the client
		// retries against current state.
		metrics.IncCommitConflicts()
		if saveErr := s.drafts.SaveDraft(r.Context(), next); saveErr != nil {
			s.writeDomainError(w, saveErr)
			return
		}
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "slot already taken",
			"session": next,
		})
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	if draft.Step == models.StepContact && next.Step == models.StepVerify {
		channel := in.Channel
		if channel == "" {
			channel = models.ChannelSMS
		}
		metrics.IncCodesSent(channel)
	}
	if next.Step == models.StepDone {
		metrics.IncBookingsCreated()
	}

	if err := s.drafts.SaveDraft(r.Context(), next); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// POST /api/v1/sessions/{id}/back
func (s *HTTPServer) handleSessionBack(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.loadDraft(w, r, sessionID)
	if draft == nil || err != nil {
		return
	}

	var body struct {
		Step string `json:"step"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	next, err := s.engine.Back(draft, body.Step)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if err := s.drafts.SaveDraft(r.Context(), next); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// POST /api/v1/sessions/{id}/abandon
func (s *HTTPServer) handleSessionAbandon(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.loadDraft(w, r, sessionID)
	if draft == nil || err != nil {
		return
	}

	next := s.engine.Abandon(draft)
	if err := s.drafts.ClearDraft(r.Context(), sessionID); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// POST /api/v1/sessions/{id}/resend
func (s *HTTPServer) handleSessionResend(w http.ResponseWriter, r *http.Request, sessionID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	draft, err := s.loadDraft(w, r, sessionID)
	if draft == nil || err != nil {
		return
	}
	if draft.Step != models.StepVerify || draft.ClientPhone == "" {
		writeError(w, http.StatusConflict, "no verification in progress")
		return
	}

	var body struct {
		Channel string `json:"channel"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	channel := body.Channel
	if channel == "" {
		channel = models.ChannelSMS
	}

	if err := s.gate.Send(r.Context(), draft.ClientPhone, channel); err != nil {
		s.writeDomainError(w, err)
		return
	}
	metrics.IncCodesSent(channel)

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// loadDraft fetches and validates the session; it writes the error response
// itself and returns nil when the caller should stop.
func (s *HTTPServer) loadDraft(w http.ResponseWriter, r *http.Request, sessionID string) (*models.BookingDraft, error) {
	draft, err := s.drafts.GetDraft(r.Context(), sessionID)
	if err != nil {
		s.writeDomainError(w, err)
		return nil, err
	}
	if draft == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, nil
	}
	return draft, nil
}

// POST /api/v1/bookings
func (s *HTTPServer) handleOwnerCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		BusinessSlug string `json:"business_slug"`
		ServiceID    int64  `json:"service_id"`
		Date         string `json:"date"`
		StartTime    string `json:"start_time"`
		EndTime      string `json:"end_time"`
		ClientName   string `json:"client_name"`
		ClientPhone  string `json:"client_phone"`
		Note         string `json:"note"`
		Status       string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	booking, err := s.bookings.CreateByOwner(r.Context(), service.OwnerCreateParams{
		BusinessSlug: body.BusinessSlug,
		ServiceID:    body.ServiceID,
		Date:         body.Date,
		StartTime:    body.StartTime,
		EndTime:      body.EndTime,
		ClientName:   body.ClientName,
		ClientPhone:  body.ClientPhone,
		Note:         body.Note,
		Status:       body.Status,
	})
	if err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncCommitConflicts()
		}
		s.writeDomainError(w, err)
		return
	}
	metrics.IncBookingsCreated()

	writeJSON(w, http.StatusCreated, booking)
}

// GET /api/v1/bookings/{id}
func (s *HTTPServer) handleBookingGet(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// PATCH /api/v1/bookings/{id}/status
func (s *HTTPServer) handleBookingStatus(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPatch {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Status  string `json:"status"`
		Version int64  `json:"version"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var err error
	switch body.Status {
	case models.StatusConfirmed:
		err = s.bookings.ConfirmBooking(r.Context(), id, body.Version)
	case models.StatusDeclined:
		err = s.bookings.DeclineBooking(r.Context(), id, body.Version)
	case models.StatusCancelled:
		err = s.bookings.CancelBooking(r.Context(), id, body.Version)
	case models.StatusCompleted:
		err = s.bookings.CompleteBooking(r.Context(), id, body.Version)
	case models.StatusPending:
		err = s.bookings.ReopenBooking(r.Context(), id, body.Version)
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// POST /api/v1/bookings/{id}/reschedule
func (s *HTTPServer) handleBookingReschedule(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		Date      string `json:"date"`
		StartTime string `json:"start_time"`
		Version   int64  `json:"version"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := s.bookings.RescheduleBooking(r.Context(), id, body.Version, body.Date, body.StartTime); err != nil {
		if errors.Is(err, database.ErrSlotTaken) {
			metrics.IncCommitConflicts()
		}
		s.writeDomainError(w, err)
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}
