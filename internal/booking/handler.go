package booking

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
	_ "time/tzdata" // visitor zones must resolve in images without zoneinfo

	"github.com/go-chi/chi/v5"

	"github.com/thalesmenz/leelo-app-sub001/internal/calendar"
	"github.com/thalesmenz/leelo-app-sub001/internal/masks"
	"github.com/thalesmenz/leelo-app-sub001/pkg/logging"
)

// Handler exposes booking sessions over HTTP. Mount Routes under
// /public/professionals/{professionalID}/booking.
type Handler struct {
	sessions    *Sessions
	currency    *masks.CurrencyFormatter
	waitTimeout time.Duration
	logger      *logging.Logger
}

// NewHandler creates a booking handler.
func NewHandler(sessions *Sessions, currency *masks.CurrencyFormatter, logger *logging.Logger) *Handler {
	if sessions == nil {
		panic("booking: sessions required")
	}
	if currency == nil {
		currency = masks.DefaultCurrency()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		sessions:    sessions,
		currency:    currency,
		waitTimeout: 10 * time.Second,
		logger:      logger,
	}
}

// Routes returns the booking routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sessions", h.CreateSession)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Get("/calendar", h.GetCalendar)
		r.Post("/date", h.ChooseDate)
		r.Post("/slot", h.ChooseSlot)
		r.Post("/service", h.ChooseService)
		r.Post("/back", h.Back)
		r.Post("/submit", h.Submit)
	})
	return r
}

type serviceView struct {
	Service
	PriceDisplay string `json:"price_display"`
}

type patientView struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Phone    masks.Value `json:"phone"`
	Identity masks.Value `json:"identity"`
}

// SessionResponse is the wire form of a View.
type SessionResponse struct {
	SessionID       string        `json:"session_id"`
	Professional    Professional  `json:"professional"`
	Step            Step          `json:"step"`
	StepName        string        `json:"step_name"`
	Today           calendar.Date `json:"today"`
	SelectedDate    calendar.Date `json:"selected_date"`
	SelectedSlot    *TimeSlot     `json:"selected_slot,omitempty"`
	SelectedService *serviceView  `json:"selected_service,omitempty"`
	Patient         patientView   `json:"patient"`
	Submitting      bool          `json:"submitting"`
	Slots           []TimeSlot    `json:"slots"`
	SlotsLoading    bool          `json:"slots_loading"`
	SlotsFailed     bool          `json:"slots_failed"`
	NoSlots         bool          `json:"no_slots"`
	CanReturnToDate bool          `json:"can_return_to_date"`
	Services        []serviceView `json:"services"`
	Appointment     *Appointment  `json:"appointment,omitempty"`
	Notice          string        `json:"notice,omitempty"`
}

func (h *Handler) render(v View) SessionResponse {
	resp := SessionResponse{
		SessionID:    v.SessionID,
		Professional: v.Professional,
		Step:         v.State.Step,
		StepName:     v.State.Step.String(),
		Today:        v.Today,
		SelectedDate: v.State.SelectedDate,
		SelectedSlot: v.State.SelectedSlot,
		Patient: patientView{
			Name:     v.State.Patient.Name,
			Email:    v.State.Patient.Email,
			Phone:    masks.Phone(v.State.Patient.PhoneDigits),
			Identity: masks.Identity(v.State.Patient.IDDigits),
		},
		Submitting:      v.State.Submitting,
		Slots:           v.Slots,
		SlotsLoading:    v.SlotsLoading,
		SlotsFailed:     v.SlotsFailed,
		NoSlots:         v.NoSlots,
		CanReturnToDate: v.State.Step == StepSelectSlot && (v.NoSlots || v.SlotsFailed),
		Services:        make([]serviceView, 0, len(v.Services)),
		Appointment:     v.Appointment,
		Notice:          v.Notice,
	}
	for _, svc := range v.Services {
		resp.Services = append(resp.Services, h.serviceView(svc))
	}
	if v.State.SelectedService != nil {
		sv := h.serviceView(*v.State.SelectedService)
		resp.SelectedService = &sv
	}
	return resp
}

func (h *Handler) serviceView(svc Service) serviceView {
	return serviceView{Service: svc, PriceDisplay: h.currency.FormatCents(svc.PriceCents())}
}

type createSessionRequest struct {
	Timezone string `json:"timezone"`
}

// CreateSession handles POST /sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	professionalID := chi.URLParam(r, "professionalID")
	if professionalID == "" {
		http.Error(w, "missing professional id", http.StatusBadRequest)
		return
	}

	var req createSessionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	var loc *time.Location
	if req.Timezone != "" {
		parsed, err := time.LoadLocation(req.Timezone)
		if err != nil {
			http.Error(w, "invalid timezone", http.StatusBadRequest)
			return
		}
		loc = parsed
	}

	ctl, err := h.sessions.Create(r.Context(), professionalID, loc)
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, h.render(ctl.View()))
}

// GetSession handles GET /sessions/{sessionID}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.render(ctl.View()))
}

// CalendarResponse is one month of the date picker.
type CalendarResponse struct {
	Month     string         `json:"month"`
	Days      []calendar.Day `json:"days"`
	CanGoPrev bool           `json:"can_go_prev"`
	Prev      string         `json:"prev,omitempty"`
	Next      string         `json:"next"`
}

// GetCalendar handles GET /sessions/{sessionID}/calendar?month=YYYY-MM
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	now := ctl.Now()
	month := calendar.MonthOf(now)
	if raw := r.URL.Query().Get("month"); raw != "" {
		parsed, err := calendar.ParseMonth(raw)
		if err != nil {
			http.Error(w, "invalid month", http.StatusBadRequest)
			return
		}
		month = parsed
	}

	resp := CalendarResponse{
		Month:     month.String(),
		Days:      calendar.BuildMonthGrid(month.Anchor(now.Location()), now),
		CanGoPrev: month.CanGoPrev(now),
		Next:      month.Next().String(),
	}
	if prev, ok := month.Prev(now); ok {
		resp.Prev = prev.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

type chooseDateRequest struct {
	Date string `json:"date"`
}

// ChooseDate handles POST /sessions/{sessionID}/date. With ?wait=true the
// response is delayed until the slot lookup settles.
func (h *Handler) ChooseDate(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	var req chooseDateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	date, err := calendar.ParseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	done, err := ctl.ChooseDate(r.Context(), date)
	if err != nil {
		h.writeError(w, err, ctl)
		return
	}
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		select {
		case <-done:
		case <-time.After(h.waitTimeout):
		case <-r.Context().Done():
			return
		}
	}
	writeJSON(w, http.StatusOK, h.render(ctl.View()))
}

// ChooseSlot handles POST /sessions/{sessionID}/slot
func (h *Handler) ChooseSlot(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	var slot TimeSlot
	if err := json.NewDecoder(r.Body).Decode(&slot); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := ctl.ChooseSlot(slot); err != nil {
		h.writeError(w, err, ctl)
		return
	}
	h.sessions.RefreshServices(r.Context(), ctl)
	writeJSON(w, http.StatusOK, h.render(ctl.View()))
}

type chooseServiceRequest struct {
	ServiceID string `json:"service_id"`
}

// ChooseService handles POST /sessions/{sessionID}/service
func (h *Handler) ChooseService(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	var req chooseServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	var chosen Service
	for _, svc := range ctl.View().Services {
		if svc.ID == req.ServiceID {
			chosen = svc
			break
		}
	}
	if err := ctl.ChooseService(chosen); err != nil {
		h.writeError(w, err, ctl)
		return
	}
	writeJSON(w, http.StatusOK, h.render(ctl.View()))
}

// Back handles POST /sessions/{sessionID}/back
func (h *Handler) Back(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := ctl.Back(); err != nil {
		h.writeError(w, err, ctl)
		return
	}
	writeJSON(w, http.StatusOK, h.render(ctl.View()))
}

type submitRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Identity string `json:"identity"`
}

// Submit handles POST /sessions/{sessionID}/submit. Phone and identity may
// arrive masked or raw. Only punctuation is stripped here; over-long values
// are left for validation to reject rather than truncated.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctl, ok := h.session(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	patient := PatientInput{
		Name:        req.Name,
		Email:       req.Email,
		PhoneDigits: masks.Digits(req.Phone),
		IDDigits:    masks.Digits(req.Identity),
	}
	if _, err := ctl.Submit(r.Context(), patient); err != nil {
		h.writeError(w, err, ctl)
		return
	}
	writeJSON(w, http.StatusCreated, h.render(ctl.View()))
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) (*Controller, bool) {
	ctl, err := h.sessions.Get(chi.URLParam(r, "sessionID"), chi.URLParam(r, "professionalID"))
	if err != nil {
		h.writeError(w, err, nil)
		return nil, false
	}
	return ctl, true
}

type errorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	Session *SessionResponse  `json:"session,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error, ctl *Controller) {
	resp := errorResponse{Message: err.Error()}
	status := http.StatusInternalServerError

	var validationErr *ValidationError
	var submissionErr *SubmissionError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusUnprocessableEntity
		resp.Error = "validation_failed"
		resp.Fields = validationErr.Fields
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrProfessionalNotFound):
		status = http.StatusNotFound
		resp.Error = "not_found"
	case errors.Is(err, ErrSubmissionInFlight):
		status = http.StatusConflict
		resp.Error = "submission_in_progress"
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrMissingPrerequisite),
		errors.Is(err, ErrSlotsLoading),
		errors.Is(err, ErrUnknownSlot),
		errors.Is(err, ErrServiceInactive),
		errors.Is(err, ErrPastDate):
		status = http.StatusConflict
		resp.Error = "transition_rejected"
	case errors.As(err, &submissionErr):
		status = http.StatusBadGateway
		resp.Error = "submission_failed"
	default:
		resp.Error = "internal_error"
		h.logger.Error("booking request failed", "error", err)
	}
	if ctl != nil {
		view := h.render(ctl.View())
		resp.Session = &view
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
