package bot

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tazhate/olivabot/internal/booking"
	"github.com/tazhate/olivabot/internal/domain"
	"github.com/tazhate/olivabot/internal/storage"
	"go.uber.org/zap"
)

// API Response types
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type ServiceResponse struct {
	ID          int64    `json:"id"`
	Category    string   `json:"categoria"`
	Name        string   `json:"nombre"`
	DurationTxt string   `json:"duracion_txt,omitempty"`
	PriceTxt    string   `json:"precio_txt,omitempty"`
	DepositTxt  string   `json:"deposito_txt,omitempty"`
	Duration    int      `json:"duracion_min"`
	PriceMin    *float64 `json:"precio_min,omitempty"`
	PriceMax    *float64 `json:"precio_max,omitempty"`
	Deposit     *float64 `json:"deposito,omitempty"`
}

type StaffResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"nombre"`
	Role  string `json:"puesto,omitempty"`
	Phone string `json:"telefono,omitempty"`
	Email string `json:"email,omitempty"`
}

type AppointmentResponse struct {
	ID         int64  `json:"cita_id"`
	CustomerID int64  `json:"cliente_id"`
	Customer   string `json:"cliente,omitempty"`
	ServiceID  int64  `json:"servicio_id"`
	Service    string `json:"servicio,omitempty"`
	EmployeeID int64  `json:"empleado_id"`
	Employee   string `json:"empleado,omitempty"`
	Start      string `json:"inicio"`
	End        string `json:"fin"`
}

// setupAPI registers API routes with Basic Auth
func (b *Bot) setupAPI(mux *http.ServeMux) {
	if !b.cfg.APIEnabled() {
		return // API disabled if no credentials
	}

	mux.HandleFunc("/api/services", b.basicAuth(b.apiServices))
	mux.HandleFunc("/api/staff", b.basicAuth(b.apiStaff))
	mux.HandleFunc("/api/availability", b.basicAuth(b.apiAvailability))
	mux.HandleFunc("/api/bookings", b.basicAuth(b.apiBookings))
	mux.HandleFunc("/api/appointments", b.basicAuth(b.apiAppointments))
}

// basicAuth middleware
func (b *Bot) basicAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok || username != b.cfg.APIUsername || password != b.cfg.APIPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="Oliva API"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (b *Bot) jsonResponse(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

func (b *Bot) jsonError(w http.ResponseWriter, err string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{Success: false, Error: err})
}

// writeBooking writes an orchestrator response as is, in its wire shape
func writeBooking(w http.ResponseWriter, status int, resp booking.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// GET /api/services - active catalog
func (b *Bot) apiServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	services, err := b.storage.ListActiveServices(r.Context())
	if err != nil {
		b.logger.Error("api list services", zap.Error(err))
		b.jsonError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	out := make([]ServiceResponse, 0, len(services))
	for _, s := range services {
		out = append(out, ServiceResponse{
			ID:          s.ID,
			Category:    s.Category,
			Name:        s.Name,
			DurationTxt: s.DurationTxt,
			PriceTxt:    s.PriceTxt,
			DepositTxt:  s.DepositTxt,
			Duration:    s.EffectiveDuration(),
			PriceMin:    s.PriceMin,
			PriceMax:    s.PriceMax,
			Deposit:     s.Deposit,
		})
	}
	b.jsonResponse(w, out)
}

// GET /api/staff - employees
func (b *Bot) apiStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	staff, err := b.storage.ListEmployees(r.Context())
	if err != nil {
		b.logger.Error("api list staff", zap.Error(err))
		b.jsonError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	out := make([]StaffResponse, 0, len(staff))
	for _, e := range staff {
		out = append(out, StaffResponse{ID: e.ID, Name: e.Name, Role: e.Role, Phone: e.Phone, Email: e.Email})
	}
	b.jsonResponse(w, out)
}

// POST /api/availability - check a slot, suggestions when taken
func (b *Bot) apiAvailability(w http.ResponseWriter, r *http.Request) {
	b.handleBookingCall(w, r, b.booking.CheckAvailability)
}

// POST /api/bookings - book a slot
func (b *Bot) apiBookings(w http.ResponseWriter, r *http.Request) {
	b.handleBookingCall(w, r, b.booking.ProcessBooking)
}

func (b *Bot) handleBookingCall(w http.ResponseWriter, r *http.Request, call func(context.Context, booking.Request) (booking.Response, error)) {
	if r.Method != http.MethodPost {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		b.jsonError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	resp, err := call(r.Context(), req)
	if err != nil {
		if storage.IsConflict(err) {
			// lost a race on the unique slot index
			writeBooking(w, http.StatusConflict, booking.Response{Outcome: booking.OutcomeSlotOccupied})
			return
		}
		b.logger.Error("api booking call", zap.String("path", r.URL.Path), zap.Error(err))
		b.jsonError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	writeBooking(w, http.StatusOK, resp)
}

// GET /api/appointments?date=YYYY-MM-DD - agenda of a day, today by default
func (b *Bot) apiAppointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		b.jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	day, err := b.agendaDay(r.URL.Query().Get("date"))
	if err != nil {
		b.jsonError(w, "Invalid date format (use YYYY-MM-DD)", http.StatusBadRequest)
		return
	}
	appts, err := b.agenda.Day(r.Context(), day)
	if err != nil {
		b.logger.Error("api agenda", zap.Error(err))
		b.jsonError(w, "Internal error", http.StatusInternalServerError)
		return
	}
	out := make([]AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentToResponse(a))
	}
	b.jsonResponse(w, out)
}

func appointmentToResponse(a *domain.Appointment) AppointmentResponse {
	minutes := a.Duration
	if minutes <= 0 {
		minutes = domain.DefaultDuration
	}
	return AppointmentResponse{
		ID:         a.ID,
		CustomerID: a.CustomerID,
		Customer:   a.CustomerName,
		ServiceID:  a.ServiceID,
		Service:    a.ServiceName,
		EmployeeID: a.EmployeeID,
		Employee:   a.EmployeeName,
		Start:      a.StartsAt.Format(domain.InstantLayout),
		End:        a.EndsAt(minutes).Format(domain.InstantLayout),
	}
}
