package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

type PatientLister interface {
	List(ctx context.Context) ([]patients.Patient, error)
}

type AppointmentLister interface {
	List(ctx context.Context) ([]appointments.Appointment, error)
}

type Handler struct {
	patients     PatientLister
	appointments AppointmentLister
	now          func() time.Time
}

func NewHandler(ps PatientLister, as AppointmentLister) *Handler {
	return &Handler{patients: ps, appointments: as, now: time.Now}
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Group(func(ar chi.Router) {
		ar.Use(middleware.RequireRole(auth.RoleAdmin))
		ar.Get("/dashboard/admin", h.admin)
		ar.Get("/patients/stats", h.patientStats)
		ar.Get("/appointments/stats", h.appointmentStats)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireRole(auth.RoleAdmin, auth.RolePatient))
		pr.Get("/dashboard/patient", h.patient)
		pr.Get("/calendar", h.calendar)
	})
}

type adminDashboard struct {
	KPIs        KPIData         `json:"kpis"`
	Counts      StatusCounts    `json:"counts"`
	TopPatients []PatientStat   `json:"top_patients"`
	Upcoming    []upcomingEntry `json:"upcoming"`
	Revenue     RevenueSummary  `json:"revenue"`
}

type upcomingEntry struct {
	appointments.AppointmentResponse
	PatientName string `json:"patient_name"`
}

type patientDashboard struct {
	Patient      *patients.PatientResponse          `json:"patient,omitempty"`
	Appointments []appointments.AppointmentResponse `json:"appointments"`
	Upcoming     []appointments.AppointmentResponse `json:"upcoming"`
	History      []appointments.AppointmentResponse `json:"history"`
	Counts       StatusCounts                       `json:"counts"`
	TotalSpent   float64                            `json:"total_spent"`
}

// admin godoc
// @Summary Tablero de administración
// @Description KPIs, contadores por estado, top 5 pacientes por revenue, próximas 10 citas y revenue de los últimos 6 meses.
// @Tags dashboard
// @Produce json
// @Success 200 {object} adminDashboard
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /dashboard/admin [get]
func (h *Handler) admin(w http.ResponseWriter, r *http.Request) {
	ps, as, ok := h.load(w, r)
	if !ok {
		return
	}
	now := h.now()
	names := PatientName(ps)

	up := Upcoming(as, now, DefaultUpcoming)
	entries := make([]upcomingEntry, 0, len(up))
	for _, a := range up {
		entries = append(entries, upcomingEntry{
			AppointmentResponse: appointments.ToResponse(a),
			PatientName:         names(a.PatientID),
		})
	}

	writeJSON(w, http.StatusOK, adminDashboard{
		KPIs:        KPIs(ps, as),
		Counts:      CountByStatus(as),
		TopPatients: TopPatients(ps, as, DefaultTopPatients),
		Upcoming:    entries,
		Revenue:     MonthlyRevenue(as, now, DefaultMonths),
	})
}

// patient godoc
// @Summary Tablero del paciente
// @Description Citas propias, próximas, historial de tratamientos completados y total gastado. Un admin puede pasar patient_id.
// @Tags dashboard
// @Produce json
// @Param patient_id query string false "Solo admin"
// @Success 200 {object} patientDashboard
// @Failure 400 {string} string "patient_id required"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /dashboard/patient [get]
func (h *Handler) patient(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	patientID := claims.PatientID
	if claims.IsAdmin() {
		patientID = strings.TrimSpace(r.URL.Query().Get("patient_id"))
	} else if patientID == "" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if patientID == "" {
		http.Error(w, "patient_id required", http.StatusBadRequest)
		return
	}

	ps, as, ok := h.load(w, r)
	if !ok {
		return
	}
	own := appointments.Filter(as, appointments.Criteria{PatientID: patientID}, nil, h.now())

	out := patientDashboard{
		Appointments: responses(own),
		Upcoming:     responses(Upcoming(own, h.now(), len(own)+1)),
		History:      responses(History(own)),
		Counts:       CountByStatus(own),
		TotalSpent:   Revenue(own),
	}
	for _, p := range ps {
		if p.ID == patientID {
			resp := patients.ToResponse(p)
			out.Patient = &resp
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// calendar godoc
// @Summary Calendario mensual
// @Description Un día por entrada con sus citas. month en formato YYYY-MM (default: mes actual). Un paciente solo ve las propias.
// @Tags dashboard
// @Produce json
// @Param month query string false "YYYY-MM"
// @Success 200 {array} CalendarDay
// @Failure 400 {string} string "month must be YYYY-MM"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /calendar [get]
func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.GetClaims(r.Context())

	now := h.now()
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		t, err := time.ParseInLocation("2006-01", v, now.Location())
		if err != nil {
			http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
			return
		}
		month = t
	}

	ps, as, ok := h.load(w, r)
	if !ok {
		return
	}
	if !claims.IsAdmin() {
		if claims.PatientID == "" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		as = appointments.Filter(as, appointments.Criteria{PatientID: claims.PatientID}, nil, now)
	}

	writeJSON(w, http.StatusOK, CalendarMonth(as, month.Year(), month.Month(), now.Location(), PatientName(ps)))
}

// patientStats godoc
// @Summary Resumen de pacientes
// @Description Totales de pacientes, altas del mes, edad promedio y detalle por paciente.
// @Tags dashboard
// @Produce json
// @Success 200 {object} PatientSummary
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients/stats [get]
func (h *Handler) patientStats(w http.ResponseWriter, r *http.Request) {
	ps, as, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, PatientSummaries(ps, as, h.now()))
}

type appointmentStatsResponse struct {
	StatusCounts
	Revenue float64 `json:"revenue"`
}

// appointmentStats godoc
// @Summary Contadores de citas
// @Description Total y cantidad por estado, más la suma de los costos definidos.
// @Tags dashboard
// @Produce json
// @Success 200 {object} appointmentStatsResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /appointments/stats [get]
func (h *Handler) appointmentStats(w http.ResponseWriter, r *http.Request) {
	_, as, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, appointmentStatsResponse{CountByStatus(as), Revenue(as)})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) ([]patients.Patient, []appointments.Appointment, bool) {
	ps, err := h.patients.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, nil, false
	}
	as, err := h.appointments.List(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return nil, nil, false
	}
	return ps, as, true
}

func responses(items []appointments.Appointment) []appointments.AppointmentResponse {
	out := make([]appointments.AppointmentResponse, 0, len(items))
	for _, a := range items {
		out = append(out, appointments.ToResponse(a))
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
