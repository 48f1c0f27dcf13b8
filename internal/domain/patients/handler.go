package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

const dateLayout = "2006-01-02"

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/patients", func(pr chi.Router) {
		// Ficha individual: admin o el propio paciente.
		pr.Get("/{patientID}", getPatientHandler(svc))

		pr.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireRole(auth.RoleAdmin))
			ar.Post("/", createPatientHandler(svc))
			ar.Get("/", listPatientsHandler(svc))
			ar.Patch("/{patientID}", updatePatientHandler(svc))
			ar.Delete("/{patientID}", deletePatientHandler(svc))
		})
	})
}

// createPatientRequest es el cuerpo para registrar un paciente.
type createPatientRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth"` // YYYY-MM-DD opcional
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
	HealthInfo       string `json:"health_info"`
}

type updatePatientRequest struct {
	Name             *string `json:"name"`
	Email            *string `json:"email"`
	Phone            *string `json:"phone"`
	Address          *string `json:"address"`
	EmergencyContact *string `json:"emergency_contact"`
	HealthInfo       *string `json:"health_info"`
}

// PatientResponse representa la ficha devuelta por la API.
type PatientResponse struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	DateOfBirth      *time.Time `json:"date_of_birth,omitempty"`
	Address          string     `json:"address"`
	EmergencyContact string     `json:"emergency_contact"`
	HealthInfo       string     `json:"health_info"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// createPatientHandler godoc
// @Summary Registrar paciente
// @Description Crea una ficha de paciente. Solo admin. Requiere name, email, phone, address y emergency_contact.
// @Tags patients
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario"
// @Param payload body createPatientRequest true "Datos del paciente; date_of_birth en formato YYYY-MM-DD"
// @Success 201 {object} PatientResponse
// @Failure 400 {string} string "invalid json / campos requeridos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients [post]
func createPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPatientRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var dob *time.Time
		if strings.TrimSpace(req.DateOfBirth) != "" {
			t, err := time.Parse(dateLayout, req.DateOfBirth)
			if err != nil {
				http.Error(w, "date_of_birth must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			dob = &t
		}

		p, err := svc.Add(r.Context(), CreateInput{
			Name:             req.Name,
			Email:            req.Email,
			Phone:            req.Phone,
			DateOfBirth:      dob,
			Address:          req.Address,
			EmergencyContact: req.EmergencyContact,
			HealthInfo:       req.HealthInfo,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(p))
	}
}

// listPatientsHandler godoc
// @Summary Listar pacientes
// @Description Lista los pacientes en orden de alta. `q` filtra por nombre/email o teléfono.
// @Tags patients
// @Produce json
// @Param q query string false "Texto de búsqueda"
// @Success 200 {array} PatientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /patients [get]
func listPatientsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if svc.Loading() {
			w.Header().Set("X-Loading", "true")
		}

		items = Search(items, r.URL.Query().Get("q"))

		out := make([]PatientResponse, 0, len(items))
		for _, p := range items {
			out = append(out, ToResponse(p))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getPatientHandler godoc
// @Summary Obtener paciente
// @Description Admin ve cualquier ficha; un paciente solo la propia.
// @Tags patients
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Success 200 {object} PatientResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [get]
func getPatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patientID := chi.URLParam(r, "patientID")
		if !claims.CanViewPatient(patientID) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		p, err := svc.GetByID(r.Context(), patientID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(p))
	}
}

// updatePatientHandler godoc
// @Summary Editar paciente
// @Description PATCH parcial. Solo admin. date_of_birth (YYYY-MM-DD) admite null para limpiar.
// @Tags patients
// @Accept json
// @Produce json
// @Param patientID path string true "ID del paciente"
// @Param payload body updatePatientRequest true "Campos a cambiar"
// @Success 200 {object} PatientResponse
// @Failure 400 {string} string "invalid json / campos requeridos"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [patch]
func updatePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID := chi.URLParam(r, "patientID")

		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var req updatePatientRequest
		b, _ := json.Marshal(raw)
		if err := json.Unmarshal(b, &req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		dob, err := parseOptionalDate(raw, "date_of_birth")
		if err != nil {
			http.Error(w, "date_of_birth must be YYYY-MM-DD or null", http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), patientID, UpdateInput{
			Name:             req.Name,
			Email:            req.Email,
			Phone:            req.Phone,
			DateOfBirth:      dob,
			Address:          req.Address,
			EmergencyContact: req.EmergencyContact,
			HealthInfo:       req.HealthInfo,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// deletePatientHandler godoc
// @Summary Eliminar paciente
// @Description Sus citas no se borran.
// @Tags patients
// @Param patientID path string true "ID del paciente"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "patient not found"
// @Router /patients/{patientID} [delete]
func deletePatientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "patientID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func parseOptionalDate(raw map[string]json.RawMessage, field string) (OptionalDate, error) {
	v, exists := raw[field]
	if !exists {
		return OptionalDate{}, nil
	}
	if string(v) == "null" {
		return OptionalDate{Present: true}, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return OptionalDate{}, err
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return OptionalDate{}, err
	}
	return OptionalDate{Present: true, Value: &t}, nil
}

func ToResponse(p Patient) PatientResponse {
	return PatientResponse{
		ID:               p.ID,
		Name:             p.Name,
		Email:            p.Email,
		Phone:            p.Phone,
		DateOfBirth:      p.DateOfBirth,
		Address:          p.Address,
		EmergencyContact: p.EmergencyContact,
		HealthInfo:       p.HealthInfo,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "patient not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// writeJSON se repite en cada módulo; todavía no justifica un paquete común.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
