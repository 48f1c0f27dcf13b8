package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dental-clinic-admin/internal/middleware"
	"dental-clinic-admin/internal/platform/fileutil"
	"dental-clinic-admin/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// NameLookup devuelve un resolvedor id -> nombre de paciente para la búsqueda.
type NameLookup func(ctx context.Context) func(patientID string) string

func RegisterRoutes(r chi.Router, svc *Service, names NameLookup, maxUpload int64) {
	r.Route("/appointments", func(ar chi.Router) {
		// Lectura: admin ve todo, paciente solo lo suyo.
		ar.Get("/", listAppointmentsHandler(svc, names))
		ar.Get("/{appointmentID}", getAppointmentHandler(svc))
		ar.Get("/{appointmentID}/files/{fileID}", downloadFileHandler(svc))

		ar.Group(func(adm chi.Router) {
			adm.Use(middleware.RequireRole(auth.RoleAdmin))
			adm.Post("/", createAppointmentHandler(svc))
			adm.Patch("/{appointmentID}", updateAppointmentHandler(svc))
			adm.Delete("/{appointmentID}", deleteAppointmentHandler(svc))
			adm.Post("/{appointmentID}/status", setStatusHandler(svc))
			adm.Post("/{appointmentID}/files", uploadFileHandler(svc, maxUpload))
			adm.Delete("/{appointmentID}/files/{fileID}", removeFileHandler(svc))
		})
	})
}

// createAppointmentRequest es el cuerpo para agendar una cita.
type createAppointmentRequest struct {
	PatientID           string   `json:"patient_id"`
	Title               string   `json:"title"`
	Description         string   `json:"description"`
	Comment             string   `json:"comment"`
	AppointmentDateTime string   `json:"appointment_date_time"` // RFC3339 o YYYY-MM-DDTHH:MM
	Cost                *float64 `json:"cost"`
	Treatment           *string  `json:"treatment"`
	Status              Status   `json:"status" enums:"pending,completed,cancelled"`
	NextAppointmentDate string   `json:"next_appointment_date"` // opcional
}

// updateAppointmentRequest documenta el cuerpo del PATCH. El handler lee el
// JSON crudo para distinguir null de ausente.
type updateAppointmentRequest struct {
	PatientID           *string  `json:"patient_id"`
	Title               *string  `json:"title"`
	Description         *string  `json:"description"`
	Comment             *string  `json:"comment"`
	AppointmentDateTime *string  `json:"appointment_date_time"`
	Status              *Status  `json:"status" enums:"pending,completed,cancelled"`
	Cost                *float64 `json:"cost" extensions:"x-nullable"`
	Treatment           *string  `json:"treatment" extensions:"x-nullable"`
	NextAppointmentDate *string  `json:"next_appointment_date" extensions:"x-nullable"`
}

type statusRequest struct {
	Status Status `json:"status" enums:"pending,completed,cancelled"`
}

// FileResponse no incluye el data URI; el contenido se baja por /files/{fileID}.
type FileResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Kind       string    `json:"kind"`
	Size       int64     `json:"size"`
	SizeLabel  string    `json:"size_label"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// AppointmentResponse representa una cita devuelta por la API.
type AppointmentResponse struct {
	ID                  string         `json:"id"`
	PatientID           string         `json:"patient_id"`
	Title               string         `json:"title"`
	Description         string         `json:"description"`
	Comment             string         `json:"comment"`
	AppointmentDateTime time.Time      `json:"appointment_date_time"`
	Cost                *float64       `json:"cost,omitempty"`
	Treatment           *string        `json:"treatment,omitempty"`
	Status              Status         `json:"status"`
	NextAppointmentDate *time.Time     `json:"next_appointment_date,omitempty"`
	Files               []FileResponse `json:"files"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// createAppointmentHandler godoc
// @Summary Agendar cita
// @Description Crea una cita. Solo admin. status por defecto `pending`; cost no puede ser negativo. El paciente no se valida contra el listado.
// @Tags appointments
// @Accept json
// @Produce json
// @Param X-Debug-User-ID header string false "Solo en modo dev, ID de usuario"
// @Param Authorization header string false "Bearer token si JWT_SECRET está configurado"
// @Param payload body createAppointmentRequest true "Datos de la cita"
// @Success 201 {object} AppointmentResponse
// @Failure 400 {string} string "invalid json / fecha inválida / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /appointments [post]
func createAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		at, err := ParseDateTime(req.AppointmentDateTime)
		if err != nil {
			http.Error(w, "appointment_date_time must be RFC3339", http.StatusBadRequest)
			return
		}

		var next *time.Time
		if strings.TrimSpace(req.NextAppointmentDate) != "" {
			t, err := ParseDateTime(req.NextAppointmentDate)
			if err != nil {
				http.Error(w, "next_appointment_date must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
				return
			}
			next = &t
		}

		a, err := svc.Add(r.Context(), CreateInput{
			PatientID:           req.PatientID,
			Title:               req.Title,
			Description:         req.Description,
			Comment:             req.Comment,
			AppointmentDateTime: at,
			Cost:                req.Cost,
			Treatment:           req.Treatment,
			Status:              req.Status,
			NextAppointmentDate: next,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, ToResponse(a))
	}
}

// listAppointmentsHandler godoc
// @Summary Listar citas
// @Description Lista citas en orden de alta. Un paciente solo ve las propias (patient_id se ignora).
// @Tags appointments
// @Produce json
// @Param q query string false "Busca en título, descripción, tratamiento o nombre del paciente"
// @Param status query string false "pending, completed, cancelled o all"
// @Param window query string false "all, today, week o month"
// @Param patient_id query string false "Solo admin"
// @Success 200 {array} AppointmentResponse
// @Failure 400 {string} string "window inválido"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /appointments [get]
func listAppointmentsHandler(svc *Service, names NameLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		c := Criteria{
			Search:    q.Get("q"),
			Status:    q.Get("status"),
			Window:    Window(strings.TrimSpace(q.Get("window"))),
			PatientID: strings.TrimSpace(q.Get("patient_id")),
		}
		if !c.Window.Valid() {
			http.Error(w, "window must be all, today, week or month", http.StatusBadRequest)
			return
		}
		if !claims.IsAdmin() {
			// Sin ficha asociada no hay nada propio que listar.
			if claims.PatientID == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			c.PatientID = claims.PatientID
		}

		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if svc.Loading() {
			w.Header().Set("X-Loading", "true")
		}

		var lookup func(string) string
		if names != nil && strings.TrimSpace(c.Search) != "" {
			lookup = names(r.Context())
		}
		items = Filter(items, c, lookup, time.Now())

		out := make([]AppointmentResponse, 0, len(items))
		for _, a := range items {
			out = append(out, ToResponse(a))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getAppointmentHandler godoc
// @Summary Obtener cita
// @Description Un paciente solo ve sus propias citas; una ajena responde 404.
// @Tags appointments
// @Produce json
// @Param appointmentID path string true "ID de la cita"
// @Success 200 {object} AppointmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "appointment not found"
// @Router /appointments/{appointmentID} [get]
func getAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadVisible(w, r, svc)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(a))
	}
}

// updateAppointmentHandler godoc
// @Summary Editar cita
// @Description PATCH parcial. Solo admin. cost, treatment y next_appointment_date aceptan null para limpiar.
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointmentID path string true "ID de la cita"
// @Param payload body updateAppointmentRequest true "Campos a cambiar"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {string} string "invalid json / reglas de negocio"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "appointment not found"
// @Router /appointments/{appointmentID} [patch]
func updateAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in, err := parseUpdate(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		updated, err := svc.Update(r.Context(), chi.URLParam(r, "appointmentID"), in)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// setStatusHandler godoc
// @Summary Cambiar estado
// @Description Acción rápida completar/cancelar. Cualquier transición está permitida.
// @Tags appointments
// @Accept json
// @Produce json
// @Param appointmentID path string true "ID de la cita"
// @Param payload body statusRequest true "Nuevo estado"
// @Success 200 {object} AppointmentResponse
// @Failure 400 {string} string "invalid status"
// @Failure 404 {string} string "appointment not found"
// @Router /appointments/{appointmentID}/status [post]
func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		updated, err := svc.SetStatus(r.Context(), chi.URLParam(r, "appointmentID"), req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// deleteAppointmentHandler godoc
// @Summary Eliminar cita
// @Tags appointments
// @Param appointmentID path string true "ID de la cita"
// @Success 204
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "appointment not found"
// @Router /appointments/{appointmentID} [delete]
func deleteAppointmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "appointmentID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// uploadFileHandler godoc
// @Summary Adjuntar archivo
// @Description Sube una imagen, PDF o documento Word (campo multipart `file`). El contenido queda embebido en la cita.
// @Tags appointments
// @Accept multipart/form-data
// @Produce json
// @Param appointmentID path string true "ID de la cita"
// @Param file formData file true "Archivo"
// @Success 201 {object} FileResponse
// @Failure 400 {string} string "file requerido"
// @Failure 413 {string} string "file too large"
// @Failure 415 {string} string "unsupported file type"
// @Router /appointments/{appointmentID}/files [post]
func uploadFileHandler(svc *Service, maxUpload int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxUpload > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		}
		if err := r.ParseMultipartForm(maxUpload); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid multipart form", http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file is required", http.StatusBadRequest)
			return
		}
		defer file.Close()

		content, err := io.ReadAll(file)
		if err != nil {
			http.Error(w, "invalid file", http.StatusBadRequest)
			return
		}

		head := content
		if len(head) > 512 {
			head = head[:512]
		}
		mimeType := fileutil.DetectType(header.Filename, header.Header.Get("Content-Type"), head)

		f, err := svc.AddFile(r.Context(), chi.URLParam(r, "appointmentID"), header.Filename, mimeType, content)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toFileResponse(f))
	}
}

// downloadFileHandler godoc
// @Summary Descargar adjunto
// @Description Devuelve el contenido original del adjunto. Imágenes y PDF van inline; el resto como attachment.
// @Tags appointments
// @Produce octet-stream
// @Param appointmentID path string true "ID de la cita"
// @Param fileID path string true "ID del adjunto"
// @Success 200 {file} file
// @Failure 401 {string} string "unauthorized"
// @Failure 404 {string} string "file not found"
// @Router /appointments/{appointmentID}/files/{fileID} [get]
func downloadFileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := loadVisible(w, r, svc)
		if !ok {
			return
		}

		f, err := svc.GetFile(r.Context(), a.ID, chi.URLParam(r, "fileID"))
		if err != nil {
			writeError(w, err)
			return
		}

		mimeType, content, err := fileutil.DecodeDataURL(f.URL)
		if err != nil {
			http.Error(w, "corrupt attachment", http.StatusInternalServerError)
			return
		}

		disposition := "attachment"
		if fileutil.IsImage(mimeType) || fileutil.IsPDF(mimeType) {
			disposition = "inline"
		}
		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, f.Name))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)
	}
}

// removeFileHandler godoc
// @Summary Quitar adjunto
// @Tags appointments
// @Produce json
// @Param appointmentID path string true "ID de la cita"
// @Param fileID path string true "ID del adjunto"
// @Success 200 {object} AppointmentResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "file not found"
// @Router /appointments/{appointmentID}/files/{fileID} [delete]
func removeFileHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		updated, err := svc.RemoveFile(r.Context(), chi.URLParam(r, "appointmentID"), chi.URLParam(r, "fileID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// loadVisible carga la cita y aplica la regla de visibilidad por rol.
// Para un paciente, una cita ajena responde 404 para no revelar que existe.
func loadVisible(w http.ResponseWriter, r *http.Request, svc *Service) (Appointment, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return Appointment{}, false
	}

	a, err := svc.GetByID(r.Context(), chi.URLParam(r, "appointmentID"))
	if err != nil {
		writeError(w, err)
		return Appointment{}, false
	}
	if !claims.CanViewPatient(a.PatientID) {
		http.Error(w, "appointment not found", http.StatusNotFound)
		return Appointment{}, false
	}
	return a, true
}

func parseUpdate(raw map[string]json.RawMessage) (UpdateInput, error) {
	var in UpdateInput

	str := func(field string) (*string, error) {
		v, ok := raw[field]
		if !ok {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return nil, fmt.Errorf("%s must be a string", field)
		}
		return &s, nil
	}

	var err error
	if in.PatientID, err = str("patient_id"); err != nil {
		return in, err
	}
	if in.Title, err = str("title"); err != nil {
		return in, err
	}
	if in.Description, err = str("description"); err != nil {
		return in, err
	}
	if in.Comment, err = str("comment"); err != nil {
		return in, err
	}

	if s, err := str("appointment_date_time"); err != nil {
		return in, err
	} else if s != nil {
		t, err := ParseDateTime(*s)
		if err != nil {
			return in, errors.New("appointment_date_time must be RFC3339")
		}
		in.AppointmentDateTime = &t
	}

	if s, err := str("status"); err != nil {
		return in, err
	} else if s != nil {
		st := Status(*s)
		in.Status = &st
	}

	if v, ok := raw["cost"]; ok {
		in.Cost.Present = true
		if string(v) != "null" {
			var c float64
			if err := json.Unmarshal(v, &c); err != nil {
				return in, errors.New("cost must be a number or null")
			}
			in.Cost.Value = &c
		}
	}

	if v, ok := raw["treatment"]; ok {
		in.Treatment.Present = true
		if string(v) != "null" {
			var t string
			if err := json.Unmarshal(v, &t); err != nil {
				return in, errors.New("treatment must be a string or null")
			}
			in.Treatment.Value = &t
		}
	}

	if v, ok := raw["next_appointment_date"]; ok {
		in.NextAppointmentDate.Present = true
		if string(v) != "null" {
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				return in, errors.New("next_appointment_date must be a string or null")
			}
			t, err := ParseDateTime(s)
			if err != nil {
				return in, errors.New("next_appointment_date must be RFC3339 or YYYY-MM-DD")
			}
			in.NextAppointmentDate.Value = &t
		}
	}

	return in, nil
}

var dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// ParseDateTime acepta RFC3339 y los formatos de input datetime-local/date.
// Sin zona se interpreta en UTC.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func ToResponse(a Appointment) AppointmentResponse {
	files := make([]FileResponse, 0, len(a.Files))
	for _, f := range a.Files {
		files = append(files, toFileResponse(f))
	}
	return AppointmentResponse{
		ID:                  a.ID,
		PatientID:           a.PatientID,
		Title:               a.Title,
		Description:         a.Description,
		Comment:             a.Comment,
		AppointmentDateTime: a.AppointmentDateTime,
		Cost:                a.Cost,
		Treatment:           a.Treatment,
		Status:              a.Status,
		NextAppointmentDate: a.NextAppointmentDate,
		Files:               files,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func toFileResponse(f FileAttachment) FileResponse {
	return FileResponse{
		ID:         f.ID,
		Name:       f.Name,
		Type:       f.Type,
		Kind:       string(fileutil.Classify(f.Type)),
		Size:       f.Size,
		SizeLabel:  fileutil.FormatFileSize(f.Size),
		UploadedAt: f.UploadedAt,
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, fileutil.ErrUnsupported):
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "appointment not found", http.StatusNotFound)
	case errors.Is(err, ErrFileNotFound):
		http.Error(w, "file not found", http.StatusNotFound)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
