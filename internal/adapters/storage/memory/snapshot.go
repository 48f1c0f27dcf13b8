package memory

import (
	"context"
	"encoding/json"
	"time"

	"dental-clinic-admin/internal/domain/appointments"
	"dental-clinic-admin/internal/domain/patients"
	"dental-clinic-admin/internal/platform/logger"
	"dental-clinic-admin/internal/ports/kv"
)

// El snapshot guarda la colección completa como JSON con fechas en texto,
// igual que se guardaba en el navegador. Al leer se convierten de vuelta.

const snapshotTimeLayout = time.RFC3339Nano

type patientRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergency_contact"`
	HealthInfo       string `json:"health_info"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

type fileRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`
}

type appointmentRecord struct {
	ID                  string       `json:"id"`
	PatientID           string       `json:"patient_id"`
	Title               string       `json:"title"`
	Description         string       `json:"description"`
	Comment             string       `json:"comment"`
	AppointmentDateTime string       `json:"appointment_date_time"`
	Cost                *float64     `json:"cost,omitempty"`
	Treatment           *string      `json:"treatment,omitempty"`
	Status              string       `json:"status"`
	NextAppointmentDate string       `json:"next_appointment_date,omitempty"`
	Files               []fileRecord `json:"files,omitempty"`
	CreatedAt           string       `json:"created_at"`
	UpdatedAt           string       `json:"updated_at"`
}

// SavePatients escribe la colección completa en la key de pacientes.
func SavePatients(ctx context.Context, store kv.Store, items []patients.Patient) error {
	recs := make([]patientRecord, 0, len(items))
	for _, p := range items {
		recs = append(recs, patientRecord{
			ID:               p.ID,
			Name:             p.Name,
			Email:            p.Email,
			Phone:            p.Phone,
			DateOfBirth:      formatOptional(p.DateOfBirth),
			Address:          p.Address,
			EmergencyContact: p.EmergencyContact,
			HealthInfo:       p.HealthInfo,
			CreatedAt:        p.CreatedAt.Format(snapshotTimeLayout),
			UpdatedAt:        p.UpdatedAt.Format(snapshotTimeLayout),
		})
	}
	return save(ctx, store, kv.KeyPatients, recs)
}

// SaveAppointments escribe la colección completa en la key de citas.
func SaveAppointments(ctx context.Context, store kv.Store, items []appointments.Appointment) error {
	recs := make([]appointmentRecord, 0, len(items))
	for _, a := range items {
		rec := appointmentRecord{
			ID:                  a.ID,
			PatientID:           a.PatientID,
			Title:               a.Title,
			Description:         a.Description,
			Comment:             a.Comment,
			AppointmentDateTime: a.AppointmentDateTime.Format(snapshotTimeLayout),
			Cost:                a.Cost,
			Treatment:           a.Treatment,
			Status:              string(a.Status),
			NextAppointmentDate: formatOptional(a.NextAppointmentDate),
			CreatedAt:           a.CreatedAt.Format(snapshotTimeLayout),
			UpdatedAt:           a.UpdatedAt.Format(snapshotTimeLayout),
		}
		for _, f := range a.Files {
			rec.Files = append(rec.Files, fileRecord{
				ID:         f.ID,
				Name:       f.Name,
				URL:        f.URL,
				Type:       f.Type,
				Size:       f.Size,
				UploadedAt: f.UploadedAt.Format(snapshotTimeLayout),
			})
		}
		recs = append(recs, rec)
	}
	return save(ctx, store, kv.KeyAppointments, recs)
}

// loadPatients devuelve ok=false si no hay snapshot o no se pudo leer.
func loadPatients(ctx context.Context, store kv.Store, log logger.Logger) ([]patients.Patient, bool) {
	var recs []patientRecord
	if !load(ctx, store, kv.KeyPatients, &recs, log) {
		return nil, false
	}

	out := make([]patients.Patient, 0, len(recs))
	for _, r := range recs {
		created, err1 := time.Parse(snapshotTimeLayout, r.CreatedAt)
		updated, err2 := time.Parse(snapshotTimeLayout, r.UpdatedAt)
		dob, err3 := parseOptional(r.DateOfBirth)
		if err1 != nil || err2 != nil || err3 != nil {
			log.Warn("snapshot date parse failed", map[string]any{"key": kv.KeyPatients, "id": r.ID})
			return nil, false
		}
		out = append(out, patients.Patient{
			ID:               r.ID,
			Name:             r.Name,
			Email:            r.Email,
			Phone:            r.Phone,
			DateOfBirth:      dob,
			Address:          r.Address,
			EmergencyContact: r.EmergencyContact,
			HealthInfo:       r.HealthInfo,
			CreatedAt:        created,
			UpdatedAt:        updated,
		})
	}
	return out, true
}

func loadAppointments(ctx context.Context, store kv.Store, log logger.Logger) ([]appointments.Appointment, bool) {
	var recs []appointmentRecord
	if !load(ctx, store, kv.KeyAppointments, &recs, log) {
		return nil, false
	}

	out := make([]appointments.Appointment, 0, len(recs))
	for _, r := range recs {
		a, err := r.toDomain()
		if err != nil {
			log.Warn("snapshot record invalid", map[string]any{"key": kv.KeyAppointments, "id": r.ID, "error": err})
			return nil, false
		}
		out = append(out, a)
	}
	return out, true
}

func (r appointmentRecord) toDomain() (appointments.Appointment, error) {
	at, err := time.Parse(snapshotTimeLayout, r.AppointmentDateTime)
	if err != nil {
		return appointments.Appointment{}, err
	}
	created, err := time.Parse(snapshotTimeLayout, r.CreatedAt)
	if err != nil {
		return appointments.Appointment{}, err
	}
	updated, err := time.Parse(snapshotTimeLayout, r.UpdatedAt)
	if err != nil {
		return appointments.Appointment{}, err
	}
	next, err := parseOptional(r.NextAppointmentDate)
	if err != nil {
		return appointments.Appointment{}, err
	}

	a := appointments.Appointment{
		ID:                  r.ID,
		PatientID:           r.PatientID,
		Title:               r.Title,
		Description:         r.Description,
		Comment:             r.Comment,
		AppointmentDateTime: at,
		Cost:                r.Cost,
		Treatment:           r.Treatment,
		Status:              appointments.Status(r.Status),
		NextAppointmentDate: next,
		CreatedAt:           created,
		UpdatedAt:           updated,
	}
	for _, f := range r.Files {
		uploaded, err := time.Parse(snapshotTimeLayout, f.UploadedAt)
		if err != nil {
			return appointments.Appointment{}, err
		}
		a.Files = append(a.Files, appointments.FileAttachment{
			ID:         f.ID,
			Name:       f.Name,
			URL:        f.URL,
			Type:       f.Type,
			Size:       f.Size,
			UploadedAt: uploaded,
		})
	}
	return a, nil
}

func load(ctx context.Context, store kv.Store, key string, dst any, log logger.Logger) bool {
	raw, ok, err := store.Get(ctx, key)
	if err != nil {
		log.Warn("snapshot read failed", map[string]any{"key": key, "error": err})
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		log.Warn("snapshot parse failed, reseeding", map[string]any{"key": key, "error": err})
		return false
	}
	return true
}

func save(ctx context.Context, store kv.Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return store.Set(ctx, key, b)
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(snapshotTimeLayout)
}

func parseOptional(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(snapshotTimeLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
