package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"dental-clinic-admin/internal/domain/appointments"
)

type AppointmentsRepo struct {
	db *sql.DB
}

func NewAppointmentsRepo(db *sql.DB) *AppointmentsRepo {
	return &AppointmentsRepo{db: db}
}

var _ appointments.Repository = (*AppointmentsRepo)(nil)

const appointmentColumns = `
	id, patient_id, title, description, comment,
	appointment_date_time, cost, treatment, status,
	next_appointment_date, files,
	created_at, updated_at`

// fileJSON es la forma de cada adjunto dentro de la columna files (JSONB).
type fileJSON struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (r *AppointmentsRepo) Create(ctx context.Context, a appointments.Appointment) error {
	args, err := appointmentArgs(a)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, args...)
	return err
}

func (r *AppointmentsRepo) Update(ctx context.Context, a appointments.Appointment) error {
	args, err := appointmentArgs(a)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE appointments
		SET
			patient_id = $2,
			title = $3,
			description = $4,
			comment = $5,
			appointment_date_time = $6,
			cost = $7,
			treatment = $8,
			status = $9,
			next_appointment_date = $10,
			files = $11,
			updated_at = $12
		WHERE id = $1
	`, append(args[:11], a.UpdatedAt)...)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return appointments.ErrNotFound
	}
	return nil
}

func (r *AppointmentsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return appointments.ErrNotFound
	}
	return nil
}

func (r *AppointmentsRepo) GetByID(ctx context.Context, id string) (appointments.Appointment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return appointments.Appointment{}, appointments.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	a, err := scanAppointment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return appointments.Appointment{}, appointments.ErrNotFound
	}
	return a, err
}

func (r *AppointmentsRepo) List(ctx context.Context) ([]appointments.Appointment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]appointments.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AppointmentsRepo) Seed(ctx context.Context, items []appointments.Appointment) error {
	for _, a := range items {
		args, err := appointmentArgs(a)
		if err != nil {
			return err
		}
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
			ON CONFLICT (id) DO NOTHING
		`, args...); err != nil {
			return err
		}
	}
	return nil
}

func appointmentArgs(a appointments.Appointment) ([]any, error) {
	files := make([]fileJSON, 0, len(a.Files))
	for _, f := range a.Files {
		files = append(files, fileJSON(f))
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}

	var cost sql.NullFloat64
	if a.Cost != nil {
		cost = sql.NullFloat64{Float64: *a.Cost, Valid: true}
	}
	var treatment sql.NullString
	if a.Treatment != nil {
		treatment = sql.NullString{String: *a.Treatment, Valid: true}
	}

	return []any{
		a.ID,
		a.PatientID,
		a.Title,
		a.Description,
		a.Comment,
		a.AppointmentDateTime,
		cost,
		treatment,
		string(a.Status),
		toNullTime(a.NextAppointmentDate),
		string(filesJSON),
		a.CreatedAt,
		a.UpdatedAt,
	}, nil
}

func scanAppointment(s scanner) (appointments.Appointment, error) {
	var (
		a         appointments.Appointment
		cost      sql.NullFloat64
		treatment sql.NullString
		status    string
		next      sql.NullTime
		files     []byte
	)
	if err := s.Scan(
		&a.ID,
		&a.PatientID,
		&a.Title,
		&a.Description,
		&a.Comment,
		&a.AppointmentDateTime,
		&cost,
		&treatment,
		&status,
		&next,
		&files,
		&a.CreatedAt,
		&a.UpdatedAt,
	); err != nil {
		return appointments.Appointment{}, err
	}

	if cost.Valid {
		v := cost.Float64
		a.Cost = &v
	}
	if treatment.Valid {
		v := treatment.String
		a.Treatment = &v
	}
	a.Status = appointments.Status(status)
	a.NextAppointmentDate = fromNullTime(next)

	var fs []fileJSON
	if len(files) > 0 {
		if err := json.Unmarshal(files, &fs); err != nil {
			return appointments.Appointment{}, err
		}
	}
	for _, f := range fs {
		a.Files = append(a.Files, appointments.FileAttachment(f))
	}
	return a, nil
}
