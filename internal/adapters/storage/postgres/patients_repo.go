package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"dental-clinic-admin/internal/domain/patients"
)

type PatientsRepo struct {
	db *sql.DB
}

func NewPatientsRepo(db *sql.DB) *PatientsRepo {
	return &PatientsRepo{db: db}
}

var _ patients.Repository = (*PatientsRepo)(nil)

const patientColumns = `
	id, name, email, phone,
	date_of_birth, address, emergency_contact, health_info,
	created_at, updated_at`

func (r *PatientsRepo) Create(ctx context.Context, p patients.Patient) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (`+patientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`,
		p.ID,
		p.Name,
		p.Email,
		p.Phone,
		toNullTime(p.DateOfBirth),
		p.Address,
		p.EmergencyContact,
		p.HealthInfo,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return err
}

func (r *PatientsRepo) Update(ctx context.Context, p patients.Patient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE patients
		SET
			name = $2,
			email = $3,
			phone = $4,
			date_of_birth = $5,
			address = $6,
			emergency_contact = $7,
			health_info = $8,
			updated_at = $9
		WHERE id = $1
	`,
		p.ID,
		p.Name,
		p.Email,
		p.Phone,
		toNullTime(p.DateOfBirth),
		p.Address,
		p.EmergencyContact,
		p.HealthInfo,
		p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return patients.ErrNotFound
	}
	return nil
}

func (r *PatientsRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return patients.ErrNotFound
	}
	return nil
}

func (r *PatientsRepo) GetByID(ctx context.Context, id string) (patients.Patient, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return patients.Patient{}, patients.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1`, id)
	p, err := scanPatient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return patients.Patient{}, patients.ErrNotFound
	}
	return p, err
}

func (r *PatientsRepo) List(ctx context.Context) ([]patients.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+patientColumns+` FROM patients ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]patients.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Seed inserta los registros que falten, respetando el orden dado.
func (r *PatientsRepo) Seed(ctx context.Context, items []patients.Patient) error {
	for _, p := range items {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO patients (`+patientColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name, p.Email, p.Phone, toNullTime(p.DateOfBirth),
			p.Address, p.EmergencyContact, p.HealthInfo, p.CreatedAt, p.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPatient(s scanner) (patients.Patient, error) {
	var p patients.Patient
	var dob sql.NullTime
	if err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&dob,
		&p.Address,
		&p.EmergencyContact,
		&p.HealthInfo,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return patients.Patient{}, err
	}
	// date_of_birth es DATE, pgx lo devuelve como medianoche UTC
	p.DateOfBirth = fromNullTime(dob)
	return p, nil
}
