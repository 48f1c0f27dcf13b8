package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open abre una conexión pool a Postgres usando pgx (database/sql).
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// seq conserva el orden de inserción; los listados ordenan por seq.
const schema = `
CREATE TABLE IF NOT EXISTS patients (
	seq               BIGSERIAL,
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	email             TEXT NOT NULL,
	phone             TEXT NOT NULL,
	date_of_birth     DATE,
	address           TEXT NOT NULL,
	emergency_contact TEXT NOT NULL,
	health_info       TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS appointments (
	seq                   BIGSERIAL,
	id                    TEXT PRIMARY KEY,
	patient_id            TEXT NOT NULL,
	title                 TEXT NOT NULL,
	description           TEXT NOT NULL DEFAULT '',
	comment               TEXT NOT NULL DEFAULT '',
	appointment_date_time TIMESTAMPTZ NOT NULL,
	cost                  DOUBLE PRECISION CHECK (cost IS NULL OR cost >= 0),
	treatment             TEXT,
	status                TEXT NOT NULL CHECK (status IN ('pending','completed','cancelled')),
	next_appointment_date TIMESTAMPTZ,
	files                 JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at            TIMESTAMPTZ NOT NULL,
	updated_at            TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS appointments_patient_id_idx ON appointments (patient_id);

CREATE TABLE IF NOT EXISTS kv_entries (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema crea las tablas si no existen. No hay migraciones versionadas.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}

// toNullTime: columnas opcionales de fecha.
func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}
