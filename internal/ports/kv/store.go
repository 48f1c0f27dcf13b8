package kv

import "context"

// Store es el puerto de persistencia clave/valor (equivalente a localStorage).
// Los valores son blobs opacos; no hay versionado ni migraciones.
type Store interface {
	// Get devuelve (nil, false, nil) si la key no existe.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Keys fijas usadas por los stores.
const (
	KeyPatients     = "patients"
	KeyAppointments = "appointments"
	KeyUser         = "user"
)
