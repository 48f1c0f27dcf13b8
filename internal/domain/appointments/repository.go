package appointments

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrFileNotFound = errors.New("file not found")
)

// Repository guarda la colección en orden de inserción.
type Repository interface {
	List(ctx context.Context) ([]Appointment, error)
	GetByID(ctx context.Context, id string) (Appointment, error)
	Create(ctx context.Context, a Appointment) error
	Update(ctx context.Context, a Appointment) error
	Delete(ctx context.Context, id string) error
}
