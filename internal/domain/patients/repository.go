package patients

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("patient not found")

// Repository es una colección ordenada por inserción.
type Repository interface {
	List(ctx context.Context) ([]Patient, error)
	GetByID(ctx context.Context, id string) (Patient, error)
	Create(ctx context.Context, p Patient) error
	Update(ctx context.Context, p Patient) error
	Delete(ctx context.Context, id string) error
}
